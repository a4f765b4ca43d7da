package dispatchers

import (
	"errors"
	"hash/fnv"
	"io"
	"log"
	"strconv"
	"sync"

	"github.com/maxsupermanhd/TileChunk/mesh"
	"github.com/maxsupermanhd/TileChunk/tilemap"
	"github.com/maxsupermanhd/lac"
)

const (
	DefaultThreads          = 4
	DefaultQueueNormalLen   = 64
	DefaultQueuePriorityLen = 128
)

var ErrMesherClosed = errors.New("mesher is closed")

type meshResult struct {
	mesh mesh.ChunkMesh
	err  error
}

type meshTask struct {
	layer    uint16
	settings tilemap.LayerSettings
	atlas    mesh.Atlas
	chunk    *tilemap.Chunk
	ret      chan<- meshResult
}

type shard struct {
	qnormal   chan meshTask
	qpriority chan meshTask
}

// PipelineMesher meshes dirty chunks on a fixed set of workers. Every chunk
// coord always lands on the same worker.
type PipelineMesher struct {
	shards    []shard
	wg        sync.WaitGroup
	l         *log.Logger
	closeChan chan struct{}
	closeFn   func()
}

// NewPipelineMesher reads threads, queue_normal_len and queue_priority_len
// from cfg, storing defaults for missing keys. A nil cfg uses defaults.
func NewPipelineMesher(cfg *lac.ConfSubtree, logger *log.Logger) *PipelineMesher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg == nil {
		cfg = lac.NewConf().SubTree()
	}
	threads := gtzero(logger, cfg, DefaultThreads, "threads")
	normalLen := gtzero(logger, cfg, DefaultQueueNormalLen, "queue_normal_len")
	priorityLen := gtzero(logger, cfg, DefaultQueuePriorityLen, "queue_priority_len")
	closeChan := make(chan struct{})
	r := &PipelineMesher{
		shards:    make([]shard, threads),
		l:         logger,
		closeChan: closeChan,
		closeFn: sync.OnceFunc(func() {
			close(closeChan)
		}),
	}
	r.wg.Add(threads)
	for i := range r.shards {
		r.shards[i] = shard{
			qnormal:   make(chan meshTask, normalLen),
			qpriority: make(chan meshTask, priorityLen),
		}
		go func(s shard) {
			r.worker(s, closeChan)
			r.wg.Done()
		}(r.shards[i])
	}
	return r
}

// gtzero reads a positive integer. Numbers decoded from JSON are float64
// in the tree, so they go through GetDSFloat64.
func gtzero(l *log.Logger, c *lac.ConfSubtree, d int, p ...string) int {
	v := int(c.GetDSFloat64(float64(d), p...))
	if v > 0 {
		return v
	}
	l.Printf("Non positive %v, defaulting to %d!", p, d)
	return d
}

func (r *PipelineMesher) worker(s shard, close <-chan struct{}) {
	for {
		select {
		case <-close:
			return
		case w := <-s.qpriority:
			r.build(w)
			continue
		default:
		}
		select {
		case <-close:
			return
		case w := <-s.qpriority:
			r.build(w)
		case w := <-s.qnormal:
			r.build(w)
		}
	}
}

func (r *PipelineMesher) build(w meshTask) {
	m, err := mesh.BuildChunk(w.layer, w.settings, w.atlas, w.chunk)
	w.ret <- meshResult{mesh: m, err: err}
}

func shardOf(cc tilemap.ChunkCoord, n int) int {
	h := fnv.New32a()
	h.Write([]byte(strconv.Itoa(cc.X)))
	h.Write([]byte{','})
	h.Write([]byte(strconv.Itoa(cc.Y)))
	return int(h.Sum32() % uint32(n))
}

func (r *PipelineMesher) closed() bool {
	select {
	case <-r.closeChan:
		return true
	default:
		return false
	}
}

func (r *PipelineMesher) rebuild(l *tilemap.Layer, priority bool) ([]mesh.ChunkMesh, error) {
	if r.closed() {
		return []mesh.ChunkMesh{}, ErrMesherClosed
	}
	ret := []mesh.ChunkMesh{}
	err := l.RebuildBatch(func(settings tilemap.LayerSettings, dirty []*tilemap.Chunk) map[tilemap.ChunkCoord]error {
		atlas := mesh.AtlasFromSettings(settings)
		results := make(chan meshResult, len(dirty))
		failed := map[tilemap.ChunkCoord]error{}
		pending := map[tilemap.ChunkCoord]struct{}{}
		collect := func(res meshResult) {
			delete(pending, res.mesh.Coord)
			if res.err != nil {
				failed[res.mesh.Coord] = res.err
				return
			}
			ret = append(ret, res.mesh)
		}
		// abandon runs once the workers are gone: whatever they finished is
		// kept, the rest stays dirty.
		abandon := func() map[tilemap.ChunkCoord]error {
			r.wg.Wait()
			for len(pending) > 0 {
				select {
				case res := <-results:
					collect(res)
					continue
				default:
				}
				break
			}
			for cc := range pending {
				failed[cc] = ErrMesherClosed
			}
			return failed
		}
		for _, c := range dirty {
			s := r.shards[shardOf(c.Coord(), len(r.shards))]
			q := s.qnormal
			if priority {
				q = s.qpriority
			}
			task := meshTask{
				layer:    l.ID(),
				settings: settings,
				atlas:    atlas,
				chunk:    c,
				ret:      results,
			}
			select {
			case q <- task:
				pending[c.Coord()] = struct{}{}
			case <-r.closeChan:
				for _, c := range dirty {
					if _, ok := pending[c.Coord()]; !ok {
						failed[c.Coord()] = ErrMesherClosed
					}
				}
				return abandon()
			}
		}
		for len(pending) > 0 {
			select {
			case res := <-results:
				collect(res)
			case <-r.closeChan:
				return abandon()
			}
		}
		return failed
	})
	if err != nil {
		r.l.Printf("Layer %d rebuilt with errors: %v", l.ID(), err)
	}
	mesh.SortMeshes(ret)
	return ret, err
}

// RebuildDirty blocks until every dirty chunk of l is meshed.
func (r *PipelineMesher) RebuildDirty(l *tilemap.Layer) ([]mesh.ChunkMesh, error) {
	return r.rebuild(l, false)
}

// RebuildDirtyPriority is RebuildDirty ahead of queued normal work.
func (r *PipelineMesher) RebuildDirtyPriority(l *tilemap.Layer) ([]mesh.ChunkMesh, error) {
	return r.rebuild(l, true)
}

// Close stops the workers and waits for them. Later rebuilds fail with
// ErrMesherClosed and leave every chunk dirty.
func (r *PipelineMesher) Close() {
	r.closeFn()
	r.wg.Wait()
}
