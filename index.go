package main

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/host"
	"github.com/shirou/gopsutil/load"
	"github.com/shirou/gopsutil/mem"
)

var (
	cpuMu     sync.Mutex
	cpuSince  = time.Now()
	cpuReport = "n/a"
)

// cpuUsage reports usage since the previous sample, resampling at most once
// a second.
func cpuUsage() string {
	cpuMu.Lock()
	defer cpuMu.Unlock()
	if time.Since(cpuSince) < time.Second {
		return cpuReport
	}
	p, err := cpu.Percent(0, false)
	if err != nil || len(p) == 0 {
		return cpuReport
	}
	cpuReport = fmt.Sprintf("%.1f%% (past %s)", p[0], time.Since(cpuSince).Truncate(time.Second))
	cpuSince = time.Now()
	return cpuReport
}

func indexHandler(w http.ResponseWriter, r *http.Request) (int, string) {
	load, _ := load.Avg()
	virtmem, _ := mem.VirtualMemory()
	uptime, _ := host.Uptime()

	type LayerData struct {
		ID          uint16
		Chunks      int
		DirtyChunks int
		Tiles       int
		MemSize     string
	}
	type StorageData struct {
		Name         string
		Type         string
		Online       bool
		KeepsHistory bool
		ChunkCount   uint64
		ChunkSize    string
	}
	layers := []LayerData{}
	for _, l := range eng.Map().Layers() {
		st := l.Stats()
		layers = append(layers, LayerData{
			ID:          l.ID(),
			Chunks:      st.Chunks,
			DirtyChunks: st.DirtyChunks,
			Tiles:       st.Tiles,
			MemSize:     humanize.Bytes(st.Bytes),
		})
	}
	var chunksCount, chunksSizeBytes uint64
	st := []StorageData{}
	for _, s := range storagesSnapshot() {
		if s.Driver == nil {
			st = append(st, StorageData{Name: s.Name, Type: s.Type, Online: false})
			continue
		}
		achunksCount, _ := s.Driver.GetChunksCount()
		achunksSizeBytes, _ := s.Driver.GetChunksSize()
		chunksCount += achunksCount
		chunksSizeBytes += achunksSizeBytes
		st = append(st, StorageData{
			Name:         s.Name,
			Type:         s.Type,
			Online:       true,
			KeepsHistory: s.Driver.GetAbilities().CanPreserveOldChunks,
			ChunkCount:   achunksCount,
			ChunkSize:    humanize.Bytes(achunksSizeBytes),
		})
	}
	setContentTypeJson(w)
	return marshalOrFail(200, map[string]interface{}{
		"BuildTime":   BuildTime,
		"GitTag":      GitTag,
		"CommitHash":  CommitHash,
		"GoVersion":   GoVersion,
		"LoadAvg":     load,
		"VirtMem":     virtmem,
		"Uptime":      (time.Duration(uptime) * time.Second).String(),
		"Frame":       eng.FrameNumber(),
		"Layers":      layers,
		"Textures":    eng.Textures().GetStats(),
		"ChunksCount": chunksCount,
		"ChunksSize":  humanize.Bytes(chunksSizeBytes),
		"CPUReport":   cpuUsage(),
		"Storages":    st,
		"EventsLost":  layerEvents.Dropped(),
	})
}
