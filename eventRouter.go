package main

import (
	"log"
	"sync/atomic"

	"github.com/maxsupermanhd/TileChunk/tilemap"
)

// noLayer marks events that concern the whole map.
const noLayer = -1

type layerEvent struct {
	Action string `json:"action"`
	Layer  int    `json:"layer"`
	Data   any    `json:"data"`
}

// layerSubscriber receives events of the listed layers, or of every layer
// when the list is empty. Map wide events always pass.
type layerSubscriber struct {
	events chan layerEvent
	layers map[uint16]struct{}
}

func (s *layerSubscriber) wants(e layerEvent) bool {
	if e.Layer == noLayer || len(s.layers) == 0 {
		return true
	}
	_, ok := s.layers[uint16(e.Layer)]
	return ok
}

type layerEventRouter struct {
	subscribe   chan *layerSubscriber
	unsubscribe chan *layerSubscriber
	events      chan layerEvent
	dropped     atomic.Uint64
}

var layerEvents = newLayerEventRouter()

func newLayerEventRouter() *layerEventRouter {
	return &layerEventRouter{
		subscribe:   make(chan *layerSubscriber, 16),
		unsubscribe: make(chan *layerSubscriber, 16),
		events:      make(chan layerEvent, 256),
	}
}

// Run owns the subscriber set until exitchan fires, then closes every
// subscriber channel.
func (router *layerEventRouter) Run(exitchan <-chan struct{}) {
	subs := map[*layerSubscriber]struct{}{}
	for {
		select {
		case <-exitchan:
			for s := range subs {
				close(s.events)
			}
			return
		case s := <-router.subscribe:
			subs[s] = struct{}{}
		case s := <-router.unsubscribe:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.events)
			}
		case e := <-router.events:
			for s := range subs {
				if !s.wants(e) {
					continue
				}
				select {
				case s.events <- e:
				default:
					router.dropped.Add(1)
					log.Printf("Event %v for layer %d dropped, subscriber is behind", e.Action, e.Layer)
				}
			}
		}
	}
}

func (router *layerEventRouter) Subscribe(layers ...uint16) *layerSubscriber {
	s := &layerSubscriber{
		events: make(chan layerEvent, 256),
		layers: make(map[uint16]struct{}, len(layers)),
	}
	for _, l := range layers {
		s.layers[l] = struct{}{}
	}
	router.subscribe <- s
	return s
}

func (router *layerEventRouter) Unsubscribe(s *layerSubscriber) {
	router.unsubscribe <- s
}

// Broadcast never blocks the caller, events are dropped when the router is
// behind.
func (router *layerEventRouter) Broadcast(e layerEvent) {
	select {
	case router.events <- e:
	default:
		router.dropped.Add(1)
		log.Printf("Event %v dropped, router queue full", e.Action)
	}
}

func (router *layerEventRouter) Dropped() uint64 {
	return router.dropped.Load()
}

type tileEventData struct {
	X    int           `json:"x"`
	Y    int           `json:"y"`
	Tile *tilemap.Tile `json:"tile"`
}

func tileEvent(action string, layer uint16, pos tilemap.TilePos, t *tilemap.Tile) layerEvent {
	return layerEvent{
		Action: action,
		Layer:  int(layer),
		Data:   tileEventData{X: pos.X, Y: pos.Y, Tile: t},
	}
}

type chunksEventData struct {
	Frame  uint64               `json:"frame"`
	Chunks []tilemap.ChunkCoord `json:"chunks"`
}

func chunksEvent(frame uint64, layer uint16, coords []tilemap.ChunkCoord) layerEvent {
	return layerEvent{
		Action: "chunksRebuilt",
		Layer:  int(layer),
		Data:   chunksEventData{Frame: frame, Chunks: coords},
	}
}
