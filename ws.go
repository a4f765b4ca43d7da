package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// wsLayerFilter reads ?layers=0,2 into a subscription list. Empty means
// every layer.
func wsLayerFilter(r *http.Request) ([]uint16, error) {
	q := r.URL.Query().Get("layers")
	if q == "" {
		return nil, nil
	}
	ret := []uint16{}
	for _, f := range strings.Split(q, ",") {
		v, err := strconv.ParseUint(strings.TrimSpace(f), 10, 16)
		if err != nil {
			return nil, err
		}
		ret = append(ret, uint16(v))
	}
	return ret, nil
}

func wsClientHandlerWrapper(exitchan <-chan struct{}) func(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout: 2 * time.Second,
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			log.Printf("Websocket error: %v %v", status, reason.Error())
		},
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		EnableCompression: true,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		layers, err := wsLayerFilter(r)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("Bad layers filter: " + err.Error()))
			return
		}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Print("Websocket upgrade error:", err)
			return
		}
		defer c.Close()
		errChan := make(chan error, 1)
		go func() {
			for {
				_, _, err := c.ReadMessage()
				if err != nil {
					errChan <- err
					return
				}
			}
		}()
		sub := layerEvents.Subscribe(layers...)
		defer layerEvents.Unsubscribe(sub)
		for {
			select {
			case e, ok := <-sub.events:
				if !ok {
					return
				}
				b, err := json.Marshal(e)
				if err != nil {
					log.Printf("Failed to marshal event: %v\n", err)
					return
				}
				c.SetWriteDeadline(time.Now().Add(5 * time.Second))
				err = c.WriteMessage(websocket.TextMessage, b)
				if err != nil {
					return
				}
			case <-errChan:
				return
			case <-exitchan:
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
				return
			}
		}
	}
}
