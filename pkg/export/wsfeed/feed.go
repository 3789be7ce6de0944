// Package wsfeed serves live telemetry to websocket clients.
package wsfeed

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/flywheel.go/pkg/wheel"
)

// Feed fans decoded telemetry out to connected websocket clients. Slow
// clients drop records rather than backpressuring the decoder.
type Feed struct {
	lock    sync.Mutex
	clients map[chan []byte]struct{}
}

// New creates a Feed.
func New() *Feed {
	return &Feed{clients: make(map[chan []byte]struct{})}
}

// Publish sends one record to every connected client.
func (f *Feed) Publish(rec wheel.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		glog.Errorf("encode telemetry: %v", err)
		return
	}
	f.lock.Lock()
	for ch := range f.clients {
		select {
		case ch <- data:
		default:
		}
	}
	f.lock.Unlock()
}

// Callback returns a wheel.Callback publishing each current record.
func (f *Feed) Callback() wheel.Callback {
	return func(cur, _ wheel.Record) {
		f.Publish(cur)
	}
}

func (f *Feed) addClient(ch chan []byte) {
	f.lock.Lock()
	f.clients[ch] = struct{}{}
	f.lock.Unlock()
}

func (f *Feed) removeClient(ch chan []byte) {
	f.lock.Lock()
	delete(f.clients, ch)
	f.lock.Unlock()
}

func (f *Feed) clientCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.clients)
}

// Handler returns the websocket upgrade handler.
func (f *Feed) Handler() http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		ch := make(chan []byte, 16)
		f.addClient(ch)
		defer f.removeClient(ch)

		// Inbound traffic is ignored, but the read detects the client
		// hanging up so the send loop isn't left waiting for the next
		// Publish.
		gone := make(chan struct{})
		go func() {
			var msg []byte
			for {
				if err := websocket.Message.Receive(conn, &msg); err != nil {
					close(gone)
					return
				}
			}
		}()
		for {
			select {
			case data := <-ch:
				if err := websocket.Message.Send(conn, data); err != nil {
					glog.V(1).Infof("websocket client gone: %v", err)
					return
				}
			case <-gone:
				return
			}
		}
	})
}
