// Package export forwards and archives decoded telemetry. It consumes the
// driver's public surface and contains no protocol logic.
package export

import (
	"context"
	"encoding/json"
	"net"

	"github.com/golang/glog"

	fx "github.com/robotalks/flywheel.go/pkg/framework"
	"github.com/robotalks/flywheel.go/pkg/wheel"
)

// NewFeed returns a buffered record channel and a wheel.Callback feeding
// it. Records are dropped when the channel is full; forwarding is best
// effort and must never stall the decoder.
func NewFeed(buffer int) (<-chan wheel.Record, wheel.Callback) {
	ch := make(chan wheel.Record, buffer)
	return ch, func(cur, _ wheel.Record) {
		select {
		case ch <- cur:
		default:
		}
	}
}

// UDPForwarder drains a telemetry feed and sends each record as one JSON
// datagram. Send failures are logged and dropped.
type UDPForwarder struct {
	Addr   string
	Source <-chan wheel.Record
}

// NewUDPForwarder creates a forwarder sending to addr (host:port).
func NewUDPForwarder(addr string, source <-chan wheel.Record) *UDPForwarder {
	return &UDPForwarder{Addr: addr, Source: source}
}

// Run implements framework.Runnable.
func (f *UDPForwarder) Run(ctx context.Context) error {
	conn, err := net.Dial("udp", f.Addr)
	if err != nil {
		return err
	}
	return fx.RunWithContextCloser(ctx, conn, func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case rec := <-f.Source:
				data, err := json.Marshal(rec)
				if err != nil {
					glog.Errorf("encode telemetry: %v", err)
					continue
				}
				if _, err := conn.Write(data); err != nil {
					glog.Errorf("udp send to %s: %v", f.Addr, err)
					continue
				}
				glog.V(3).Infof("sent %d bytes to %s", len(data), f.Addr)
			}
		}
	})
}
