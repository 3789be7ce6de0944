package wheel

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/flywheel.go/pkg/framework"
	"github.com/robotalks/flywheel.go/pkg/wheel/transport"
)

// Callback receives each decoded telemetry record paired with the
// previously retained one. When no record was retained yet, previous is the
// current record itself. Callbacks are invoked in frame-decode order and
// never concurrently with each other.
type Callback func(current, previous Record)

// Config defines the driver configuration.
type Config struct {
	// Port and BaudRate identify the serial link. Unused when the driver is
	// constructed with an explicit Transport.
	Port     string
	BaudRate int
	// ReadTimeout bounds each transport read. Must be finite: a read with
	// no timeout could stall shutdown.
	ReadTimeout time.Duration
	// QueueSize is the capacity of the command queue and the raw-byte queue.
	QueueSize int
	// CommFrequency is the writer/reader/decoder pacing in Hz.
	CommFrequency float64
	// TelemetrySize is the retention capacity of the telemetry ring.
	TelemetrySize int
	// AutoPolling spawns the polling loop on Start.
	AutoPolling bool
	// PollingFrequency is the polling loop pacing in Hz.
	PollingFrequency float64
}

// DefaultConfig returns the config defaults.
func DefaultConfig() Config {
	return Config{
		BaudRate:         115200,
		ReadTimeout:      time.Second,
		QueueSize:        1000,
		CommFrequency:    200,
		TelemetrySize:    1000,
		PollingFrequency: 100,
	}
}

func (c *Config) fillDefaults() {
	def := DefaultConfig()
	if c.BaudRate == 0 {
		c.BaudRate = def.BaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = def.ReadTimeout
	}
	if c.QueueSize <= 0 {
		c.QueueSize = def.QueueSize
	}
	if c.CommFrequency <= 0 {
		c.CommFrequency = def.CommFrequency
	}
	if c.TelemetrySize <= 0 {
		c.TelemetrySize = def.TelemetrySize
	}
	if c.PollingFrequency <= 0 {
		c.PollingFrequency = def.PollingFrequency
	}
}

// readChunkSize is the per-tick bounded read issued by the reader loop.
const readChunkSize = 40

// disconnectedIdle is the coarse back-off a loop sleeps while the transport
// is not connected.
const disconnectedIdle = time.Second

// Driver drives one reaction wheel over a point-to-point byte stream.
// Multiple drivers run with fully independent state.
type Driver struct {
	conf Config
	tr   transport.Transport

	cmdQueue *CommandQueue
	rawQueue chan []byte
	ring     *Ring
	callback Callback

	mu        sync.Mutex
	connected bool
	running   bool
	cancel    context.CancelFunc
	runner    *fx.Runner
}

// New creates a Driver over tr. For a serial link use NewSerial.
func New(conf Config, tr transport.Transport) *Driver {
	conf.fillDefaults()
	return &Driver{
		conf:     conf,
		tr:       tr,
		cmdQueue: NewCommandQueue(conf.QueueSize),
		rawQueue: make(chan []byte, conf.QueueSize),
		ring:     NewRing(conf.TelemetrySize),
	}
}

// NewSerial creates a Driver over the serial port named by conf.
func NewSerial(conf Config) *Driver {
	conf.fillDefaults()
	return New(conf, transport.NewSerial(transport.SerialConfig{
		Port:        conf.Port,
		BaudRate:    conf.BaudRate,
		ReadTimeout: conf.ReadTimeout,
	}))
}

// OnTelemetry registers the telemetry callback. Register before Start; the
// slot is read by the decoder loop thereafter.
func (d *Driver) OnTelemetry(cb Callback) {
	d.mu.Lock()
	if d.running {
		glog.Warning("telemetry callback registered while running")
	}
	d.callback = cb
	d.mu.Unlock()
}

// Connect opens the transport. Connecting an already connected driver is a
// warned no-op.
func (d *Driver) Connect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		glog.Warning("wheel already connected")
		return nil
	}
	if err := d.tr.Open(); err != nil {
		return &ConnectionError{Port: d.conf.Port, Err: err}
	}
	d.connected = true
	glog.Infof("wheel connected on %q", d.conf.Port)
	return nil
}

// IsConnected reports whether the transport is open.
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

// Start spawns the writer, reader and decoder loops, plus the polling loop
// when AutoPolling is set. Starting an already started driver is a warned
// no-op.
func (d *Driver) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		glog.Warning("wheel already started")
		return
	}
	d.running = true
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.runner = fx.NewRunnerWith(ctx)
	d.runner.Go(
		fx.NamedRun("writer", fx.RunFunc(d.writerLoop)),
		fx.NamedRun("reader", fx.RunFunc(d.readerLoop)),
		fx.NamedRun("decoder", fx.RunFunc(d.decoderLoop)),
	)
	glog.Infof("wheel loops started at %gHz", d.conf.CommFrequency)
	if d.conf.AutoPolling {
		d.runner.Go(fx.NamedRun("poller", fx.RunFunc(d.pollerLoop)))
		glog.Infof("polling loop started at %gHz", d.conf.PollingFrequency)
	}
}

// Stop signals all loops to exit and waits for each to terminate. When Stop
// returns, no loop is touching the transport, even if commands remain
// queued.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	cancel, runner := d.cancel, d.runner
	d.cancel, d.runner = nil, nil
	d.mu.Unlock()

	cancel()
	if err := runner.Wait(); err != nil {
		glog.Errorf("wheel loops stopped with errors: %v", err)
	}
	glog.Info("wheel stopped")
}

// Disconnect stops the loops and closes the transport. Safe to call
// multiple times.
func (d *Driver) Disconnect() {
	d.Stop()
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return
	}
	if err := d.tr.Close(); err != nil {
		glog.Errorf("close transport: %v", err)
	}
	d.connected = false
	glog.Info("wheel disconnected")
}

// SetSpeed enqueues a speed setpoint in RPM, range -6050..+6050.
func (d *Driver) SetSpeed(rpm float32) error {
	return d.send(Speed, rpm)
}

// SetTorque enqueues a torque setpoint in mN.m, range -50..+50.
func (d *Driver) SetTorque(torque float32) error {
	return d.send(Torque, torque)
}

// SetCurrent enqueues a current setpoint in mA, range -1500..+1500.
func (d *Driver) SetCurrent(current float32) error {
	return d.send(Current, current)
}

// PollStatus enqueues one status poll. Fails with ErrNotConnected when the
// transport is not open.
func (d *Driver) PollStatus() error {
	if !d.IsConnected() {
		return ErrNotConnected
	}
	return d.send(Poll, 0)
}

func (d *Driver) send(kind CommandKind, value float32) error {
	frame, err := EncodeCommand(kind, value)
	if err != nil {
		return err
	}
	return d.cmdQueue.Enqueue(frame)
}

// Telemetry returns a point-in-time snapshot of the retained records,
// oldest first.
func (d *Driver) Telemetry() []Record {
	return d.ring.Snapshot()
}

// LastTelemetry returns the most recent record.
func (d *Driver) LastTelemetry() (Record, bool) {
	return d.ring.Last()
}

// ExportJSON serializes the retained records as a JSON array.
func (d *Driver) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(d.ring.Snapshot())
}

// writerLoop dequeues command frames and writes them to the transport at
// the communication frequency. Transport faults are logged and the loop
// continues; the driver stays degraded until the caller cycles
// Disconnect/Connect.
func (d *Driver) writerLoop(ctx context.Context) error {
	pacer := fx.PacerAt(d.conf.CommFrequency)
	for ctx.Err() == nil {
		if !d.IsConnected() {
			pacer.Reset()
			if err := sleepCtx(ctx, disconnectedIdle); err != nil {
				return err
			}
			continue
		}
		frame, ok := d.cmdQueue.Dequeue(pacer.Period)
		if !ok {
			continue
		}
		if n, err := d.tr.Write(frame); err != nil {
			glog.Errorf("write command % X: %v", frame, err)
		} else if n != len(frame) {
			glog.Errorf("short write: %d of %d bytes of % X", n, len(frame), frame)
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// readerLoop performs one bounded transport read per tick and forwards any
// bytes as an opaque chunk to the raw-byte queue. No bytes is not an error.
func (d *Driver) readerLoop(ctx context.Context) error {
	pacer := fx.PacerAt(d.conf.CommFrequency)
	buf := make([]byte, readChunkSize)
	for ctx.Err() == nil {
		if !d.IsConnected() {
			pacer.Reset()
			if err := sleepCtx(ctx, disconnectedIdle); err != nil {
				return err
			}
			continue
		}
		if n, err := d.tr.Read(buf); err != nil {
			glog.Errorf("transport read: %v", err)
		} else if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case d.rawQueue <- chunk:
			default:
				glog.Warningf("raw-byte queue full, dropped %d bytes", n)
			}
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// decoderLoop drains at most one raw chunk per tick into the assembler and
// handles every frame it yields. It never blocks on I/O.
func (d *Driver) decoderLoop(ctx context.Context) error {
	pacer := fx.PacerAt(d.conf.CommFrequency)
	var asm Assembler
	for ctx.Err() == nil {
		select {
		case chunk := <-d.rawQueue:
			for _, frame := range asm.Feed(chunk) {
				d.handleFrame(frame)
			}
		default:
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// pollerLoop enqueues a poll command per tick through the same queue used
// by explicit actuation calls.
func (d *Driver) pollerLoop(ctx context.Context) error {
	pacer := fx.PacerAt(d.conf.PollingFrequency)
	for ctx.Err() == nil {
		if !d.IsConnected() {
			pacer.Reset()
			if err := sleepCtx(ctx, disconnectedIdle); err != nil {
				return err
			}
			continue
		}
		if err := d.PollStatus(); err != nil {
			glog.Errorf("poll: %v", err)
		}
		if err := pacer.Wait(ctx); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (d *Driver) handleFrame(frame []byte) {
	if len(frame) != TelemetryFrameLen {
		// 8-byte acknowledgment of a set command; no telemetry produced.
		if sum := Checksum(frame[2 : len(frame)-1]); sum != frame[len(frame)-1] {
			glog.Warningf("acknowledgment discarded, checksum %02X != %02X: % X",
				frame[len(frame)-1], sum, frame)
			return
		}
		glog.V(2).Infof("acknowledgment: % X", frame)
		return
	}
	rec, err := DecodeTelemetry(frame)
	if err != nil {
		glog.Warningf("telemetry discarded: %v: % X", err, frame)
		return
	}
	prev, ok := d.ring.Last()
	if !ok {
		prev = rec
	}
	d.notify(rec, prev)
	d.ring.Append(rec)
}

// notify invokes the registered callback, isolating the decoder loop from
// panics in caller code.
func (d *Driver) notify(cur, prev Record) {
	d.mu.Lock()
	cb := d.callback
	d.mu.Unlock()
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			glog.Errorf("telemetry callback panicked: %v", r)
		}
	}()
	cb(cur, prev)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
