// wheelprofile replays a speed-profile time series against the wheel while
// telemetry is forwarded over UDP.
package main

import (
	"context"
	"flag"

	"github.com/golang/glog"

	"github.com/robotalks/flywheel.go/pkg/export"
	fx "github.com/robotalks/flywheel.go/pkg/framework"
	"github.com/robotalks/flywheel.go/pkg/profile"
	"github.com/robotalks/flywheel.go/pkg/wheel"
)

var (
	serialPort  = "/dev/ttyUSB0"
	baudRate    = 115200
	profileFile = "speed_profile.csv"
	replayHz    = 100.0
	udpAddr     = "127.0.0.1:5005"
)

func init() {
	flag.StringVar(&serialPort, "port", serialPort, "Serial port of the wheel.")
	flag.IntVar(&baudRate, "baud", baudRate, "Baud rate.")
	flag.StringVar(&profileFile, "profile", profileFile, "Speed profile file.")
	flag.Float64Var(&replayHz, "rate", replayHz, "Replay and polling rate in Hz.")
	flag.StringVar(&udpAddr, "udp", udpAddr, "Telemetry forwarding target.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	prof, err := profile.Load(profileFile)
	if err != nil {
		glog.Exitf("load speed profile: %v", err)
	}
	glog.Infof("loaded %d speed points, last speed %g RPM", len(prof.Speeds), prof.Last())

	conf := wheel.DefaultConfig()
	conf.Port = serialPort
	conf.BaudRate = baudRate
	conf.AutoPolling = true
	conf.PollingFrequency = replayHz
	drv := wheel.NewSerial(conf)

	feed, cb := export.NewFeed(10000)
	drv.OnTelemetry(cb)

	if err := drv.Connect(); err != nil {
		glog.Exitf("%v", err)
	}
	drv.Start()
	defer drv.Disconnect()

	runner := fx.NewRunner().HandleSignals()
	runner.Go(fx.NamedRun("udp", export.NewUDPForwarder(udpAddr, feed)))
	runner.Go(fx.NamedRun("replay", fx.RunFunc(func(ctx context.Context) error {
		return prof.Replay(ctx, replayHz, drv.SetSpeed)
	})))
	if err := runner.Wait(); err != nil {
		glog.Errorf("%v", err)
	}
}
