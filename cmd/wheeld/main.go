package main

import (
	"context"
	"flag"
	"net/http"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/flywheel.go/pkg/export"
	"github.com/robotalks/flywheel.go/pkg/export/mqtt"
	"github.com/robotalks/flywheel.go/pkg/export/wsfeed"
	fx "github.com/robotalks/flywheel.go/pkg/framework"
	"github.com/robotalks/flywheel.go/pkg/wheel"
)

var (
	configFile = "wheeld.yaml"
	serialPort = ""
)

func init() {
	if val := os.Getenv("WHEELD_CONFIG"); val != "" {
		configFile = val
	}
	flag.StringVar(&configFile, "config", configFile, "Configuration file.")
	flag.StringVar(&serialPort, "port", serialPort, "Serial port, overrides config.")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := loadConfig(configFile)
	if err != nil {
		glog.Exitf("load config %s: %v", configFile, err)
	}
	driverConf := conf.driverConfig()
	if serialPort != "" {
		driverConf.Port = serialPort
	}
	drv := wheel.NewSerial(driverConf)

	runner := fx.NewRunner().HandleSignals()
	var callbacks []wheel.Callback

	if addr := conf.Exports.UDP; addr != "" {
		feed, cb := export.NewFeed(driverConf.TelemetrySize)
		callbacks = append(callbacks, cb)
		runner.Go(fx.NamedRun("udp", export.NewUDPForwarder(addr, feed)))
		glog.Infof("forwarding telemetry to udp %s", addr)
	}
	if brokerURL := conf.Exports.MQTT; brokerURL != "" {
		pub, err := mqtt.NewPublisher(brokerURL)
		if err != nil {
			glog.Exitf("mqtt publisher: %v", err)
		}
		if err := pub.Connect(); err != nil {
			glog.Exitf("mqtt connect: %v", err)
		}
		defer pub.Close()
		callbacks = append(callbacks, pub.Callback())
		glog.Infof("publishing telemetry to %s", brokerURL)
	}
	if listen := conf.Exports.Listen; listen != "" {
		feed := wsfeed.New()
		callbacks = append(callbacks, feed.Callback())
		go func() {
			if err := http.ListenAndServe(listen, feed.Handler()); err != nil {
				glog.Errorf("websocket feed: %v", err)
			}
		}()
		glog.Infof("serving telemetry feed on ws://%s", listen)
	}

	drv.OnTelemetry(func(cur, prev wheel.Record) {
		for _, cb := range callbacks {
			cb(cur, prev)
		}
	})

	if err := drv.Connect(); err != nil {
		glog.Exitf("%v", err)
	}
	drv.Start()

	// block until a stop signal cancels the runner context
	runner.Go(fx.NamedRun("wait", fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	if err := runner.Wait(); err != nil {
		glog.Errorf("%v", err)
	}

	drv.Disconnect()
	if path := conf.Exports.Archive; path != "" {
		if err := export.SaveArchive(path, drv.Telemetry()); err != nil {
			glog.Errorf("archive telemetry: %v", err)
		}
	}
}
