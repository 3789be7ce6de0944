package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"github.com/robotalks/flywheel.go/pkg/export"
	"github.com/robotalks/flywheel.go/pkg/wheel"
)

var (
	serialPort  = "/dev/ttyUSB0"
	baudRate    = 115200
	autoPolling = false
	pollingHz   = 100.0
)

func init() {
	flag.StringVar(&serialPort, "port", serialPort, "Serial port of the wheel.")
	flag.IntVar(&baudRate, "baud", baudRate, "Baud rate.")
	flag.BoolVar(&autoPolling, "poll", autoPolling, "Enable automatic status polling.")
	flag.Float64Var(&pollingHz, "poll-hz", pollingHz, "Polling frequency in Hz.")
}

// setpointCmd builds a shell command setting one actuation value.
func setpointCmd(name, help string, set func(float32) error) *ishell.Cmd {
	return &ishell.Cmd{
		Name: name,
		Help: help,
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("VALUE required"))
				return
			}
			val, err := strconv.ParseFloat(c.Args[0], 32)
			if err != nil {
				c.Err(fmt.Errorf("invalid VALUE: %v", err))
				return
			}
			if err := set(float32(val)); err != nil {
				c.Err(err)
			}
		},
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf := wheel.DefaultConfig()
	conf.Port = serialPort
	conf.BaudRate = baudRate
	conf.AutoPolling = autoPolling
	conf.PollingFrequency = pollingHz
	drv := wheel.NewSerial(conf)
	defer drv.Disconnect()

	shell := ishell.New()
	shell.Println("flywheel control shell")
	shell.SetPrompt(serialPort + " > ")

	shell.AddCmd(&ishell.Cmd{
		Name: "connect",
		Help: "open the serial link",
		Func: func(c *ishell.Context) {
			if err := drv.Connect(); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "start",
		Help: "start the communication loops",
		Func: func(c *ishell.Context) {
			drv.Start()
		},
	})
	shell.AddCmd(setpointCmd("speed", "VALUE(RPM, -6050..6050)", drv.SetSpeed))
	shell.AddCmd(setpointCmd("torque", "VALUE(mN.m, -50..50)", drv.SetTorque))
	shell.AddCmd(setpointCmd("current", "VALUE(mA, -1500..1500)", drv.SetCurrent))
	shell.AddCmd(&ishell.Cmd{
		Name: "poll",
		Help: "request one status frame",
		Func: func(c *ishell.Context) {
			if err := drv.PollStatus(); err != nil {
				c.Err(err)
			}
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "status",
		Help: "print the latest telemetry record",
		Func: func(c *ishell.Context) {
			rec, ok := drv.LastTelemetry()
			if !ok {
				c.Println("no telemetry yet")
				return
			}
			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(string(out))
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "save",
		Help: "FILE - archive retained telemetry as JSON",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("FILE required"))
				return
			}
			if err := export.SaveArchive(c.Args[0], drv.Telemetry()); err != nil {
				c.Err(err)
				return
			}
			c.Printf("saved %d records\n", len(drv.Telemetry()))
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop the communication loops",
		Func: func(c *ishell.Context) {
			drv.Stop()
		},
	})
	shell.AddCmd(&ishell.Cmd{
		Name: "disconnect",
		Help: "stop loops and close the serial link",
		Func: func(c *ishell.Context) {
			drv.Disconnect()
		},
	})

	shell.Run()
}
