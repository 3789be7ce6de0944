package main

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/robotalks/flywheel.go/pkg/wheel"
)

// fileConfig is the wheeld YAML configuration tree.
type fileConfig struct {
	Serial struct {
		Port          string `yaml:"port"`
		Baud          int    `yaml:"baud"`
		ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	} `yaml:"serial"`
	Driver struct {
		QueueSize     int     `yaml:"queue_size"`
		CommHz        float64 `yaml:"comm_hz"`
		TelemetrySize int     `yaml:"telemetry_size"`
		AutoPolling   bool    `yaml:"auto_polling"`
		PollingHz     float64 `yaml:"polling_hz"`
	} `yaml:"driver"`
	Exports struct {
		// UDP is a host:port datagram target; empty disables.
		UDP string `yaml:"udp"`
		// MQTT is a broker URL like mqtt://host:1883/wheel; empty disables.
		MQTT string `yaml:"mqtt"`
		// Listen is the websocket feed listen address; empty disables.
		Listen string `yaml:"listen"`
		// Archive is the JSON file written on shutdown; empty disables.
		Archive string `yaml:"archive"`
	} `yaml:"exports"`
}

func loadConfig(path string) (*fileConfig, error) {
	var conf fileConfig
	if path == "" {
		return &conf, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *fileConfig) driverConfig() wheel.Config {
	conf := wheel.DefaultConfig()
	conf.Port = c.Serial.Port
	if c.Serial.Baud != 0 {
		conf.BaudRate = c.Serial.Baud
	}
	if c.Serial.ReadTimeoutMs != 0 {
		conf.ReadTimeout = time.Duration(c.Serial.ReadTimeoutMs) * time.Millisecond
	}
	if c.Driver.QueueSize != 0 {
		conf.QueueSize = c.Driver.QueueSize
	}
	if c.Driver.CommHz != 0 {
		conf.CommFrequency = c.Driver.CommHz
	}
	if c.Driver.TelemetrySize != 0 {
		conf.TelemetrySize = c.Driver.TelemetrySize
	}
	conf.AutoPolling = c.Driver.AutoPolling
	if c.Driver.PollingHz != 0 {
		conf.PollingFrequency = c.Driver.PollingHz
	}
	return conf
}
