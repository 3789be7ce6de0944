// Package mqtt publishes telemetry records to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/denisbrodbeck/machineid"
	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/flywheel.go/pkg/wheel"
)

// telemetryTopic is appended to the broker URL's path-derived prefix.
const telemetryTopic = "telemetry"

// ClientOptionsFromURL creates ClientOptions from a broker URL like
// mqtt://host:1883/prefix?client-id=ID. The URL path becomes the topic
// prefix; a missing client-id falls back to a machine-derived identity.
func ClientOptionsFromURL(brokerURL string) (*paho.ClientOptions, string, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, "", err
	}
	var server string
	if u.Scheme == "" || u.Scheme == "mqtt" {
		server = "tcp"
	} else {
		server = u.Scheme
	}
	server += "://" + u.Host

	topicPrefix := strings.TrimPrefix(u.Path, "/")

	opts := paho.NewClientOptions()
	opts.AddBroker(server).
		SetAutoReconnect(true).
		SetCleanSession(true)
	if u.User != nil {
		opts.SetUsername(u.User.Username())
		if pwd, ok := u.User.Password(); ok {
			opts.SetPassword(pwd)
		}
	}
	clientID := u.Query().Get("client-id")
	if clientID == "" {
		clientID = defaultClientID()
	}
	opts.SetClientID(clientID)
	return opts, topicPrefix, nil
}

func defaultClientID() string {
	id, err := machineid.ID()
	if err != nil {
		glog.Warningf("machine id unavailable: %v", err)
		return "flywheel"
	}
	return "flywheel-" + id
}

// Publisher publishes telemetry records as JSON to <prefix>/telemetry.
type Publisher struct {
	Client      paho.Client
	TopicPrefix string
}

// NewPublisher creates a Publisher from a broker URL.
func NewPublisher(brokerURL string) (*Publisher, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	if topicPrefix != "" && !strings.HasSuffix(topicPrefix, "/") {
		topicPrefix += "/"
	}
	return &Publisher{
		Client:      paho.NewClient(opts),
		TopicPrefix: topicPrefix,
	}, nil
}

// Connect connects to the broker.
func (p *Publisher) Connect() error {
	token := p.Client.Connect()
	token.Wait()
	return token.Error()
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	p.Client.Disconnect(0)
	return nil
}

// Publish sends one record. Delivery is fire-and-forget at QoS 0.
func (p *Publisher) Publish(rec wheel.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	p.Client.Publish(p.TopicPrefix+telemetryTopic, 0, false, payload)
	return nil
}

// Callback returns a wheel.Callback publishing each current record.
func (p *Publisher) Callback() wheel.Callback {
	return func(cur, _ wheel.Record) {
		if err := p.Publish(cur); err != nil {
			glog.Errorf("mqtt publish: %v", err)
		}
	}
}
