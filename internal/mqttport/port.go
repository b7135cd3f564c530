// Package mqttport exposes an MQTT topic as a line-oriented port so the
// serial mux can read IMU samples published by a remote producer.
package mqttport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/lidar-tools/internal/imu"
	"github.com/banshee-data/lidar-tools/internal/monitoring"
)

var logf = monitoring.Prefixed("mqtt")

// Options configures Dial.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Topic    string
	// CommandTopic receives anything written to the port. Empty discards
	// writes.
	CommandTopic string
	QoS          byte
}

// Port implements serialmux.SerialPorter on top of an MQTT subscription.
// Every message becomes one or more newline-terminated lines on the read side.
type Port struct {
	client       mqtt.Client
	topic        string
	commandTopic string
	qos          byte

	pr *io.PipeReader
	pw *io.PipeWriter

	closeOnce  sync.Once
	disconnect bool
}

// Dial connects to the broker and subscribes to opts.Topic.
func Dial(opts Options) (*Port, error) {
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID)

	client := mqtt.NewClient(co)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to %s: %w", opts.Broker, token.Error())
	}
	logf("connected to MQTT broker at %s", opts.Broker)

	p, err := New(client, opts)
	if err != nil {
		client.Disconnect(250)
		return nil, err
	}
	p.disconnect = true
	return p, nil
}

// New subscribes an already connected client to opts.Topic. The caller keeps
// ownership of the connection.
func New(client mqtt.Client, opts Options) (*Port, error) {
	pr, pw := io.Pipe()
	p := &Port{
		client:       client,
		topic:        opts.Topic,
		commandTopic: opts.CommandTopic,
		qos:          opts.QoS,
		pr:           pr,
		pw:           pw,
	}

	token := client.Subscribe(opts.Topic, opts.QoS, p.handle)
	token.Wait()
	if err := token.Error(); err != nil {
		pw.Close()
		return nil, fmt.Errorf("subscribe %s: %w", opts.Topic, err)
	}
	logf("subscribed to MQTT topic %s", opts.Topic)
	return p, nil
}

func (p *Port) handle(_ mqtt.Client, msg mqtt.Message) {
	line, err := PayloadLine(msg.Payload())
	if err != nil {
		logf("dropping payload on %s: %v", msg.Topic(), err)
		return
	}
	if line == "" {
		return
	}
	// blocks until the mux reads the line; ErrClosedPipe after Close is fine
	if _, err := io.WriteString(p.pw, line+"\n"); err != nil && err != io.ErrClosedPipe {
		logf("write payload: %v", err)
	}
}

// PayloadLine converts an MQTT payload to input text. JSON objects are decoded
// as imu.Raw samples; anything else is passed through trimmed.
func PayloadLine(payload []byte) (string, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var raw imu.Raw
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return "", fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
		return raw.Sample().Line(), nil
	}
	return strings.TrimSpace(string(trimmed)), nil
}

func (p *Port) Read(b []byte) (int, error) { return p.pr.Read(b) }

// Write publishes b to the command topic.
func (p *Port) Write(b []byte) (int, error) {
	if p.commandTopic == "" {
		return len(b), nil
	}
	token := p.client.Publish(p.commandTopic, p.qos, false, bytes.TrimRight(b, "\n"))
	token.Wait()
	if err := token.Error(); err != nil {
		return 0, err
	}
	return len(b), nil
}

// Close unsubscribes and ends the read side with io.EOF.
func (p *Port) Close() error {
	var err error
	p.closeOnce.Do(func() {
		// closing the pipe first releases a handler blocked on a full pipe
		p.pw.Close()
		token := p.client.Unsubscribe(p.topic)
		token.Wait()
		err = token.Error()
		if p.disconnect {
			p.client.Disconnect(250)
		}
	})
	return err
}
