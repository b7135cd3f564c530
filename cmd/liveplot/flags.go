package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/banshee-data/lidar-tools/internal/config"
	"github.com/banshee-data/lidar-tools/internal/liveplot"
	"github.com/banshee-data/lidar-tools/internal/serialmux"
)

// defaultPNGPath is used when neither -png nor -listen selects an output.
const defaultPNGPath = "imu.png"

var errCommandsNeedDevice = errors.New("startup commands need a serial port or MQTT input")

type options struct {
	configPath       string
	port             string
	baud             int
	mqttBroker       string
	mqttTopic        string
	mqttCommandTopic string
	commands         []string
	pngPath          string
	listen           string
	autoY            bool
	quietEcho        bool
	showVersion      bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "Path to a JSON config file (see config/tools.defaults.json)")
	fs.StringVar(&o.port, "port", "", "Serial port to read samples from (default stdin)")
	fs.IntVar(&o.baud, "baud", 0, "Serial baud rate (default from config, 9600)")
	fs.StringVar(&o.mqttBroker, "mqtt-broker", "", "MQTT broker URL to read samples from, e.g. tcp://localhost:1883")
	fs.StringVar(&o.mqttTopic, "mqtt-topic", "", "MQTT topic carrying samples")
	fs.StringVar(&o.mqttCommandTopic, "mqtt-command-topic", "", "MQTT topic that receives -send commands")
	fs.Func("send", "Command to write to the input device before reading (repeatable)", func(v string) error {
		o.commands = append(o.commands, v)
		return nil
	})
	fs.StringVar(&o.pngPath, "png", "", "Write the chart to this PNG file on every redraw")
	fs.StringVar(&o.listen, "listen", "", "Serve the live chart over HTTP on this address (empty disables)")
	fs.BoolVar(&o.autoY, "auto-y", false, "Fit each panel's Y axis to its data instead of y_min/y_max")
	fs.BoolVar(&o.quietEcho, "quiet-echo", false, "Do not echo input lines to stdout")
	fs.BoolVar(&o.showVersion, "version", false, "Print version and exit")
	return o
}

// settings is the merged result of the config file and the flags.
type settings struct {
	windowSize       int
	batchSize        int
	interval         time.Duration
	y                liveplot.YRange
	pngPath          string
	listen           string
	serialPort       string
	serial           serialmux.PortOptions
	mqttBroker       string
	mqttTopic        string
	mqttCommandTopic string
	mqttClientID     string
	commands         []string
	echo             bool
}

// resolve applies the flags on top of cfg. A flag left at its zero value
// does not override the config.
func resolve(o *options, cfg *config.ToolsConfig) (settings, error) {
	s := settings{
		windowSize: cfg.GetWindowSize(),
		batchSize:  cfg.GetBatchSize(),
		interval:   cfg.GetRedrawInterval(),
		y: liveplot.YRange{
			Min:  cfg.GetYMin(),
			Max:  cfg.GetYMax(),
			Auto: cfg.GetAutoYRange() || o.autoY,
		},
		pngPath:    cfg.GetPNGPath(),
		listen:     cfg.GetListen(),
		serialPort: cfg.GetSerialPort(),
		serial: serialmux.PortOptions{
			BaudRate: cfg.GetSerialBaudRate(),
			DataBits: cfg.GetSerialDataBits(),
			StopBits: cfg.GetSerialStopBits(),
			Parity:   cfg.GetSerialParity(),
		},
		mqttBroker:       cfg.GetMQTTBroker(),
		mqttTopic:        cfg.GetMQTTTopic(),
		mqttCommandTopic: cfg.GetMQTTCommandTopic(),
		mqttClientID:     cfg.GetMQTTClientID(),
		commands:         cfg.GetStartupCommands(),
		echo:             !o.quietEcho,
	}
	if o.port != "" {
		s.serialPort = o.port
	}
	if o.baud != 0 {
		s.serial.BaudRate = o.baud
	}
	if o.mqttBroker != "" {
		s.mqttBroker = o.mqttBroker
	}
	if o.mqttTopic != "" {
		s.mqttTopic = o.mqttTopic
	}
	if o.mqttCommandTopic != "" {
		s.mqttCommandTopic = o.mqttCommandTopic
	}
	if len(o.commands) > 0 {
		s.commands = o.commands
	}
	if o.pngPath != "" {
		s.pngPath = o.pngPath
	}
	if o.listen != "" {
		s.listen = o.listen
	}

	if s.serialPort != "" && s.mqttBroker != "" {
		return s, fmt.Errorf("choose one input: serial port %q or MQTT broker %q", s.serialPort, s.mqttBroker)
	}
	if s.serial.BaudRate < 0 {
		return s, fmt.Errorf("baud rate must be positive, got %d", s.serial.BaudRate)
	}
	serial, err := s.serial.Normalize()
	if err != nil {
		return s, fmt.Errorf("invalid serial settings: %w", err)
	}
	s.serial = serial
	if len(s.commands) > 0 && s.serialPort == "" && s.mqttBroker == "" {
		return s, errCommandsNeedDevice
	}
	if s.pngPath == "" && s.listen == "" {
		s.pngPath = defaultPNGPath
	}
	return s, nil
}
