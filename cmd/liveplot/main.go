// Command liveplot reads IMU samples (accelerometer X/Y/Z then gyroscope
// X/Y/Z per line) from stdin, a serial port or an MQTT topic, echoes each
// line to stdout and keeps a two-panel chart of the most recent samples up
// to date as a PNG file and/or a small web page.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/banshee-data/lidar-tools/internal/config"
	"github.com/banshee-data/lidar-tools/internal/imu"
	"github.com/banshee-data/lidar-tools/internal/liveplot"
	"github.com/banshee-data/lidar-tools/internal/mqttport"
	"github.com/banshee-data/lidar-tools/internal/serialmux"
	"github.com/banshee-data/lidar-tools/internal/version"
)

// lineBuffer is the number of input lines queued ahead of the feeder.
const lineBuffer = 256

// openInput selects the sample source. in is read when neither a serial
// port nor an MQTT broker is configured.
func openInput(s settings, in io.Reader) (serialmux.SerialMuxInterface, error) {
	switch {
	case s.mqttBroker != "":
		port, err := mqttport.Dial(mqttport.Options{
			Broker:       s.mqttBroker,
			ClientID:     s.mqttClientID,
			Topic:        s.mqttTopic,
			CommandTopic: s.mqttCommandTopic,
		})
		if err != nil {
			return nil, err
		}
		log.Printf("reading samples from MQTT topic %s on %s", s.mqttTopic, s.mqttBroker)
		return serialmux.NewSerialMux(port), nil

	case s.serialPort != "":
		mux, err := serialmux.NewRealSerialMux(s.serialPort, s.serial)
		if err != nil {
			return nil, err
		}
		log.Printf("reading samples from serial port %s at %s", s.serialPort, s.serial)
		return mux, nil

	default:
		return serialmux.NewStdioMux(in, nil), nil
	}
}

// sendCommands writes each startup command to the input device in order.
func sendCommands(input serialmux.SerialMuxInterface, commands []string) error {
	for _, c := range commands {
		if err := input.SendCommand(c); err != nil {
			return fmt.Errorf("failed to send command %q: %w", c, err)
		}
		log.Printf("sent command %q", c)
	}
	return nil
}

// run plots samples from the configured input until it ends, a line fails
// to parse or ctx is cancelled. Input lines are echoed to out when echo is
// enabled. The latest snapshot is always drawn before returning.
func run(ctx context.Context, s settings, in io.Reader, out io.Writer) error {
	input, err := openInput(s, in)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer input.Close()

	if err := sendCommands(input, s.commands); err != nil {
		return err
	}

	var echo io.Writer
	if s.echo {
		echo = out
	}
	feeder := liveplot.NewFeeder(imu.NewWindow(s.windowSize),
		liveplot.WithBatchSize(s.batchSize),
		liveplot.WithEcho(echo),
	)

	var renderers []liveplot.Renderer
	if s.pngPath != "" {
		png := liveplot.NewPNGRenderer(s.pngPath)
		png.Y = s.y
		renderers = append(renderers, png)
		log.Printf("writing chart to %s", s.pngPath)
	}
	var web *liveplot.WebServer
	if s.listen != "" {
		web = liveplot.NewWebServer(liveplot.WebServerConfig{
			Address: s.listen,
			Source:  feeder,
			Lines:   input,
			Y:       s.y,
		})
		renderers = append(renderers, web)
	}
	plotter := liveplot.NewPlotter(feeder, s.interval, nil, renderers...)

	// Create a wait group for the input monitor, feeder, plotter and HTTP
	// server routines
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// subscribe before the monitor starts so no line is missed
	subID, lines := input.SubscribeLossless(lineBuffer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := input.Monitor(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("failed to monitor input: %v", err)
		}
		// closing the mux ends the feeder once it drains the queued lines
		input.Close()
		log.Print("monitor routine terminated")
	}()

	var feedErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feeder.Run(ctx, lines); err != nil && !errors.Is(err, context.Canceled) {
			feedErr = err
		}
		// cancel first: the monitor may be blocked handing us a line
		cancel()
		input.Unsubscribe(subID)
		log.Print("feeder routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		plotter.Run(ctx)
		log.Print("plotter routine terminated")
	}()

	if web != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := web.Start(ctx); err != nil {
				log.Printf("HTTP server error: %v", err)
				cancel()
			}
		}()
	}

	wg.Wait()

	// draw whatever arrived after the last tick
	plotter.Redraw()

	if feedErr != nil {
		return fmt.Errorf("input error: %w", feedErr)
	}
	return nil
}

func main() {
	opts := registerFlags(flag.CommandLine)
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	log.SetPrefix("liveplot: ")

	if opts.showVersion {
		fmt.Println(version.String("liveplot"))
		return
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	s, err := resolve(opts, cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, s, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
	log.Printf("Graceful shutdown complete")
}
