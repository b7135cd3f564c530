// Package serialmux reads newline-delimited records from a serial port (or
// anything that looks like one: stdin, an MQTT topic) and fans every line out
// to subscribers.
package serialmux

import (
	"bufio"
	"context"
	crand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var ErrWriteFailed = fmt.Errorf("failed to write to serial port")

// ErrClosed is returned by SendCommand after Close.
var ErrClosed = errors.New("serial mux closed")

// maxLineBytes bounds a single scanned line.
const maxLineBytes = 1 << 20

type subscriber struct {
	ch       chan string
	lossless bool
}

// SerialMux is a generic line multiplexer that allows multiple clients to
// subscribe to lines read from a single port.
type SerialMux[T SerialPorter] struct {
	port         T
	subscribers  map[string]subscriber
	subscriberMu sync.Mutex
	commandMu    sync.Mutex
	closing      bool
	closingMu    sync.Mutex
}

// SerialMuxInterface defines the interface for the SerialMux type.
type SerialMuxInterface interface {
	// Subscribe creates a new channel for receiving line events. Lines are
	// dropped for this subscriber while it is not ready to receive. The
	// channel ID is used to identify the unique channel when unsubscribing.
	Subscribe() (string, chan string)
	// SubscribeLossless creates a channel that receives every line; Monitor
	// blocks until the subscriber takes it or the context is cancelled.
	SubscribeLossless(buffer int) (string, chan string)
	// Unsubscribe removes a channel from the list of subscribers.
	Unsubscribe(string)
	// SendCommand writes the provided command to the port.
	SendCommand(string) error
	// Monitor reads lines from the port and sends them to the subscribers.
	Monitor(context.Context) error
	// Close closes all subscribed channels and closes the port.
	Close() error
}

// NewSerialMux creates a SerialMux instance backed by the given port.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port:        port,
		subscribers: make(map[string]subscriber),
	}
}

// randomID generates a random channel ID (8 byte random hex encoded value)
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

func (s *SerialMux[T]) subscribe(sub subscriber) (string, chan string) {
	id := randomID()
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		// already closed: hand back a closed channel so readers don't block
		close(sub.ch)
		return id, sub.ch
	}
	s.subscribers[id] = sub
	return id, sub.ch
}

// Subscribe registers a lossy subscriber.
func (s *SerialMux[T]) Subscribe() (string, chan string) {
	return s.subscribe(subscriber{ch: make(chan string)})
}

// SubscribeLossless registers a subscriber that applies backpressure to the
// reader instead of missing lines.
func (s *SerialMux[T]) SubscribeLossless(buffer int) (string, chan string) {
	if buffer < 0 {
		buffer = 0
	}
	return s.subscribe(subscriber{ch: make(chan string, buffer), lossless: true})
}

// Unsubscribe removes a subscriber from the serial mux.
func (s *SerialMux[T]) Unsubscribe(id string) {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	if sub, ok := s.subscribers[id]; ok {
		close(sub.ch)
		delete(s.subscribers, id)
	}
}

// SendCommand sends a command to the port.
func (s *SerialMux[T]) SendCommand(command string) error {
	s.closingMu.Lock()
	closing := s.closing
	s.closingMu.Unlock()
	if closing {
		return ErrClosed
	}

	s.commandMu.Lock()
	defer s.commandMu.Unlock()
	if !strings.HasSuffix(command, "\n") {
		command += "\n" // ensure command ends with a newline
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Monitor reads lines from the port and delivers them to subscribers. It
// returns nil when the port reaches end of input, ctx.Err() on cancellation,
// and the read error otherwise.
func (s *SerialMux[T]) Monitor(ctx context.Context) error {
	scan := bufio.NewScanner(s.port)
	scan.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	lineChan := make(chan string)
	scanErrChan := make(chan error, 1)

	// the blocking scan.Scan runs in its own goroutine so the loop below can
	// still observe cancellation
	go func() {
		defer close(lineChan)
		for scan.Scan() {
			select {
			case lineChan <- strings.TrimRight(scan.Text(), "\r"):
			case <-ctx.Done():
				return
			}
		}
		if err := scan.Err(); err != nil {
			select {
			case scanErrChan <- err:
			case <-ctx.Done():
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-scanErrChan:
			return err

		case line, ok := <-lineChan:
			if !ok {
				select {
				case err := <-scanErrChan:
					return err
				default:
					return nil
				}
			}

			s.closingMu.Lock()
			if s.closing {
				s.closingMu.Unlock()
				return nil
			}
			s.closingMu.Unlock()

			if err := s.broadcast(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (s *SerialMux[T]) broadcast(ctx context.Context, line string) error {
	s.subscriberMu.Lock()
	defer s.subscriberMu.Unlock()
	for _, sub := range s.subscribers {
		if sub.lossless {
			select {
			case sub.ch <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		select {
		case sub.ch <- line:
		default:
			// skip a busy subscriber so as not to block the others
		}
	}
	return nil
}

// Close closes every subscriber channel and then the port.
func (s *SerialMux[T]) Close() error {
	s.closingMu.Lock()
	if s.closing {
		s.closingMu.Unlock()
		return nil
	}
	s.closing = true
	s.closingMu.Unlock()

	s.subscriberMu.Lock()
	for id, sub := range s.subscribers {
		close(sub.ch)
		delete(s.subscribers, id)
	}
	s.subscriberMu.Unlock()
	return s.port.Close()
}
