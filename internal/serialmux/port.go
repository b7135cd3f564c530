package serialmux

import (
	"io"
)

// SerialPorter defines the minimal interface needed for a serial port.
// This abstraction enables unit testing without real serial hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}

// StdioPort adapts a reader/writer pair (normally stdin and stdout) to
// SerialPorter. Writes go to W; Close closes R when it is an io.Closer.
type StdioPort struct {
	R io.Reader
	W io.Writer
}

func (p *StdioPort) Read(b []byte) (int, error) { return p.R.Read(b) }

func (p *StdioPort) Write(b []byte) (int, error) {
	if p.W == nil {
		return len(b), nil
	}
	return p.W.Write(b)
}

func (p *StdioPort) Close() error {
	if c, ok := p.R.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewStdioMux creates a SerialMux reading lines from r. Commands sent through
// the mux are written to w, which may be nil to discard them.
func NewStdioMux(r io.Reader, w io.Writer) *SerialMux[*StdioPort] {
	return NewSerialMux(&StdioPort{R: r, W: w})
}
