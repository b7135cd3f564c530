package liveplot

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/lidar-tools/internal/httputil"
	"github.com/banshee-data/lidar-tools/internal/monitoring"
	"github.com/banshee-data/lidar-tools/internal/serialmux"
)

// pageRefresh is the auto-refresh period of the HTML chart page, in seconds.
const pageRefresh = 2

// WebServerConfig holds the dependencies of a WebServer.
type WebServerConfig struct {
	Address string
	Source  SnapshotSource
	// Lines, when set, backs /api/tail with the raw input stream.
	Lines serialmux.SerialMuxInterface
	// Y is the chart range. Zero Min and Max select the default limits.
	Y YRange
}

// WebServer exposes the latest snapshot over HTTP. It also implements
// Renderer, pushing every redrawn snapshot to websocket clients.
type WebServer struct {
	address string
	source  SnapshotSource
	lines   serialmux.SerialMuxInterface
	y       YRange
	hub     *hub
	server  *http.Server
}

// NewWebServer creates a web server; call Start to serve.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		source:  config.Source,
		lines:   config.Lines,
		y:       config.Y,
		hub:     newHub(),
	}
	if ws.y.Min == 0 && ws.y.Max == 0 {
		ws.y.Min, ws.y.Max = DefaultYMin, DefaultYMax
	}
	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.Handler(),
	}
	return ws
}

// Handler returns the route table.
func (ws *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ws.handlePage)
	mux.HandleFunc("/api/window", ws.handleWindow)
	mux.HandleFunc("/ws", ws.hub.serveWS)
	if ws.lines != nil {
		mux.Handle("/api/tail", serialmux.TailHandler(ws.lines))
	}
	return mux
}

// Render implements Renderer.
func (ws *WebServer) Render(s *Snapshot) error {
	return ws.hub.broadcast(s.View())
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	ws.hub.close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			monitoring.Logf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Logf("HTTP server routine stopped")
	return nil
}

func (ws *WebServer) latest(w http.ResponseWriter, r *http.Request) (*Snapshot, bool) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return nil, false
	}
	snap := ws.source.Latest()
	if snap == nil {
		httputil.ServiceUnavailable(w, "no data yet")
		return nil, false
	}
	return snap, true
}

func (ws *WebServer) handleWindow(w http.ResponseWriter, r *http.Request) {
	snap, ok := ws.latest(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, snap.View())
}

func (ws *WebServer) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	snap, ok := ws.latest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := renderPage(&buf, snap, ws.y); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Refresh", strconv.Itoa(pageRefresh))
	_, _ = w.Write(buf.Bytes())
}
