// Package web provides an HTTP status server for the sensor hub.
package web

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"

	"github.com/sweeney/sensor-hub/internal/status"
)

// Snapshotter supplies the hub state rendered by every page.
type Snapshotter interface {
	Snapshot() status.Snapshot
}

// page renders one view of a snapshot. ok is false when the view has
// nothing to show yet.
type page struct {
	contentType string
	render      func(w io.Writer, snap status.Snapshot) (ok bool)
}

var pages = map[string]page{
	"/":           {"text/html; charset=utf-8", htmlPage},
	"/index.html": {"text/html; charset=utf-8", htmlPage},
	"/index.json": {"application/json", jsonPage},
	"/report.txt": {"text/plain; charset=utf-8", reportPage},
}

func htmlPage(w io.Writer, snap status.Snapshot) bool {
	renderHTML(w, snap)
	return true
}

func jsonPage(w io.Writer, snap status.Snapshot) bool {
	w.Write(status.FormatJSON(snap))
	return true
}

// reportPage serves the last report line exactly as it went over the wire.
func reportPage(w io.Writer, snap status.Snapshot) bool {
	if !snap.HasReport {
		return false
	}
	io.WriteString(w, snap.Last.Line)
	return true
}

// Server serves the hub's status pages over HTTP. Every page is read-only
// and rendered from a fresh snapshot.
type Server struct {
	httpServer *http.Server
	source     Snapshotter
}

// New creates a Server on addr that reads state from source.
func New(addr string, source Snapshotter) *Server {
	s := &Server{source: source}
	s.httpServer = &http.Server{Addr: addr, Handler: s}
	return s
}

// Handler returns the handler serving every page.
func (s *Server) Handler() http.Handler {
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, found := pages[r.URL.Path]
	if !found {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if !p.render(&buf, s.source.Snapshot()) {
		http.Error(w, "no report yet", http.StatusServiceUnavailable)
		return
	}
	h := w.Header()
	h.Set("Cache-Control", "no-store")
	h.Set("Content-Type", p.contentType)
	w.Write(buf.Bytes())
}
