// Package preview serves a Markdown file as HTML and reloads connected
// browsers when the file changes.
package preview

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	prom "github.com/prometheus/client_golang/prometheus"

	"pkt.systems/mdstream"
	"pkt.systems/mdstream/internal/metrics"
)

const defaultDebounce = 150 * time.Millisecond

// Config configures a preview Server.
type Config struct {
	// Path is the Markdown file to serve.
	Path string
	// Addr is the listen address, e.g. "127.0.0.1:8080".
	Addr     string
	Options  []mdstream.Option
	Logger   *slog.Logger
	Recorder metrics.Recorder
	// Registry, when set, is served at /metrics.
	Registry *prom.Registry
	Debounce time.Duration
}

// Server renders Config.Path on every page request.
type Server struct {
	cfg  Config
	path string
	log  *slog.Logger
	rec  metrics.Recorder
	hub  *hub
	mux  *http.ServeMux

	mu      sync.Mutex
	timer   *time.Timer
	version int64
}

// New validates cfg and returns a Server.
func New(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("preview: path is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("preview: %w", err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("preview: %s is a directory", abs)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	s := &Server{
		cfg:     cfg,
		path:    abs,
		log:     cfg.Logger,
		rec:     cfg.Recorder,
		hub:     newHub(cfg.Logger, cfg.Recorder),
		mux:     http.NewServeMux(),
		version: time.Now().UnixNano(),
	}
	s.mux.HandleFunc("/", s.handlePage)
	s.mux.Handle("/events", s.hub)
	if cfg.Registry != nil {
		s.mux.Handle("/metrics", metrics.HTTPHandler(cfg.Registry))
	}
	return s, nil
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves on Config.Addr and watches the file until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("preview: listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is like Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	watcher, err := s.watch()
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer watcher.Close()

	srv := &http.Server{Handler: s.mux, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.log.Info("preview listening", "addr", ln.Addr().String(), "path", s.path)

	for {
		select {
		case <-ctx.Done():
			s.hub.shutdown()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.log.Warn("preview shutdown", "error", err)
			}
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("preview: serve: %w", err)
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			s.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watcher error", "error", err)
		}
	}
}

// watch observes the directory of the file, since editors often replace
// files instead of writing them in place.
func (s *Server) watch() (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("preview: fsnotify: %w", err)
	}
	if err := w.Add(filepath.Dir(s.path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("preview: watch: %w", err)
	}
	return w, nil
}

func (s *Server) handleEvent(ev fsnotify.Event) {
	if shouldIgnoreEvent(ev.Name) || filepath.Clean(ev.Name) != s.path {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	s.log.Debug("file change detected", "path", ev.Name, "op", ev.Op.String())
	s.trigger()
}

// trigger schedules a reload broadcast, coalescing bursts of events.
func (s *Server) trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.cfg.Debounce, s.reload)
}

func (s *Server) reload() {
	s.mu.Lock()
	s.version = time.Now().UnixNano()
	v := strconv.FormatInt(s.version, 10)
	s.mu.Unlock()
	s.hub.broadcast(v)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	f, err := os.Open(s.path)
	if err != nil {
		s.log.Warn("open preview file", "path", s.path, "error", err)
		http.Error(w, "cannot open document", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.WriteString(w, pageHead(filepath.Base(s.path)))
	var stats mdstream.Stats
	err = mdstream.Render(mdstream.RenderRequest{
		Reader:  f,
		Writer:  w,
		Format:  mdstream.FormatHTML,
		Options: s.cfg.Options,
		Stats:   &stats,
	})
	format := mdstream.FormatHTML.String()
	s.rec.ObserveRender(format, stats.Duration, stats.Bytes, stats.Tokens)
	s.rec.IncRenderResult(format, metrics.Result(err))
	if err != nil {
		s.log.Warn("render preview", "path", s.path, "error", err)
	}
	_, _ = io.WriteString(w, pageTail)
}

func pageHead(title string) string {
	return `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>` + html.EscapeString(title) + `</title>
<style>
body{max-width:46rem;margin:2rem auto;padding:0 1rem;font:16px/1.5 system-ui,sans-serif}
pre{background:#f4f4f4;padding:.75rem;overflow:auto}
blockquote{border-left:4px solid #ddd;margin-left:0;padding-left:1rem;color:#555}
</style>
<script>new EventSource("/events").addEventListener("reload",()=>location.reload())</script>
</head><body>
`
}

const pageTail = "</body></html>\n"

// shouldIgnoreEvent reports editor swap, backup and hidden files.
func shouldIgnoreEvent(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
