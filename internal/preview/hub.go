package preview

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"pkt.systems/mdstream/internal/metrics"
)

// hub fans reload events out to server-sent event clients.
type hub struct {
	mu       sync.Mutex
	nextID   int
	clients  map[int]chan string
	closed   bool
	last     string
	log      *slog.Logger
	recorder metrics.Recorder
	ping     time.Duration
}

func newHub(log *slog.Logger, rec metrics.Recorder) *hub {
	return &hub{clients: map[int]chan string{}, log: log, recorder: rec, ping: 30 * time.Second}
}

func (h *hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "preview shutting down", http.StatusServiceUnavailable)
		return
	}
	id := h.nextID
	h.nextID++
	ch := make(chan string, 8)
	h.clients[id] = ch
	h.recorder.SetClients(len(h.clients))
	h.mu.Unlock()
	defer h.remove(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			h.log.Debug("event write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}
	if !send(": connected\n\n") {
		return
	}

	ping := time.NewTicker(h.ping)
	defer ping.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			if !send(": ping\n\n") {
				return
			}
		case version, ok := <-ch:
			if !ok {
				return
			}
			if !send("event: reload\ndata: " + version + "\n\n") {
				return
			}
		}
	}
}

func (h *hub) remove(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(ch)
		h.recorder.SetClients(len(h.clients))
	}
}

// broadcast sends version to every client. Clients that are not keeping up
// are dropped.
func (h *hub) broadcast(version string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || version == h.last {
		return
	}
	h.last = version
	dropped := 0
	for id, ch := range h.clients {
		select {
		case ch <- version:
		default:
			delete(h.clients, id)
			close(ch)
			dropped++
		}
	}
	h.recorder.IncReload()
	h.recorder.SetClients(len(h.clients))
	h.log.Debug("reload broadcast", "version", version, "clients", len(h.clients), "dropped", dropped)
}

func (h *hub) clientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.clients {
		delete(h.clients, id)
		close(ch)
	}
	h.recorder.SetClients(0)
}
