package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"meterpay/internal/auth"
	recharge "meterpay/internal/recharge/domain"
)

// NoticeBroker fans checkout outcome notices out to connected app shells.
type NoticeBroker struct {
	mu      sync.Mutex
	clients map[chan []byte]string
}

// NewNoticeBroker constructs a broker.
func NewNoticeBroker() *NoticeBroker {
	return &NoticeBroker{clients: make(map[chan []byte]string)}
}

// Publish implements application.NoticePublisher.
func (b *NoticeBroker) Publish(_ context.Context, notice recharge.Notice) {
	if b == nil {
		return
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return
	}
	b.broadcast(notice.CustomerRef, payload)
}

// Subscribe registers a client channel for one customer.
func (b *NoticeBroker) Subscribe(customerRef string) chan []byte {
	if b == nil {
		return nil
	}
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.clients[ch] = customerRef
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel.
func (b *NoticeBroker) Unsubscribe(ch chan []byte) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

// broadcast holds the lock while sending so Unsubscribe cannot close a channel mid-send.
func (b *NoticeBroker) broadcast(customerRef string, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, ref := range b.clients {
		if ref != customerRef {
			continue
		}
		select {
		case ch <- payload:
		default:
		}
	}
}

// StreamHandler serves the SSE notice stream.
type StreamHandler struct {
	broker *NoticeBroker
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *NoticeBroker) *StreamHandler {
	return &StreamHandler{broker: broker}
}

// ServeHTTP handles GET /api/v1/recharge/events.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.broker.Subscribe(accountID)
	defer h.broker.Unsubscribe(ch)

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("event: notice\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
