package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/technosupport/incident-analytics/internal/alerts"
	"github.com/technosupport/incident-analytics/internal/logging"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
)

type AlertHandler struct {
	Synth          *alerts.Synthesizer
	DefaultLimit   int
	StreamInterval time.Duration
	upgrader       websocket.Upgrader
}

func NewAlertHandler(synth *alerts.Synthesizer, defaultLimit int, streamInterval time.Duration, origins []string) *AlertHandler {
	if defaultLimit <= 0 {
		defaultLimit = alerts.DefaultLimit
	}
	if streamInterval <= 0 {
		streamInterval = 30 * time.Second
	}
	return &AlertHandler{
		Synth:          synth,
		DefaultLimit:   defaultLimit,
		StreamInterval: streamInterval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
			return true
		}
		return slices.Contains(origins, origin)
	}
}

func (h *AlertHandler) parseQuery(r *http.Request) (alerts.Query, error) {
	q := r.URL.Query()
	sev, err := alerts.ParseSeverity(q.Get("severity"))
	if err != nil {
		return alerts.Query{}, err
	}
	limit, err := intParam(q, "limit", h.DefaultLimit)
	if err != nil {
		return alerts.Query{}, err
	}
	if err := check("limit", alertsParams{Limit: limit}); err != nil {
		return alerts.Query{}, err
	}
	return alerts.Query{Severity: sev, Limit: limit}, nil
}

// GET /api/v1/alerts
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		respondFailure(w, r, err, "Failed to fetch alerts")
		return
	}
	feed, err := h.Synth.Synthesize(r.Context(), query)
	if err != nil {
		respondFailure(w, r, err, "Failed to fetch alerts")
		return
	}
	respondJSON(w, http.StatusOK, feed)
}

type streamError struct {
	Error string `json:"error"`
}

// GET /api/v1/alerts/stream
// Pushes a fresh feed immediately and then every StreamInterval until the
// client goes away.
func (h *AlertHandler) Stream(w http.ResponseWriter, r *http.Request) {
	query, err := h.parseQuery(r)
	if err != nil {
		respondFailure(w, r, err, "Failed to open alert stream")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("[STREAM] upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reader: only control frames matter; any read error ends the stream.
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.StreamInterval)
	defer ticker.Stop()
	ping := time.NewTicker(streamPongWait * 9 / 10)
	defer ping.Stop()

	log := logging.Ctx(r.Context())
	log.Debug().Msg("[STREAM] client connected")

	if !h.push(ctx, conn, query) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("[STREAM] client disconnected")
			return
		case <-ticker.C:
			if !h.push(ctx, conn, query) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		}
	}
}

// push writes one feed (or an error frame). It returns false once the
// connection is no longer writable.
func (h *AlertHandler) push(ctx context.Context, conn *websocket.Conn, q alerts.Query) bool {
	var payload any
	feed, err := h.Synth.Synthesize(ctx, q)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		logging.Ctx(ctx).Warn().Err(err).Msg("[STREAM] synthesis failed")
		payload = streamError{Error: "Failed to fetch alerts"}
	} else {
		payload = feed
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteMessage(websocket.TextMessage, msg) == nil
}
