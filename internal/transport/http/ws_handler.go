package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"abbrev-quiz-service/internal/app"
	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/game"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	defaultMessageRate  = 10
	defaultMessageBurst = 20
	outboxSize          = 32
	maxInboundBytes     = 4096
)

type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
	rps      int
	burst    int
}

// WSOption customizes a WSHandler.
type WSOption func(*WSHandler)

// WithMessageRate limits inbound messages per connection.
func WithMessageRate(rps, burst int) WSOption {
	return func(h *WSHandler) {
		if rps > 0 {
			h.rps = rps
		}
		if burst > 0 {
			h.burst = burst
		}
	}
}

func NewWSHandler(service *app.GameService, opts ...WSOption) *WSHandler {
	h := &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		rps:   defaultMessageRate,
		burst: defaultMessageBurst,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type guessPayload struct {
	Option string `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type feedbackPayload struct {
	Sound     domain.SoundEvent `json:"sound,omitempty"`
	VibrateMs int64             `json:"vibrateMs,omitempty"`
}

type gameOverPayload struct {
	Points   int    `json:"points"`
	Category string `json:"category"`
}

// outbox queues messages for the connection writer. Pushes never block and
// are dropped once the connection is closing.
type outbox struct {
	mu     sync.Mutex
	ch     chan outboundMessage
	closed bool
}

func newOutbox() *outbox {
	return &outbox{ch: make(chan outboundMessage, outboxSize)}
}

func (o *outbox) push(typ string, payload any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	select {
	case o.ch <- outboundMessage{Type: typ, Payload: payload}:
	default:
		log.Warn().Str("type", typ).Msg("ws outbox full, message dropped")
	}
}

func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
}

// wsFeedback turns answer cues into feedback messages for the client to play.
type wsFeedback struct {
	out *outbox
}

func (f wsFeedback) PlaySound(_ context.Context, event domain.SoundEvent) error {
	f.out.push("feedback", feedbackPayload{Sound: event})
	return nil
}

func (f wsFeedback) Vibrate(_ context.Context, pulse time.Duration) error {
	f.out.push("feedback", feedbackPayload{VibrateMs: pulse.Milliseconds()})
	return nil
}

// ServeWS upgrades the request and runs one play session over the connection.
// The session lives exactly as long as the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	playerID := r.URL.Query().Get("playerId")
	if playerID == "" {
		http.Error(w, "missing playerId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxInboundBytes)

	ctx := r.Context()
	out := newOutbox()
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range out.ch {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug().Err(err).Msg("ws write error")
				// Keep draining so pushes never see a full buffer.
				for range out.ch {
				}
				return
			}
		}
	}()
	defer func() {
		out.close()
		<-writerDone
	}()

	session, snap, err := h.service.StartSession(ctx, app.StartRequest{
		PlayerID: playerID,
		Category: category,
		Feedback: wsFeedback{out: out},
		OnResults: func(results domain.Results) {
			out.push("results", results)
		},
	})
	if err != nil {
		out.push("error", errorPayload{Message: err.Error()})
		return
	}
	sessionID := session.ID()
	defer h.service.Leave(context.Background(), sessionID)
	h.pushSnapshot(out, snap)

	limiter := rate.NewLimiter(rate.Every(time.Second/time.Duration(h.rps)), h.burst)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if !limiter.Allow() {
			out.push("error", errorPayload{Message: "too many messages"})
			continue
		}
		var inbound inboundMessage
		if err := json.Unmarshal(data, &inbound); err != nil {
			out.push("error", errorPayload{Message: "invalid message"})
			continue
		}

		switch inbound.Type {
		case "guess":
			var payload guessPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				out.push("error", errorPayload{Message: "invalid guess payload"})
				continue
			}
			outcome, err := h.service.Guess(ctx, sessionID, payload.Option)
			if err != nil {
				out.push("error", errorPayload{Message: err.Error()})
				continue
			}
			out.push("answerResult", outcome)
			if outcome.GameOver {
				out.push("gameOver", gameOverPayload{Points: outcome.Points, Category: session.Category()})
			}
		case "next":
			snap, err := h.service.Next(ctx, sessionID)
			if err != nil {
				out.push("error", errorPayload{Message: err.Error()})
				continue
			}
			h.pushSnapshot(out, snap)
		case "restart":
			req := domain.RestartRequest{Restart: true}
			if len(inbound.Payload) > 0 {
				if err := json.Unmarshal(inbound.Payload, &req); err != nil {
					out.push("error", errorPayload{Message: "invalid restart payload"})
					continue
				}
			}
			snap, err := h.service.Restart(ctx, sessionID, &req)
			if err != nil {
				out.push("error", errorPayload{Message: err.Error()})
				continue
			}
			h.pushSnapshot(out, snap)
		default:
			out.push("error", errorPayload{Message: "unsupported message type"})
		}
	}
}

// pushSnapshot sends a new question, or the final state once the pool ran out.
func (h *WSHandler) pushSnapshot(out *outbox, snap game.Snapshot) {
	if snap.Phase == game.PhaseAwaitingAnswer {
		out.push("question", snap)
		return
	}
	out.push("state", snap)
}
