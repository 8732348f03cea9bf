package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ctf-scoreboard-service/internal/app"
	"ctf-scoreboard-service/internal/domain"
	"ctf-scoreboard-service/internal/events"
	"ctf-scoreboard-service/internal/metrics"
)

// QuestionSource serves question metadata for viewers; backed by the redis
// cache when configured, the store otherwise.
type QuestionSource interface {
	Question(ctx context.Context, id string) (domain.Question, error)
}

type WSHandler struct {
	ledger    *app.Ledger
	ranking   *app.RankingIndex
	store     app.Store
	questions QuestionSource
	bus       *events.Bus
	metrics   *metrics.Metrics
	log       *slog.Logger
	upgrader  websocket.Upgrader
}

func NewWSHandler(ledger *app.Ledger, ranking *app.RankingIndex, store app.Store, questions QuestionSource, bus *events.Bus, m *metrics.Metrics, log *slog.Logger) *WSHandler {
	return &WSHandler{
		ledger:    ledger,
		ranking:   ranking,
		store:     store,
		questions: questions,
		bus:       bus,
		metrics:   m,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type questionPayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type welcomePayload struct {
	Message       string      `json:"message"`
	ParticipantID string      `json:"participantId"`
	Tier          domain.Tier `json:"tier"`
}

type submissionResultPayload struct {
	QuestionID string `json:"questionId"`
	domain.SubmissionResult
	Message string `json:"message,omitempty"`
}

type solvedPayload struct {
	QuestionIDs []string `json:"questionIds"`
}

// ServeWS upgrades the connection and serves one participant: answer
// submissions in, ranking snapshots and solve notices out. A client that
// wants the current scoreboard at connect time sends a "snapshot" request;
// the welcome message carries no backfill.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	participantID := r.URL.Query().Get("participantId")
	if participantID == "" {
		http.Error(w, "missing participantId", http.StatusBadRequest)
		return
	}

	participant, err := h.store.Participant(r.Context(), participantID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			http.Error(w, "unknown participant", http.StatusNotFound)
			return
		}
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	rankings, err := h.bus.Subscribe(ctx, events.TopicRankingUpdated)
	if err != nil {
		h.log.Error("ws subscribe rankings", "error", err)
		return
	}
	solves, err := h.bus.Subscribe(ctx, events.TopicSolveNotice)
	if err != nil {
		h.log.Error("ws subscribe solves", "error", err)
		return
	}

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})
	fanoutDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			println("DBG write", participantID, msg.Type)
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write", "participant", participantID, "error", err)
				return
			}
			h.metrics.ObserveBroadcast()
		}
	}()

	// Forward bus events for this participant's tier. Dropped connections
	// just stop draining; publish never blocks on them.
	go func() {
		defer close(fanoutDone)
		for {
			select {
			case msg, ok := <-rankings:
				if !ok {
					return
				}
				snapshot, err := events.DecodeRankingSnapshot(msg)
				msg.Ack()
				if err == nil && snapshot.Tier == participant.Tier {
					h.trySend(ctx, send, outboundMessage[any]{Type: "leaderboard", Payload: snapshot})
				}
			case msg, ok := <-solves:
				println("DBG solves recv", participantID, ok)
				if !ok {
					return
				}
				notice, err := events.DecodeSolveNotice(msg)
				msg.Ack()
				println("DBG solves decoded", participantID, string(notice.Tier), string(participant.Tier))
				if err == nil && notice.Tier == participant.Tier {
					h.trySend(ctx, send, outboundMessage[any]{Type: "solve", Payload: notice})
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "welcome", Payload: welcomePayload{
		Message:       "connected to live scoreboard",
		ParticipantID: participant.ID,
		Tier:          participant.Tier,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handleMessage(ctx, send, participant, inbound)
	}

	cancel()
	<-fanoutDone
	close(send)
	<-writerDone
}

func (h *WSHandler) handleMessage(ctx context.Context, send chan<- outboundMessage[any], participant domain.Participant, inbound inboundMessage) {
	switch inbound.Type {
	case "submit":
		var payload submitPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.trySend(ctx, send, errMsg("invalid submit payload"))
			return
		}
		result, err := h.ledger.Submit(ctx, participant.ID, payload.QuestionID, payload.Answer)
		out := submissionResultPayload{QuestionID: payload.QuestionID, SubmissionResult: result}
		switch {
		case errors.Is(err, domain.ErrAlreadySolved):
			out.Message = "already solved"
		case errors.Is(err, domain.ErrConflict):
			out.Message = "busy, try again"
		case err != nil:
			h.trySend(ctx, send, errMsg(err.Error()))
			return
		}
		h.trySend(ctx, send, outboundMessage[any]{Type: "submissionResult", Payload: out})
	case "snapshot":
		snapshot, err := h.ranking.Snapshot(ctx, participant.Tier)
		if err != nil {
			h.trySend(ctx, send, errMsg("snapshot unavailable"))
			return
		}
		h.trySend(ctx, send, outboundMessage[any]{Type: "leaderboard", Payload: snapshot})
	case "rank":
		entry, ok, err := h.ranking.RankOf(ctx, participant.ID)
		if err != nil || !ok {
			h.trySend(ctx, send, errMsg("rank unavailable"))
			return
		}
		h.trySend(ctx, send, outboundMessage[any]{Type: "rank", Payload: entry})
	case "solved":
		ids, err := h.ledger.SolvedQuestions(ctx, participant.ID)
		if err != nil {
			h.trySend(ctx, send, errMsg("solved lookup failed"))
			return
		}
		h.trySend(ctx, send, outboundMessage[any]{Type: "solved", Payload: solvedPayload{QuestionIDs: ids}})
	case "question":
		var payload questionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.trySend(ctx, send, errMsg("invalid question payload"))
			return
		}
		question, err := h.questions.Question(ctx, payload.QuestionID)
		if err != nil {
			h.trySend(ctx, send, errMsg("question unavailable"))
			return
		}
		question.Answer = ""
		h.trySend(ctx, send, outboundMessage[any]{Type: "question", Payload: question})
	default:
		h.trySend(ctx, send, errMsg("unsupported message type"))
	}
}

func (h *WSHandler) trySend(ctx context.Context, send chan<- outboundMessage[any], msg outboundMessage[any]) {
	select {
	case send <- msg:
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		h.log.Debug("ws send timeout, dropping message", "type", msg.Type)
	}
}

func errMsg(text string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: text}}
}
