package game

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-engine/internal/auth/jwt"
	"github.com/gokatarajesh/trivia-engine/internal/testmode"
	httperrors "github.com/gokatarajesh/trivia-engine/pkg/http/errors"
	"github.com/gokatarajesh/trivia-engine/pkg/http/ws"
)

type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

// Handler manages WebSocket connections and routes session messages.
type Handler struct {
	service *Service
	hub     *ws.Hub
	tokens  TokenValidator
	logger  zerolog.Logger
}

// NewHandler creates a session WebSocket handler.
func NewHandler(service *Service, hub *ws.Hub, tokens TokenValidator, logger zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		tokens:  tokens,
		logger:  logger.With().Str("component", "game_ws").Logger(),
	}
}

// HandleConnection attaches an upgraded connection to its session, sends the
// current state and serves messages until the peer disconnects.
func (h *Handler) HandleConnection(conn *websocket.Conn, claims *jwt.Claims) {
	id := claims.SessionID
	wsConn := ws.NewConnection(conn, h.logger.With().Str("session_id", id.String()).Logger())
	h.hub.Register(id, wsConn)

	go wsConn.WritePump()

	if err := h.sendState(context.Background(), wsConn, id); err != nil {
		h.logger.Warn().Err(err).Str("session_id", id.String()).Msg("failed to send initial state")
	}

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), wsConn, claims, msg)
	})

	h.hub.Unregister(id, wsConn)
}

func (h *Handler) sendState(ctx context.Context, conn *ws.Connection, id uuid.UUID) error {
	snap, err := h.service.Get(ctx, id)
	if err != nil {
		return err
	}
	msgType, state := ws.TypeQuizState, any(snap.Quiz)
	if snap.Test != nil {
		msgType, state = ws.TypeTestState, snap.Test
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	msg, err := ws.NewMessage(msgType, ws.StatePayload{SessionID: id.String(), State: raw})
	if err != nil {
		return err
	}
	return conn.Send(msg)
}

// handleMessage routes incoming messages. State changes reach the client
// through the session broadcast; only errors are answered directly.
func (h *Handler) handleMessage(ctx context.Context, conn *ws.Connection, claims *jwt.Claims, msg ws.Message) error {
	id := claims.SessionID

	var err error
	switch msg.Type {
	case ws.TypeSubmitAnswer:
		var req ws.SubmitAnswerPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid payload")
		}
		_, err = h.service.SubmitQuizAnswer(ctx, id, req.Input)
	case ws.TypeNameGuess:
		var req ws.NameGuessPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid payload")
		}
		_, err = h.service.SubmitNameGuess(ctx, id, req.Input)
	case ws.TypeAttributeAnswer:
		var req ws.AttributeAnswerPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid payload")
		}
		_, err = h.service.SubmitAttributeAnswer(ctx, id, req.ItemName, req.AttributeName, req.Input)
	case ws.TypeSetView:
		var req ws.SetViewPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, "Invalid payload")
		}
		view := testmode.View(req.View)
		if !view.Valid() {
			return h.sendError(conn, msg, httperrors.ErrCodeInvalidPayload, fmt.Sprintf("Unknown view: %s", req.View))
		}
		_, err = h.service.SetTestView(ctx, id, view)
	case ws.TypePause:
		_, err = h.byMode(claims, func() (Snapshot, error) { return h.service.PauseQuiz(ctx, id) },
			func() (Snapshot, error) { return h.service.PauseTest(ctx, id) })
	case ws.TypeResume:
		_, err = h.byMode(claims, func() (Snapshot, error) { return h.service.ResumeQuiz(ctx, id) },
			func() (Snapshot, error) { return h.service.ResumeTest(ctx, id) })
	case ws.TypeEnd:
		_, err = h.byMode(claims, func() (Snapshot, error) { return h.service.EndQuiz(ctx, id) },
			func() (Snapshot, error) { return h.service.EndTest(ctx, id) })
	case ws.TypeQuickRestart:
		_, err = h.byMode(claims, func() (Snapshot, error) { return h.service.QuickRestartQuiz(ctx, id) },
			func() (Snapshot, error) { return h.service.QuickRestartTest(ctx, id) })
	case ws.TypeClose:
		err = h.service.CloseSession(ctx, id)
	default:
		return h.sendError(conn, msg, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}

	if err != nil {
		_, code := classify(err)
		return h.sendError(conn, msg, code, err.Error())
	}
	return nil
}

func (h *Handler) byMode(claims *jwt.Claims, onQuiz, onTest func() (Snapshot, error)) (Snapshot, error) {
	if claims.Mode == ModeTest {
		return onTest()
	}
	return onQuiz()
}

// sendError replies to the sender only, echoing the request ID.
func (h *Handler) sendError(conn *ws.Connection, req ws.Message, code, message string) error {
	msg, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
	if err != nil {
		return err
	}
	msg.RequestID = req.RequestID
	return conn.Send(msg)
}
