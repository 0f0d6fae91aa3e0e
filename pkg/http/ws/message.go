package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server, quiz
	TypeSubmitAnswer = "submit_answer"

	// Client -> Server, test
	TypeNameGuess       = "name_guess"
	TypeAttributeAnswer = "attribute_answer"
	TypeSetView         = "set_view"

	// Client -> Server, both modes
	TypePause        = "pause"
	TypeResume       = "resume"
	TypeEnd          = "end"
	TypeQuickRestart = "quick_restart"
	TypeClose        = "close"

	// Server -> Client
	TypeQuizState = "quiz_state"
	TypeTestState = "test_state"
	TypeFeedback  = "feedback"
	TypeError     = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Payload: raw}, nil
}

// Client Messages (incoming)

type SubmitAnswerPayload struct {
	Input string `json:"input"`
}

type NameGuessPayload struct {
	Input string `json:"input"`
}

type AttributeAnswerPayload struct {
	ItemName      string `json:"item_name"`
	AttributeName string `json:"attribute_name"`
	Input         string `json:"input"`
}

type SetViewPayload struct {
	View string `json:"view"`
}

// Server Messages (outgoing)

// StatePayload carries the full session snapshot after a mutation.
type StatePayload struct {
	SessionID string          `json:"session_id"`
	Finished  string          `json:"finished,omitempty"` // finish reason, set once when the session ends
	State     json.RawMessage `json:"state"`
}

// FeedbackPayload reports a graded quiz answer before the cooldown elapses.
type FeedbackPayload struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
	Input     string `json:"input"`
	Correct   bool   `json:"correct"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
