//go:build integration
// +build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	wsmsg "github.com/gokatarajesh/trivia-engine/pkg/http/ws"
)

func TestQuizRoundOverWebSocket(t *testing.T) {
	baseHTTP := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	baseWS := envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/sessions")
	requirePackage(t, baseHTTP)

	started := createSession(t, baseHTTP, "/v1/quizzes", map[string]any{
		"package_id":      packageID(),
		"question_attr":   "name",
		"answer_attr":     "capital",
		"total_questions": 2,
		"time_limit":      0,
	})
	if started.Mode != "quiz" {
		t.Fatalf("unexpected mode %q", started.Mode)
	}

	conn := dialSession(t, baseWS, started.Token)
	defer conn.Close()

	_, state := decodeQuizState(t, waitFor(t, conn, 5*time.Second, ofType(wsmsg.TypeQuizState)))
	if len(state.Results) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(state.Results))
	}

	for i := range state.Results {
		if i > 0 {
			// Answers sent during the cooldown are ignored.
			waitFor(t, conn, 10*time.Second, func(msg wsmsg.Message) bool {
				if msg.Type != wsmsg.TypeQuizState {
					return false
				}
				_, s := decodeQuizState(t, msg)
				return s.Index == i && !s.Updating
			})
		}
		sendMessage(t, conn, wsmsg.TypeSubmitAnswer, fmt.Sprintf("a%d", i), wsmsg.SubmitAnswerPayload{Input: state.Results[i].Answer})

		fb := waitFor(t, conn, 5*time.Second, ofType(wsmsg.TypeFeedback))
		var payload wsmsg.FeedbackPayload
		if err := json.Unmarshal(fb.Payload, &payload); err != nil {
			t.Fatalf("decode feedback: %v", err)
		}
		if !payload.Correct || payload.Index != i {
			t.Fatalf("unexpected feedback %+v", payload)
		}
	}

	finished := waitFor(t, conn, 10*time.Second, func(msg wsmsg.Message) bool {
		if msg.Type != wsmsg.TypeQuizState {
			return false
		}
		payload, _ := decodeQuizState(t, msg)
		return payload.Finished != ""
	})
	payload, state := decodeQuizState(t, finished)
	if payload.Finished != "completed" || state.Points != 2 {
		t.Fatalf("unexpected finish %q with %d points", payload.Finished, state.Points)
	}

	resp, err := http.Get(fmt.Sprintf("%s/v1/sessions/%s", baseHTTP, started.SessionID))
	if err != nil {
		t.Fatalf("get session failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected session status: %d", resp.StatusCode)
	}
}

func TestTestSessionOverWebSocket(t *testing.T) {
	baseHTTP := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	baseWS := envOrDefault("INTEGRATION_WS_URL", "ws://localhost:8080/ws/sessions")
	requirePackage(t, baseHTTP)

	started := createSession(t, baseHTTP, "/v1/tests", map[string]any{
		"package_id": packageID(),
		"attributes": []string{"capital"},
	})

	conn := dialSession(t, baseWS, started.Token)
	defer conn.Close()
	waitFor(t, conn, 5*time.Second, ofType(wsmsg.TypeTestState))

	sendMessage(t, conn, wsmsg.TypeNameGuess, "g1", wsmsg.NameGuessPayload{Input: "japan"})
	msg := waitFor(t, conn, 5*time.Second, ofType(wsmsg.TypeTestState))
	var payload wsmsg.StatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode state payload: %v", err)
	}
	var state struct {
		Discovered []string `json:"discovered"`
	}
	if err := json.Unmarshal(payload.State, &state); err != nil {
		t.Fatalf("decode test state: %v", err)
	}
	if len(state.Discovered) != 1 || state.Discovered[0] != "Japan" {
		t.Fatalf("unexpected discovered items %v", state.Discovered)
	}

	sendMessage(t, conn, wsmsg.TypeEnd, "e1", struct{}{})
	waitFor(t, conn, 5*time.Second, func(msg wsmsg.Message) bool {
		if msg.Type != wsmsg.TypeTestState {
			return false
		}
		var p wsmsg.StatePayload
		return json.Unmarshal(msg.Payload, &p) == nil && p.Finished == "ended"
	})

	sendMessage(t, conn, wsmsg.TypeClose, "c1", struct{}{})
}
