//go:build integration
// +build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	wsmsg "github.com/gokatarajesh/trivia-engine/pkg/http/ws"
)

// The suite expects configs/packages/countries.yaml to be imported:
//
//	go run ./cmd/triviactl import configs/packages/countries.yaml
const defaultPackageID = "countries"

type startedSession struct {
	SessionID string          `json:"session_id"`
	Mode      string          `json:"mode"`
	PackageID string          `json:"package_id"`
	Quiz      json.RawMessage `json:"quiz"`
	Test      json.RawMessage `json:"test"`
	Token     string          `json:"token"`
}

type quizResult struct {
	ItemName string `json:"item_name"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Correct  bool   `json:"correct"`
}

type quizState struct {
	Results  []quizResult `json:"results"`
	Points   int          `json:"points"`
	Index    int          `json:"index"`
	Updating bool         `json:"updating"`
	Ended    bool         `json:"ended"`
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func packageID() string {
	return envOrDefault("INTEGRATION_PACKAGE_ID", defaultPackageID)
}

// requirePackage skips the test when the sample package was not imported.
func requirePackage(t *testing.T, baseURL string) {
	t.Helper()
	resp, err := http.Get(fmt.Sprintf("%s/v1/packages/%s", baseURL, packageID()))
	if err != nil {
		t.Fatalf("package request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		t.Skipf("package %q not imported", packageID())
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected package status: %d", resp.StatusCode)
	}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post %s failed: %v", url, err)
	}
	return resp
}

func createSession(t *testing.T, baseURL, path string, payload any) startedSession {
	t.Helper()
	resp := postJSON(t, baseURL+path, payload)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected create status: %d", resp.StatusCode)
	}
	var out startedSession
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session response failed: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("empty session token")
	}
	return out
}

func dialSession(t *testing.T, wsBase, token string) *websocket.Conn {
	t.Helper()

	u, err := url.Parse(wsBase)
	if err != nil {
		t.Fatalf("invalid WS url: %v", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	return conn
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType, requestID string, payload any) {
	t.Helper()
	msg, err := wsmsg.NewMessage(msgType, payload)
	if err != nil {
		t.Fatalf("build %s message: %v", msgType, err)
	}
	msg.RequestID = requestID
	conn.SetWriteDeadline(time.Now().Add(3 * time.Second))
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("failed to send %s: %v", msgType, err)
	}
}

// waitFor reads until a message matching accept arrives.
func waitFor(t *testing.T, conn *websocket.Conn, timeout time.Duration, accept func(wsmsg.Message) bool) wsmsg.Message {
	t.Helper()

	deadline := time.Now().Add(timeout)
	conn.SetReadDeadline(deadline)
	for time.Now().Before(deadline) {
		var msg wsmsg.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read message failed: %v", err)
		}
		if accept(msg) {
			return msg
		}
	}
	t.Fatalf("no matching message within %s", timeout)
	return wsmsg.Message{}
}

func ofType(msgType string) func(wsmsg.Message) bool {
	return func(msg wsmsg.Message) bool { return msg.Type == msgType }
}

func decodeQuizState(t *testing.T, msg wsmsg.Message) (wsmsg.StatePayload, quizState) {
	t.Helper()
	var payload wsmsg.StatePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode state payload: %v", err)
	}
	var state quizState
	if err := json.Unmarshal(payload.State, &state); err != nil {
		t.Fatalf("decode quiz state: %v", err)
	}
	return payload, state
}
