package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"rncflow/internal/domain/rnc"
	"rncflow/internal/infrastructure/realtime"
)

func (ts *testServer) wsURL(token string) string {
	return "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws/rncs?token=" + token
}

func (ts *testServer) dial(t *testing.T, role rnc.Role) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(ts.tokens[role]), nil)
	if err != nil {
		t.Fatalf("dial as %s: %v", role, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, hub *realtime.Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.Count() != want {
		if time.Now().After(deadline) {
			t.Fatalf("hub connections = %d, want %d", hub.Count(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) realtime.Message {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg realtime.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode message %q: %v", data, err)
	}
	return msg
}

func TestWebsocketReceivesRoutedEvents(t *testing.T) {
	ts := newTestServer(t)

	quality := ts.dial(t, rnc.RoleQuality)
	operator := ts.dial(t, rnc.RoleOperator)
	waitForConnections(t, ts.hub, 2)

	if status, body := ts.do(t, http.MethodPost, "/api/rnc", rnc.RoleOperator, openRequest{
		Title: "scratch", CriticalLevel: "BAIXA", PartCode: "R-1234",
	}); status != http.StatusCreated {
		t.Fatalf("open status = %d body=%s", status, body)
	}

	msg := readMessage(t, quality)
	if msg.Type != string(rnc.EventCreated) {
		t.Fatalf("quality got %q, want rnc_created", msg.Type)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok || payload["num_rnc"] != float64(1) || payload["close_rnc"] != false {
		t.Fatalf("unexpected payload: %#v", msg.Payload)
	}

	// The opener is addressed directly once quality finishes the analysis.
	if status, body := ts.do(t, http.MethodPost, "/api/rnc/1/analysis", rnc.RoleQuality, analysisRequest{
		RootCause: "handling", CorrectiveAction: "polish",
	}); status != http.StatusOK {
		t.Fatalf("analysis status = %d body=%s", status, body)
	}
	if msg := readMessage(t, operator); msg.Type != string(rnc.EventAnalysisCompleted) {
		t.Fatalf("operator got %q, want rnc_analysis_completed", msg.Type)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.dispatcher.Wait(ctx); err != nil {
		t.Fatalf("dispatcher wait: %v", err)
	}
}

func TestWebsocketTextPing(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t, rnc.RoleTechnician)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if string(data) != "pong" {
		t.Fatalf("got %q, want pong", data)
	}
}

func TestWebsocketRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL("not-a-token"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.ClosePolicyViolation {
		t.Fatalf("read error = %v, want policy violation close", err)
	}
	if ts.hub.Count() != 0 {
		t.Fatalf("rejected connection registered")
	}
}

func TestWebsocketRejectsForeignOrigin(t *testing.T) {
	ts := newTestServer(t, "https://plant.example")

	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(ts.wsURL(ts.tokens[rnc.RoleAdmin]), header)
	if err == nil {
		t.Fatalf("dial with foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v, want 403", resp)
	}

	header.Set("Origin", "https://plant.example")
	conn, _, err := websocket.DefaultDialer.Dial(ts.wsURL(ts.tokens[rnc.RoleAdmin]), header)
	if err != nil {
		t.Fatalf("dial with allowed origin: %v", err)
	}
	_ = conn.Close()
}

func TestWebsocketAnnouncesCloseFromAnalysis(t *testing.T) {
	ts := newTestServer(t)

	engineering := ts.dial(t, rnc.RoleEngineer)
	waitForConnections(t, ts.hub, 1)

	if status, body := ts.do(t, http.MethodPost, "/api/rnc", rnc.RoleOperator, openRequest{
		Title: "cracked weld", CriticalLevel: "ALTA", PartCode: "R-5678",
	}); status != http.StatusCreated {
		t.Fatalf("open status = %d body=%s", status, body)
	}
	if msg := readMessage(t, engineering); msg.Type != string(rnc.EventCreated) {
		t.Fatalf("engineering got %q, want rnc_created", msg.Type)
	}

	if status, body := ts.do(t, http.MethodPost, "/api/rnc/1/analysis", rnc.RoleQuality, analysisRequest{
		RootCause: "bad filler", CorrectiveAction: "scrap", CloseRNC: true, Refused: true,
	}); status != http.StatusOK {
		t.Fatalf("analysis status = %d body=%s", status, body)
	}

	msg := readMessage(t, engineering)
	if msg.Type != string(rnc.EventClosed) {
		t.Fatalf("engineering got %q, want rnc_closed", msg.Type)
	}
	payload, ok := msg.Payload.(map[string]any)
	if !ok || payload["condition"] != string(rnc.ConditionScrapped) {
		t.Fatalf("unexpected payload: %#v", msg.Payload)
	}
}
