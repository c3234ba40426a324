package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"abbrev-quiz-service/internal/app"
	"abbrev-quiz-service/internal/domain"
	"abbrev-quiz-service/internal/game"
	"abbrev-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

func TestWebSocketLivesExhaustedFlow(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "/ws?category=Medical&playerId=p1")

	_, raw := readUntil(t, conn, "question")
	var snap game.Snapshot
	mustDecode(t, raw, &snap)

	send(t, conn, "guess", guessPayload{Option: wrongOption(snap)})

	seen := map[string]json.RawMessage{}
	feedbacks := 0
	for i := 0; i < 10 && seen["results"] == nil; i++ {
		typ, payload := readNext(t, conn)
		if typ == "feedback" {
			feedbacks++
		}
		seen[typ] = payload
	}
	if feedbacks != 2 {
		t.Fatalf("expected sound and vibration feedback, got %d", feedbacks)
	}
	var outcome game.GuessOutcome
	mustDecode(t, seen["answerResult"], &outcome)
	if outcome.Correct || outcome.LivesRemaining != 0 || !outcome.GameOver || outcome.CorrectAnswer != answers[snap.Prompt] {
		t.Fatalf("unexpected answer result %+v", outcome)
	}
	if seen["gameOver"] == nil {
		t.Fatalf("expected gameOver before results")
	}
	var results domain.Results
	mustDecode(t, seen["results"], &results)
	if results.Points != 0 || results.Category != "Medical" {
		t.Fatalf("unexpected results %+v", results)
	}

	send(t, conn, "next", nil)
	_, raw = readUntil(t, conn, "error")
	var errMsg errorPayload
	mustDecode(t, raw, &errMsg)
	if errMsg.Message != domain.ErrSessionOver.Error() {
		t.Fatalf("expected session over error, got %q", errMsg.Message)
	}

	send(t, conn, "restart", domain.RestartRequest{Restart: true})
	_, raw = readUntil(t, conn, "question")
	mustDecode(t, raw, &snap)
	if snap.Points != 0 || snap.LivesRemaining != 1 || snap.Answered != 0 {
		t.Fatalf("expected fresh session after restart, got %+v", snap)
	}
}

func TestWebSocketPoolExhaustedRecordsHighScore(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "/ws?category=Medical&playerId=p2")

	_, raw := readUntil(t, conn, "question")
	var snap game.Snapshot
	mustDecode(t, raw, &snap)
	for round := 0; round < 2; round++ {
		send(t, conn, "guess", guessPayload{Option: answers[snap.Prompt]})
		_, raw = readUntil(t, conn, "answerResult")
		var outcome game.GuessOutcome
		mustDecode(t, raw, &outcome)
		if !outcome.Correct || !outcome.BonusAwarded || outcome.Awarded != 2 {
			t.Fatalf("expected fast correct answer with bonus, got %+v", outcome)
		}
		send(t, conn, "next", nil)
		if round == 0 {
			_, raw = readUntil(t, conn, "question")
			mustDecode(t, raw, &snap)
		}
	}

	_, raw = readUntil(t, conn, "results")
	var results domain.Results
	mustDecode(t, raw, &results)
	if results.Points != 4 {
		t.Fatalf("expected 4 points, got %+v", results)
	}
	_, raw = readUntil(t, conn, "state")
	mustDecode(t, raw, &snap)
	if snap.Phase != game.PhaseTerminated || snap.Termination != game.ReasonPoolExhausted {
		t.Fatalf("expected pool exhaustion, got %+v", snap)
	}

	resp, err := http.Get(server.URL + "/players/p2/highscores/Medical")
	if err != nil {
		t.Fatalf("get high score: %v", err)
	}
	defer resp.Body.Close()
	var hs highScorePayload
	if err := json.NewDecoder(resp.Body).Decode(&hs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if hs.HighScore != 4 {
		t.Fatalf("expected stored high score 4, got %+v", hs)
	}
}

func TestWebSocketRejectsBadInput(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "/ws?playerId=p3")
	readUntil(t, conn, "question")

	send(t, conn, "guess", guessPayload{Option: "Not an option"})
	_, raw := readUntil(t, conn, "error")
	var errMsg errorPayload
	mustDecode(t, raw, &errMsg)
	if errMsg.Message != domain.ErrOptionNotFound.Error() {
		t.Fatalf("expected option not found, got %q", errMsg.Message)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write raw frame: %v", err)
	}
	_, raw = readUntil(t, conn, "error")
	mustDecode(t, raw, &errMsg)
	if errMsg.Message != "invalid message" {
		t.Fatalf("expected invalid message error, got %q", errMsg.Message)
	}

	send(t, conn, "dance", nil)
	_, raw = readUntil(t, conn, "error")
	mustDecode(t, raw, &errMsg)
	if errMsg.Message != "unsupported message type" {
		t.Fatalf("unexpected error %q", errMsg.Message)
	}

	// The session survived both bad frames.
	send(t, conn, "next", nil)
	_, raw = readUntil(t, conn, "error")
	mustDecode(t, raw, &errMsg)
	if errMsg.Message != domain.ErrNotAnswered.Error() {
		t.Fatalf("expected the live session to reject next, got %q", errMsg.Message)
	}
}

func TestWebSocketUnknownCategory(t *testing.T) {
	server := newTestServer(t)
	conn := dial(t, server, "/ws?category=Law&playerId=p1")

	_, raw := readUntil(t, conn, "error")
	var errMsg errorPayload
	mustDecode(t, raw, &errMsg)
	if errMsg.Message != domain.ErrUnknownCategory.Error() {
		t.Fatalf("expected unknown category, got %q", errMsg.Message)
	}
}

func TestWebSocketRequiresPlayer(t *testing.T) {
	server := newTestServer(t)
	resp, err := http.Get(server.URL + "/ws?category=Medical")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSettingsRoutes(t *testing.T) {
	server := newTestServer(t)

	var got domain.Settings
	getJSON(t, server.URL+"/players/p1/settings", http.StatusOK, &got)
	if got != domain.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}

	if status := putJSON(t, server.URL+"/players/p1/settings", `{"fontSize":"Huge"}`); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid font size, got %d", status)
	}
	if status := putJSON(t, server.URL+"/players/p1/settings", `{"soundEffects":false,"fontSize":"Large","username":"kim"}`); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	getJSON(t, server.URL+"/players/p1/settings", http.StatusOK, &got)
	if got.SoundEffects || !got.Vibration || got.FontSize != domain.FontLarge || got.Username != "kim" {
		t.Fatalf("unexpected stored settings %+v", got)
	}
}

func TestCategoriesRoute(t *testing.T) {
	server := newTestServer(t)

	var cats []domain.CategorySummary
	getJSON(t, server.URL+"/categories", http.StatusOK, &cats)
	if len(cats) != 3 || cats[0].Name != "Medical" || cats[0].Count != 2 || cats[2].Name != domain.AllCategories {
		t.Fatalf("unexpected categories %+v", cats)
	}
}

var answers = map[string]string{
	"MRI": "Magnetic Resonance Imaging",
	"ECG": "Electrocardiogram",
	"CPU": "Central Processing Unit",
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	items := []domain.QuizItem{
		{Abbreviation: "MRI", CorrectAnswer: answers["MRI"], Options: []string{answers["MRI"], "Medical Radio Imaging", "Motor Reflex Index"}, Category: "Medical"},
		{Abbreviation: "ECG", CorrectAnswer: answers["ECG"], Options: []string{"Echo Cardio Graph", answers["ECG"], "Electronic Care Guide"}, Category: "Medical"},
		{Abbreviation: "CPU", CorrectAnswer: answers["CPU"], Options: []string{"Computer Power Unit", answers["CPU"]}, Category: "Technology"},
	}
	rules := game.DefaultRules()
	rules.StartingLives = 1
	rules.GameOverDelay = 100 * time.Millisecond

	pools := memory.NewPoolRepository(memory.NewStaticPoolLoader(items), time.Minute)
	service := app.NewGameService(memory.NewSessionStore(), pools, memory.NewKVStore(), app.WithRules(rules))
	srv := NewServer(service, NewWSHandler(service, WithMessageRate(100, 100)))

	server := httptest.NewServer(srv.Router())
	t.Cleanup(server.Close)
	return server
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// readUntil skips messages until one of the expected type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, expect string) (string, json.RawMessage) {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(t, conn)
		if typ == expect {
			return typ, payload
		}
	}
	t.Fatalf("no %s message within 10 reads", expect)
	return "", nil
}

func mustDecode(t *testing.T, raw json.RawMessage, v any) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func wrongOption(snap game.Snapshot) string {
	for _, opt := range snap.Options {
		if opt != answers[snap.Prompt] {
			return opt
		}
	}
	return ""
}

func getJSON(t *testing.T, url string, status int, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("expected %d from %s, got %d", status, url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func putJSON(t *testing.T, url, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("put %s: %v", url, err)
	}
	resp.Body.Close()
	return resp.StatusCode
}
