package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"nairawise/internal/config"
	"nairawise/internal/game"
)

type staticSource struct{}

func (staticSource) NextScenario(ctx context.Context, state game.PlayerState, history []game.LogEntry) (game.Scenario, error) {
	return game.Scenario{
		Title:       "Quiet Week",
		Description: "Lagos is calm for once.",
		Choices: []game.Choice{
			{Text: "Save small", Consequence: "Good habit.", Impact: game.Impact{Savings: 1_000}},
			{Text: "Flex small", Consequence: "Enjoyment.", Impact: game.Impact{Balance: -3_000, Happiness: 2}},
			{Text: "Hustle extra", Consequence: "More money.", Impact: game.Impact{Balance: 8_000}},
			{Text: "Do nothing", Consequence: "Nothing happened.", Impact: game.Impact{}},
		},
	}, nil
}

func (staticSource) EndGameAnalysis(ctx context.Context, state game.PlayerState, history []game.LogEntry) (string, error) {
	return "You tried, but sapa won.", nil
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(config.APIConfig{}, logger, game.DefaultCatalog(), game.DefaultRules(), staticSource{})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

func createGame(t *testing.T, base string) string {
	t.Helper()
	var created struct {
		GameID string `json:"game_id"`
	}
	code := doJSON(t, http.MethodPost, base+"/v1/games", game.SetupInput{
		Name:        "Ada",
		Job:         "Digital Hustler",
		City:        "Lagos",
		Salary:      150_000,
		ChallengeID: "silver-spoon",
		GoalID:      "survive",
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create game returned %d", code)
	}
	if created.GameID == "" {
		t.Fatalf("missing game id")
	}
	return created.GameID
}

func TestGameLifecycle(t *testing.T) {
	ts := testServer(t)
	id := createGame(t, ts.URL)

	var dash game.DashboardView
	if code := doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+id+"/", nil, &dash); code != http.StatusOK {
		t.Fatalf("dashboard returned %d", code)
	}
	if dash.Player.Balance != 1_000_000 {
		t.Fatalf("balance got %d", dash.Player.Balance)
	}

	var turn game.TurnView
	if code := doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+id+"/scenario", nil, &turn); code != http.StatusOK {
		t.Fatalf("scenario returned %d", code)
	}
	if turn.Scenario == nil || turn.Scenario.Title != "Quiet Week" {
		t.Fatalf("turn got %+v", turn)
	}

	var out game.TurnOutcome
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/choices", map[string]any{"indexes": []int{2}}, &out); code != http.StatusOK {
		t.Fatalf("choices returned %d", code)
	}
	if out.Balance != 1_008_000 {
		t.Fatalf("outcome balance got %d", out.Balance)
	}

	var next struct {
		Scenario game.Scenario `json:"scenario"`
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/proceed", nil, &next); code != http.StatusOK {
		t.Fatalf("proceed returned %d", code)
	}
	if next.Scenario.Title == "" {
		t.Fatalf("proceed returned empty scenario")
	}

	if code := doJSON(t, http.MethodDelete, ts.URL+"/v1/games/"+id+"/", nil, nil); code != http.StatusOK {
		t.Fatalf("delete returned %d", code)
	}
	if code := doJSON(t, http.MethodGet, ts.URL+"/v1/games/"+id+"/", nil, nil); code != http.StatusNotFound {
		t.Fatalf("deleted game returned %d", code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	ts := testServer(t)

	// Unknown game.
	if code := doJSON(t, http.MethodGet, ts.URL+"/v1/games/nope/", nil, nil); code != http.StatusNotFound {
		t.Fatalf("unknown game returned %d", code)
	}

	// Invalid setup.
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games", game.SetupInput{Name: "Ada"}, nil); code != http.StatusBadRequest {
		t.Fatalf("invalid setup returned %d", code)
	}

	id := createGame(t, ts.URL)

	// Wrong phase: proceed before choosing.
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/proceed", nil, nil); code != http.StatusConflict {
		t.Fatalf("early proceed returned %d", code)
	}

	// Bad choice index.
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/choices", map[string]any{"indexes": []int{9}}, nil); code != http.StatusBadRequest {
		t.Fatalf("bad index returned %d", code)
	}

	// Unknown asset on an order.
	order := map[string]any{"asset_id": "nope", "side": "buy", "quantity": 1}
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/orders", order, nil); code != http.StatusNotFound {
		t.Fatalf("unknown asset returned %d", code)
	}

	// Order whose notional cannot fit in int64.
	order = map[string]any{"asset_id": "nairatech", "side": "buy", "quantity": int64(1) << 60}
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/orders", order, nil); code != http.StatusBadRequest {
		t.Fatalf("overflowing order returned %d", code)
	}

	// Unknown fields are rejected.
	req, _ := http.NewRequest(http.MethodPost, ts.URL+"/v1/games/"+id+"/choices", bytes.NewBufferString(`{"indexes":[0],"bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field returned %d", resp.StatusCode)
	}
}

func TestIdempotencyKeyReplayRejected(t *testing.T) {
	ts := testServer(t)
	id := createGame(t, ts.URL)

	send := func() int {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/games/"+id+"/choices", bytes.NewBufferString(`{"indexes":[3]}`))
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Idempotency-Key", "replay-me")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("first confirm returned %d", code)
	}
	if code := doJSON(t, http.MethodPost, ts.URL+"/v1/games/"+id+"/proceed", nil, nil); code != http.StatusOK {
		t.Fatalf("proceed returned %d", code)
	}
	if code := send(); code != http.StatusConflict {
		t.Fatalf("replayed key returned %d", code)
	}
}

func TestHealthz(t *testing.T) {
	ts := testServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz returned %d", resp.StatusCode)
	}
}
