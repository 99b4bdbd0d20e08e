package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nairawise/internal/game"
)

func candidateReply(text string) string {
	reply := map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	}
	out, _ := json.Marshal(reply)
	return string(out)
}

func validScenarioJSON() string {
	sc := game.Scenario{
		Title:       "Fuel Scarcity Returns",
		Description: "Queues everywhere and black market prices are mad.",
		ImageTheme:  "petrol station",
		Choices: []game.Choice{
			{Text: "Queue overnight", Consequence: "You lost sleep but saved money.", Impact: game.Impact{Happiness: -3}},
			{Text: "Buy black market fuel", Consequence: "Wallet took a hit.", Impact: game.Impact{Balance: -15_000}},
			{Text: "Buy Lagos Gas shares", Consequence: "Energy demand is up.", InvestmentID: "lagos-gas", Impact: game.Impact{Balance: -12_500}},
			{Text: "Work from home", Consequence: "NEPA had other plans.", Impact: game.Impact{Balance: -2_000, Happiness: -1}},
		},
	}
	out, _ := json.Marshal(sc)
	return string(out)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		BaseURL:     srv.URL,
		APIKey:      "test-key",
		ChoiceCount: 4,
		EquityIDs:   []string{"lagos-gas", "nairatech"},
		FundIDs:     []string{"naija-balanced"},
		HTTPClient:  srv.Client(),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testState() game.PlayerState {
	return game.PlayerState{
		Name: "Ada", Job: "Digital Hustler", City: "Lagos",
		MaritalStatus: "single", Salary: 150_000, Balance: 75_000,
		Happiness: 80, Week: 6, Challenge: "sapa-max",
	}
}

func TestNextScenario(t *testing.T) {
	var gotPath, gotKey string
	var gotReq generateRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, candidateReply(validScenarioJSON()))
	})

	history := []game.LogEntry{{Week: 5, Title: "Payday", Decision: "Salary landed"}}
	sc, err := c.NextScenario(context.Background(), testState(), history)
	if err != nil {
		t.Fatalf("NextScenario: %v", err)
	}
	if sc.Title != "Fuel Scarcity Returns" || len(sc.Choices) != 4 {
		t.Fatalf("scenario got %+v", sc)
	}
	if sc.Choices[2].InvestmentID != "lagos-gas" {
		t.Fatalf("investment id got %q", sc.Choices[2].InvestmentID)
	}

	if gotPath != "/v1beta/models/gemini-3-flash-preview:generateContent" {
		t.Fatalf("path got %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Fatalf("key got %q", gotKey)
	}
	if gotReq.GenerationConfig == nil || gotReq.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Fatalf("expected JSON response mode, got %+v", gotReq.GenerationConfig)
	}
	if gotReq.SystemInstruction == nil || len(gotReq.Contents) != 1 {
		t.Fatalf("request shape got %+v", gotReq)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	for _, want := range []string{"Ada", "Digital Hustler", "Week 6", "lagos-gas, nairatech", "Week 5, Payday"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestNextScenarioServerError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	_, err := c.NextScenario(context.Background(), testState(), nil)
	if !errors.Is(err, ErrScenarioUnavailable) {
		t.Fatalf("got %v want ErrScenarioUnavailable", err)
	}
}

func TestNextScenarioMalformedJSON(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, candidateReply("here is your scenario: {oops"))
	})
	_, err := c.NextScenario(context.Background(), testState(), nil)
	if !errors.Is(err, ErrScenarioUnavailable) {
		t.Fatalf("got %v want ErrScenarioUnavailable", err)
	}
}

func TestNextScenarioWrongShape(t *testing.T) {
	// Valid JSON, wrong choice count: rejected before the engine sees it.
	short := game.Scenario{
		Title:       "Short Week",
		Description: "Not much happened.",
		Choices:     []game.Choice{{Text: "Carry on", Consequence: "Fine."}},
	}
	body, _ := json.Marshal(short)
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, candidateReply(string(body)))
	})
	_, err := c.NextScenario(context.Background(), testState(), nil)
	if !errors.Is(err, ErrScenarioUnavailable) {
		t.Fatalf("got %v want ErrScenarioUnavailable", err)
	}
}

func TestNextScenarioEmptyCandidates(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"candidates": []}`)
	})
	_, err := c.NextScenario(context.Background(), testState(), nil)
	if !errors.Is(err, ErrScenarioUnavailable) {
		t.Fatalf("got %v want ErrScenarioUnavailable", err)
	}
}

func TestEndGameAnalysis(t *testing.T) {
	var gotReq generateRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		io.WriteString(w, candidateReply("  My pikin, you chop life before life chop you. \n"))
	})

	state := testState()
	state.Balance = -25_000
	got, err := c.EndGameAnalysis(context.Background(), state, nil)
	if err != nil {
		t.Fatalf("EndGameAnalysis: %v", err)
	}
	if got != "My pikin, you chop life before life chop you." {
		t.Fatalf("analysis got %q", got)
	}
	// Prose reply, not JSON mode.
	if gotReq.GenerationConfig != nil {
		t.Fatalf("expected no generation config, got %+v", gotReq.GenerationConfig)
	}
	if !strings.Contains(gotReq.Contents[0].Parts[0].Text, "-25000") {
		t.Fatalf("analysis prompt missing final balance")
	}
}

func TestEndGameAnalysisError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusInternalServerError)
	})
	_, err := c.EndGameAnalysis(context.Background(), testState(), nil)
	if !errors.Is(err, ErrNarrativeUnavailable) {
		t.Fatalf("got %v want ErrNarrativeUnavailable", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{BaseURL: "https://example.com/"}, nil)
	if c.cfg.BaseURL != "https://example.com" {
		t.Fatalf("base url got %q", c.cfg.BaseURL)
	}
	if c.cfg.Model != "gemini-3-flash-preview" {
		t.Fatalf("model got %q", c.cfg.Model)
	}
	if c.cfg.ChoiceCount != 4 {
		t.Fatalf("choice count got %d", c.cfg.ChoiceCount)
	}
	if c.cfg.HTTPClient == nil {
		t.Fatalf("missing default http client")
	}
}
