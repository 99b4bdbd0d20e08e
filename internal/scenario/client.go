// Package scenario talks to the external text-generation service that
// writes the game's weekly scenarios and the end-of-run analysis. The
// core only consumes the structural shape of what comes back.
package scenario

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nairawise/internal/game"
)

var (
	ErrScenarioUnavailable  = errors.New("scenario source unavailable")
	ErrNarrativeUnavailable = errors.New("narrative source unavailable")
)

// Config configures the generation endpoint and the content contract.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	ChoiceCount int
	EquityIDs   []string
	FundIDs     []string
	HTTPClient  *http.Client
}

type Client struct {
	cfg Config
	log *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "gemini-3-flash-preview"
	}
	if cfg.ChoiceCount <= 0 {
		cfg.ChoiceCount = 4
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, log: logger}
}

// NextScenario requests one personalized scenario for the current
// state and recent history. Only the structural shape of the reply is
// validated.
func (c *Client) NextScenario(ctx context.Context, state game.PlayerState, history []game.LogEntry) (game.Scenario, error) {
	text, err := c.generate(ctx, scenarioSystemPrompt, c.scenarioPrompt(state, history), true)
	if err != nil {
		return game.Scenario{}, fmt.Errorf("%w: %v", ErrScenarioUnavailable, err)
	}
	var sc game.Scenario
	if err := json.Unmarshal([]byte(text), &sc); err != nil {
		return game.Scenario{}, fmt.Errorf("%w: decode scenario: %v", ErrScenarioUnavailable, err)
	}
	if err := game.ValidateScenario(sc, c.cfg.ChoiceCount); err != nil {
		return game.Scenario{}, fmt.Errorf("%w: %v", ErrScenarioUnavailable, err)
	}
	return sc, nil
}

// EndGameAnalysis requests the one-shot ruin report.
func (c *Client) EndGameAnalysis(ctx context.Context, state game.PlayerState, history []game.LogEntry) (string, error) {
	prompt := fmt.Sprintf(
		"Analyze how %s (a %s) went broke after %d weeks. Final balance: %d. Debt: %d. Dependents: %d. Give a funny, biting, but educational lecture in Pidgin about what went wrong.",
		state.Name, state.Job, state.Week, state.Balance, state.Debt, state.Dependents,
	)
	text, err := c.generate(ctx, analysisSystemPrompt, prompt, false)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNarrativeUnavailable, err)
	}
	return strings.TrimSpace(text), nil
}

const (
	scenarioSystemPrompt = "You are NairaWise, a financial role-play engine for Nigerians. Your tone is witty, culturally grounded, and wise. You reply with JSON only."
	analysisSystemPrompt = "You are a wise but slightly mean Nigerian financial mentor."
)

func (c *Client) scenarioPrompt(state game.PlayerState, history []game.LogEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a highly personalized financial scenario for a Nigerian named %s.\n\n", state.Name)
	b.WriteString("PLAYER PROFILE:\n")
	fmt.Fprintf(&b, "- GENDER: %s\n", state.Gender)
	fmt.Fprintf(&b, "- JOB: %s\n", state.Job)
	fmt.Fprintf(&b, "- RESIDENCE: %s\n", state.City)
	fmt.Fprintf(&b, "- MARITAL STATUS: %s\n", state.MaritalStatus)
	fmt.Fprintf(&b, "- DEPENDENTS: %d\n", state.Dependents)
	fmt.Fprintf(&b, "- LIQUID BALANCE: %d\n", state.Balance)
	fmt.Fprintf(&b, "- MONTHLY EARNINGS: %d\n", state.Salary)
	fmt.Fprintf(&b, "- CURRENT TIMELINE: Week %d (%s)\n", state.Week, game.Era(state.Week))
	fmt.Fprintf(&b, "- ACTIVE CHALLENGE: %s\n\n", state.Challenge)

	if n := len(history); n > 0 {
		b.WriteString("RECENT DECISIONS:\n")
		start := n - 5
		if start < 0 {
			start = 0
		}
		for _, e := range history[start:] {
			fmt.Fprintf(&b, "- Week %d, %s: %s\n", e.Week, e.Title, e.Decision)
		}
		b.WriteString("\n")
	}

	b.WriteString("STRICT GUIDELINES:\n")
	fmt.Fprintf(&b, "1. PROVIDE EXACTLY %d CHOICES, each a different path.\n", c.cfg.ChoiceCount)
	b.WriteString("2. The scenario must be personalized to the profile above, including their job and family situation.\n")
	b.WriteString("3. Choice 1: Survival/Prudent - a localized Nigerian way to save or earn extra.\n")
	b.WriteString("4. Choice 2: Social/Responsibility - black tax, family emergency, or social pressure.\n")
	if len(c.cfg.EquityIDs) > 0 {
		fmt.Fprintf(&b, "5. Choice 3: Individual stock - set investment_id to one of: %s.\n", strings.Join(c.cfg.EquityIDs, ", "))
	}
	if len(c.cfg.FundIDs) > 0 {
		fmt.Fprintf(&b, "6. Choice 4: Mutual fund - set investment_id to one of: %s.\n", strings.Join(c.cfg.FundIDs, ", "))
	}
	b.WriteString("7. Use authentic Nigerian Pidgin and cultural slang naturally.\n")
	fmt.Fprintf(&b, "8. Financial impacts must be relative to their %d monthly income. Investment choices must carry the purchase cost as a negative balance impact.\n\n", state.Salary)

	b.WriteString(`RESPONSE FORMAT: JSON only, with this exact shape:
{"title": string, "description": string, "image_theme": string,
 "choices": [{"text": string, "consequence": string, "investment_id": string (optional),
 "impact": {"balance": int, "savings": int, "debt": int, "happiness": int}}]}`)
	return b.String()
}

type generateRequest struct {
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Contents          []content         `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (c *Client) generate(ctx context.Context, system, prompt string, jsonReply bool) (string, error) {
	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: system}}},
		Contents:          []content{{Parts: []part{{Text: prompt}}}},
	}
	if jsonReply {
		reqBody.GenerationConfig = &generationConfig{ResponseMIMEType: "application/json"}
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.cfg.BaseURL, url.PathEscape(c.cfg.Model))
	if c.cfg.APIKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.cfg.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response")
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
