package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nairawise/internal/game"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// NewGameResponse is the creation payload from the API.
type NewGameResponse struct {
	GameID    string             `json:"game_id"`
	Dashboard game.DashboardView `json:"dashboard"`
	Turn      game.TurnView      `json:"turn"`
}

func (c *Client) NewGame(ctx context.Context, in game.SetupInput) (NewGameResponse, error) {
	var out NewGameResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games", in, &out, "")
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, gameID string) (game.DashboardView, error) {
	var out game.DashboardView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID)+"/", nil, &out, "")
	return out, err
}

func (c *Client) Turn(ctx context.Context, gameID string) (game.TurnView, error) {
	var out game.TurnView
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID)+"/scenario", nil, &out, "")
	return out, err
}

func (c *Client) Choose(ctx context.Context, gameID string, indexes []int, idem string) (game.TurnOutcome, error) {
	var out game.TurnOutcome
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/choices", map[string]any{
		"indexes": indexes,
	}, &out, idem)
	return out, err
}

func (c *Client) Give(ctx context.Context, gameID string, percent int64, idem string) (game.GiveResult, error) {
	var out game.GiveResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/give", map[string]any{
		"percent": percent,
	}, &out, idem)
	return out, err
}

func (c *Client) Proceed(ctx context.Context, gameID string) (game.Scenario, error) {
	var out struct {
		Scenario game.Scenario `json:"scenario"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/proceed", nil, &out, "")
	return out.Scenario, err
}

func (c *Client) Market(ctx context.Context, gameID string) ([]game.Asset, error) {
	var out struct {
		Assets []game.Asset `json:"assets"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID)+"/market", nil, &out, "")
	return out.Assets, err
}

func (c *Client) PlaceOrder(ctx context.Context, gameID, assetID, side string, quantity int64, idem string) (game.OrderResult, error) {
	var out game.OrderResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/orders", map[string]any{
		"asset_id": assetID,
		"side":     side,
		"quantity": quantity,
	}, &out, idem)
	return out, err
}

func (c *Client) SetTriggers(ctx context.Context, gameID, assetID string, stopLoss, takeProfit *int64) (game.Position, error) {
	var out game.Position
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/triggers", map[string]any{
		"asset_id":    assetID,
		"stop_loss":   stopLoss,
		"take_profit": takeProfit,
	}, &out, "")
	return out, err
}

func (c *Client) History(ctx context.Context, gameID string) ([]game.LogEntry, error) {
	var out struct {
		History []game.LogEntry `json:"history"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/"+url.PathEscape(gameID)+"/history", nil, &out, "")
	return out.History, err
}

func (c *Client) DeleteGame(ctx context.Context, gameID string) error {
	return c.jsonRequest(ctx, http.MethodDelete, "/v1/games/"+url.PathEscape(gameID)+"/", nil, nil, "")
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, body, out any, idem string) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("api returned %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}
