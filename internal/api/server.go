package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nairawise/internal/config"
	"nairawise/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	store   *game.Store
	catalog game.Catalog
	rules   game.Rules
	source  game.ScenarioSource
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, catalog game.Catalog, rules game.Rules, source game.ScenarioSource) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		store:   game.NewStore(),
		catalog: catalog,
		rules:   rules,
		source:  source,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/games", s.handleCreateGame)
		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", s.handleDashboard)
			r.Delete("/", s.handleDeleteGame)
			r.Get("/scenario", s.handleScenario)
			r.Post("/choices", s.handleChoices)
			r.Post("/give", s.handleGive)
			r.Post("/proceed", s.handleProceed)
			r.Get("/market", s.handleMarket)
			r.Post("/orders", s.handleOrder)
			r.Post("/triggers", s.handleTriggers)
			r.Get("/history", s.handleHistory)
		})
	})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var in game.SetupInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session, err := game.NewSession(r.Context(), in, s.catalog, s.rules, s.source, s.log)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	s.store.Put(session)
	s.log.Info("game created", "game_id", session.ID, "challenge", in.ChallengeID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"game_id":   session.ID,
		"dashboard": session.Dashboard(),
		"turn":      session.Turn(),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Dashboard())
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleScenario(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, session.Turn())
}

func (s *Server) handleChoices(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		Indexes []int `json:"indexes"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := session.ConfirmChoices(r.Context(), in.Indexes, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGive(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		Percent int64 `json:"percent"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := session.Give(r.Context(), in.Percent, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleProceed(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	sc, err := session.Proceed(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scenario": sc})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": session.MarketSnapshot()})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		AssetID  string `json:"asset_id"`
		Side     string `json:"side"`
		Quantity int64  `json:"quantity"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := session.PlaceOrder(game.OrderInput{
		AssetID:        in.AssetID,
		Side:           in.Side,
		Quantity:       in.Quantity,
		IdempotencyKey: idempotencyKey(r),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	var in struct {
		AssetID    string `json:"asset_id"`
		StopLoss   *int64 `json:"stop_loss"`
		TakeProfit *int64 `json:"take_profit"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pos, err := session.SetTriggers(in.AssetID, in.StopLoss, in.TakeProfit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pos)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": session.History()})
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, bool) {
	session, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return session, true
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameNotFound),
		errors.Is(err, game.ErrUnknownAsset),
		errors.Is(err, game.ErrPositionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrInvalidSetup),
		errors.Is(err, game.ErrInvalidChoice),
		errors.Is(err, game.ErrInvalidGiving),
		errors.Is(err, game.ErrInvalidOrder),
		errors.Is(err, game.ErrInsufficientShares),
		errors.Is(err, game.ErrInsufficientFunds):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, game.ErrWrongPhase),
		errors.Is(err, game.ErrGameOver),
		errors.Is(err, game.ErrGivingUnavailable),
		errors.Is(err, game.ErrDuplicateIdempotency):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
