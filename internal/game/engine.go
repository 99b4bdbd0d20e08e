package game

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ScenarioSource is the external text-generation service. Both calls
// have bounded-failure fallbacks at the engine level: there is no
// retry policy, a single failure takes the fallback path immediately.
type ScenarioSource interface {
	NextScenario(ctx context.Context, state PlayerState, history []LogEntry) (Scenario, error)
	EndGameAnalysis(ctx context.Context, state PlayerState, history []LogEntry) (string, error)
}

// SelectionPolicy declares, per scenario batch, how many choices exist
// and how many the player must pick.
type SelectionPolicy struct {
	ChoiceCount int
	MinSelect   int
	MaxSelect   int
}

const (
	RuinStrictZero = "strict-zero"
	RuinBuffer     = "buffer"
)

// RuinPolicy decides when a balance counts as ruin. "strict-zero"
// fires at or below zero; "buffer" fires strictly below -Buffer.
type RuinPolicy struct {
	Mode   string
	Buffer int64
}

func (p RuinPolicy) Ruined(balance int64) bool {
	if p.Mode == RuinStrictZero {
		return balance <= 0
	}
	return balance < -p.Buffer
}

// GivingPolicy configures the optional post-resolution giving hook.
// HappinessPerTenth is the happiness gained per 10% of inflow given.
type GivingPolicy struct {
	Enabled           bool
	HappinessPerTenth int64
}

// Rules bundles the configurable engine policies.
type Rules struct {
	Selection SelectionPolicy
	Ruin      RuinPolicy
	Giving    GivingPolicy
}

func DefaultRules() Rules {
	return Rules{
		Selection: SelectionPolicy{ChoiceCount: 4, MinSelect: 1, MaxSelect: 1},
		Ruin:      RuinPolicy{Mode: RuinBuffer, Buffer: DefaultRuinBuffer},
		Giving:    GivingPolicy{HappinessPerTenth: 2},
	}
}

const prefetchTimeout = 60 * time.Second

type prefetchResult struct {
	scenario Scenario
	err      error
}

// Session is one game run. All state is ephemeral; the mutex exists
// because HTTP handlers share the session, the turn logic itself is a
// single control flow.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu             sync.Mutex
	rules          Rules
	source         ScenarioSource
	log            *slog.Logger
	state          PlayerState
	goals          []Goal
	positions      []Position
	market         *Market
	history        []LogEntry
	phase          Phase
	scenario       Scenario
	lastOutcome    *TurnOutcome
	givingOffer    int64
	report         string
	fallback       Scenario
	fallbackReport string
	idem           map[string]struct{}
	prefetching    bool
	prefetchStale  bool
	prefetch       chan prefetchResult
}

// GiveResult reports a completed giving action.
type GiveResult struct {
	Amount        int64  `json:"amount"`
	HappinessGain int64  `json:"happiness_gain"`
	Balance       int64  `json:"balance"`
	Ruined        bool   `json:"ruined"`
	Report        string `json:"report,omitempty"`
}

// TurnView is the scenario-facing read model: the open scenario while
// a choice is pending, or the last outcome once the turn resolved.
type TurnView struct {
	Phase    Phase        `json:"phase"`
	Scenario *Scenario    `json:"scenario,omitempty"`
	Outcome  *TurnOutcome `json:"outcome,omitempty"`
}

// NewSession validates the setup, builds starting state from the
// challenge preset and fetches the opening scenario, substituting the
// catalog fallback when the source is unavailable.
func NewSession(ctx context.Context, in SetupInput, catalog Catalog, rules Rules, source ScenarioSource, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := ValidateSetup(in, catalog); err != nil {
		return nil, err
	}
	if err := ValidateScenario(catalog.Fallback, rules.Selection.ChoiceCount); err != nil {
		return nil, fmt.Errorf("catalog fallback cannot back a %d-choice game: %w", rules.Selection.ChoiceCount, err)
	}
	challenge, _ := catalog.Challenge(in.ChallengeID)
	goal, _ := catalog.Goal(in.GoalID)
	if challenge.GivingHook {
		rules.Giving.Enabled = true
	}

	s := &Session{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		rules:          rules,
		source:         source,
		log:            logger,
		state:          catalog.StartingState(in),
		goals:          []Goal{goal},
		market:         NewMarket(catalog.Assets),
		phase:          PhaseAwaitingChoice,
		fallback:       catalog.Fallback,
		fallbackReport: catalog.FallbackReport,
		idem:           make(map[string]struct{}),
	}

	sc, err := source.NextScenario(ctx, s.state, nil)
	if err == nil {
		err = ValidateScenario(sc, rules.Selection.ChoiceCount)
	}
	if err != nil {
		s.log.Warn("opening scenario unavailable, using fallback", "game_id", s.ID, "err", err)
		sc = s.fallback
	}
	s.scenario = sc

	s.mu.Lock()
	s.startPrefetchLocked()
	s.mu.Unlock()
	return s, nil
}

// ConfirmChoices resolves the current turn: it aggregates the selected
// impact vectors, injects salary when the cycle fires, executes
// investment purchases at pre-advance prices, applies the single
// ledger transition and checks ruin once.
func (s *Session) ConfirmChoices(ctx context.Context, indexes []int, idemKey string) (TurnOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRuined {
		return TurnOutcome{}, ErrGameOver
	}
	if s.phase != PhaseAwaitingChoice {
		return TurnOutcome{}, ErrWrongPhase
	}
	if err := s.claimLocked(idemKey); err != nil {
		return TurnOutcome{}, err
	}
	selected, err := s.selectChoicesLocked(indexes)
	if err != nil {
		return TurnOutcome{}, err
	}
	s.phase = PhaseChoiceConfirmed

	week := s.state.Week
	var salary int64
	if SalaryDue(week) {
		salary = s.state.Salary
	}

	impacts := make([]Impact, 0, len(selected))
	var inflow int64
	for _, c := range selected {
		impacts = append(impacts, c.Impact)
		if c.Impact.Balance > 0 {
			inflow += c.Impact.Balance
		}
	}
	total := SumImpacts(impacts...)
	total.Balance += salary
	inflow += salary

	prices := s.market.Prices()
	for _, c := range selected {
		if c.InvestmentID == "" {
			continue
		}
		price, ok := prices[c.InvestmentID]
		if !ok {
			s.log.Warn("investment choice references unknown asset", "game_id", s.ID, "asset_id", c.InvestmentID)
			continue
		}
		// The choice's own balance delta already carries the cost;
		// buying here must not debit balance a second time.
		s.positions = Buy(s.positions, c.InvestmentID, 1, price)
	}

	results := make([]ChoiceResult, 0, len(selected))
	for _, c := range selected {
		s.history = append(s.history, LogEntry{
			Week:        week,
			Title:       s.scenario.Title,
			Decision:    c.Text,
			Consequence: c.Consequence,
		})
		results = append(results, ChoiceResult{Decision: c.Text, Consequence: c.Consequence})
	}
	if salary > 0 {
		s.history = append(s.history, LogEntry{
			Week:     week,
			Title:    "Payday",
			Decision: fmt.Sprintf("Monthly salary of %d lands in your account", salary),
		})
	}

	s.state = ApplyImpact(s.state, total)

	s.givingOffer = 0
	if s.rules.Giving.Enabled && inflow > 0 {
		s.givingOffer = inflow
	}
	s.phase = PhaseTurnResolved

	out := TurnOutcome{
		Week:        week,
		Title:       s.scenario.Title,
		Results:     results,
		SalaryPaid:  salary,
		GivingOffer: s.givingOffer,
		Balance:     s.state.Balance,
	}
	if s.rules.Ruin.Ruined(s.state.Balance) {
		s.ruinLocked(ctx)
		out.Ruined = true
		out.Report = s.report
		out.GivingOffer = 0
	}
	s.lastOutcome = &out
	return out, nil
}

// Give surrenders percent of this turn's positive inflow for a
// happiness gain. Only offered between resolution and proceed, and a
// giving action that crosses the ruin threshold ruins the run.
func (s *Session) Give(ctx context.Context, percent int64, idemKey string) (GiveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRuined {
		return GiveResult{}, ErrGameOver
	}
	if s.phase != PhaseTurnResolved {
		return GiveResult{}, ErrWrongPhase
	}
	if !s.rules.Giving.Enabled || s.givingOffer <= 0 {
		return GiveResult{}, ErrGivingUnavailable
	}
	if percent < 1 || percent > 100 {
		return GiveResult{}, ErrInvalidGiving
	}
	if err := s.claimLocked(idemKey); err != nil {
		return GiveResult{}, err
	}

	amount := s.givingOffer * percent / 100
	gain := percent * s.rules.Giving.HappinessPerTenth / 10
	if gain < 1 {
		gain = 1
	}
	s.state.Balance -= amount
	s.state.Happiness = clampHappiness(s.state.Happiness + gain)
	s.givingOffer = 0
	s.history = append(s.history, LogEntry{
		Week:        s.state.Week - 1,
		Title:       "Giving",
		Decision:    fmt.Sprintf("Gave away %d%% of this week's inflow (%d)", percent, amount),
		Consequence: "The family group chat is singing your praises.",
	})
	if s.lastOutcome != nil {
		s.lastOutcome.GivingOffer = 0
		s.lastOutcome.Balance = s.state.Balance
	}

	res := GiveResult{Amount: amount, HappinessGain: gain, Balance: s.state.Balance}
	if s.rules.Ruin.Ruined(s.state.Balance) {
		s.ruinLocked(ctx)
		res.Ruined = true
		res.Report = s.report
		if s.lastOutcome != nil {
			s.lastOutcome.Ruined = true
			s.lastOutcome.Report = s.report
		}
	}
	return res, nil
}

// Proceed closes the resolved turn: advance the market once, sweep
// triggers, re-evaluate goals, then swap in the next scenario from the
// prefetch slot (waiting for it if still in flight, falling back if
// the source failed).
func (s *Session) Proceed(ctx context.Context) (Scenario, error) {
	s.mu.Lock()
	if s.phase == PhaseRuined {
		s.mu.Unlock()
		return Scenario{}, ErrGameOver
	}
	if s.phase != PhaseTurnResolved {
		s.mu.Unlock()
		return Scenario{}, ErrWrongPhase
	}
	s.phase = PhaseNextPending

	s.market.Advance()
	prices := s.market.Prices()
	remaining, proceeds, fires := SweepTriggers(s.positions, prices)
	s.positions = remaining
	s.state.Balance += proceeds
	for _, f := range fires {
		label := "Take-profit"
		if f.Kind == TriggerStopLoss {
			label = "Stop-loss"
		}
		s.history = append(s.history, LogEntry{
			Week:        s.state.Week,
			Title:       "Market trigger",
			Decision:    fmt.Sprintf("%s fired on %s", label, f.AssetID),
			Consequence: fmt.Sprintf("Sold %d shares at %d for %d", f.Shares, f.Price, f.Proceeds),
		})
	}

	net := s.state.Balance + PositionsValue(s.positions, prices)
	s.goals = EvaluateGoals(s.goals, net)

	sc := s.takeNextLocked(ctx)
	s.scenario = sc
	s.lastOutcome = nil
	s.givingOffer = 0
	s.phase = PhaseAwaitingChoice
	s.startPrefetchLocked()
	s.mu.Unlock()
	return sc, nil
}

// PlaceOrder executes a manual buy/sell against the live market,
// debiting or crediting the balance atomically with the trade.
func (s *Session) PlaceOrder(in OrderInput) (OrderResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRuined {
		return OrderResult{}, ErrGameOver
	}
	side := strings.ToLower(strings.TrimSpace(in.Side))
	if side != "buy" && side != "sell" {
		return OrderResult{}, fmt.Errorf("%w: side must be buy or sell", ErrInvalidOrder)
	}
	if in.Quantity <= 0 {
		return OrderResult{}, fmt.Errorf("%w: quantity must be > 0", ErrInvalidOrder)
	}
	if err := s.claimLocked(in.IdempotencyKey); err != nil {
		return OrderResult{}, err
	}
	asset, ok := s.market.Asset(in.AssetID)
	if !ok {
		return OrderResult{}, ErrUnknownAsset
	}
	cost, err := notional(in.Quantity, asset.Price)
	if err != nil {
		return OrderResult{}, fmt.Errorf("%w: %v", ErrInvalidOrder, err)
	}

	out := OrderResult{AssetID: asset.ID, Side: side, Quantity: in.Quantity, Price: asset.Price}
	switch side {
	case "buy":
		if cost > s.state.Balance {
			return OrderResult{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientFunds, cost, s.state.Balance)
		}
		s.positions = Buy(s.positions, asset.ID, in.Quantity, asset.Price)
		s.state.Balance -= cost
		out.Total = cost
		s.history = append(s.history, LogEntry{
			Week:     s.state.Week,
			Title:    "Market order",
			Decision: fmt.Sprintf("Bought %d x %s at %d", in.Quantity, asset.Name, asset.Price),
		})
	case "sell":
		positions, saleProceeds, err := Sell(s.positions, asset.ID, in.Quantity, asset.Price)
		if err != nil {
			return OrderResult{}, err
		}
		s.positions = positions
		s.state.Balance += saleProceeds
		out.Total = saleProceeds
		s.history = append(s.history, LogEntry{
			Week:     s.state.Week,
			Title:    "Market order",
			Decision: fmt.Sprintf("Sold %d x %s at %d", in.Quantity, asset.Name, asset.Price),
		})
	}
	out.Balance = s.state.Balance
	return out, nil
}

// SetTriggers sets or clears both trigger bounds on a held position.
// A nil price clears that trigger.
func (s *Session) SetTriggers(assetID string, stopLoss, takeProfit *int64) (Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase == PhaseRuined {
		return Position{}, ErrGameOver
	}
	positions, err := SetTrigger(s.positions, assetID, TriggerStopLoss, stopLoss)
	if err != nil {
		return Position{}, err
	}
	positions, err = SetTrigger(positions, assetID, TriggerTakeProfit, takeProfit)
	if err != nil {
		return Position{}, err
	}
	s.positions = positions
	for _, p := range s.positions {
		if p.AssetID == assetID {
			return p, nil
		}
	}
	return Position{}, ErrPositionNotFound
}

// PrefetchNext requests the next scenario speculatively. A re-entrant
// request while one is outstanding is a no-op.
func (s *Session) PrefetchNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startPrefetchLocked()
}

// Dashboard builds the full read model for the session.
func (s *Session) Dashboard() DashboardView {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := s.market.Prices()
	positions := make([]PositionView, 0, len(s.positions))
	for _, p := range s.positions {
		asset, _ := s.market.Asset(p.AssetID)
		price := prices[p.AssetID]
		positions = append(positions, PositionView{
			AssetID:    p.AssetID,
			Name:       asset.Name,
			Shares:     p.Shares,
			AvgPrice:   p.AvgPrice,
			Price:      price,
			Value:      p.Shares * price,
			Unrealized: p.Shares * (price - p.AvgPrice),
			StopLoss:   p.StopLoss,
			TakeProfit: p.TakeProfit,
		})
	}
	net := s.state.Balance + PositionsValue(s.positions, prices)
	goals := make([]GoalView, 0, len(s.goals))
	for _, g := range s.goals {
		goals = append(goals, GoalView{Goal: g, ProgressPct: GoalProgressPct(g, net)})
	}
	return DashboardView{
		GameID:    s.ID,
		Phase:     s.phase,
		Era:       Era(s.state.Week),
		Player:    s.state,
		NetAssets: net,
		Goals:     goals,
		Positions: positions,
	}
}

// Turn returns the scenario-facing view for the current phase.
func (s *Session) Turn() TurnView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := TurnView{Phase: s.phase}
	switch s.phase {
	case PhaseAwaitingChoice:
		sc := s.scenario
		view.Scenario = &sc
	default:
		if s.lastOutcome != nil {
			out := *s.lastOutcome
			view.Outcome = &out
		}
	}
	return view
}

// History returns a copy of the run's audit trail.
func (s *Session) History() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneHistory(s.history)
}

// MarketSnapshot returns all assets with their bounded histories.
func (s *Session) MarketSnapshot() []Asset {
	return s.market.Snapshot()
}

// Report returns the end-game analysis once the run is ruined.
func (s *Session) Report() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseRuined {
		return "", false
	}
	return s.report, true
}

func (s *Session) selectChoicesLocked(indexes []int) ([]Choice, error) {
	pol := s.rules.Selection
	if len(indexes) < pol.MinSelect || len(indexes) > pol.MaxSelect {
		return nil, fmt.Errorf("%w: select between %d and %d choices", ErrInvalidChoice, pol.MinSelect, pol.MaxSelect)
	}
	seen := make(map[int]struct{}, len(indexes))
	selected := make([]Choice, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(s.scenario.Choices) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidChoice, idx)
		}
		if _, dup := seen[idx]; dup {
			return nil, fmt.Errorf("%w: index %d selected twice", ErrInvalidChoice, idx)
		}
		seen[idx] = struct{}{}
		selected = append(selected, s.scenario.Choices[idx])
	}
	return selected, nil
}

// ruinLocked is the terminal transition. The narrative service failing
// must never block game over.
func (s *Session) ruinLocked(ctx context.Context) {
	s.phase = PhaseRuined
	s.givingOffer = 0
	report, err := s.source.EndGameAnalysis(ctx, s.state, cloneHistory(s.history))
	if err != nil || strings.TrimSpace(report) == "" {
		s.log.Warn("end game analysis unavailable, using fallback", "game_id", s.ID, "err", err)
		report = s.fallbackReport
	}
	s.report = report
}

// startPrefetchLocked kicks a speculative fetch of the next scenario.
// At most one fetch is in flight; its result sits in the single-slot
// channel until the next proceed consumes it.
func (s *Session) startPrefetchLocked() {
	if s.prefetching || s.phase == PhaseRuined {
		return
	}
	s.prefetching = true
	ch := make(chan prefetchResult, 1)
	s.prefetch = ch
	state := s.state
	hist := cloneHistory(s.history)
	choiceCount := s.rules.Selection.ChoiceCount
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), prefetchTimeout)
		defer cancel()
		sc, err := s.source.NextScenario(ctx, state, hist)
		if err == nil {
			err = ValidateScenario(sc, choiceCount)
		}
		ch <- prefetchResult{scenario: sc, err: err}
	}()
}

// takeNextLocked resolves the next scenario: the prefetched one when
// available, awaited when still in flight, the fallback otherwise.
// Releases and reacquires the session lock while waiting; the
// next_pending phase keeps other transitions out in the meantime.
func (s *Session) takeNextLocked(ctx context.Context) Scenario {
	if !s.prefetching {
		return s.fetchDirectLocked(ctx)
	}

	ch := s.prefetch
	stale := s.prefetchStale
	s.mu.Unlock()
	var (
		res      prefetchResult
		received bool
	)
	select {
	case res = <-ch:
		received = true
	case <-ctx.Done():
		res = prefetchResult{err: ctx.Err()}
	}
	s.mu.Lock()
	if !received {
		// The abandoned fetch keeps the slot, and the fallback already
		// stood in for its result this turn.
		s.prefetchStale = true
		s.log.Warn("prefetched scenario unavailable, using fallback", "game_id", s.ID, "err", res.err)
		return s.fallback
	}
	s.prefetching = false
	s.prefetchStale = false
	if stale {
		// Generated against state from before the fallback turn;
		// discard it and fetch against the current state.
		s.log.Warn("discarding stale prefetched scenario", "game_id", s.ID)
		return s.fetchDirectLocked(ctx)
	}
	if res.err != nil {
		s.log.Warn("prefetched scenario unavailable, using fallback", "game_id", s.ID, "err", res.err)
		return s.fallback
	}
	return res.scenario
}

// fetchDirectLocked fetches against the current state, dropping the
// lock for the duration of the call.
func (s *Session) fetchDirectLocked(ctx context.Context) Scenario {
	state := s.state
	hist := cloneHistory(s.history)
	s.mu.Unlock()
	sc, err := s.source.NextScenario(ctx, state, hist)
	if err == nil {
		err = ValidateScenario(sc, s.rules.Selection.ChoiceCount)
	}
	s.mu.Lock()
	if err != nil {
		s.log.Warn("scenario unavailable, using fallback", "game_id", s.ID, "err", err)
		return s.fallback
	}
	return sc
}

func (s *Session) claimLocked(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	if _, exists := s.idem[key]; exists {
		return ErrDuplicateIdempotency
	}
	s.idem[key] = struct{}{}
	return nil
}

func cloneHistory(history []LogEntry) []LogEntry {
	return append([]LogEntry(nil), history...)
}
