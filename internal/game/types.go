package game

// AssetClass selects the volatility band an asset moves in.
type AssetClass string

const (
	AssetEquity AssetClass = "equity"
	AssetFund   AssetClass = "fund"
)

// Asset is a tradable instrument quoted in whole naira.
type Asset struct {
	ID      string     `json:"id" yaml:"id"`
	Name    string     `json:"name" yaml:"name"`
	Class   AssetClass `json:"class" yaml:"class"`
	Sector  string     `json:"sector" yaml:"sector"`
	Price   int64      `json:"price" yaml:"price"`
	History []int64    `json:"history" yaml:"history,omitempty"`
}

// PlayerState is the scalar financial and wellbeing state for one run.
// Balance is deliberately unclamped: a negative balance is the ruin signal.
type PlayerState struct {
	Name          string `json:"name"`
	Job           string `json:"job"`
	City          string `json:"city"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"marital_status"`
	Dependents    int    `json:"dependents"`
	Challenge     string `json:"challenge"`
	Salary        int64  `json:"salary"`
	Balance       int64  `json:"balance"`
	Savings       int64  `json:"savings"`
	Debt          int64  `json:"debt"`
	Happiness     int64  `json:"happiness"`
	Week          int    `json:"week"`
}

// Impact is the per-choice delta vector applied through the player ledger.
type Impact struct {
	Balance   int64 `json:"balance"`
	Savings   int64 `json:"savings"`
	Debt      int64 `json:"debt"`
	Happiness int64 `json:"happiness"`
}

// Choice is one option inside a scenario. InvestmentID marks an
// investment choice; its purchase cost is already baked into
// Impact.Balance by the scenario source.
type Choice struct {
	Text         string `json:"text"`
	Consequence  string `json:"consequence"`
	InvestmentID string `json:"investment_id,omitempty"`
	Impact       Impact `json:"impact"`
}

// Scenario is the structural shape consumed from the scenario source.
// Content is never validated semantically, only its shape.
type Scenario struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageTheme  string   `json:"image_theme"`
	Choices     []Choice `json:"choices"`
}

// Position is one portfolio ledger entry. Shares is always >= 1; an
// entry that would reach zero shares is removed instead.
type Position struct {
	AssetID    string `json:"asset_id"`
	Shares     int64  `json:"shares"`
	AvgPrice   int64  `json:"avg_price"`
	StopLoss   *int64 `json:"stop_loss,omitempty"`
	TakeProfit *int64 `json:"take_profit,omitempty"`
}

// Goal is a net-worth milestone. Completed is monotone.
type Goal struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Target    int64  `json:"target" yaml:"target"`
	Category  string `json:"category" yaml:"category"`
	Completed bool   `json:"completed" yaml:"-"`
}

// LogEntry is one append-only line of the run's audit trail.
type LogEntry struct {
	Week        int    `json:"week"`
	Title       string `json:"title"`
	Decision    string `json:"decision"`
	Consequence string `json:"consequence"`
}

// Phase is the turn engine state.
type Phase string

const (
	PhaseAwaitingChoice  Phase = "awaiting_choice"
	PhaseChoiceConfirmed Phase = "choice_confirmed"
	PhaseTurnResolved    Phase = "turn_resolved"
	PhaseNextPending     Phase = "next_pending"
	PhaseRuined          Phase = "ruined"
)

// SetupInput captures the entry contract from the presentation layer.
type SetupInput struct {
	Name          string `json:"name"`
	Job           string `json:"job"`
	City          string `json:"city"`
	Gender        string `json:"gender"`
	MaritalStatus string `json:"marital_status"`
	Dependents    int    `json:"dependents"`
	Salary        int64  `json:"salary"`
	ChallengeID   string `json:"challenge_id"`
	GoalID        string `json:"goal_id"`
}

// ChoiceResult pairs a decision with its consequence narrative for the
// turn report.
type ChoiceResult struct {
	Decision    string `json:"decision"`
	Consequence string `json:"consequence"`
}

// TurnOutcome is what a resolved turn looks like to the caller.
type TurnOutcome struct {
	Week        int            `json:"week"`
	Title       string         `json:"title"`
	Results     []ChoiceResult `json:"results"`
	SalaryPaid  int64          `json:"salary_paid"`
	GivingOffer int64          `json:"giving_offer,omitempty"`
	Balance     int64          `json:"balance"`
	Ruined      bool           `json:"ruined"`
	Report      string         `json:"report,omitempty"`
}

// OrderInput is a manual market order placed between turns.
type OrderInput struct {
	AssetID        string
	Side           string
	Quantity       int64
	IdempotencyKey string
}

// OrderResult reports a filled manual order.
type OrderResult struct {
	AssetID  string `json:"asset_id"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
	Price    int64  `json:"price"`
	Total    int64  `json:"total"`
	Balance  int64  `json:"balance"`
}

// TriggerFire records one stop-loss/take-profit liquidation.
type TriggerFire struct {
	AssetID  string      `json:"asset_id"`
	Kind     TriggerKind `json:"kind"`
	Shares   int64       `json:"shares"`
	Price    int64       `json:"price"`
	Proceeds int64       `json:"proceeds"`
}

// PositionView is a position enriched with market data.
type PositionView struct {
	AssetID    string `json:"asset_id"`
	Name       string `json:"name"`
	Shares     int64  `json:"shares"`
	AvgPrice   int64  `json:"avg_price"`
	Price      int64  `json:"price"`
	Value      int64  `json:"value"`
	Unrealized int64  `json:"unrealized"`
	StopLoss   *int64 `json:"stop_loss,omitempty"`
	TakeProfit *int64 `json:"take_profit,omitempty"`
}

// GoalView is a goal plus progress against current net assets.
type GoalView struct {
	Goal
	ProgressPct int64 `json:"progress_pct"`
}

// DashboardView is the full read model for one game.
type DashboardView struct {
	GameID    string         `json:"game_id"`
	Phase     Phase          `json:"phase"`
	Era       string         `json:"era"`
	Player    PlayerState    `json:"player"`
	NetAssets int64          `json:"net_assets"`
	Goals     []GoalView     `json:"goals"`
	Positions []PositionView `json:"positions"`
}
