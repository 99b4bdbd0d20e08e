package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	HappinessMax      = int64(100)
	StartingHappiness = int64(80)

	// Salary lands every 4th week with a 1-week delayed start: 5, 9, 13...
	SalaryPeriodWeeks = 4

	// Most recent prices kept per asset; the oldest is evicted beyond this.
	PriceHistoryCap = 20

	// Per-advance uniform return bands by asset class.
	EquityBand = 0.12
	FundBand   = 0.03

	DefaultRuinBuffer = int64(20_000)
)

var (
	ErrInvalidSetup         = errors.New("invalid setup")
	ErrGameNotFound         = errors.New("game not found")
	ErrGameOver             = errors.New("game is over")
	ErrWrongPhase           = errors.New("action not allowed in current phase")
	ErrInvalidChoice        = errors.New("invalid choice selection")
	ErrUnknownAsset         = errors.New("unknown asset")
	ErrPositionNotFound     = errors.New("no position held for asset")
	ErrInsufficientShares   = errors.New("insufficient shares")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrGivingUnavailable    = errors.New("giving is not available this turn")
	ErrInvalidGiving        = errors.New("giving percent must be between 1 and 100")
	ErrDuplicateIdempotency = errors.New("duplicate idempotency key")
)

// ValidateSetup rejects malformed setup before any session state exists.
func ValidateSetup(in SetupInput, catalog Catalog) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSetup)
	}
	if in.Salary <= 0 {
		return fmt.Errorf("%w: salary must be > 0", ErrInvalidSetup)
	}
	if in.Dependents < 0 {
		return fmt.Errorf("%w: dependents must be >= 0", ErrInvalidSetup)
	}
	switch strings.ToLower(strings.TrimSpace(in.MaritalStatus)) {
	case "", "single", "married":
	default:
		return fmt.Errorf("%w: marital status must be single or married", ErrInvalidSetup)
	}
	if _, ok := catalog.Challenge(in.ChallengeID); !ok {
		return fmt.Errorf("%w: unknown challenge %q", ErrInvalidSetup, in.ChallengeID)
	}
	if _, ok := catalog.Goal(in.GoalID); !ok {
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidSetup, in.GoalID)
	}
	return nil
}

// ValidateScenario checks the structural shape of generated content:
// the configured choice count and a full impact vector per choice.
// Semantic plausibility is never checked.
func ValidateScenario(sc Scenario, choiceCount int) error {
	if strings.TrimSpace(sc.Title) == "" {
		return fmt.Errorf("scenario title is empty")
	}
	if len(sc.Choices) != choiceCount {
		return fmt.Errorf("scenario has %d choices, want %d", len(sc.Choices), choiceCount)
	}
	for i, c := range sc.Choices {
		if strings.TrimSpace(c.Text) == "" {
			return fmt.Errorf("choice %d has no text", i)
		}
	}
	return nil
}

// notional returns qty*price, rejecting products that do not fit in
// int64. Both factors must be positive.
func notional(qty, price int64) (int64, error) {
	if qty <= 0 || price <= 0 {
		return 0, fmt.Errorf("quantity and price must be > 0")
	}
	if qty > math.MaxInt64/price {
		return 0, fmt.Errorf("notional overflow")
	}
	return qty * price, nil
}

// Era labels the run's narrative phase from the current week.
func Era(week int) string {
	switch {
	case week > 300:
		return "Billionaire Era"
	case week > 150:
		return "Oga Era"
	case week > 50:
		return "Hustle Era"
	default:
		return "Sapa Era"
	}
}
