package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Challenge is a starting-condition preset. BalanceMode decides the
// opening balance: "zero", "salary" (one month up front) or "fixed"
// (BalanceAmount). StartingDebt is optional. GivingHook enables the
// post-turn giving side-flow for this preset.
type Challenge struct {
	ID            string `yaml:"id" json:"id"`
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	BalanceMode   string `yaml:"balance_mode" json:"-"`
	BalanceAmount int64  `yaml:"balance_amount" json:"-"`
	StartingDebt  int64  `yaml:"starting_debt" json:"-"`
	GivingHook    bool   `yaml:"giving_hook" json:"-"`
}

// Catalog is the fixed game content: tradable assets, challenge
// presets, goal presets and the offline fallbacks. It ships with
// built-in defaults and can be overridden from a YAML file.
type Catalog struct {
	Assets         []Asset     `yaml:"assets"`
	Challenges     []Challenge `yaml:"challenges"`
	Goals          []Goal      `yaml:"goals"`
	Fallback       Scenario    `yaml:"fallback_scenario"`
	FallbackReport string      `yaml:"fallback_report"`
}

func (c Catalog) Challenge(id string) (Challenge, bool) {
	for _, ch := range c.Challenges {
		if ch.ID == id {
			return ch, true
		}
	}
	return Challenge{}, false
}

func (c Catalog) Goal(id string) (Goal, bool) {
	for _, g := range c.Goals {
		if g.ID == id {
			return g, true
		}
	}
	return Goal{}, false
}

// StartingState builds the initial player state for a validated setup.
func (c Catalog) StartingState(in SetupInput) PlayerState {
	ch, _ := c.Challenge(in.ChallengeID)
	balance := int64(0)
	switch ch.BalanceMode {
	case "salary":
		balance = in.Salary
	case "fixed":
		balance = ch.BalanceAmount
	}
	marital := in.MaritalStatus
	if marital == "" {
		marital = "single"
	}
	return PlayerState{
		Name:          in.Name,
		Job:           in.Job,
		City:          in.City,
		Gender:        in.Gender,
		MaritalStatus: marital,
		Dependents:    in.Dependents,
		Challenge:     ch.ID,
		Salary:        in.Salary,
		Balance:       balance,
		Debt:          ch.StartingDebt,
		Happiness:     StartingHappiness,
		Week:          1,
	}
}

// LoadCatalog reads a YAML catalog from path, falling back to the
// built-in defaults when path is empty or the file does not exist.
func LoadCatalog(path string) (Catalog, error) {
	cat := DefaultCatalog()
	if path == "" {
		return cat, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cat, nil
		}
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	if len(cat.Assets) == 0 || len(cat.Challenges) == 0 || len(cat.Goals) == 0 {
		return Catalog{}, fmt.Errorf("catalog %s is missing assets, challenges or goals", path)
	}
	return cat, nil
}

// DefaultCatalog is the stock NairaWise content set.
func DefaultCatalog() Catalog {
	return Catalog{
		Assets: []Asset{
			{ID: "lagos-gas", Name: "Lagos Gas Ltd.", Class: AssetEquity, Sector: "Energy", Price: 12_500, History: []int64{12_000, 12_500}},
			{ID: "nairatech", Name: "NairaTech Solutions", Class: AssetEquity, Sector: "Tech", Price: 25_000, History: []int64{22_000, 25_000}},
			{ID: "obudu-agri", Name: "Obudu Agriculture", Class: AssetEquity, Sector: "Agriculture", Price: 8_000, History: []int64{8_200, 8_000}},
			{ID: "naija-balanced", Name: "Naija Balanced Fund", Class: AssetFund, Sector: "Diversified", Price: 1_000, History: []int64{990, 1_000}},
			{ID: "arm-growth", Name: "Hustle Growth Fund", Class: AssetFund, Sector: "Growth", Price: 2_500, History: []int64{2_400, 2_500}},
			{ID: "fgn-bond-fund", Name: "FGN Treasury Fund", Class: AssetFund, Sector: "Government", Price: 500, History: []int64{500, 500}},
		},
		Challenges: []Challenge{
			{ID: "black-tax", Name: "Black Tax Heavy", Description: "Family needs a cut of every profit. Responsibility is heavy.", BalanceMode: "salary", GivingHook: true},
			{ID: "sapa-max", Name: "Sapa Level Max", Description: "Start with nothing. Only your grit can save you.", BalanceMode: "zero"},
			{ID: "inflation", Name: "Inflation Fighter", Description: "Start with a student loan on your neck. Tick-tock.", BalanceMode: "salary", StartingDebt: 500_000},
			{ID: "silver-spoon", Name: "Silver Spoon", Description: "A headstart from home, but boredom kills happiness fast.", BalanceMode: "fixed", BalanceAmount: 1_000_000},
		},
		Goals: []Goal{
			{ID: "survive", Title: "Financial Peace", Target: 2_000_000, Category: "savings"},
			{ID: "lekki", Title: "Lekki Landlord", Target: 15_000_000, Category: "investment"},
			{ID: "japa", Title: "The Great Japa", Target: 40_000_000, Category: "lifestyle"},
		},
		Fallback: Scenario{
			Title:       "Network Wahala",
			Description: "The week crawls by with no big breaks. Fuel queues, light issues, and your data plan finishing at the worst time.",
			ImageTheme:  "lagos street",
			Choices: []Choice{
				{Text: "Keep your head down and work", Consequence: "A quiet week. Nothing gained, nothing lost but airtime.", Impact: Impact{Balance: -2_000}},
				{Text: "Cut transport costs and trek", Consequence: "You save small money and your legs complain all week.", Impact: Impact{Balance: 1_000, Happiness: -3}},
				{Text: "Buy cheap street food all week", Consequence: "Your stomach manages. Your wallet breathes.", Impact: Impact{Balance: -1_500, Happiness: -1}},
				{Text: "Rest at home over the weekend", Consequence: "No spending, small peace of mind.", Impact: Impact{Happiness: 2}},
			},
		},
		FallbackReport: "Sapa catch you, my pikin! Your village people don win. Next time, respect your budget before your budget disrespects you.",
	}
}
