package game

import (
	"errors"
	"math"
	"testing"
)

func validSetup() SetupInput {
	return SetupInput{
		Name:        "Ada",
		Job:         "Digital Hustler",
		City:        "Lagos",
		Salary:      150_000,
		ChallengeID: "sapa-max",
		GoalID:      "survive",
	}
}

func TestValidateSetup(t *testing.T) {
	catalog := DefaultCatalog()

	if err := ValidateSetup(validSetup(), catalog); err != nil {
		t.Fatalf("expected valid setup: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*SetupInput)
	}{
		{"empty name", func(in *SetupInput) { in.Name = "  " }},
		{"zero salary", func(in *SetupInput) { in.Salary = 0 }},
		{"negative salary", func(in *SetupInput) { in.Salary = -1 }},
		{"negative dependents", func(in *SetupInput) { in.Dependents = -1 }},
		{"bad marital status", func(in *SetupInput) { in.MaritalStatus = "complicated" }},
		{"unknown challenge", func(in *SetupInput) { in.ChallengeID = "easy-mode" }},
		{"unknown goal", func(in *SetupInput) { in.GoalID = "retire-at-12" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := validSetup()
			tc.mutate(&in)
			err := ValidateSetup(in, catalog)
			if !errors.Is(err, ErrInvalidSetup) {
				t.Fatalf("got %v want ErrInvalidSetup", err)
			}
		})
	}
}

func TestValidateSetupAcceptsMaritalVariants(t *testing.T) {
	catalog := DefaultCatalog()
	for _, ms := range []string{"", "single", "married", "Married", " SINGLE "} {
		in := validSetup()
		in.MaritalStatus = ms
		if err := ValidateSetup(in, catalog); err != nil {
			t.Fatalf("marital status %q rejected: %v", ms, err)
		}
	}
}

func TestValidateScenario(t *testing.T) {
	sc := DefaultCatalog().Fallback

	if err := ValidateScenario(sc, 4); err != nil {
		t.Fatalf("expected fallback scenario to validate: %v", err)
	}
	if err := ValidateScenario(sc, 3); err == nil {
		t.Fatalf("expected choice count mismatch to fail")
	}

	noTitle := sc
	noTitle.Title = ""
	if err := ValidateScenario(noTitle, 4); err == nil {
		t.Fatalf("expected empty title to fail")
	}

	blankChoice := sc
	blankChoice.Choices = append([]Choice(nil), sc.Choices...)
	blankChoice.Choices[2].Text = "   "
	if err := ValidateScenario(blankChoice, 4); err == nil {
		t.Fatalf("expected blank choice text to fail")
	}
}

func TestNotional(t *testing.T) {
	got, err := notional(4, 25_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 100_000 {
		t.Fatalf("got %d want 100000", got)
	}

	bad := []struct {
		qty, price int64
	}{
		{0, 100},
		{-1, 100},
		{100, 0},
		{1 << 60, 25_000},
		{math.MaxInt64, 2},
	}
	for _, tc := range bad {
		if _, err := notional(tc.qty, tc.price); err == nil {
			t.Fatalf("notional(%d, %d) expected error", tc.qty, tc.price)
		}
	}
}

func TestEra(t *testing.T) {
	tests := []struct {
		week int
		want string
	}{
		{1, "Sapa Era"},
		{50, "Sapa Era"},
		{51, "Hustle Era"},
		{150, "Hustle Era"},
		{151, "Oga Era"},
		{300, "Oga Era"},
		{301, "Billionaire Era"},
	}
	for _, tc := range tests {
		if got := Era(tc.week); got != tc.want {
			t.Fatalf("week %d got %q want %q", tc.week, got, tc.want)
		}
	}
}
