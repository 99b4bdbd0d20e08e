package game

// ApplyImpact is the single state transition of the player ledger.
// Balance moves unclamped, savings and debt floor at zero, happiness
// clamps to [0,100], and the week advances by exactly one. All four
// fields move atomically; callers aggregate multi-choice turns into
// one impact before applying.
func ApplyImpact(s PlayerState, im Impact) PlayerState {
	s.Balance += im.Balance
	s.Savings += im.Savings
	if s.Savings < 0 {
		s.Savings = 0
	}
	s.Debt += im.Debt
	if s.Debt < 0 {
		s.Debt = 0
	}
	s.Happiness = clampHappiness(s.Happiness + im.Happiness)
	s.Week++
	return s
}

// SumImpacts aggregates impact vectors component-wise.
func SumImpacts(impacts ...Impact) Impact {
	var total Impact
	for _, im := range impacts {
		total.Balance += im.Balance
		total.Savings += im.Savings
		total.Debt += im.Debt
		total.Happiness += im.Happiness
	}
	return total
}

// SalaryDue reports whether the monthly salary lands on the turn being
// resolved. The cycle is 1-week delayed with a 4-week period: weeks
// 5, 9, 13 and so on, never week 1.
func SalaryDue(week int) bool {
	return week > 1 && (week-1)%SalaryPeriodWeeks == 0
}

func clampHappiness(v int64) int64 {
	if v < 0 {
		return 0
	}
	if v > HappinessMax {
		return HappinessMax
	}
	return v
}
