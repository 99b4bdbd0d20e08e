package game

// EvaluateGoals flips incomplete goals whose target is covered by net
// assets. A completed goal never reverts.
func EvaluateGoals(goals []Goal, netAssets int64) []Goal {
	out := append([]Goal(nil), goals...)
	for i := range out {
		if !out[i].Completed && netAssets >= out[i].Target {
			out[i].Completed = true
		}
	}
	return out
}

// GoalProgressPct is the display progress toward a goal, capped at 100.
func GoalProgressPct(g Goal, netAssets int64) int64 {
	if g.Target <= 0 {
		return 100
	}
	if netAssets <= 0 {
		return 0
	}
	pct := netAssets * 100 / g.Target
	if pct > 100 {
		pct = 100
	}
	return pct
}
