package game

// TriggerKind names a position price trigger.
type TriggerKind string

const (
	TriggerStopLoss   TriggerKind = "stop_loss"
	TriggerTakeProfit TriggerKind = "take_profit"
)

// Buy returns the position set with qty shares of assetID added at
// price. A repeat buy recomputes the weighted average cost.
func Buy(positions []Position, assetID string, qty, price int64) []Position {
	out := clonePositions(positions)
	for i := range out {
		if out[i].AssetID != assetID {
			continue
		}
		held := out[i].Shares
		out[i].AvgPrice = (held*out[i].AvgPrice + qty*price) / (held + qty)
		out[i].Shares = held + qty
		return out
	}
	return append(out, Position{AssetID: assetID, Shares: qty, AvgPrice: price})
}

// Sell liquidates qty shares at price and returns the new position set
// plus the proceeds. The caller credits the proceeds; the ledger never
// touches the balance itself. Overselling leaves the set untouched and
// reports ErrInsufficientShares.
func Sell(positions []Position, assetID string, qty, price int64) ([]Position, int64, error) {
	idx := -1
	for i := range positions {
		if positions[i].AssetID == assetID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return positions, 0, ErrPositionNotFound
	}
	if qty > positions[idx].Shares {
		return positions, 0, ErrInsufficientShares
	}
	out := clonePositions(positions)
	out[idx].Shares -= qty
	proceeds := qty * price
	if out[idx].Shares == 0 {
		out = append(out[:idx], out[idx+1:]...)
	}
	return out, proceeds, nil
}

// SetTrigger places or clears (price == nil) a stop-loss or
// take-profit bound on the held position.
func SetTrigger(positions []Position, assetID string, kind TriggerKind, price *int64) ([]Position, error) {
	out := clonePositions(positions)
	for i := range out {
		if out[i].AssetID != assetID {
			continue
		}
		switch kind {
		case TriggerStopLoss:
			out[i].StopLoss = price
		case TriggerTakeProfit:
			out[i].TakeProfit = price
		}
		return out, nil
	}
	return positions, ErrPositionNotFound
}

// SweepTriggers evaluates every position against current prices and
// liquidates the ones whose triggers fire, 100% of shares at the
// current price. A position with both bounds satisfied fires exactly
// once and is reported as take-profit. Returns total proceeds, the
// surviving set and one fire record per liquidation.
func SweepTriggers(positions []Position, prices map[string]int64) ([]Position, int64, []TriggerFire) {
	var (
		remaining []Position
		proceeds  int64
		fires     []TriggerFire
	)
	for _, p := range positions {
		price, ok := prices[p.AssetID]
		if !ok {
			remaining = append(remaining, p)
			continue
		}
		kind, fired := triggerHit(p, price)
		if !fired {
			remaining = append(remaining, p)
			continue
		}
		amount := p.Shares * price
		proceeds += amount
		fires = append(fires, TriggerFire{
			AssetID:  p.AssetID,
			Kind:     kind,
			Shares:   p.Shares,
			Price:    price,
			Proceeds: amount,
		})
	}
	return remaining, proceeds, fires
}

// triggerHit reports whether the position fires at price. Take-profit
// wins the tie when both bounds are satisfied.
func triggerHit(p Position, price int64) (TriggerKind, bool) {
	if p.TakeProfit != nil && price >= *p.TakeProfit {
		return TriggerTakeProfit, true
	}
	if p.StopLoss != nil && price <= *p.StopLoss {
		return TriggerStopLoss, true
	}
	return "", false
}

// PositionsValue sums the market value of all held positions.
func PositionsValue(positions []Position, prices map[string]int64) int64 {
	var total int64
	for _, p := range positions {
		total += p.Shares * prices[p.AssetID]
	}
	return total
}

func clonePositions(positions []Position) []Position {
	return append([]Position(nil), positions...)
}
