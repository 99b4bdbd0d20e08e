package game

import (
	"math"
	mathrand "math/rand"
	"sync"
	"time"
)

// Market owns the asset catalog for one run and the per-turn price
// walk. Prices are whole naira, floored at 1; each asset keeps a
// bounded history of its most recent quotes.
type Market struct {
	mu     sync.Mutex
	assets []Asset
	rand   *mathrand.Rand
}

func NewMarket(assets []Asset) *Market {
	out := make([]Asset, len(assets))
	for i, a := range assets {
		out[i] = a
		out[i].History = append([]int64(nil), a.History...)
		if len(out[i].History) == 0 {
			out[i].History = []int64{a.Price}
		}
	}
	return &Market{
		assets: out,
		rand:   mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Advance applies one uniform bounded return to every asset. It runs
// exactly once per turn, on proceed, never at setup.
func (m *Market) Advance() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.assets {
		a := &m.assets[i]
		band := classBand(a.Class)
		ret := (2*m.rand.Float64() - 1) * band
		a.Price = stepPrice(a.Price, ret)
		a.History = append(a.History, a.Price)
		if len(a.History) > PriceHistoryCap {
			a.History = a.History[len(a.History)-PriceHistoryCap:]
		}
	}
}

// Prices snapshots current quotes keyed by asset ID.
func (m *Market) Prices() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.assets))
	for _, a := range m.assets {
		out[a.ID] = a.Price
	}
	return out
}

// Asset returns a copy of one asset by ID.
func (m *Market) Asset(id string) (Asset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.assets {
		if a.ID == id {
			out := a
			out.History = append([]int64(nil), a.History...)
			return out, true
		}
	}
	return Asset{}, false
}

// Snapshot returns copies of all assets in catalog order.
func (m *Market) Snapshot() []Asset {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Asset, len(m.assets))
	for i, a := range m.assets {
		out[i] = a
		out[i].History = append([]int64(nil), a.History...)
	}
	return out
}

func classBand(class AssetClass) float64 {
	if class == AssetFund {
		return FundBand
	}
	return EquityBand
}

func stepPrice(price int64, ret float64) int64 {
	next := int64(math.Round(float64(price) * (1 + ret)))
	if next < 1 {
		next = 1
	}
	return next
}
