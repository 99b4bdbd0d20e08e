package game

import (
	mathrand "math/rand"
	"testing"
)

func testMarket(assets ...Asset) *Market {
	m := NewMarket(assets)
	m.rand = mathrand.New(mathrand.NewSource(42))
	return m
}

func TestAdvanceStaysWithinBands(t *testing.T) {
	m := testMarket(
		Asset{ID: "eq", Class: AssetEquity, Price: 10_000},
		Asset{ID: "fd", Class: AssetFund, Price: 10_000},
	)
	for i := 0; i < 200; i++ {
		before := m.Prices()
		m.Advance()
		after := m.Prices()
		for id, band := range map[string]float64{"eq": EquityBand, "fd": FundBand} {
			lo := int64(float64(before[id]) * (1 - band))
			hi := int64(float64(before[id])*(1+band)) + 1 // rounding slack
			if after[id] < lo-1 || after[id] > hi {
				t.Fatalf("step %d asset %s moved %d -> %d, outside ±%.0f%%",
					i, id, before[id], after[id], band*100)
			}
		}
	}
}

func TestAdvanceFloorsPriceAtOne(t *testing.T) {
	m := testMarket(Asset{ID: "penny", Class: AssetEquity, Price: 1})
	for i := 0; i < 100; i++ {
		m.Advance()
		if p := m.Prices()["penny"]; p < 1 {
			t.Fatalf("price fell below floor: %d", p)
		}
	}
}

func TestAdvanceCapsHistory(t *testing.T) {
	m := testMarket(Asset{ID: "eq", Class: AssetEquity, Price: 1_000})
	for i := 0; i < PriceHistoryCap+10; i++ {
		m.Advance()
	}
	a, ok := m.Asset("eq")
	if !ok {
		t.Fatalf("asset missing")
	}
	if len(a.History) != PriceHistoryCap {
		t.Fatalf("history length got %d want %d", len(a.History), PriceHistoryCap)
	}
	if a.History[len(a.History)-1] != a.Price {
		t.Fatalf("last history entry %d does not match price %d", a.History[len(a.History)-1], a.Price)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	m := testMarket(Asset{ID: "eq", Class: AssetEquity, Price: 1_000})
	snap := m.Snapshot()
	snap[0].Price = -1
	snap[0].History[0] = -1
	if p := m.Prices()["eq"]; p != 1_000 {
		t.Fatalf("snapshot mutation leaked into market: %d", p)
	}
	a, _ := m.Asset("eq")
	if a.History[0] == -1 {
		t.Fatalf("snapshot history shares backing array with market")
	}
}

func TestStepPrice(t *testing.T) {
	tests := []struct {
		price int64
		ret   float64
		want  int64
	}{
		{price: 100, ret: 0.12, want: 112},
		{price: 100, ret: -0.12, want: 88},
		{price: 100, ret: 0.005, want: 101}, // rounds half away from zero
		{price: 1, ret: -0.99, want: 1},     // floor
		{price: 3, ret: -0.9, want: 1},
	}
	for _, tc := range tests {
		if got := stepPrice(tc.price, tc.ret); got != tc.want {
			t.Fatalf("stepPrice(%d, %v) got %d want %d", tc.price, tc.ret, got, tc.want)
		}
	}
}

func TestAssetUnknownID(t *testing.T) {
	m := testMarket(Asset{ID: "eq", Class: AssetEquity, Price: 1_000})
	if _, ok := m.Asset("nope"); ok {
		t.Fatalf("expected lookup miss for unknown asset")
	}
}
