package fishing

import (
	"math"
	mrand "math/rand"
	"testing"

	"github.com/manedatmane/manestream-bot/config"
)

func TestPickDistribution(t *testing.T) {
	tiers := config.DefaultRarityTable()
	p := NewPicker(mrand.New(mrand.NewSource(1)))

	const draws = 100000
	counts := make(map[string]int, len(tiers))
	for i := 0; i < draws; i++ {
		counts[p.Pick(tiers).Name]++
	}

	for _, tier := range tiers {
		got := float64(counts[tier.Name]) / draws * 100
		// Allow one percentage point of slack plus a third of the
		// weight for the thin tiers.
		tolerance := 1.0 + tier.Weight/3
		if math.Abs(got-tier.Weight) > tolerance {
			t.Errorf("%s: %.2f%% of draws, want %.2f%% +/- %.2f",
				tier.Name, got, tier.Weight, tolerance)
		}
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	if total != draws {
		t.Fatalf("draws accounted = %d, want %d", total, draws)
	}
}

func TestPayoutWithinRange(t *testing.T) {
	p := NewPicker(mrand.New(mrand.NewSource(2)))
	for _, tier := range config.DefaultRarityTable() {
		for i := 0; i < 1000; i++ {
			payout := p.Payout(tier)
			if payout < tier.MinPayout || payout > tier.MaxPayout {
				t.Fatalf("%s payout %d outside [%d, %d]",
					tier.Name, payout, tier.MinPayout, tier.MaxPayout)
			}
		}
	}
}

func TestPayoutDegenerateRange(t *testing.T) {
	p := NewPicker(mrand.New(mrand.NewSource(3)))
	tier := config.RarityTier{Name: "Flat", Weight: 100, MinPayout: 42, MaxPayout: 42}
	if got := p.Payout(tier); got != 42 {
		t.Fatalf("payout = %d, want 42", got)
	}
}
