// Package fishing implements the fishing minigame: a weighted rarity draw, a
// uniform payout within the tier's range, and the cast/stats commands.
package fishing

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
	"time"

	"github.com/manedatmane/manestream-bot/config"
)

// Picker draws rarity tiers by cumulative weight. The table is taken per draw
// so a hot-reloaded table applies to the next cast without rebuilding.
type Picker struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewPicker returns a Picker. A nil rng gets a crypto-seeded source.
func NewPicker(rng *mrand.Rand) *Picker {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}
	return &Picker{rng: rng}
}

// Pick selects one tier from the table proportionally to its weight.
func (p *Picker) Pick(tiers []config.RarityTier) config.RarityTier {
	total := 0.0
	for _, t := range tiers {
		total += t.Weight
	}

	p.mu.Lock()
	roll := p.rng.Float64() * total
	p.mu.Unlock()

	cum := 0.0
	for _, t := range tiers {
		cum += t.Weight
		if roll < cum {
			return t
		}
	}
	// Float accumulation can leave roll a hair past the last boundary.
	return tiers[len(tiers)-1]
}

// Payout draws a uniform payout within the tier's [min, max] range.
func (p *Picker) Payout(t config.RarityTier) int64 {
	span := t.MaxPayout - t.MinPayout
	if span <= 0 {
		return t.MinPayout
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return t.MinPayout + p.rng.Int63n(span+1)
}
