// Package gambling implements the games of chance. Every game is a pure
// function of (stake, tunables, random draws) producing a signed delta; the
// stake is validated before any entropy is drawn, and the delta is applied to
// the ledger in a single atomic operation.
package gambling

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source is a goroutine-safe random source shared by the game functions.
type Source struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSource returns a Source. A nil rng gets a crypto-seeded one.
func NewSource(rng *mrand.Rand) *Source {
	if rng == nil {
		var b [8]byte
		if _, err := rand.Read(b[:]); err != nil {
			rng = mrand.New(mrand.NewSource(time.Now().UnixNano()))
		} else {
			rng = mrand.New(mrand.NewSource(int64(binary.LittleEndian.Uint64(b[:]))))
		}
	}
	return &Source{rng: rng}
}

func (s *Source) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Source) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// ParseStake parses a stake argument against the current balance. It accepts
// a positive integer and the shorthands all/max/yolo (full balance) and half.
// The returned string is the rejection reply; empty means the stake is valid.
func ParseStake(arg string, balance int64) (int64, string) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" {
		return 0, "Please specify an amount!"
	}
	switch arg {
	case "all", "max", "yolo":
		return balance, ""
	case "half":
		return balance / 2, ""
	}
	amount, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, "Amount must be a number!"
	}
	if amount <= 0 {
		return 0, "Amount must be positive!"
	}
	if amount > balance {
		return 0, fmt.Sprintf("You only have %d BongBux!", balance)
	}
	return amount, ""
}

// WinGamble draws the simple double-or-nothing outcome at the given rate.
func (s *Source) WinGamble(winRate float64) bool {
	return s.float64() < winRate
}

// slotSymbols is the weighted reel strip. Three of a kind pays the jackpot
// column; two of a kind pays 15; a stray Cherry pays 5.
var slotSymbols = []struct {
	name    string
	weight  int
	triple  int64
	jackpot string
}{
	{"7", 5, 6969, "JACKPOT 777"},
	{"Weed", 8, 420, "WEED BONUS"},
	{"Mane", 10, 500, "MANE BONUS"},
	{"Ramen", 10, 350, "RAMEN BONUS"},
	{"Cherry", 20, 100, ""},
	{"Lemon", 20, 75, ""},
	{"Orange", 15, 80, ""},
	{"Grape", 12, 90, ""},
}

// SlotsCost is the fixed cost of one spin.
const SlotsCost int64 = 5

// SpinSlots rolls three reels and returns the reels, the payout before cost,
// and the jackpot name when a named triple hit.
func (s *Source) SpinSlots() (reels [3]string, payout int64, jackpot string) {
	total := 0
	for _, sym := range slotSymbols {
		total += sym.weight
	}
	for i := range reels {
		roll := s.intn(total)
		for _, sym := range slotSymbols {
			roll -= sym.weight
			if roll < 0 {
				reels[i] = sym.name
				break
			}
		}
	}

	switch {
	case reels[0] == reels[1] && reels[1] == reels[2]:
		for _, sym := range slotSymbols {
			if sym.name == reels[0] {
				return reels, sym.triple, sym.jackpot
			}
		}
	case reels[0] == reels[1] || reels[1] == reels[2] || reels[0] == reels[2]:
		return reels, 15, ""
	case reels[0] == "Cherry" || reels[1] == "Cherry" || reels[2] == "Cherry":
		return reels, 5, ""
	}
	return reels, 0, ""
}

// RollDice rolls a six-digit number. Repeated trailing digits and a few
// special numbers win prizes; the roll itself is free.
func (s *Source) RollDice() (roll int, prize int64, name string) {
	roll = s.intn(1000000)
	digits := fmt.Sprintf("%06d", roll)

	streak := 1
	for i := 4; i >= 0; i-- {
		if digits[i] != digits[5] {
			break
		}
		streak++
	}
	switch streak {
	case 6:
		prize, name = 50000, "SEXTS"
	case 5:
		prize, name = 10000, "QUINTS"
	case 4:
		prize, name = 1000, "QUADS"
	case 3:
		prize, name = 100, "TRIPS"
	case 2:
		prize, name = 25, "DUBS"
	}

	switch digits {
	case "696969":
		prize, name = 6969, "NICE"
	case "420420":
		prize, name = 4200, "BLAZE IT"
	case "000000":
		prize, name = 10000, "ABSOLUTE ZERO"
	}
	return roll, prize, name
}

// D20Cost is the fixed cost of one d20 roll.
const D20Cost int64 = 5

// RollD20 returns a uniform roll in [1, 20].
func (s *Source) RollD20() int {
	return s.intn(20) + 1
}

// SpinRoulette returns a uniform pocket in [0, 36].
func (s *Source) SpinRoulette() int {
	return s.intn(37)
}

var redPockets = map[int]bool{
	1: true, 3: true, 5: true, 7: true, 9: true, 12: true,
	14: true, 16: true, 18: true, 19: true, 21: true, 23: true,
	25: true, 27: true, 30: true, 32: true, 34: true, 36: true,
}

// PocketColor names the pocket's color.
func PocketColor(pocket int) string {
	switch {
	case pocket == 0:
		return "Green"
	case redPockets[pocket]:
		return "Red"
	default:
		return "Black"
	}
}

// EvalRouletteBet resolves a bet string against the spun pocket. A straight
// number pays 35x, the even-money bets pay 2x. ok is false when the bet is
// not recognized.
func EvalRouletteBet(bet string, pocket int) (win bool, multiplier int64, ok bool) {
	bet = strings.ToLower(strings.TrimSpace(bet))

	if n, err := strconv.Atoi(bet); err == nil {
		if n < 0 || n > 36 {
			return false, 0, false
		}
		return pocket == n, 35, true
	}

	switch bet {
	case "red":
		return redPockets[pocket], 2, true
	case "black":
		return pocket != 0 && !redPockets[pocket], 2, true
	case "odd":
		return pocket%2 == 1, 2, true
	case "even":
		return pocket != 0 && pocket%2 == 0, 2, true
	case "low":
		return pocket >= 1 && pocket <= 18, 2, true
	case "high":
		return pocket >= 19, 2, true
	}
	return false, 0, false
}

// FlipCoin returns "heads" or "tails" with equal probability.
func (s *Source) FlipCoin() string {
	if s.intn(2) == 0 {
		return "heads"
	}
	return "tails"
}
