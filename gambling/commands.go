package gambling

import (
	"context"
	"fmt"
	"strings"

	"github.com/manedatmane/manestream-bot/bot"
	"github.com/manedatmane/manestream-bot/config"
	"github.com/manedatmane/manestream-bot/ledger"
)

// Commands returns the gambling command set.
func Commands(store ledger.Store, rt *config.Runtime, src *Source) *bot.Set {
	h := &handlers{store: store, rt: rt, src: src}
	return &bot.Set{
		Name: "gambling",
		Commands: []bot.Command{
			{
				Name:        "gamble",
				Aliases:     []string{"bet"},
				Description: "Chance to double your bet.",
				Usage:       "!gamble <amount>",
				Handler:     h.gamble,
			},
			{
				Name:        "slots",
				Aliases:     []string{"slot"},
				Description: fmt.Sprintf("Play the slot machine! Costs %d BongBux.", SlotsCost),
				Usage:       "!slots",
				Handler:     h.slots,
			},
			{
				Name:        "roll",
				Aliases:     []string{"dice"},
				Description: "Roll dice, repeated digits win prizes. Free to play.",
				Usage:       "!roll",
				Handler:     h.roll,
			},
			{
				Name:        "d20",
				Description: fmt.Sprintf("Roll a D20! Costs %d BongBux. Nat 20 wins, nat 1 hurts.", D20Cost),
				Usage:       "!d20",
				Handler:     h.d20,
			},
			{
				Name:        "roulette",
				Aliases:     []string{"rl"},
				Description: "Bet on roulette numbers or colors.",
				Usage:       "!roulette <amount> on <number|red|black|odd|even|low|high>",
				Handler:     h.roulette,
			},
			{
				Name:        "coinflip",
				Aliases:     []string{"cf", "flip"},
				Description: "Flip a coin, 50/50 odds.",
				Usage:       "!coinflip <amount> <heads/tails>",
				Handler:     h.coinflip,
			},
		},
	}
}

type handlers struct {
	store ledger.Store
	rt    *config.Runtime
	src   *Source
}

// ensure lazily creates the caller's account and returns its balance.
func (h *handlers) ensure(ctx context.Context, user string) (int64, error) {
	balance, _, err := h.store.Ensure(ctx, user, h.rt.Tunables().StartingBongbux)
	if err != nil {
		return 0, fmt.Errorf("ensure account: %w", err)
	}
	return balance, nil
}

// stake validates the bet before any entropy is drawn. A zero stake (empty
// account with "all") is rejected with msg so a doomed bet never rolls.
func stake(arg string, balance int64, zeroMsg string) (int64, string) {
	amount, reject := ParseStake(arg, balance)
	if reject != "" {
		return 0, reject
	}
	if amount == 0 {
		return 0, zeroMsg
	}
	return amount, ""
}

func (h *handlers) gamble(ctx context.Context, inv *bot.Invocation) error {
	balance, err := h.ensure(ctx, inv.User)
	if err != nil {
		return err
	}
	amount, reject := stake(inv.Args, balance, "You need BongBux to gamble!")
	if reject != "" {
		inv.Reply(reject)
		return nil
	}

	if h.src.WinGamble(h.rt.Tunables().GambleWinRate) {
		newBalance, err := h.store.ApplyDelta(ctx, inv.User, amount)
		if err != nil {
			return fmt.Errorf("apply win: %w", err)
		}
		inv.Reply(fmt.Sprintf("%s WON %d BongBux! Balance: %d", inv.Display, amount*2, newBalance))
		return nil
	}
	newBalance, err := h.store.ApplyDelta(ctx, inv.User, -amount)
	if err != nil {
		return fmt.Errorf("apply loss: %w", err)
	}
	inv.Reply(fmt.Sprintf("%s lost %d BongBux... Balance: %d", inv.Display, amount, newBalance))
	return nil
}

func (h *handlers) slots(ctx context.Context, inv *bot.Invocation) error {
	balance, err := h.ensure(ctx, inv.User)
	if err != nil {
		return err
	}
	if balance < SlotsCost {
		inv.Reply(fmt.Sprintf("You need %d BongBux to play slots!", SlotsCost))
		return nil
	}

	reels, payout, jackpot := h.src.SpinSlots()
	display := fmt.Sprintf("[%s] [%s] [%s]", reels[0], reels[1], reels[2])

	if _, err := h.store.ApplyDelta(ctx, inv.User, payout-SlotsCost); err != nil {
		return fmt.Errorf("apply spin: %w", err)
	}
	switch {
	case jackpot != "":
		inv.Reply(fmt.Sprintf("%s *** %s! *** %s wins %d BongBux!", display, jackpot, inv.Display, payout))
	case payout > 0:
		inv.Reply(fmt.Sprintf("%s %s wins %d BongBux!", display, inv.Display, payout))
	default:
		inv.Reply(fmt.Sprintf("%s No win. [-%d BongBux]", display, SlotsCost))
	}
	return nil
}

func (h *handlers) roll(ctx context.Context, inv *bot.Invocation) error {
	roll, prize, name := h.src.RollDice()
	msg := fmt.Sprintf("%s rolled %06d", inv.Display, roll)

	if prize > 0 {
		if _, err := h.ensure(ctx, inv.User); err != nil {
			return err
		}
		if _, err := h.store.ApplyDelta(ctx, inv.User, prize); err != nil {
			return fmt.Errorf("apply prize: %w", err)
		}
		msg += fmt.Sprintf(" - %s! +%d BongBux!", name, prize)
	}
	inv.Reply(msg)
	return nil
}

func (h *handlers) d20(ctx context.Context, inv *bot.Invocation) error {
	balance, err := h.ensure(ctx, inv.User)
	if err != nil {
		return err
	}
	if balance < D20Cost {
		inv.Reply(fmt.Sprintf("You need %d BongBux to roll!", D20Cost))
		return nil
	}

	roll := h.src.RollD20()
	switch roll {
	case 20:
		if _, err := h.store.ApplyDelta(ctx, inv.User, 20-D20Cost); err != nil {
			return fmt.Errorf("apply nat20: %w", err)
		}
		inv.Reply(fmt.Sprintf("%s rolled a NAT 20! [+20 BongBux]", inv.Display))
	case 1:
		// Critical fail loses the cost plus a penalty, floored at zero.
		loss := D20Cost + 10
		if loss > balance {
			loss = balance
		}
		if _, err := h.store.ApplyDelta(ctx, inv.User, -loss); err != nil {
			return fmt.Errorf("apply nat1: %w", err)
		}
		inv.Reply(fmt.Sprintf("%s rolled a NAT 1! Critical fail! [-%d BongBux]", inv.Display, loss))
	default:
		if _, err := h.store.ApplyDelta(ctx, inv.User, -D20Cost); err != nil {
			return fmt.Errorf("apply roll: %w", err)
		}
		inv.Reply(fmt.Sprintf("%s rolled a %d. [-%d BongBux]", inv.Display, roll, D20Cost))
	}
	return nil
}

func (h *handlers) roulette(ctx context.Context, inv *bot.Invocation) error {
	args := strings.ToLower(inv.Args)
	i := strings.Index(args, " on ")
	if i < 0 {
		return bot.Usagef("!roulette <amount> on <number|red|black|odd|even|low|high>")
	}
	amountArg, bet := strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+4:])

	balance, err := h.ensure(ctx, inv.User)
	if err != nil {
		return err
	}
	amount, reject := stake(amountArg, balance, "You need BongBux to play roulette!")
	if reject != "" {
		inv.Reply(reject)
		return nil
	}

	// The bet must parse before the wheel spins.
	if _, _, ok := EvalRouletteBet(bet, 0); !ok {
		inv.Reply("Invalid bet! Use: number (0-36), red, black, odd, even, low, high")
		return nil
	}

	pocket := h.src.SpinRoulette()
	win, multiplier, _ := EvalRouletteBet(bet, pocket)
	result := fmt.Sprintf("%s %d", PocketColor(pocket), pocket)

	if win {
		winnings := amount * multiplier
		if _, err := h.store.ApplyDelta(ctx, inv.User, winnings-amount); err != nil {
			return fmt.Errorf("apply win: %w", err)
		}
		inv.Reply(fmt.Sprintf("[%s] %s wins %d BongBux! (x%d)", result, inv.Display, winnings, multiplier))
		return nil
	}
	if _, err := h.store.ApplyDelta(ctx, inv.User, -amount); err != nil {
		return fmt.Errorf("apply loss: %w", err)
	}
	inv.Reply(fmt.Sprintf("[%s] %s loses %d BongBux", result, inv.Display, amount))
	return nil
}

func (h *handlers) coinflip(ctx context.Context, inv *bot.Invocation) error {
	amountArg, choice := inv.Arg(0), strings.ToLower(inv.Arg(1))
	if amountArg == "" || choice == "" {
		return bot.Usagef("!coinflip <amount> <heads/tails>")
	}
	switch choice {
	case "heads", "h":
		choice = "heads"
	case "tails", "t":
		choice = "tails"
	default:
		inv.Reply("Pick heads or tails!")
		return nil
	}

	balance, err := h.ensure(ctx, inv.User)
	if err != nil {
		return err
	}
	amount, reject := stake(amountArg, balance, "You need BongBux to flip!")
	if reject != "" {
		inv.Reply(reject)
		return nil
	}

	result := h.src.FlipCoin()
	if result == choice {
		if _, err := h.store.ApplyDelta(ctx, inv.User, amount); err != nil {
			return fmt.Errorf("apply win: %w", err)
		}
		inv.Reply(fmt.Sprintf("It's %s! %s won %d BongBux!", result, inv.Display, amount*2))
		return nil
	}
	if _, err := h.store.ApplyDelta(ctx, inv.User, -amount); err != nil {
		return fmt.Errorf("apply loss: %w", err)
	}
	inv.Reply(fmt.Sprintf("It's %s! %s lost %d BongBux", result, inv.Display, amount))
	return nil
}
