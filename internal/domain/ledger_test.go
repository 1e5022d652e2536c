package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/evetabi/tipleague/internal/domain"
	"github.com/shopspring/decimal"
)

func record(scope domain.ScopeType, profit float64) *domain.LedgerRecord {
	return &domain.LedgerRecord{
		ScopeType:        scope,
		BaseAllowance:    domain.DefaultAllowance,
		CumulativeProfit: decimal.NewFromFloat(profit),
	}
}

// TestBudgetInvariant verifies available_budget == max(0, base + profit)
// across representative profit levels.
func TestBudgetInvariant(t *testing.T) {
	cases := []struct {
		profit        float64
		wantAvailable float64
	}{
		{0, 100},
		{25.5, 125.5},
		{-40, 60},
		{-100, 0},
		{-150, 0}, // clamped at zero, never negative
	}
	for _, tc := range cases {
		r := record(domain.ScopePublicBet, tc.profit)
		got := r.AvailableBudget(domain.DefaultAllowance)
		if !got.Equal(decimal.NewFromFloat(tc.wantAvailable)) {
			t.Errorf("profit=%.2f: available = %s, want %.2f", tc.profit, got, tc.wantAvailable)
		}
	}
}

// TestBlockThreshold checks the boundary exactly: -100 relative to the
// allowance is blocked, -99.99 is not. Block uses the unclamped sum, so a
// record can be blocked while its displayed available budget is just 0.
func TestBlockThreshold(t *testing.T) {
	atLimit := record(domain.ScopePublicBet, -200) // 100 + (-200) = -100
	if !atLimit.IsBlocked(domain.DefaultAllowance) {
		t.Error("unclamped sum of exactly -100 must be blocked")
	}
	if !atLimit.AvailableBudget(domain.DefaultAllowance).IsZero() {
		t.Error("blocked record should still display 0 available, not negative")
	}

	nearLimit := record(domain.ScopePublicBet, -199.99) // sum = -99.99
	if nearLimit.IsBlocked(domain.DefaultAllowance) {
		t.Error("unclamped sum of -99.99 must not be blocked")
	}
}

// TestAllowanceFor verifies the premium parity rules: only the public bet
// league honours the 150% premium allowance.
func TestAllowanceFor(t *testing.T) {
	premium := domain.EntitlementTier{Tier: "premium", PremiumActive: true}

	if got := domain.AllowanceFor(domain.ScopePublicBet, premium); !got.Equal(domain.PremiumAllowance) {
		t.Errorf("public bet + premium: allowance = %s, want 150", got)
	}
	if got := domain.AllowanceFor(domain.ScopePublicBet, domain.FreeTier); !got.Equal(domain.DefaultAllowance) {
		t.Errorf("public bet + free: allowance = %s, want 100", got)
	}
	// Fantasy league: every participant gets the same allowance per round.
	if got := domain.AllowanceFor(domain.ScopePublicFantasy, premium); !got.Equal(domain.DefaultAllowance) {
		t.Errorf("fantasy + premium: allowance = %s, want 100", got)
	}
	if got := domain.AllowanceFor(domain.ScopeCustomLeague, premium); !got.Equal(domain.DefaultAllowance) {
		t.Errorf("custom + premium: allowance = %s, want 100", got)
	}
}

// TestSimpleWinScenario walks a full ticket lifecycle: stake 10 at odds 2.5.
//
//	placement:  profit 0 → -10, available 90
//	settlement (won, potential win 25): profit → 15, available 115
func TestSimpleWinScenario(t *testing.T) {
	r := record(domain.ScopePublicBet, 0)
	stake := decimal.NewFromInt(10)
	odds := decimal.NewFromFloat(2.5)

	ticket := &domain.Ticket{
		StakeAmount:  stake,
		TotalOdds:    odds,
		PotentialWin: domain.PotentialWinFor(stake, odds),
		Status:       domain.TicketPending,
	}
	if !ticket.PotentialWin.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("potential win = %s, want 25", ticket.PotentialWin)
	}

	r.ApplyPlacement(stake)
	if !r.CumulativeProfit.Equal(decimal.NewFromInt(-10)) {
		t.Errorf("after placement profit = %s, want -10", r.CumulativeProfit)
	}
	if !r.AvailableBudget(domain.DefaultAllowance).Equal(decimal.NewFromInt(90)) {
		t.Errorf("after placement available = %s, want 90", r.AvailableBudget(domain.DefaultAllowance))
	}

	r.ApplyOutcome(ticket, domain.TicketWon)
	if !r.CumulativeProfit.Equal(decimal.NewFromInt(15)) {
		t.Errorf("after win profit = %s, want 15", r.CumulativeProfit)
	}
	if !r.AvailableBudget(domain.DefaultAllowance).Equal(decimal.NewFromInt(115)) {
		t.Errorf("after win available = %s, want 115", r.AvailableBudget(domain.DefaultAllowance))
	}
	if r.BetsCount != 1 || r.WinsCount != 1 {
		t.Errorf("counters = %d/%d, want 1/1", r.BetsCount, r.WinsCount)
	}
}

// TestConservationOnLoss: placement + lost settlement change profit by exactly -s.
func TestConservationOnLoss(t *testing.T) {
	r := record(domain.ScopePublicBet, 30)
	stake := decimal.NewFromFloat(12.5)
	ticket := &domain.Ticket{
		StakeAmount:  stake,
		TotalOdds:    decimal.NewFromFloat(1.8),
		PotentialWin: domain.PotentialWinFor(stake, decimal.NewFromFloat(1.8)),
	}

	r.ApplyPlacement(stake)
	r.ApplyOutcome(ticket, domain.TicketLost)

	want := decimal.NewFromFloat(30 - 12.5)
	if !r.CumulativeProfit.Equal(want) {
		t.Errorf("profit after loss = %s, want %s", r.CumulativeProfit, want)
	}
	if r.WinsCount != 0 {
		t.Errorf("wins_count = %d, want 0", r.WinsCount)
	}
}

// TestConservationOnWin: total profit change across placement + settlement is
// exactly s*o - s.
func TestConservationOnWin(t *testing.T) {
	r := record(domain.ScopePublicBet, 0)
	stake := decimal.NewFromFloat(7.25)
	odds := decimal.NewFromFloat(3.4)
	ticket := &domain.Ticket{
		StakeAmount:  stake,
		TotalOdds:    odds,
		PotentialWin: domain.PotentialWinFor(stake, odds),
	}

	r.ApplyPlacement(stake)
	r.ApplyOutcome(ticket, domain.TicketWon)

	want := domain.Round2(stake.Mul(odds)).Sub(stake)
	if !r.CumulativeProfit.Equal(want) {
		t.Errorf("net profit = %s, want %s", r.CumulativeProfit, want)
	}
}

// TestValidateStake covers the ordered, short-circuiting checks.
func TestValidateStake(t *testing.T) {
	t.Run("blocked scope rejects any amount", func(t *testing.T) {
		r := record(domain.ScopePublicBet, -200) // unclamped sum -100
		for _, amt := range []float64{0.5, 5, 500} {
			err := domain.ValidateStake(r, domain.FreeTier, decimal.NewFromFloat(amt))
			if !errors.Is(err, domain.ErrScopeBlocked) {
				t.Errorf("stake %.1f on blocked scope: err = %v, want ErrScopeBlocked", amt, err)
			}
		}
	})

	t.Run("minimum stake floor", func(t *testing.T) {
		r := record(domain.ScopePublicBet, 0) // ample budget
		err := domain.ValidateStake(r, domain.FreeTier, decimal.NewFromFloat(0.5))
		if !errors.Is(err, domain.ErrBelowMinimumStake) {
			t.Errorf("err = %v, want ErrBelowMinimumStake", err)
		}
	})

	t.Run("insufficient budget includes amounts in message", func(t *testing.T) {
		r := record(domain.ScopePublicBet, -60) // available 40
		err := domain.ValidateStake(r, domain.FreeTier, decimal.NewFromFloat(55.55))
		if !errors.Is(err, domain.ErrInsufficientBudget) {
			t.Fatalf("err = %v, want ErrInsufficientBudget", err)
		}
		msg := err.Error()
		if !strings.Contains(msg, "40.0") || !strings.Contains(msg, "55.6") {
			t.Errorf("message %q should contain available 40.0 and requested 55.6", msg)
		}
	})

	t.Run("ok", func(t *testing.T) {
		r := record(domain.ScopePublicBet, 0)
		if err := domain.ValidateStake(r, domain.FreeTier, decimal.NewFromInt(100)); err != nil {
			t.Errorf("full-budget stake should pass, got %v", err)
		}
	})

	t.Run("premium raises public bet budget", func(t *testing.T) {
		r := record(domain.ScopePublicBet, 0)
		premium := domain.EntitlementTier{Tier: "premium", PremiumActive: true}
		if err := domain.ValidateStake(r, premium, decimal.NewFromInt(150)); err != nil {
			t.Errorf("premium 150%% stake should pass, got %v", err)
		}
	})
}

// TestRound2Drift: repeated small mutations stay at 2 decimal places.
func TestRound2Drift(t *testing.T) {
	r := record(domain.ScopePublicBet, 0)
	stake := decimal.NewFromFloat(1.11)
	odds := decimal.NewFromFloat(1.33)
	for i := 0; i < 1000; i++ {
		tk := &domain.Ticket{StakeAmount: stake, PotentialWin: domain.PotentialWinFor(stake, odds)}
		r.ApplyPlacement(stake)
		r.ApplyOutcome(tk, domain.TicketWon)
	}
	if r.CumulativeProfit.Exponent() < -2 {
		t.Errorf("profit %s has more than 2 decimal places after 1000 tickets", r.CumulativeProfit)
	}
}
