package domain_test

import (
	"errors"
	"testing"
	"time"

	"github.com/evetabi/tipleague/internal/domain"
)

func TestPeriodKeyFor(t *testing.T) {
	nov := time.Date(2024, 11, 17, 22, 30, 0, 0, time.UTC)

	t.Run("public bet rolls over monthly", func(t *testing.T) {
		key, err := domain.PeriodKeyFor(domain.ScopePublicBet, nov, "", domain.CustomPeriodLifetime)
		if err != nil {
			t.Fatal(err)
		}
		if key != "2024-11" {
			t.Errorf("key = %q, want 2024-11", key)
		}
	})

	t.Run("month key is UTC", func(t *testing.T) {
		// 23:30 on Nov 30 in UTC+3 is already December in local time, but the
		// canonical key stays on the UTC calendar.
		ist := time.FixedZone("UTC+3", 3*3600)
		edge := time.Date(2024, 12, 1, 1, 30, 0, 0, ist) // 22:30 Nov 30 UTC
		key, err := domain.PeriodKeyFor(domain.ScopePublicBet, edge, "", domain.CustomPeriodLifetime)
		if err != nil {
			t.Fatal(err)
		}
		if key != "2024-11" {
			t.Errorf("key = %q, want 2024-11", key)
		}
	})

	t.Run("fantasy uses the active round id", func(t *testing.T) {
		key, err := domain.PeriodKeyFor(domain.ScopePublicFantasy, nov, "round-12", domain.CustomPeriodLifetime)
		if err != nil {
			t.Fatal(err)
		}
		if key != "round-12" {
			t.Errorf("key = %q, want round-12", key)
		}
	})

	t.Run("fantasy without an active round fails", func(t *testing.T) {
		_, err := domain.PeriodKeyFor(domain.ScopePublicFantasy, nov, "", domain.CustomPeriodLifetime)
		if !errors.Is(err, domain.ErrNoActiveRound) {
			t.Errorf("err = %v, want ErrNoActiveRound", err)
		}
	})

	t.Run("custom league follows the configured policy", func(t *testing.T) {
		key, err := domain.PeriodKeyFor(domain.ScopeCustomLeague, nov, "", domain.CustomPeriodLifetime)
		if err != nil {
			t.Fatal(err)
		}
		if key != domain.LifetimePeriodKey {
			t.Errorf("lifetime policy: key = %q, want %q", key, domain.LifetimePeriodKey)
		}

		key, err = domain.PeriodKeyFor(domain.ScopeCustomLeague, nov, "", domain.CustomPeriodMonthly)
		if err != nil {
			t.Fatal(err)
		}
		if key != "2024-11" {
			t.Errorf("monthly policy: key = %q, want 2024-11", key)
		}
	})

	t.Run("unknown scope fails", func(t *testing.T) {
		if _, err := domain.PeriodKeyFor(domain.ScopeType("roulette"), nov, "", domain.CustomPeriodLifetime); err == nil {
			t.Error("unknown scope type should fail")
		}
	})
}
