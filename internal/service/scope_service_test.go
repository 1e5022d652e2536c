package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/google/uuid"
)

// fakeLeagues is an in-memory LeagueRegistry for scope resolution tests.
type fakeLeagues struct {
	leagues map[uuid.UUID]*domain.League
	members map[uuid.UUID]map[uuid.UUID]bool // leagueID -> userID -> member
	round   string
}

func (f *fakeLeagues) GetByID(_ context.Context, id uuid.UUID) (*domain.League, error) {
	l, ok := f.leagues[id]
	if !ok {
		return nil, domain.ErrLeagueNotFound
	}
	return l, nil
}

func (f *fakeLeagues) IsMember(_ context.Context, userID, leagueID uuid.UUID) (bool, error) {
	return f.members[leagueID][userID], nil
}

func (f *fakeLeagues) ActiveRound(_ context.Context) (string, error) {
	if f.round == "" {
		return "", domain.ErrNoActiveRound
	}
	return f.round, nil
}

func newScopeServiceForTest(f *fakeLeagues, period string) *ScopeService {
	cfg := &config.Config{}
	cfg.Ledger.CustomLeaguePeriod = period
	s := NewScopeService(f, cfg)
	s.now = func() time.Time {
		return time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	}
	return s
}

func TestResolvePublicBet(t *testing.T) {
	s := newScopeServiceForTest(&fakeLeagues{}, "lifetime")

	h, err := s.Resolve(context.Background(), uuid.New(), domain.ScopePublicBet, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.ScopeID != nil {
		t.Errorf("public scope should have nil scope id, got %v", h.ScopeID)
	}
	if h.PeriodKey != "2025-07" {
		t.Errorf("period key = %q, want 2025-07", h.PeriodKey)
	}
}

func TestResolvePublicFantasy(t *testing.T) {
	s := newScopeServiceForTest(&fakeLeagues{round: "round-38"}, "lifetime")

	h, err := s.Resolve(context.Background(), uuid.New(), domain.ScopePublicFantasy, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.PeriodKey != "round-38" {
		t.Errorf("period key = %q, want round-38", h.PeriodKey)
	}
}

func TestResolvePublicFantasyNoRound(t *testing.T) {
	s := newScopeServiceForTest(&fakeLeagues{}, "lifetime")

	_, err := s.Resolve(context.Background(), uuid.New(), domain.ScopePublicFantasy, nil)
	if !errors.Is(err, domain.ErrNoActiveRound) {
		t.Fatalf("expected ErrNoActiveRound, got %v", err)
	}
}

func TestResolveCustomLeague(t *testing.T) {
	leagueID := uuid.New()
	member := uuid.New()
	stranger := uuid.New()

	f := &fakeLeagues{
		leagues: map[uuid.UUID]*domain.League{
			leagueID: {ID: leagueID, Name: "office pool"},
		},
		members: map[uuid.UUID]map[uuid.UUID]bool{
			leagueID: {member: true},
		},
	}

	t.Run("member resolves with lifetime period", func(t *testing.T) {
		s := newScopeServiceForTest(f, "lifetime")
		h, err := s.Resolve(context.Background(), member, domain.ScopeCustomLeague, &leagueID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.ScopeID == nil || *h.ScopeID != leagueID {
			t.Errorf("scope id = %v, want %s", h.ScopeID, leagueID)
		}
		if h.PeriodKey != domain.LifetimePeriodKey {
			t.Errorf("period key = %q, want %q", h.PeriodKey, domain.LifetimePeriodKey)
		}
	})

	t.Run("monthly policy uses calendar month", func(t *testing.T) {
		s := newScopeServiceForTest(f, "monthly")
		h, err := s.Resolve(context.Background(), member, domain.ScopeCustomLeague, &leagueID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if h.PeriodKey != "2025-07" {
			t.Errorf("period key = %q, want 2025-07", h.PeriodKey)
		}
	})

	t.Run("non-member is rejected", func(t *testing.T) {
		s := newScopeServiceForTest(f, "lifetime")
		_, err := s.Resolve(context.Background(), stranger, domain.ScopeCustomLeague, &leagueID)
		if !errors.Is(err, domain.ErrNotAMember) {
			t.Fatalf("expected ErrNotAMember, got %v", err)
		}
	})

	t.Run("missing league id", func(t *testing.T) {
		s := newScopeServiceForTest(f, "lifetime")
		_, err := s.Resolve(context.Background(), member, domain.ScopeCustomLeague, nil)
		if !errors.Is(err, domain.ErrInvalidScope) {
			t.Fatalf("expected ErrInvalidScope, got %v", err)
		}
	})

	t.Run("unknown league", func(t *testing.T) {
		s := newScopeServiceForTest(f, "lifetime")
		unknown := uuid.New()
		_, err := s.Resolve(context.Background(), member, domain.ScopeCustomLeague, &unknown)
		if !errors.Is(err, domain.ErrLeagueNotFound) {
			t.Fatalf("expected ErrLeagueNotFound, got %v", err)
		}
	})
}

func TestResolveInvalidScopeType(t *testing.T) {
	s := newScopeServiceForTest(&fakeLeagues{}, "lifetime")

	_, err := s.Resolve(context.Background(), uuid.New(), domain.ScopeType("parlay_club"), nil)
	if !errors.Is(err, domain.ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
}
