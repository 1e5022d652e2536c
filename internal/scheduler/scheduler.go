// Package scheduler manages the background work driving the ledger lifecycle:
//  1. settlementLoop – settles pending tickets with staged results on a
//     fixed ticker.
//  2. rollover cron  – announces the public monthly period rollover so
//     clients re-fetch budgets (records roll over lazily on first use).
//  3. stuckTicketLoop – logs pending tickets older than the alert window so
//     operators notice missing results.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/evetabi/tipleague/internal/config"
	"github.com/evetabi/tipleague/internal/domain"
	"github.com/evetabi/tipleague/internal/repository"
	"github.com/evetabi/tipleague/internal/service"
	"github.com/robfig/cron/v3"
)

// stuckTicketAge is how long a ticket may stay pending before it is flagged.
const stuckTicketAge = 48 * time.Hour

// ──────────────────────────────────────────────────────────────────────────────
// WsHub interface — minimally required from the Hub
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operations the Scheduler needs from the
// WebSocket hub.  Declared here so the scheduler package does not import the
// ws/hub.go implementation and cause a circular dependency.
type WsHub interface {
	BroadcastRollover(ev *domain.RolloverEvent)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler wires together the services and runs the background loops.
// Call Start(ctx) once from main(); cancel the context to shut it down
// gracefully.
type Scheduler struct {
	settlementSvc *service.SettlementService
	ticketRepo    *repository.TicketRepository
	hub           WsHub
	cfg           *config.Config
	logger        *slog.Logger
	cron          *cron.Cron
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	settlementSvc *service.SettlementService,
	ticketRepo *repository.TicketRepository,
	hub WsHub,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		settlementSvc: settlementSvc,
		ticketRepo:    ticketRepo,
		hub:           hub,
		cfg:           cfg,
		logger:        logger,
	}
}

// Start launches the background goroutines and the rollover cron.  It returns
// immediately; all loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.startRolloverCron(ctx); err != nil {
		return err
	}
	go s.settlementLoop(ctx)
	go s.stuckTicketLoop(ctx)
	s.logger.Info("scheduler started",
		"settle_interval", s.cfg.Scheduler.SettleInterval,
		"settle_batch", s.cfg.Scheduler.SettleBatch,
		"rollover_spec", s.cfg.Scheduler.RolloverSpec,
	)
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// settlementLoop
// ──────────────────────────────────────────────────────────────────────────────

// settlementLoop sweeps staged results on a fixed ticker and applies them.
// A failing ticket is logged and skipped inside the service; the loop itself
// only stops on context cancellation.
func (s *Scheduler) settlementLoop(ctx context.Context) {
	defer s.recoverAndLog("settlementLoop")

	ticker := time.NewTicker(s.cfg.Scheduler.SettleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("settlementLoop: shutting down")
			return
		case <-ticker.C:
			settled, err := s.settlementSvc.SettleResolved(ctx, s.cfg.Scheduler.SettleBatch)
			if err != nil {
				s.logger.Error("settlementLoop: sweep failed", "err", err)
				continue
			}
			if settled > 0 {
				s.logger.Info("settlementLoop: sweep complete", "settled", settled)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Rollover cron
// ──────────────────────────────────────────────────────────────────────────────

// startRolloverCron schedules the monthly rollover announcement. Records are
// never mutated at the boundary: a new month simply means new period keys, so
// the only work is telling connected clients to refresh.
func (s *Scheduler) startRolloverCron(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(s.cfg.Scheduler.RolloverSpec, func() {
		defer s.recoverAndLog("rolloverCron")
		s.announceRollover()
	})
	if err != nil {
		return err
	}

	c.Start()
	s.cron = c

	go func() {
		<-ctx.Done()
		stopCtx := c.Stop()
		<-stopCtx.Done()
		s.logger.Info("rollover cron: shut down")
	}()
	return nil
}

// announceRollover broadcasts the new public period key.
func (s *Scheduler) announceRollover() {
	key := domain.MonthKey(time.Now().UTC())
	s.logger.Info("public period rolled over", "period_key", key)

	if s.hub == nil {
		return
	}
	s.hub.BroadcastRollover(&domain.RolloverEvent{
		ScopeType:   domain.ScopePublicBet,
		PeriodKey:   key,
		AnnouncedAt: time.Now().UTC(),
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// stuckTicketLoop
// ──────────────────────────────────────────────────────────────────────────────

// stuckTicketLoop flags tickets pending past the alert window once an hour.
// They usually mean the results feed never delivered an outcome and someone
// needs to settle manually through the back-office.
func (s *Scheduler) stuckTicketLoop(ctx context.Context) {
	defer s.recoverAndLog("stuckTicketLoop")

	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stuckTicketLoop: shutting down")
			return
		case <-ticker.C:
			stuck, err := s.ticketRepo.ListStuckPending(ctx, stuckTicketAge, 50)
			if err != nil {
				s.logger.Error("stuckTicketLoop: query failed", "err", err)
				continue
			}
			for _, t := range stuck {
				s.logger.Warn("ticket pending past alert window",
					"ticket_id", t.ID,
					"user_id", t.UserID,
					"created_at", t.CreatedAt,
				)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
