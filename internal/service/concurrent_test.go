package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
)

// TestConcurrentBudgetDebit simulates 50 goroutines simultaneously placing a
// fixed stake against a shared budget — protected by a mutex. This test
// verifies our concurrency guard pattern compiles and passes -race.
//
// In the real LedgerService, the DB row-level FOR UPDATE lock plus the
// version-column compare-and-set provide this guarantee. Here we replicate
// the same guard with sync primitives so the race detector can confirm the
// pattern is sound.
func TestConcurrentBudgetDebit(t *testing.T) {
	const workers = 50
	const stakeEach = 2 // points per stake

	available := decimal.NewFromInt(int64(workers * stakeEach)) // exact total
	var mu sync.Mutex
	var rejected int64 // stakes rejected for insufficient budget (zero expected)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stake := decimal.NewFromInt(stakeEach)

			mu.Lock()
			defer mu.Unlock()

			if available.LessThan(stake) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			available = available.Sub(stake)
		}()
	}
	wg.Wait()

	// Every stake fits exactly: no rejections expected.
	if rejected > 0 {
		t.Errorf("expected 0 rejected stakes, got %d", rejected)
	}
	// Budget should be exactly 0 after exactly 50 × 2 debits.
	if !available.IsZero() {
		t.Errorf("final available budget should be 0, got %s", available)
	}
}

// TestConcurrentOverCommit verifies the other side of the same guard: when
// the budget covers only some of the stakes, exactly that many succeed and
// the budget never goes below zero.
func TestConcurrentOverCommit(t *testing.T) {
	const workers = 50
	const stakeEach = 10
	const budget = 100 // room for exactly 10 stakes

	available := decimal.NewFromInt(budget)
	var mu sync.Mutex
	var placed, rejected int64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stake := decimal.NewFromInt(stakeEach)

			mu.Lock()
			defer mu.Unlock()

			if available.LessThan(stake) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			available = available.Sub(stake)
			atomic.AddInt64(&placed, 1)
		}()
	}
	wg.Wait()

	if placed != budget/stakeEach {
		t.Errorf("expected %d placed stakes, got %d", budget/stakeEach, placed)
	}
	if placed+rejected != workers {
		t.Errorf("placed+rejected should equal %d, got %d", workers, placed+rejected)
	}
	if available.IsNegative() {
		t.Errorf("available budget went negative: %s", available)
	}
}

// TestConcurrentSettlementGuard verifies that settle-exactly-once protection
// works under concurrent access: only one of N goroutines applies the
// outcome of a ticket.
func TestConcurrentSettlementGuard(t *testing.T) {
	const workers = 20
	type ticketState struct {
		mu      sync.Mutex
		settled bool
	}

	var (
		tk         ticketState
		applied    int64
		duplicates int64
		wg         sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			tk.mu.Lock()
			defer tk.mu.Unlock()

			if tk.settled {
				// Second+ delivery of the same result: must be a no-op
				atomic.AddInt64(&duplicates, 1)
				return
			}
			tk.settled = true
			atomic.AddInt64(&applied, 1)
		}()
	}
	wg.Wait()

	if applied != 1 {
		t.Errorf("exactly 1 goroutine should have settled the ticket, got %d", applied)
	}
	if duplicates != workers-1 {
		t.Errorf("expected %d duplicate rejections, got %d", workers-1, duplicates)
	}
}
