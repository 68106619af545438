package automation

import (
	"context"
	"errors"
	"time"

	"raffle/internal/clock"
	"raffle/internal/models"
	"raffle/internal/oracle"
	"raffle/internal/services"

	"github.com/google/logger"
)

// Upkeeper is the raffle surface the keeper drives.
type Upkeeper interface {
	CheckUpkeep(now int64) bool
	PerformUpkeep(ctx context.Context) (models.RequestID, error)
	PendingRequest() (models.RequestID, int64, bool)
}

// Keeper checks upkeep off the critical path and commits a close only when
// the check passes. The raffle re-checks on close, so a stale read is
// rejected there.
type Keeper struct {
	raffle     Upkeeper
	clock      clock.Clock
	stuckAfter time.Duration
}

func NewKeeper(raffle Upkeeper, clk clock.Clock, stuckAfter time.Duration) *Keeper {
	return &Keeper{raffle: raffle, clock: clk, stuckAfter: stuckAfter}
}

// Tick runs one check-then-act cycle. It reports whether a close was
// committed.
func (k *Keeper) Tick(ctx context.Context) bool {
	now := k.clock.Now()

	if id, since, ok := k.raffle.PendingRequest(); ok {
		if k.stuckAfter > 0 && time.Duration(now-since)*time.Second >= k.stuckAfter {
			logger.Warningf("keeper: randomness request %d pending for %ds", id, now-since)
		}
		return false
	}

	if !k.raffle.CheckUpkeep(now) {
		return false
	}

	id, err := k.raffle.PerformUpkeep(ctx)
	if err != nil {
		if errors.Is(err, services.ErrUpkeepNotNeeded) {
			logger.Infof("keeper: upkeep no longer needed: %v", err)
		} else {
			logger.Errorf("keeper: perform upkeep: %v", err)
		}
		return false
	}

	logger.Infof("keeper: round closed, request id=%d", id)
	return true
}

// Fulfiller answers the mock coordinator's pending requests, standing in
// for the oracle network on development networks.
type Fulfiller struct {
	coordinator *oracle.MockCoordinator
	consumer    oracle.Consumer
}

func NewFulfiller(coordinator *oracle.MockCoordinator, consumer oracle.Consumer) *Fulfiller {
	return &Fulfiller{coordinator: coordinator, consumer: consumer}
}

// Tick fulfills every pending request once and returns how many succeeded.
func (f *Fulfiller) Tick(ctx context.Context) int {
	done := 0
	for _, id := range f.coordinator.Pending() {
		if err := f.coordinator.FulfillRandomWords(ctx, id, f.consumer); err != nil {
			logger.Errorf("fulfiller: request %d: %v", id, err)
			continue
		}
		done++
	}
	return done
}
