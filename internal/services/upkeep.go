package services

import (
	"raffle/internal/models"

	"github.com/holiman/uint256"
)

// IsUpkeepNeeded reports whether the round may be closed at now: it must be
// open, hold at least one entry and a non-zero pool, and have been open for
// at least interval seconds. A now earlier than openedAt counts as no time
// elapsed.
func IsUpkeepNeeded(state models.RaffleState, entryCount int, poolBalance *uint256.Int, openedAt, interval, now int64) bool {
	if state != models.StateOpen || entryCount <= 0 {
		return false
	}
	if poolBalance == nil || poolBalance.IsZero() {
		return false
	}

	elapsed := now - openedAt
	if elapsed < 0 {
		elapsed = 0
	}
	return elapsed >= interval
}
