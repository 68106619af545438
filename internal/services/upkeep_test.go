package services

import (
	"testing"

	"raffle/internal/models"

	"github.com/holiman/uint256"
)

func TestIsUpkeepNeeded(t *testing.T) {
	one := uint256.NewInt(1)
	zero := new(uint256.Int)

	tests := []struct {
		name     string
		state    models.RaffleState
		entries  int
		balance  *uint256.Int
		openedAt int64
		now      int64
		want     bool
	}{
		{"all conditions met", models.StateOpen, 1, one, 100, 131, true},
		{"exactly on the interval", models.StateOpen, 1, one, 100, 130, true},
		{"interval not elapsed", models.StateOpen, 1, one, 100, 129, false},
		{"no players", models.StateOpen, 0, one, 100, 1_000_000, false},
		{"empty pool", models.StateOpen, 3, zero, 100, 131, false},
		{"nil pool", models.StateOpen, 3, nil, 100, 131, false},
		{"calculating", models.StateCalculating, 3, one, 100, 131, false},
		{"clock behind open time", models.StateOpen, 3, one, 200, 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUpkeepNeeded(tt.state, tt.entries, tt.balance, tt.openedAt, 30, tt.now)
			if got != tt.want {
				t.Errorf("IsUpkeepNeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}
