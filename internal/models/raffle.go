package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// RaffleState is the lifecycle position of the current round.
type RaffleState uint8

const (
	// StateOpen accepts entries and may be closed by upkeep.
	StateOpen RaffleState = iota
	// StateCalculating is closed and waiting for the randomness callback.
	StateCalculating
)

func (s RaffleState) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateCalculating:
		return "CLOSED_PENDING_RANDOMNESS"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state by name in JSON payloads.
func (s RaffleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// RequestID correlates a randomness request with its fulfillment.
// Zero never identifies an issued request.
type RequestID uint64

// WinnerRecord stores the outcome of one resolved round.
type WinnerRecord struct {
	Round      uint64         `json:"round"`
	RoundToken uuid.UUID      `json:"roundToken"`
	RequestID  RequestID      `json:"requestId"`
	RandomWord *uint256.Int   `json:"randomWord"`
	Winner     common.Address `json:"winner"`
	WinnerIdx  int            `json:"winnerIndex"`
	Payout     *uint256.Int   `json:"payout"`
	Entries    int            `json:"entries"`
	OpenedAt   int64          `json:"openedAt"`
	ResolvedAt int64          `json:"resolvedAt"`
}

// EventKind names a raffle notification.
type EventKind string

const (
	EventEntryAdmitted EventKind = "RaffleEnter"
	EventRoundClosing  EventKind = "RequestedRaffleWinner"
	EventWinnerPicked  EventKind = "WinnerPicked"
)

// Event is the notification emitted to observers after a successful
// mutation. Only the fields relevant to Kind are set.
type Event struct {
	Kind  EventKind `json:"kind"`
	Round uint64    `json:"round"`

	// EventEntryAdmitted
	Participant common.Address `json:"participant,omitempty"`
	Balance     *uint256.Int   `json:"balance,omitempty"`

	// EventRoundClosing
	RequestID RequestID `json:"requestId,omitempty"`

	// EventWinnerPicked
	Winner        *WinnerRecord `json:"winner,omitempty"`
	NewRoundStart int64         `json:"newRoundStart,omitempty"`
}

// RaffleSnapshot is a consistent read of the raffle at one instant.
type RaffleSnapshot struct {
	State          RaffleState   `json:"state"`
	Round          uint64        `json:"round"`
	RoundToken     uuid.UUID     `json:"roundToken"`
	EntranceFee    *uint256.Int  `json:"entranceFee"`
	Interval       int64         `json:"interval"`
	OpenedAt       int64         `json:"lastTimestamp"`
	Players        int           `json:"numberOfPlayers"`
	Balance        *uint256.Int  `json:"balance"`
	PendingRequest RequestID     `json:"pendingRequestId,omitempty"`
	PendingSince   int64         `json:"pendingSince,omitempty"`
	RecentWinner   *WinnerRecord `json:"recentWinner,omitempty"`
}
