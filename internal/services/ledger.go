package services

import (
	"fmt"

	"raffle/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EntryLedger holds the entries and pool balance of the open round.
// It is not safe for concurrent use; RaffleService serializes access.
type EntryLedger struct {
	entranceFee uint256.Int
	entries     []common.Address
	balance     uint256.Int
}

// NewEntryLedger creates an empty ledger charging entranceFee per entry.
func NewEntryLedger(entranceFee *uint256.Int) *EntryLedger {
	l := &EntryLedger{}
	l.entranceFee.Set(entranceFee)
	return l
}

// Admit records one entry for participant. Any amount above the entrance
// fee stays in the pool. It returns a copy of the pool balance after the
// entry was added.
func (l *EntryLedger) Admit(state models.RaffleState, participant common.Address, feePaid *uint256.Int) (*uint256.Int, error) {
	if feePaid == nil || feePaid.Lt(&l.entranceFee) {
		return nil, fmt.Errorf("%w: paid %s, fee is %s", ErrInsufficientFee, decimal(feePaid), l.entranceFee.Dec())
	}
	if state != models.StateOpen {
		return nil, fmt.Errorf("%w: state is %s", ErrRoundNotOpen, state)
	}

	l.entries = append(l.entries, participant)
	l.balance.Add(&l.balance, feePaid)
	return l.Balance(), nil
}

// EntryAt returns the participant holding the entry at index.
func (l *EntryLedger) EntryAt(index int) (common.Address, error) {
	if index < 0 || index >= len(l.entries) {
		return common.Address{}, fmt.Errorf("%w: index %d, %d players", ErrIndexOutOfRange, index, len(l.entries))
	}
	return l.entries[index], nil
}

func (l *EntryLedger) Count() int {
	return len(l.entries)
}

// Balance returns a copy of the pool balance.
func (l *EntryLedger) Balance() *uint256.Int {
	return new(uint256.Int).Set(&l.balance)
}

// EntranceFee returns a copy of the fee charged per entry.
func (l *EntryLedger) EntranceFee() *uint256.Int {
	return new(uint256.Int).Set(&l.entranceFee)
}

// Reset drops every entry and zeroes the pool.
func (l *EntryLedger) Reset() {
	l.entries = nil
	l.balance.Clear()
}

func decimal(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
