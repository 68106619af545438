package services

import (
	"context"
	"fmt"

	"raffle/internal/models"
	"raffle/internal/oracle"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// pendingRequest ties an in-flight request to the round that issued it.
type pendingRequest struct {
	id         models.RequestID
	roundToken uuid.UUID
	issuedAt   int64
}

// RandomnessBroker keeps at most one outstanding randomness request and
// matches the coordinator's callback back to the round that asked for it.
// Like EntryLedger it relies on RaffleService for serialization.
type RandomnessBroker struct {
	coordinator oracle.RandomWordsRequester
	params      oracle.RequestParams
	pending     *pendingRequest
}

func NewRandomnessBroker(coordinator oracle.RandomWordsRequester, params oracle.RequestParams) *RandomnessBroker {
	if params.NumWords == 0 {
		params.NumWords = 1
	}
	if params.RequestConfirmations == 0 {
		params.RequestConfirmations = oracle.DefaultRequestConfirmations
	}
	return &RandomnessBroker{coordinator: coordinator, params: params}
}

// RequestRandomness issues one request on behalf of roundToken.
func (b *RandomnessBroker) RequestRandomness(ctx context.Context, roundToken uuid.UUID, now int64) (models.RequestID, error) {
	if b.pending != nil {
		return 0, fmt.Errorf("%w: id %d", ErrRequestAlreadyPending, b.pending.id)
	}

	id, err := b.coordinator.RequestRandomWords(ctx, b.params)
	if err != nil {
		return 0, fmt.Errorf("coordinator request: %w", err)
	}
	if id == 0 {
		return 0, fmt.Errorf("coordinator issued request id 0")
	}

	b.pending = &pendingRequest{id: id, roundToken: roundToken, issuedAt: now}
	return id, nil
}

// OnFulfilled matches id against the pending request and passes the value
// to deliver. The pending entry is cleared only when deliver succeeds.
func (b *RandomnessBroker) OnFulfilled(id models.RequestID, randomValue *uint256.Int, deliver func(roundToken uuid.UUID, randomValue *uint256.Int) error) error {
	if b.pending == nil || b.pending.id != id {
		return fmt.Errorf("%w: id %d", ErrUnknownRequest, id)
	}
	if err := deliver(b.pending.roundToken, randomValue); err != nil {
		return err
	}
	b.pending = nil
	return nil
}

// Pending reports the outstanding request, if any.
func (b *RandomnessBroker) Pending() (id models.RequestID, issuedAt int64, ok bool) {
	if b.pending == nil {
		return 0, 0, false
	}
	return b.pending.id, b.pending.issuedAt, true
}
