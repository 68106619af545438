// Package oracle describes the randomness coordinator the raffle talks to and
// ships two implementations: an in-process mock for development networks and
// an HTTP client for a remote coordinator.
package oracle

import (
	"context"
	"errors"

	"raffle/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// DefaultRequestConfirmations is the number of confirmations the
	// coordinator waits before answering.
	DefaultRequestConfirmations uint16 = 3
	// MaxNumWords bounds the words a single request may ask for.
	MaxNumWords uint32 = 500
)

var (
	ErrNonexistentRequest = errors.New("nonexistent request")
	ErrInvalidNumWords    = errors.New("invalid number of random words")
)

// RequestParams are the per-request knobs sent to the coordinator.
type RequestParams struct {
	KeyHash              common.Hash `json:"keyHash"`
	SubscriptionID       uint64      `json:"subscriptionId"`
	RequestConfirmations uint16      `json:"requestConfirmations"`
	CallbackGasLimit     uint32      `json:"callbackGasLimit"`
	NumWords             uint32      `json:"numWords"`
}

func (p RequestParams) validate() error {
	if p.NumWords == 0 || p.NumWords > MaxNumWords {
		return ErrInvalidNumWords
	}
	return nil
}

// RandomWordsRequester issues randomness requests. The returned id is
// non-zero and the answer arrives later through a Consumer.
type RandomWordsRequester interface {
	RequestRandomWords(ctx context.Context, params RequestParams) (models.RequestID, error)
}

// Consumer receives fulfilled randomness.
type Consumer interface {
	FulfillRandomWords(ctx context.Context, id models.RequestID, words []*uint256.Int) error
}
