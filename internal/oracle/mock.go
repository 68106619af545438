package oracle

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"raffle/internal/models"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/logger"
	"github.com/holiman/uint256"
)

// MockCoordinator is an in-process coordinator for development networks.
// Request ids start at 1 and the words it delivers are deterministic:
// word i of request id is keccak256(id, i), both encoded as 32-byte words.
type MockCoordinator struct {
	mu       sync.Mutex
	nextID   models.RequestID
	requests map[models.RequestID]RequestParams
}

func NewMockCoordinator() *MockCoordinator {
	return &MockCoordinator{
		nextID:   1,
		requests: make(map[models.RequestID]RequestParams),
	}
}

func (c *MockCoordinator) RequestRandomWords(_ context.Context, params RequestParams) (models.RequestID, error) {
	if err := params.validate(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.requests[id] = params
	logger.Infof("mock coordinator: random words requested, id=%d words=%d", id, params.NumWords)
	return id, nil
}

// FulfillRandomWords answers request id with the derived words.
func (c *MockCoordinator) FulfillRandomWords(ctx context.Context, id models.RequestID, consumer Consumer) error {
	params, err := c.lookup(id)
	if err != nil {
		return err
	}
	words := make([]*uint256.Int, params.NumWords)
	for i := range words {
		words[i] = DeriveWord(id, uint64(i))
	}
	return c.deliver(ctx, id, consumer, words)
}

// FulfillRandomWordsWithOverride answers request id with caller-chosen words.
func (c *MockCoordinator) FulfillRandomWordsWithOverride(ctx context.Context, id models.RequestID, consumer Consumer, words []*uint256.Int) error {
	params, err := c.lookup(id)
	if err != nil {
		return err
	}
	if uint32(len(words)) != params.NumWords {
		return fmt.Errorf("%w: got %d, requested %d", ErrInvalidNumWords, len(words), params.NumWords)
	}
	return c.deliver(ctx, id, consumer, words)
}

// Pending lists unanswered request ids in ascending order.
func (c *MockCoordinator) Pending() []models.RequestID {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]models.RequestID, 0, len(c.requests))
	for id := range c.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *MockCoordinator) lookup(id models.RequestID) (RequestParams, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	params, ok := c.requests[id]
	if !ok {
		return RequestParams{}, fmt.Errorf("%w: id %d", ErrNonexistentRequest, id)
	}
	return params, nil
}

// deliver hands the words to the consumer outside the lock. A request the
// consumer rejected stays pending so it can be answered again.
func (c *MockCoordinator) deliver(ctx context.Context, id models.RequestID, consumer Consumer, words []*uint256.Int) error {
	if err := consumer.FulfillRandomWords(ctx, id, words); err != nil {
		logger.Warningf("mock coordinator: consumer rejected fulfillment, id=%d: %v", id, err)
		return fmt.Errorf("fulfill request %d: %w", id, err)
	}

	c.mu.Lock()
	delete(c.requests, id)
	c.mu.Unlock()
	logger.Infof("mock coordinator: request fulfilled, id=%d", id)
	return nil
}

// DeriveWord returns keccak256(id, index) as a 256-bit word.
func DeriveWord(id models.RequestID, index uint64) *uint256.Int {
	a := uint256.NewInt(uint64(id)).Bytes32()
	b := uint256.NewInt(index).Bytes32()
	return new(uint256.Int).SetBytes(crypto.Keccak256(a[:], b[:]))
}
