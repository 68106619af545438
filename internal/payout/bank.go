// Package payout moves raffle winnings to their recipient.
package payout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
	"github.com/holiman/uint256"
)

var ErrTransferRejected = errors.New("recipient cannot receive funds")

// Sink transfers amount to recipient and reports whether it succeeded.
type Sink interface {
	Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error
}

// Bank is an in-memory Sink keeping a balance per recipient. Recipients can
// be marked as rejecting to simulate accounts that refuse funds.
type Bank struct {
	mu        sync.RWMutex
	balances  map[common.Address]*uint256.Int
	rejecting map[common.Address]bool
}

func NewBank() *Bank {
	return &Bank{
		balances:  make(map[common.Address]*uint256.Int),
		rejecting: make(map[common.Address]bool),
	}
}

func (b *Bank) Transfer(_ context.Context, to common.Address, amount *uint256.Int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rejecting[to] {
		return fmt.Errorf("%w: %s", ErrTransferRejected, to.Hex())
	}

	bal, ok := b.balances[to]
	if !ok {
		bal = new(uint256.Int)
	}
	sum, overflow := new(uint256.Int).AddOverflow(bal, amount)
	if overflow {
		return fmt.Errorf("balance overflow for %s", to.Hex())
	}
	b.balances[to] = sum

	logger.Infof("bank: transferred %s to %s", amount.Dec(), to.Hex())
	return nil
}

// BalanceOf returns a copy of the balance credited to addr.
func (b *Bank) BalanceOf(addr common.Address) *uint256.Int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if bal, ok := b.balances[addr]; ok {
		return new(uint256.Int).Set(bal)
	}
	return new(uint256.Int)
}

// SetRejecting toggles whether transfers to addr fail.
func (b *Bank) SetRejecting(addr common.Address, reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if reject {
		b.rejecting[addr] = true
		return
	}
	delete(b.rejecting, addr)
}
