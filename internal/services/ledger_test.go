package services

import (
	"errors"
	"testing"

	"raffle/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastrand"
)

func TestEntryLedger_AdmitRandomSequences(t *testing.T) {
	fee := uint256.NewInt(10)

	for run := 0; run < 50; run++ {
		ledger := NewEntryLedger(fee)
		n := int(fastrand.Uint32n(40)) + 1
		want := new(uint256.Int)

		for i := 0; i < n; i++ {
			paid := uint256.NewInt(10 + uint64(fastrand.Uint32n(25)))
			addr := common.BigToAddress(uint256.NewInt(uint64(fastrand.Uint32n(5)) + 1).ToBig())

			bal, err := ledger.Admit(models.StateOpen, addr, paid)
			require.NoError(t, err)
			want.Add(want, paid)
			require.Equal(t, want.Dec(), bal.Dec())
		}

		require.Equal(t, n, ledger.Count())
		require.Equal(t, want.Dec(), ledger.Balance().Dec())
	}
}

func TestEntryLedger(t *testing.T) {
	alice := common.HexToAddress("0xa11ce00000000000000000000000000000000000")
	bob := common.HexToAddress("0xb0b0000000000000000000000000000000000000")

	t.Run("Underpayment is rejected without side effects", func(t *testing.T) {
		ledger := NewEntryLedger(uint256.NewInt(10))
		for _, paid := range []*uint256.Int{nil, uint256.NewInt(0), uint256.NewInt(9)} {
			_, err := ledger.Admit(models.StateOpen, alice, paid)
			require.True(t, errors.Is(err, ErrInsufficientFee))
		}
		require.Equal(t, 0, ledger.Count())
		require.True(t, ledger.Balance().IsZero())
	})

	t.Run("Closed round rejects entries", func(t *testing.T) {
		ledger := NewEntryLedger(uint256.NewInt(10))
		_, err := ledger.Admit(models.StateCalculating, alice, uint256.NewInt(10))
		require.True(t, errors.Is(err, ErrRoundNotOpen))
		require.Equal(t, 0, ledger.Count())
	})

	t.Run("Duplicates keep their own slots in order", func(t *testing.T) {
		ledger := NewEntryLedger(uint256.NewInt(10))
		for _, p := range []common.Address{alice, bob, alice} {
			_, err := ledger.Admit(models.StateOpen, p, uint256.NewInt(10))
			require.NoError(t, err)
		}

		for i, want := range []common.Address{alice, bob, alice} {
			got, err := ledger.EntryAt(i)
			require.NoError(t, err)
			require.Equal(t, want, got)
		}
		_, err := ledger.EntryAt(3)
		require.True(t, errors.Is(err, ErrIndexOutOfRange))
		_, err = ledger.EntryAt(-1)
		require.True(t, errors.Is(err, ErrIndexOutOfRange))
	})

	t.Run("Reset clears entries and pool", func(t *testing.T) {
		ledger := NewEntryLedger(uint256.NewInt(10))
		_, err := ledger.Admit(models.StateOpen, alice, uint256.NewInt(15))
		require.NoError(t, err)

		ledger.Reset()
		require.Equal(t, 0, ledger.Count())
		require.True(t, ledger.Balance().IsZero())
		require.Equal(t, uint64(10), ledger.EntranceFee().Uint64())
	})

	t.Run("Returned balance is a copy", func(t *testing.T) {
		ledger := NewEntryLedger(uint256.NewInt(10))
		bal, err := ledger.Admit(models.StateOpen, alice, uint256.NewInt(10))
		require.NoError(t, err)
		bal.Add(bal, uint256.NewInt(100))
		require.Equal(t, uint64(10), ledger.Balance().Uint64())
	})
}
