package ledger

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/confstake/internal/core/stake/testutil"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/confstake/pkg/types"
)

var (
	ledgerPrincipal = common.HexToAddress("0x0c57a4")
	staker          = common.HexToAddress("0x5a")
)

func TestRecordAndClear(t *testing.T) {
	store := testutil.NewStore(t)
	cells := testutil.NewCells(t)
	l := New(cells, ledgerPrincipal)

	var balance *types.EncryptedBalance
	require.NoError(t, testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		var err error
		balance, err = l.RecordStake(tx, 1, uint256.NewInt(750), staker)
		return err
	}))
	assert.Equal(t, types.CertificateID(1), balance.CertificateID)
	assert.Equal(t, []types.Address{ledgerPrincipal, staker}, balance.Viewers)

	testutil.View(t, store, func(tx storage.BadgerTransaction) {
		handle, err := l.GetBalance(tx, 1)
		require.NoError(t, err)
		assert.Equal(t, balance.Handle, handle)

		ciphertext, err := cells.ExportForProof(tx, handle)
		require.NoError(t, err)
		assert.Equal(t, uint64(750), cells.Reveal(t, ciphertext))
	})

	require.NoError(t, testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		return l.ClearStake(tx, 1)
	}))

	testutil.View(t, store, func(tx storage.BadgerTransaction) {
		_, err := l.GetBalance(tx, 1)
		assert.ErrorIs(t, err, types.ErrStakeNotFound)

		ok, err := cells.IsInitialized(tx, balance.Handle)
		require.NoError(t, err)
		assert.False(t, ok, "清除绑定时一并消费单元")
	})

	err := testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		return l.ClearStake(tx, 1)
	})
	assert.ErrorIs(t, err, types.ErrStakeNotFound)
}

func TestRecordStakeZeroAmount(t *testing.T) {
	store := testutil.NewStore(t)
	l := New(testutil.NewCells(t), ledgerPrincipal)

	err := testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		_, err := l.RecordStake(tx, 1, uint256.NewInt(0), staker)
		return err
	})
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	err = testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		_, err := l.RecordStake(tx, 1, nil, staker)
		return err
	})
	assert.ErrorIs(t, err, types.ErrZeroAmount)

	testutil.View(t, store, func(tx storage.BadgerTransaction) {
		_, err := l.GetBalance(tx, 1)
		assert.ErrorIs(t, err, types.ErrStakeNotFound)
	})
}

func TestAtMostOneLiveBalance(t *testing.T) {
	store := testutil.NewStore(t)
	l := New(testutil.NewCells(t), ledgerPrincipal)

	require.NoError(t, testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		_, err := l.RecordStake(tx, 5, uint256.NewInt(1), staker)
		return err
	}))

	err := testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		_, err := l.RecordStake(tx, 5, uint256.NewInt(2), staker)
		return err
	})
	assert.Error(t, err)
}

func TestNeverStakedIndistinguishableFromRedeemed(t *testing.T) {
	store := testutil.NewStore(t)
	l := New(testutil.NewCells(t), ledgerPrincipal)

	require.NoError(t, testutil.Update(t, store, func(tx storage.BadgerTransaction) error {
		if _, err := l.RecordStake(tx, 1, uint256.NewInt(9), staker); err != nil {
			return err
		}
		return l.ClearStake(tx, 1)
	}))

	testutil.View(t, store, func(tx storage.BadgerTransaction) {
		_, redeemedErr := l.GetBalance(tx, 1)
		_, neverErr := l.GetBalance(tx, 2)
		assert.ErrorIs(t, redeemedErr, types.ErrStakeNotFound)
		assert.ErrorIs(t, neverErr, types.ErrStakeNotFound)
	})
}
