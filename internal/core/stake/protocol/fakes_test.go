package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/holiman/uint256"

	"github.com/weisyn/confstake/pkg/interfaces/oracle"
	"github.com/weisyn/confstake/pkg/types"
)

// fakeOracle 记录提交和撤回的解密请求
type fakeOracle struct {
	mu        sync.Mutex
	requests  []*oracle.DecryptionRequest
	cancelled []types.RequestID
	submitErr error
}

func (o *fakeOracle) Submit(_ context.Context, req *oracle.DecryptionRequest) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.submitErr != nil {
		return o.submitErr
	}
	o.requests = append(o.requests, req)
	return nil
}

func (o *fakeOracle) Cancel(_ context.Context, requestID types.RequestID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancelled = append(o.cancelled, requestID)
	return nil
}

func (o *fakeOracle) cancelledIDs() []types.RequestID {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]types.RequestID(nil), o.cancelled...)
}

func (o *fakeOracle) submitted() []*oracle.DecryptionRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*oracle.DecryptionRequest(nil), o.requests...)
}

func (o *fakeOracle) last() *oracle.DecryptionRequest {
	reqs := o.submitted()
	if len(reqs) == 0 {
		return nil
	}
	return reqs[len(reqs)-1]
}

var errInsufficient = errors.New("余额不足")

// fakeSettlement 内存账户簿，支持注入转账失败和转账回调
type fakeSettlement struct {
	mu          sync.Mutex
	balances    map[types.Address]*uint256.Int
	vault       *uint256.Int
	transferErr error
	onTransfer  func(ctx context.Context)
	transfers   int
}

func newFakeSettlement() *fakeSettlement {
	return &fakeSettlement{
		balances: make(map[types.Address]*uint256.Int),
		vault:    new(uint256.Int),
	}
}

func (f *fakeSettlement) fund(account types.Address, amount uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] = uint256.NewInt(amount)
}

func (f *fakeSettlement) failTransfers(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transferErr = err
}

func (f *fakeSettlement) Escrow(_ context.Context, from types.Address, amount *uint256.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	balance, ok := f.balances[from]
	if !ok || balance.Lt(amount) {
		return fmt.Errorf("%w: %s", errInsufficient, from.Hex())
	}
	f.balances[from] = new(uint256.Int).Sub(balance, amount)
	f.vault = new(uint256.Int).Add(f.vault, amount)
	return nil
}

func (f *fakeSettlement) Transfer(ctx context.Context, to types.Address, amount *uint256.Int) error {
	f.mu.Lock()
	hook := f.onTransfer
	f.mu.Unlock()
	if hook != nil {
		hook(ctx)
	}
	// 与账户簿一致，已取消的 ctx 不能开启转账事务
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.transferErr != nil {
		return f.transferErr
	}
	if f.vault.Lt(amount) {
		return errInsufficient
	}
	f.vault = new(uint256.Int).Sub(f.vault, amount)
	balance, ok := f.balances[to]
	if !ok {
		balance = new(uint256.Int)
	}
	f.balances[to] = new(uint256.Int).Add(balance, amount)
	f.transfers++
	return nil
}

func (f *fakeSettlement) BalanceOf(_ context.Context, account types.Address) (*uint256.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if balance, ok := f.balances[account]; ok {
		return new(uint256.Int).Set(balance), nil
	}
	return new(uint256.Int), nil
}

func (f *fakeSettlement) balance(account types.Address) uint64 {
	b, _ := f.BalanceOf(context.Background(), account)
	return b.Uint64()
}

func (f *fakeSettlement) vaultBalance() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.vault.Uint64()
}
