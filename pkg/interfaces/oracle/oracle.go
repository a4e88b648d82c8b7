// Package oracle 定义解密预言机的提交、回调与证明验证接口
//
// 预言机对账本而言是黑盒："提交密文句柄，稍后收到明文 + 证明，验证证明"。
package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/weisyn/confstake/pkg/types"
)

// DecryptionRequest 提交给预言机的解密请求
type DecryptionRequest struct {
	RequestID   types.RequestID          `json:"request_id"`
	Handles     []types.CiphertextHandle `json:"handles"`
	Ciphertexts [][]byte                 `json:"ciphertexts"`
}

// DecryptionOracle 预言机提交接口
type DecryptionOracle interface {
	// Submit 提交解密请求，异步处理
	// 预言机稍后以任意延迟调用 Fulfiller.Fulfill，每个请求ID只回调一次
	Submit(ctx context.Context, req *DecryptionRequest) error
}

// Canceler 可撤回请求的预言机
//
// 账本提交请求后自身事务回滚时调用；撤回后该请求不再回调
type Canceler interface {
	Cancel(ctx context.Context, requestID types.RequestID) error
}

// Fulfiller 预言机回调目标
type Fulfiller interface {
	// Fulfill 交付请求的明文和正确性证明
	Fulfill(ctx context.Context, caller types.Address, requestID types.RequestID, cleartext, proof []byte) error
}

// ProofVerifier 解密证明验证能力
type ProofVerifier interface {
	// Verify 验证 proof 证明 cleartext 是 ciphertextDigest 对应密文在 requestID 下的正确解密
	// 验证失败返回包装了 ErrInvalidProof 的错误
	Verify(requestID types.RequestID, ciphertextDigest common.Hash, cleartext, proof []byte) error
}
