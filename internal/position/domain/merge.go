package domain

import "github.com/wyfcoding/ledger/pkg/quantity"

// MergeStatus 合并结果
type MergeStatus int

const (
	MergeApplied MergeStatus = iota
	MergeExchangeMismatch
	MergeAssetMismatch
)

func (s MergeStatus) String() string {
	switch s {
	case MergeApplied:
		return "APPLIED"
	case MergeExchangeMismatch:
		return "EXCHANGE_MISMATCH"
	case MergeAssetMismatch:
		return "ASSET_MISMATCH"
	default:
		return "UNKNOWN"
	}
}

// MergeResult Merge 的返回值，调用方必须检查 Applied()
type MergeResult struct {
	Status MergeStatus
	// Volume 合并后（失败时为未变化）的接收方数量
	Volume quantity.DiscreteAmount
}

// Applied 报告数量是否已被累加
func (r MergeResult) Applied() bool {
	return r.Status == MergeApplied
}
