package domain

import "github.com/wyfcoding/ledger/pkg/quantity"

// Holding 某处持有的一定数量的某种资产
type Holding interface {
	Exchange() Exchange
	Asset() Asset
	Volume() quantity.Amount
}

var _ Holding = (*Position)(nil)
