package ledger

import (
	"context"
	"time"
)

// Client is the subset of the ledger service the gateway needs.
type Client interface {
	QueryBlocks(ctx context.Context, start, length uint64) ([]Block, error)
	Transfer(ctx context.Context, args TransferArgs) (uint64, error)
	TransferFee(ctx context.Context) (uint64, error)
}

type Block struct {
	Index     uint64
	Memo      uint64
	Transfer  *Transfer
	Timestamp time.Time
}

// Transfer is the operation carried by a block. Blocks for mints, burns and
// approvals have no Transfer.
type Transfer struct {
	From   AccountIdentifier
	To     AccountIdentifier
	Amount uint64
	Fee    uint64
}

type TransferArgs struct {
	Memo   uint64
	Amount uint64
	Fee    uint64
	To     AccountIdentifier
}
