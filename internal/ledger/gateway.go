package ledger

import (
	"context"
	"fmt"

	"github.com/Domenick1991/flighthold/internal/domain"
	"go.uber.org/zap"
)

// Gateway verifies incoming payments and pays out refunds from the account
// owned by self.
type Gateway struct {
	client      Client
	self        Principal
	selfAccount AccountIdentifier
	log         *zap.Logger
}

func NewGateway(client Client, self Principal, log *zap.Logger) *Gateway {
	return &Gateway{
		client:      client,
		self:        self,
		selfAccount: AccountOf(self, Subaccount{}),
		log:         log.Named("ledger"),
	}
}

// SelfAddress is the account payers must transfer to.
func (g *Gateway) SelfAddress() string {
	return g.selfAccount.String()
}

// AddressOf returns the default account of identity in hex form.
func (g *Gateway) AddressOf(identity string) (string, error) {
	p, err := ParsePrincipal(identity)
	if err != nil {
		return "", domain.NewError(domain.KindInvalidPayload, "%v", err)
	}
	return AccountOf(p, Subaccount{}).String(), nil
}

// VerifyPayment reports whether the block at index is a transfer of exactly
// amount from sender's default account to ours, tagged with memo.
func (g *Gateway) VerifyPayment(ctx context.Context, sender string, amount, index, memo uint64) (bool, error) {
	p, err := ParsePrincipal(sender)
	if err != nil {
		return false, domain.NewError(domain.KindInvalidPayload, "%v", err)
	}
	from := AccountOf(p, Subaccount{})

	blocks, err := g.client.QueryBlocks(ctx, index, 1)
	if err != nil {
		return false, fmt.Errorf("query block %d: %w", index, err)
	}

	for _, b := range blocks {
		if b.Transfer == nil {
			continue
		}
		if b.Memo == memo &&
			b.Transfer.From.Equal(from) &&
			b.Transfer.To.Equal(g.selfAccount) &&
			b.Transfer.Amount == amount {
			return true, nil
		}
	}

	g.log.Info("payment not verified",
		zap.String("sender", sender),
		zap.Uint64("block", index),
		zap.Uint64("memo", memo),
		zap.Uint64("amount", amount),
		zap.Int("blocks", len(blocks)),
	)
	return false, nil
}

// Refund sends amount minus the current transfer fee to the default account of
// to. Nothing is retried.
func (g *Gateway) Refund(ctx context.Context, to string, amount uint64) (domain.Message, error) {
	p, err := ParsePrincipal(to)
	if err != nil {
		return domain.Message{}, domain.NewError(domain.KindInvalidPayload, "%v", err)
	}

	fee, err := g.client.TransferFee(ctx)
	if err != nil {
		return domain.Message{}, domain.NewError(domain.KindPaymentFailed, "refund failed, err=%v", err)
	}
	if amount < fee {
		return domain.Message{}, domain.NewError(domain.KindPaymentFailed, "refund failed, amount %d is below transfer fee %d", amount, fee)
	}

	block, err := g.client.Transfer(ctx, TransferArgs{
		Memo:   0,
		Amount: amount - fee,
		Fee:    fee,
		To:     AccountOf(p, Subaccount{}),
	})
	if err != nil {
		g.log.Warn("refund transfer failed", zap.String("to", to), zap.Uint64("amount", amount), zap.Error(err))
		return domain.Message{}, domain.NewError(domain.KindPaymentFailed, "refund failed, err=%v", err)
	}

	g.log.Info("refund completed",
		zap.String("to", to),
		zap.Uint64("amount", amount-fee),
		zap.Uint64("fee", fee),
		zap.Uint64("block", block),
	)
	return domain.Message{Kind: domain.KindPaymentCompleted, Text: "refund completed"}, nil
}
