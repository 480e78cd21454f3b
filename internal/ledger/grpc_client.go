package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "ledger.Ledger"

	MethodQueryBlocks = "/" + ServiceName + "/QueryBlocks"
	MethodTransfer    = "/" + ServiceName + "/Transfer"
	MethodTransferFee = "/" + ServiceName + "/TransferFee"
)

// GRPCClient talks to the ledger bridge. Messages are google.protobuf.Struct
// documents; 64-bit amounts travel as decimal strings because Struct numbers
// are doubles.
type GRPCClient struct {
	conn    grpc.ClientConnInterface
	closer  func() error
	timeout time.Duration
}

func DialGRPC(address string, timeout time.Duration, opts ...grpc.DialOption) (*GRPCClient, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial ledger %s: %w", address, err)
	}
	c := NewGRPCClient(conn, timeout)
	c.closer = conn.Close
	return c, nil
}

func NewGRPCClient(conn grpc.ClientConnInterface, timeout time.Duration) *GRPCClient {
	return &GRPCClient{conn: conn, timeout: timeout}
}

func (c *GRPCClient) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

func (c *GRPCClient) QueryBlocks(ctx context.Context, start, length uint64) ([]Block, error) {
	resp, err := c.call(ctx, MethodQueryBlocks, map[string]any{
		"start":  formatUint(start),
		"length": formatUint(length),
	})
	if err != nil {
		return nil, err
	}

	values := resp.GetFields()["blocks"].GetListValue().GetValues()
	blocks := make([]Block, 0, len(values))
	for _, v := range values {
		b, err := decodeBlock(v.GetStructValue())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (c *GRPCClient) Transfer(ctx context.Context, args TransferArgs) (uint64, error) {
	resp, err := c.call(ctx, MethodTransfer, map[string]any{
		"memo":   formatUint(args.Memo),
		"amount": formatUint(args.Amount),
		"fee":    formatUint(args.Fee),
		"to":     args.To.String(),
	})
	if err != nil {
		return 0, err
	}
	return uintField(resp, "block_index")
}

func (c *GRPCClient) TransferFee(ctx context.Context) (uint64, error) {
	resp, err := c.call(ctx, MethodTransferFee, map[string]any{})
	if err != nil {
		return 0, err
	}
	return uintField(resp, "fee")
}

func (c *GRPCClient) call(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, fmt.Errorf("ledger %s: %w", method, err)
	}
	return resp, nil
}

func decodeBlock(s *structpb.Struct) (Block, error) {
	var (
		b   Block
		err error
	)
	if b.Index, err = uintField(s, "index"); err != nil {
		return b, err
	}
	if b.Memo, err = uintField(s, "memo"); err != nil {
		return b, err
	}
	if ts, ok := s.GetFields()["timestamp_nanos"]; ok {
		nanos, err := strconv.ParseInt(ts.GetStringValue(), 10, 64)
		if err != nil {
			return b, fmt.Errorf("block %d timestamp: %w", b.Index, err)
		}
		b.Timestamp = time.Unix(0, nanos)
	}

	tv, ok := s.GetFields()["transfer"]
	if !ok || tv.GetStructValue() == nil {
		return b, nil
	}
	ts := tv.GetStructValue()
	var tr Transfer
	if tr.From, err = ParseAccountIdentifier(ts.GetFields()["from"].GetStringValue()); err != nil {
		return b, err
	}
	if tr.To, err = ParseAccountIdentifier(ts.GetFields()["to"].GetStringValue()); err != nil {
		return b, err
	}
	if tr.Amount, err = uintField(ts, "amount"); err != nil {
		return b, err
	}
	if _, ok := ts.GetFields()["fee"]; ok {
		if tr.Fee, err = uintField(ts, "fee"); err != nil {
			return b, err
		}
	}
	b.Transfer = &tr
	return b, nil
}

func uintField(s *structpb.Struct, name string) (uint64, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("ledger response: missing %q", name)
	}
	n, err := strconv.ParseUint(v.GetStringValue(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("ledger response: field %q: %w", name, err)
	}
	return n, nil
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}

var _ Client = (*GRPCClient)(nil)
