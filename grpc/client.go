package seqgrpc

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"

	"github.com/blockberries/seqtest"
	"github.com/blockberries/seqtest/types"
)

// Compile-time interface check.
var _ seqtest.Connection = (*Client)(nil)

// Client implements seqtest.Connection for a remote sequencer over
// gRPC using cramberry serialization.
type Client struct {
	cc   *grpc.ClientConn
	info InfoResponse
}

// Dial connects to a remote sequencer and fetches its description.
// Transport failures are reported as *seqtest.NetworkError.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(
		grpc.ForceCodec(CramberryCodec{}),
	))
	cc, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, seqtest.NewNetworkError("dial "+addr, err)
	}
	c := &Client{cc: cc}
	if err := c.cc.Invoke(ctx, fullMethod("GetInfo"), &InfoRequest{}, &c.info); err != nil {
		cc.Close()
		return nil, fromStatus(fmt.Sprintf("dial %s", addr), err)
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// BlockTime is the block interval the server advertises, 0 if unknown.
func (c *Client) BlockTime() time.Duration {
	return time.Duration(c.info.BlockTimeNanos)
}

func (c *Client) SubmitDeployment(ctx context.Context, t types.ProgramDeploymentTransaction) (types.SubmitAck, error) {
	resp := new(types.SubmitAck)
	if err := c.cc.Invoke(ctx, fullMethod("SubmitDeployment"), &t, resp); err != nil {
		return types.SubmitAck{}, fromStatus("submit deployment", err)
	}
	return *resp, nil
}

func (c *Client) SubmitInvocation(ctx context.Context, t types.PublicTransaction) (types.SubmitAck, error) {
	resp := new(types.SubmitAck)
	if err := c.cc.Invoke(ctx, fullMethod("SubmitInvocation"), &t, resp); err != nil {
		return types.SubmitAck{}, fromStatus("submit invocation", err)
	}
	return *resp, nil
}

func (c *Client) Account(ctx context.Context, id types.AccountID) (types.Account, error) {
	resp := new(types.Account)
	if err := c.cc.Invoke(ctx, fullMethod("GetAccount"), &AccountRequest{AccountID: id}, resp); err != nil {
		return types.Account{}, fromStatus("get account", err)
	}
	return *resp, nil
}

func (c *Client) LastBlockHeight(ctx context.Context) (types.BlockHeight, error) {
	resp := new(LastBlockResponse)
	if err := c.cc.Invoke(ctx, fullMethod("GetLastBlock"), &LastBlockRequest{}, resp); err != nil {
		return 0, fromStatus("get last block", err)
	}
	return resp.Height, nil
}

// AsReceiptReader returns the receipt capability if the server
// advertised it.
func (c *Client) AsReceiptReader() seqtest.ReceiptReader {
	if c.info.Receipts {
		return &clientReceiptReader{c}
	}
	return nil
}

type clientReceiptReader struct{ c *Client }

func (r *clientReceiptReader) Receipt(ctx context.Context, h types.Hash) (types.Receipt, error) {
	resp := new(types.Receipt)
	if err := r.c.cc.Invoke(ctx, fullMethod("GetReceipt"), &ReceiptRequest{TxHash: h}, resp); err != nil {
		return types.Receipt{}, fromStatus("get receipt", err)
	}
	return *resp, nil
}
