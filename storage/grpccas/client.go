package grpccas

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/storage"
)

// Client implements storage.CAS over a CAS gRPC service.
//
// The transport is not trusted: names and content are validated before Put is sent
// and again when Get returns.
type Client struct {
	cc     *grpc.ClientConn
	client casClient
	v      *chunk.Validation

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

var _ storage.CAS = (*Client)(nil)

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// Extra is appended to the default dial options.
	Extra []grpc.DialOption
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	dialOpts = append(dialOpts, opts.Extra...)

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, err
	}
	return NewClient(cc), nil
}

// NewClient wraps an established connection.
func NewClient(cc *grpc.ClientConn) *Client {
	return &Client{cc: cc, client: casClient{cc: cc}, v: chunk.NewValidation()}
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) Put(name chunk.Name, content []byte) error {
	if c == nil || c.client.cc == nil {
		return errors.New("grpccas: client not connected")
	}
	if !c.v.ValidName(name) {
		return storage.ErrInvalidName
	}
	if err := c.v.Check(name, content); err != nil {
		return storage.InvalidChunk(err)
	}
	body, err := EncodePut(name, content)
	if err != nil {
		return err
	}

	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Put(ctx, wrapperspb.Bytes(body))
	if err != nil {
		return mapRPC(err)
	}
	if chunk.Name(reply.GetValue()) != name {
		return storage.ErrInvalidName
	}
	return nil
}

func (c *Client) Get(name chunk.Name) ([]byte, error) {
	if c == nil || c.client.cc == nil {
		return nil, errors.New("grpccas: client not connected")
	}
	if !c.v.ValidName(name) {
		return nil, storage.ErrInvalidName
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Get(ctx, wrapperspb.String(string(name)))
	if err != nil {
		return nil, mapRPC(err)
	}
	b := reply.GetValue()
	if err := c.v.Check(name, b); err != nil {
		return nil, storage.InvalidChunk(err)
	}
	return b, nil
}

func (c *Client) Has(name chunk.Name) bool {
	if c == nil || c.client.cc == nil || !c.v.ValidName(name) {
		return false
	}
	ctx, cancel := c.ctx()
	defer cancel()

	reply, err := c.client.Has(ctx, wrapperspb.String(string(name)))
	if err != nil {
		return false
	}
	return reply.GetValue()
}

func (c *Client) ctx() (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), c.Timeout)
}
