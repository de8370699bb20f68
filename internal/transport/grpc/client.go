package grpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/nadzzz/muryar/internal/message"
)

// Client calls the speech service.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a speech service at target. Without options the
// connection is plaintext.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("grpc dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Conn returns the underlying connection.
func (c *Client) Conn() *grpc.ClientConn { return c.conn }

// Synthesize requests one WAV file.
func (c *Client) Synthesize(ctx context.Context, req *message.SynthesizeRequest) (*message.SynthesizeResponse, error) {
	out := new(message.SynthesizeResponse)
	if err := c.conn.Invoke(ctx, synthesizeMethod, req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }
