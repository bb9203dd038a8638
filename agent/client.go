package agent

import (
	"context"
	"fmt"
	"net"
	"time"
)

type DialFunc func(ctx context.Context) (net.Conn, error)

// Client sends commands to an agent, one connection per command.
type Client struct {
	dial    DialFunc
	timeout time.Duration
}

// NewClient returns a client connecting to the agent pipe.
func NewClient() *Client {
	return NewClientWithDialer(Dial)
}

func NewClientWithDialer(dial DialFunc) *Client {
	return &Client{dial: dial, timeout: requestTimeout}
}

func (c *Client) Do(ctx context.Context, cmd Command) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dial(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("failed connecting to agent: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := writeCommand(conn, cmd); err != nil {
		return Response{}, fmt.Errorf("failed sending %s: %w", cmd, err)
	}

	return readResponse(conn, cmd)
}

func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.Do(ctx, CommandPing)
	if err != nil {
		return err
	}

	return resp.Err()
}

// Lock locks the session the agent runs in.
func (c *Client) Lock(ctx context.Context) error {
	resp, err := c.Do(ctx, CommandLock)
	if err != nil {
		return err
	}

	return resp.Err()
}

func (c *Client) IsSessionLocked(ctx context.Context) (bool, error) {
	resp, err := c.Do(ctx, CommandSessionLocked)
	if err != nil {
		return false, err
	}

	if err := resp.Err(); err != nil {
		return false, err
	}

	return resp.Locked, nil
}
