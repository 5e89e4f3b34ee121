package bluebird

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"time"
)

const defaultCallTimeout = 5 * time.Second

// Client talks to the backend over a unix socket. Each call opens its own
// connection, writes one JSON command and reads one JSON response.
type Client struct {
	socketPath string
	timeout    time.Duration
	dialer     net.Dialer
}

func NewClient(socketPath string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Client{
		socketPath: socketPath,
		timeout:    timeout,
	}
}

func (c *Client) Invoke(ctx context.Context, cmd Command) (Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	conn, err := c.dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return Response{}, fmt.Errorf("failed to connect to backend at %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return Response{}, fmt.Errorf("failed to set deadline: %w", err)
		}
	}

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return Response{}, fmt.Errorf("failed to send %s: %w", cmd.Action, err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, fmt.Errorf("failed to read %s response: %w", cmd.Action, err)
	}

	log.Printf("[BLUEBIRD] %s(%d args) -> %s, %d results", cmd.Action, len(cmd.Args), resp.Code, len(resp.Results))
	return resp, nil
}
