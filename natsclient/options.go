package natsclient

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ClientOption configures a Client.
type ClientOption func(*Client) error

// WithMaxReconnects limits reconnection attempts; -1 retries forever.
func WithMaxReconnects(n int) ClientOption {
	return func(c *Client) error {
		c.maxReconnects = n
		return nil
	}
}

// WithReconnectWait sets the pause between reconnection attempts.
func WithReconnectWait(d time.Duration) ClientOption {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("reconnect wait must not be negative, got %v", d)
		}
		c.reconnectWait = d
		return nil
	}
}

// WithTimeout bounds a single dial.
func WithTimeout(d time.Duration) ClientOption {
	return positive("timeout", d, func(c *Client) { c.timeout = d })
}

// WithDrainTimeout bounds Close.
func WithDrainTimeout(d time.Duration) ClientOption {
	return positive("drain timeout", d, func(c *Client) { c.drainTimeout = d })
}

func positive(name string, d time.Duration, set func(*Client)) ClientOption {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
		set(c)
		return nil
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithName sets the connection name reported to the server.
func WithName(name string) ClientOption {
	return func(c *Client) error {
		c.name = name
		return nil
	}
}
