package client

import (
	"context"
	"fmt"

	"golang.org/x/mod/semver"

	"github.com/initia-labs/corerpc/config"
	"github.com/initia-labs/corerpc/relay"
	"github.com/initia-labs/corerpc/types"
)

// Client is a JSON-RPC client for a Bitcoin Core compatible node.
type Client struct {
	relay *relay.Relay
}

// New resolves auth once and builds the client. It only fails on
// configuration problems: an invalid url or an unreadable cookie file.
func New(url string, auth config.Auth, opts ...relay.Option) (*Client, error) {
	if err := config.ValidateRpcUrl(url); err != nil {
		return nil, types.NewConfigError("invalid rpc url", err)
	}
	user, pass, err := auth.GetUserPass()
	if err != nil {
		return nil, err
	}
	return &Client{relay: relay.New(url, user, pass, opts...)}, nil
}

// NewFromConfig builds a client from the process configuration.
func NewFromConfig(cfg *config.Config, opts ...relay.Option) (*Client, error) {
	return New(cfg.GetRpcUrl(), cfg.GetAuth(), opts...)
}

// Call invokes method with positional args and decodes the result into out.
func (c *Client) Call(ctx context.Context, method string, args []any, out any) error {
	if args == nil {
		args = []any{}
	}
	return c.relay.Request(ctx, method, args, out)
}

// CallAs is Call with the result type as a type parameter.
func CallAs[T any](ctx context.Context, c *Client, method string, args ...any) (T, error) {
	var out T
	err := c.Call(ctx, method, args, &out)
	return out, err
}

// Relay exposes the underlying transport.
func (c *Client) Relay() *relay.Relay {
	return c.relay
}

// ServerVersion is the numeric version reported by getnetworkinfo,
// e.g. 180100 for 0.18.1 and 250100 for 25.1.
type ServerVersion uint64

// Semver renders the version in the form accepted by golang.org/x/mod/semver.
func (v ServerVersion) Semver() string {
	n := uint64(v)
	if n >= 220000 {
		return fmt.Sprintf("v%d.%d.%d", n/10000, (n/100)%100, n%100)
	}
	return fmt.Sprintf("v%d.%d.%d", n/1000000, (n/10000)%100, (n/100)%100)
}

// AtLeast reports whether v is at or above minVersion, a semantic version
// such as "v0.19.0". An invalid minVersion is never satisfied.
func (v ServerVersion) AtLeast(minVersion string) bool {
	if !semver.IsValid(minVersion) {
		return false
	}
	return semver.Compare(v.Semver(), minVersion) >= 0
}

// Version returns the server version.
func (c *Client) Version(ctx context.Context) (ServerVersion, error) {
	var res struct {
		Version uint64 `json:"version"`
	}
	if err := c.Call(ctx, "getnetworkinfo", nil, &res); err != nil {
		return 0, err
	}
	return ServerVersion(res.Version), nil
}
