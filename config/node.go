package config

import (
	"fmt"
	"net/url"

	"golang.org/x/mod/semver"

	"github.com/initia-labs/corerpc/types"
)

type NodeConfig struct {
	RpcUrl           string
	RpcUser          string
	RpcPassword      string
	RpcCookieFile    string
	MinServerVersion string
}

func (nc NodeConfig) Validate() error {
	if len(nc.RpcUrl) == 0 {
		return types.NewValidationError("RPC_URL", "required field is missing")
	}
	if err := ValidateRpcUrl(nc.RpcUrl); err != nil {
		return err
	}

	if nc.RpcCookieFile != "" && (nc.RpcUser != "" || nc.RpcPassword != "") {
		return types.NewValidationError("RPC_COOKIE_FILE", "cannot be combined with RPC_USER/RPC_PASSWORD")
	}

	if nc.MinServerVersion != "" && !semver.IsValid(nc.MinServerVersion) {
		return types.NewInvalidValueError("MIN_SERVER_VERSION", nc.MinServerVersion, "must be a semantic version like v0.19.0")
	}

	return nil
}

// ValidateRpcUrl checks that raw is an absolute http(s) URL.
func ValidateRpcUrl(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return types.NewInvalidValueError("RPC_URL", raw, fmt.Sprintf("invalid URL: %v", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return types.NewInvalidValueError("RPC_URL", raw, fmt.Sprintf("must use http or https scheme, got: %s", u.Scheme))
	}
	if u.Host == "" {
		return types.NewInvalidValueError("RPC_URL", raw, "missing host")
	}
	return nil
}

// Auth picks the credential source: cookie file first, then user/password.
func (nc NodeConfig) Auth() Auth {
	switch {
	case nc.RpcCookieFile != "":
		return CookieFile(nc.RpcCookieFile)
	case nc.RpcUser != "" || nc.RpcPassword != "":
		return UserPass(nc.RpcUser, nc.RpcPassword)
	default:
		return NoAuth()
	}
}
