package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/initia-labs/corerpc/types"
)

type AuthKind int

const (
	AuthNone AuthKind = iota
	AuthUserPass
	AuthCookieFile
)

// Auth describes where the node credentials come from.
type Auth struct {
	Kind       AuthKind
	User       string
	Pass       string
	CookieFile string
}

func NoAuth() Auth {
	return Auth{Kind: AuthNone}
}

func UserPass(user, pass string) Auth {
	return Auth{Kind: AuthUserPass, User: user, Pass: pass}
}

func CookieFile(path string) Auth {
	return Auth{Kind: AuthCookieFile, CookieFile: path}
}

// GetUserPass resolves the credentials. Cookie files are read once here; only
// the first line is used and it is split at the first colon.
func (a Auth) GetUserPass() (user, pass string, err error) {
	switch a.Kind {
	case AuthNone:
		return "", "", nil
	case AuthUserPass:
		return a.User, a.Pass, nil
	case AuthCookieFile:
		return readCookieFile(a.CookieFile)
	default:
		return "", "", types.NewConfigError(fmt.Sprintf("unknown auth kind %d", a.Kind), nil)
	}
}

func readCookieFile(path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", types.NewConfigError("failed to open cookie file", err)
	}
	defer f.Close() //nolint:errcheck

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return "", "", types.NewConfigError("failed to read cookie file", err)
	}
	line = strings.TrimRight(line, "\r\n")

	user, pass, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", types.NewConfigError("invalid cookie file: missing ':' separator", nil)
	}
	return user, pass, nil
}
