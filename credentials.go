package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// loadCredentials resolves the OAuth credential Claude Code left behind.
//
// Resolution order:
//  1. CLAUDE_OAUTH_TOKEN env var (CI and debugging; skips the expiry check)
//  2. the credentials file at cfg.CredentialsPath
//  3. on macOS, the login Keychain entry Claude Code writes instead of a file
func loadCredentials(cfg Config) (Credentials, error) {
	if tok := os.Getenv("CLAUDE_OAUTH_TOKEN"); tok != "" {
		return Credentials{ClaudeAiOauth: &OAuthEntry{AccessToken: tok}}, nil
	}

	raw, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		if os.IsNotExist(err) && runtime.GOOS == "darwin" {
			if kraw, kerr := keychainCredentials(); kerr == nil {
				return parseCredentials(kraw, time.Now())
			}
		}
		return Credentials{}, fmt.Errorf("%w (looked in %s); run `claude` first", ErrNoCredentials, cfg.CredentialsPath)
	}
	return parseCredentials(raw, time.Now())
}

func parseCredentials(raw []byte, now time.Time) (Credentials, error) {
	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: credential file is not valid JSON", ErrNoCredentials)
	}
	o := creds.ClaudeAiOauth
	if o == nil || o.AccessToken == "" {
		return Credentials{}, fmt.Errorf("%w: no OAuth access token in credential file", ErrNoCredentials)
	}
	// expiresAt is epoch millis; Claude Code rewrites the file on refresh,
	// so a stale timestamp means the user has to open the app again.
	if now.UnixMilli() > o.ExpiresAt {
		return Credentials{}, ErrTokenExpired
	}
	return creds, nil
}

// keychainCredentials reads the same JSON blob from the macOS login
// Keychain, where Claude Code stores it instead of a dotfile.
func keychainCredentials() ([]byte, error) {
	out, err := exec.Command(
		"security", "find-generic-password",
		"-s", "Claude Code-credentials",
		"-w",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("%w (Keychain lookup failed)", ErrNoCredentials)
	}
	return []byte(strings.TrimSpace(string(out))), nil
}

// Token returns the bearer token for the usage endpoint.
func (c Credentials) Token() string {
	if c.ClaudeAiOauth == nil {
		return ""
	}
	return c.ClaudeAiOauth.AccessToken
}

// Plan derives the display name of the subscription tier. rateLimitTier is
// the more specific field when present ("default_claude_max_5x"); the
// redundant prefix is stripped so the statusline chip stays short.
func (c Credentials) Plan() string {
	o := c.ClaudeAiOauth
	if o == nil {
		return "unknown"
	}
	tier := o.RateLimitTier
	if tier == "" {
		tier = o.SubscriptionType
	}
	if tier == "" {
		return "unknown"
	}
	return strings.TrimPrefix(tier, "default_claude_")
}
