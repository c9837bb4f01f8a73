package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const usagePath = "/api/oauth/usage"

// fetchSnapshot asks the OAuth usage endpoint for the account's current
// rate-limit standing and normalizes the reply into a Snapshot.
//
// Failures map onto the sentinel errors: auth problems are ErrAuthRejected,
// anything retryable (network, timeouts, 5xx, 429) is ErrUnavailable, and a
// 200 body we cannot make sense of is ErrBadResponse.
func fetchSnapshot(ctx context.Context, cfg Config, creds Credentials) (*Snapshot, error) {
	client := &http.Client{Timeout: cfg.RequestTimeout()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+usagePath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.Token())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ccusage/"+version)
	// Without this beta header the endpoint rejects OAuth bearer tokens.
	req.Header.Set("anthropic-beta", "oauth-2025-04-20")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d)", ErrAuthRejected, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w (HTTP %d): %s", ErrUnavailable, resp.StatusCode, truncate(string(body), 200))
	}

	var usage UsageResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if !usage.recognized() {
		return nil, fmt.Errorf("%w: no known rate-limit buckets in reply", ErrBadResponse)
	}

	return newSnapshot(&usage, creds.Plan(), time.Now().UTC()), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
