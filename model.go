package main

import (
	"encoding/json"
	"time"
)

// BucketKind identifies one rolling rate-limit window.
type BucketKind string

const (
	KindFiveHour       BucketKind = "five_hour"
	KindSevenDay       BucketKind = "seven_day"
	KindSevenDaySonnet BucketKind = "seven_day_sonnet"
	KindSevenDayOpus   BucketKind = "seven_day_opus"
	KindOverage        BucketKind = "overage"
)

// windowKinds lists the rolling windows in render order.
var windowKinds = []BucketKind{KindFiveHour, KindSevenDay, KindSevenDaySonnet, KindSevenDayOpus}

// windowLength returns the nominal span of a bucket's rolling window.
// The overage bucket has no window.
func (k BucketKind) windowLength() time.Duration {
	switch k {
	case KindFiveHour:
		return 5 * time.Hour
	case KindSevenDay, KindSevenDaySonnet, KindSevenDayOpus:
		return 7 * 24 * time.Hour
	}
	return 0
}

// Bucket is one window's normalized state. A nil Utilization means the
// bucket is inactive for the account's plan; it is omitted from output,
// never shown as 0%.
type Bucket struct {
	Utilization *float64   `json:"utilization,omitempty"` // 0.0–100.0
	ResetsAt    *time.Time `json:"resets_at,omitempty"`
}

// Active reports whether the bucket is tracked for this account.
func (b Bucket) Active() bool {
	return b.Utilization != nil
}

// Pct returns the floor-rounded integer percentage for an active bucket.
func (b Bucket) Pct() int {
	if b.Utilization == nil {
		return 0
	}
	return int(*b.Utilization)
}

// Overage is paid usage beyond the plan allowance. Currency amounts are in
// cents, as the API reports them.
type Overage struct {
	Enabled      bool     `json:"is_enabled"`
	MonthlyLimit *float64 `json:"monthly_limit,omitempty"`
	UsedCredits  float64  `json:"used_credits"`
	Utilization  *float64 `json:"utilization,omitempty"`
}

// Snapshot is one complete, immutable reading of all buckets. It is built
// fresh on every successful fetch and superseded, never mutated, by the next.
// The cache file holds exactly this structure.
type Snapshot struct {
	Plan           string    `json:"plan"`
	FetchedAt      time.Time `json:"fetched_at"`
	FiveHour       Bucket    `json:"five_hour"`
	SevenDay       Bucket    `json:"seven_day"`
	SevenDaySonnet Bucket    `json:"seven_day_sonnet"`
	SevenDayOpus   Bucket    `json:"seven_day_opus"`
	Overage        Overage   `json:"extra_usage"`
}

// Bucket returns the window bucket for the given kind. Unknown kinds (and
// KindOverage, which carries currency fields instead) come back inactive.
func (s *Snapshot) Bucket(kind BucketKind) Bucket {
	switch kind {
	case KindFiveHour:
		return s.FiveHour
	case KindSevenDay:
		return s.SevenDay
	case KindSevenDaySonnet:
		return s.SevenDaySonnet
	case KindSevenDayOpus:
		return s.SevenDayOpus
	}
	return Bucket{}
}

// SoonestReset returns the earliest reset among active window buckets, or
// nil when none carries one.
func (s *Snapshot) SoonestReset() *time.Time {
	var soonest *time.Time
	for _, kind := range windowKinds {
		b := s.Bucket(kind)
		if !b.Active() || b.ResetsAt == nil {
			continue
		}
		if soonest == nil || b.ResetsAt.Before(*soonest) {
			soonest = b.ResetsAt
		}
	}
	return soonest
}

// UsageResponse is the raw shape of GET /api/oauth/usage. Keys the endpoint
// may grow later are ignored; seven_day_oauth_apps is captured raw only to
// document that it exists.
type UsageResponse struct {
	FiveHour       *UsageBucket    `json:"five_hour"`
	SevenDay       *UsageBucket    `json:"seven_day"`
	SevenDaySonnet *UsageBucket    `json:"seven_day_sonnet"`
	SevenDayOpus   *UsageBucket    `json:"seven_day_opus"`
	ExtraUsage     *ExtraUsage     `json:"extra_usage"`
	SevenDayOAuth  json.RawMessage `json:"seven_day_oauth_apps"`
}

type UsageBucket struct {
	Utilization float64 `json:"utilization"` // 0.0–100.0
	ResetsAt    *string `json:"resets_at"`   // ISO 8601 or null
}

type ExtraUsage struct {
	Enabled      bool     `json:"is_enabled"`
	MonthlyLimit *float64 `json:"monthly_limit"`
	UsedCredits  float64  `json:"used_credits"`
	Utilization  *float64 `json:"utilization"`
}

// recognized reports whether the payload carried at least one known key.
// A response with none of them is not a usage response at all.
func (r *UsageResponse) recognized() bool {
	return r.FiveHour != nil || r.SevenDay != nil || r.SevenDaySonnet != nil ||
		r.SevenDayOpus != nil || r.ExtraUsage != nil
}

// newSnapshot normalizes a raw response into the canonical aggregate.
// Null or absent buckets become inactive; utilization is clamped to [0,100];
// an unparsable resets_at degrades to "not tracked" rather than failing the
// whole fetch.
func newSnapshot(raw *UsageResponse, plan string, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		Plan:           plan,
		FetchedAt:      fetchedAt,
		FiveHour:       normalizeBucket(raw.FiveHour),
		SevenDay:       normalizeBucket(raw.SevenDay),
		SevenDaySonnet: normalizeBucket(raw.SevenDaySonnet),
		SevenDayOpus:   normalizeBucket(raw.SevenDayOpus),
	}
	if raw.ExtraUsage != nil {
		snap.Overage = Overage{
			Enabled:      raw.ExtraUsage.Enabled,
			MonthlyLimit: raw.ExtraUsage.MonthlyLimit,
			UsedCredits:  raw.ExtraUsage.UsedCredits,
			Utilization:  raw.ExtraUsage.Utilization,
		}
	}
	return snap
}

func normalizeBucket(w *UsageBucket) Bucket {
	if w == nil {
		return Bucket{}
	}
	util := w.Utilization
	if util < 0 {
		util = 0
	}
	if util > 100 {
		util = 100
	}
	b := Bucket{Utilization: &util}
	if w.ResetsAt != nil {
		if t, err := time.Parse(time.RFC3339, *w.ResetsAt); err == nil {
			b.ResetsAt = &t
		}
	}
	return b
}

// Credentials is the shape of Claude Code's credentials file.
type Credentials struct {
	ClaudeAiOauth *OAuthEntry `json:"claudeAiOauth"`
}

type OAuthEntry struct {
	AccessToken      string `json:"accessToken"`
	RefreshToken     string `json:"refreshToken"`
	ExpiresAt        int64  `json:"expiresAt"` // epoch millis
	SubscriptionType string `json:"subscriptionType"`
	RateLimitTier    string `json:"rateLimitTier"`
}
