package server

import (
	"time"

	"github.com/botvault-sys/botvault-go/crypto/sign"
	"github.com/botvault-sys/botvault-go/protocol/guard"
)

// Default access-policy values, applied when the config leaves a
// field unset.
const (
	defaultMaxRequests      = 5
	defaultRateWindowSecs   = 60
	defaultLockoutThreshold = 5
	defaultLockoutSecs      = 900
)

// Policies contains a server's access policies configuration: the path
// to the audit signing private key, the per-origin request rate limit
// and the failed-login lockout settings.
type Policies struct {
	SignKeyPath      string `toml:"sign_key_path"`
	MaxRequests      int    `toml:"max_requests,omitempty"`
	RateWindowSecs   int    `toml:"rate_window_secs,omitempty"`
	LockoutThreshold int    `toml:"lockout_threshold,omitempty"`
	LockoutSecs      int    `toml:"lockout_secs,omitempty"`
	signKey          sign.PrivateKey
}

// NewPolicies initializes a new Policies struct with the default rate
// and lockout settings.
func NewPolicies(signKeyPath string, signKey sign.PrivateKey) *Policies {
	return &Policies{
		SignKeyPath:      signKeyPath,
		MaxRequests:      defaultMaxRequests,
		RateWindowSecs:   defaultRateWindowSecs,
		LockoutThreshold: defaultLockoutThreshold,
		LockoutSecs:      defaultLockoutSecs,
		signKey:          signKey,
	}
}

// NewRateState builds the in-memory rate state configured by these
// policies, falling back to the defaults for unset values.
func (p *Policies) NewRateState() *guard.RateState {
	maxReq := p.MaxRequests
	if maxReq == 0 {
		maxReq = defaultMaxRequests
	}
	window := p.RateWindowSecs
	if window == 0 {
		window = defaultRateWindowSecs
	}
	threshold := p.LockoutThreshold
	if threshold == 0 {
		threshold = defaultLockoutThreshold
	}
	lockout := p.LockoutSecs
	if lockout == 0 {
		lockout = defaultLockoutSecs
	}
	return guard.NewRateState(maxReq, time.Duration(window)*time.Second,
		threshold, time.Duration(lockout)*time.Second)
}
