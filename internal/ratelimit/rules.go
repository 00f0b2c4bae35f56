package ratelimit

import (
	"errors"
	"time"

	"github.com/Proton-105/koi-bot/pkg/config"
)

// ErrRuleDisabled is returned for rules without a window or limit.
var ErrRuleDisabled = errors.New("rate limit rule is disabled")

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config config.RateLimitConfig
}

// NewRules constructs rate limiting rules from configuration settings.
func NewRules(cfg config.RateLimitConfig) *Rules {
	return &Rules{config: cfg}
}

// IsWhitelisted returns true if the userID bypasses rate limits.
func (r *Rules) IsWhitelisted(userID int64) bool {
	for _, id := range r.config.Whitelist {
		if id == userID {
			return true
		}
	}
	return false
}

// GetGlobalLimit returns the rule shared by all users.
func (r *Rules) GetGlobalLimit() (int, time.Duration, error) {
	return parseRule(r.config.Global)
}

// GetPerUserLimit returns the per-user rule for messages and commands.
func (r *Rules) GetPerUserLimit() (int, time.Duration, error) {
	return parseRule(r.config.PerUser)
}

// GetCallbackLimit returns the per-user rule for button taps. Without a
// dedicated callbacks rule the per-user rule applies.
func (r *Rules) GetCallbackLimit() (int, time.Duration, error) {
	if r.config.Callbacks.Window == "" {
		return r.GetPerUserLimit()
	}
	return parseRule(r.config.Callbacks)
}

func parseRule(rule config.RateLimitRule) (int, time.Duration, error) {
	if rule.Window == "" || rule.Limit <= 0 {
		return 0, 0, ErrRuleDisabled
	}
	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, err
	}
	return rule.Limit, window, nil
}
