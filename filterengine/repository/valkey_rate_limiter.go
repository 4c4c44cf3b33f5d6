package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-smartfilter/filterengine/domain"
	"github.com/AzielCF/az-smartfilter/infrastructure/valkey"
	"github.com/sirupsen/logrus"
)

// ValkeyRateLimiter counts with INCR and lets PEXPIRE close the window,
// so idle windows need no sweep. PEXPIRE NX rides along with every INCR, so a
// counter whose expiry was lost gets one again on the next request.
type ValkeyRateLimiter struct {
	client *valkey.Client
	prefix string
}

func NewValkeyRateLimiter(client *valkey.Client) *ValkeyRateLimiter {
	return &ValkeyRateLimiter{
		client: client,
		prefix: client.Key("rate") + ":",
	}
}

// Check fails open when Valkey is unreachable.
func (l *ValkeyRateLimiter) Check(ctx context.Context, key string, maxRequests int, window time.Duration) domain.RateDecision {
	inner := l.client.Inner()
	full := l.prefix + key

	resps := inner.DoMulti(ctx,
		inner.B().Incr().Key(full).Build(),
		inner.B().Pexpire().Key(full).Milliseconds(window.Milliseconds()).Nx().Build(),
	)
	count, err := resps[0].AsInt64()
	if err != nil {
		logrus.WithError(err).Warnf("[RATELIMIT] Valkey incr failed for %s, allowing", key)
		return domain.RateDecision{Allowed: true, Remaining: maxRequests}
	}
	if err := resps[1].Error(); err != nil {
		logrus.WithError(err).Warnf("[RATELIMIT] Valkey pexpire failed for %s", key)
	}

	if int(count) > maxRequests {
		return domain.RateDecision{Allowed: false, Remaining: 0}
	}
	return domain.RateDecision{Allowed: true, Remaining: maxRequests - int(count)}
}
