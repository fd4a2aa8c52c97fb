package content

import (
	"context"
	"errors"
	"time"

	"dhikr/core"
	"dhikr/metrics"

	"go.uber.org/zap"
)

// Resolver turns a verse reference into content: cache first, then the
// primary provider, then the secondary. Fetched content is written back to
// the cache; entries never expire.
type Resolver struct {
	cache     Cache
	primary   Provider
	secondary Provider
	breaker   *core.CircuitBreaker
	now       func() time.Time
	logger    *zap.SugaredLogger
}

// NewResolver creates a resolver. breaker guards the primary provider and may be nil.
func NewResolver(cache Cache, primary, secondary Provider, breaker *core.CircuitBreaker, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{
		cache:     cache,
		primary:   primary,
		secondary: secondary,
		breaker:   breaker,
		now:       time.Now,
		logger:    logger,
	}
}

// Resolve returns the content for reference in lang.
//
// A malformed reference returns an error wrapping core.ErrInvalidReference
// before any I/O. When neither provider produces data the result is
// (nil, nil). If ctx is done after a provider call, ctx.Err() is returned
// and nothing is written to the cache.
func (r *Resolver) Resolve(ctx context.Context, reference, lang string) (*core.Content, error) {
	ref, err := core.ParseReference(reference)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		lang = core.DefaultLang
	}

	cached, err := r.cache.Get(ctx, ref.Raw, lang)
	if err != nil {
		r.logger.Warnw("Content cache read failed, treating as miss", "reference", ref.Raw, "lang", lang, "error", err)
	} else if cached != nil {
		return core.ContentFromCache(cached), nil
	}

	content, err := r.fetch(ctx, ref, lang)
	if err != nil {
		return nil, err
	}
	if content == nil {
		r.logger.Warnw("No content provider returned data", "reference", ref.Raw, "lang", lang)
		return nil, nil
	}
	content.Reference = ref.Raw

	if err := r.cache.Upsert(ctx, content.ToCached(lang, r.now().UTC())); err != nil {
		r.logger.Warnw("Failed to cache content", "reference", ref.Raw, "lang", lang, "error", err)
	}
	return content, nil
}

// fetch tries the primary then the secondary provider. It only returns an
// error when ctx is done.
func (r *Resolver) fetch(ctx context.Context, ref core.Reference, lang string) (*core.Content, error) {
	if r.primary != nil {
		if r.breaker != nil && r.breaker.Allow() != nil {
			metrics.ContentFetches.WithLabelValues(r.primary.Name(), "skipped").Inc()
			r.logger.Debugw("Primary provider circuit open, skipping", "provider", r.primary.Name())
		} else {
			content, err := r.call(ctx, r.primary, ref, lang)
			r.recordPrimary(ctx, err)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if err == nil {
				return content, nil
			}
		}
	}

	if r.secondary == nil {
		return nil, nil
	}
	content, err := r.call(ctx, r.secondary, ref, lang)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err != nil {
		return nil, nil
	}
	return content, nil
}

func (r *Resolver) call(ctx context.Context, p Provider, ref core.Reference, lang string) (*core.Content, error) {
	start := time.Now()
	content, err := p.Fetch(ctx, ref, lang)
	metrics.ContentFetchDuration.WithLabelValues(p.Name()).Observe(time.Since(start).Seconds())

	if err == nil && content == nil {
		err = errors.New("provider returned no content")
	}
	if err != nil {
		metrics.ContentFetches.WithLabelValues(p.Name(), "error").Inc()
		if ctx.Err() == nil {
			r.logger.Warnw("Content provider failed", "provider", p.Name(), "reference", ref.Raw, "error", err)
		}
		return nil, err
	}

	metrics.ContentFetches.WithLabelValues(p.Name(), "success").Inc()
	return content, nil
}

// recordPrimary feeds the breaker. A cancelled caller is not the provider's
// fault, but a half-open probe must still be resolved.
func (r *Resolver) recordPrimary(ctx context.Context, err error) {
	if r.breaker == nil {
		return
	}
	switch {
	case err == nil:
		r.breaker.RecordSuccess()
	case ctx.Err() == nil:
		if r.breaker.RecordFailure() == core.CircuitBreakerStateOpen {
			r.logger.Warnw("Primary provider circuit opened", "provider", r.primary.Name(), "failures", r.breaker.Failures())
		}
	case r.breaker.State() == core.CircuitBreakerStateHalfOpen:
		r.breaker.RecordFailure()
	}
}
