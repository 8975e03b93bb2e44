package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/target/noticeboard/config"
	"github.com/target/noticeboard/internal/data"
	apperrors "github.com/target/noticeboard/internal/errors"
	"github.com/target/noticeboard/internal/observability/metrics"
	"github.com/target/noticeboard/internal/observability/statsd"
	"github.com/target/noticeboard/internal/ports"
)

// TokenReaperOptions groups dependencies for TokenReaper.
type TokenReaperOptions struct {
	Tokens       ports.TokenStore         // Required
	Config       config.TokenReaperConfig // Required: interval and batch size
	Validity     time.Duration            // Optional: defaults to DefaultRememberMeValidity
	TimeProvider data.TimeProvider        // Optional
	Logger       *slog.Logger             // Optional
	Metrics      statsd.Sink              // Optional
}

// TokenReaper periodically deletes remember-me series whose last use is
// older than the validity window. Validation already rejects such rows; the
// reaper only keeps the table from growing.
type TokenReaper struct {
	tokens   ports.TokenStore
	config   config.TokenReaperConfig
	validity time.Duration
	clock    data.TimeProvider
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewTokenReaper constructs a TokenReaper.
func NewTokenReaper(opts TokenReaperOptions) (*TokenReaper, error) {
	if opts.Tokens == nil {
		return nil, errors.New("TokenStore is required")
	}
	cfg := opts.Config
	cfg.Sanitize()

	validity := opts.Validity
	if validity <= 0 {
		validity = DefaultRememberMeValidity
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &TokenReaper{
		tokens:   opts.Tokens,
		config:   cfg,
		validity: validity,
		clock:    timeProviderOrDefault(opts.TimeProvider),
		logger:   logger.With("component", "token_reaper"),
		metrics:  opts.Metrics,
	}, nil
}

// Run purges immediately (after a small jitter) and then on every tick until
// ctx is cancelled. Graceful shutdown returns nil.
func (r *TokenReaper) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting token reaper",
		"interval", r.config.Interval,
		"validity", r.validity,
	)

	r.waitWithJitter(ctx)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	if _, err := r.PurgeExpired(ctx); err != nil {
		r.logPurgeError(ctx, err)
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "token reaper stopping", "reason", ctx.Err())
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := r.PurgeExpired(ctx); err != nil {
				r.logPurgeError(ctx, err)
			}
		}
	}
}

// PurgeExpired deletes expired series in batches until a batch comes back
// empty and returns the number of rows removed.
func (r *TokenReaper) PurgeExpired(ctx context.Context) (int64, error) {
	start := time.Now()
	cutoff := r.clock.Now().Add(-r.validity)

	var total int64
	var err error
	for {
		var n int64
		n, err = r.tokens.DeleteExpired(ctx, cutoff, r.config.BatchSize)
		if err != nil {
			err = fmt.Errorf("delete expired remember-me tokens: %w", err)
			break
		}
		total += n
		if n == 0 {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
			break
		}
	}

	metrics.EmitTokenPurge(r.metrics, total, time.Since(start), suppressContextCancellation(err))
	if total > 0 {
		r.logger.InfoContext(ctx, "purged expired remember-me tokens",
			"count", total,
			"cutoff", cutoff,
		)
	}
	return total, err
}

// waitWithJitter delays up to 10% of the interval so replicas do not purge in lockstep.
func (r *TokenReaper) waitWithJitter(ctx context.Context) {
	maxJitter := int64(r.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		r.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	timer := time.NewTimer(jitter)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (r *TokenReaper) logPurgeError(ctx context.Context, err error) {
	level := purgeErrorLevel(err)
	msg := "token purge failed"
	switch level {
	case slog.LevelDebug:
		msg = "token purge cancelled by context"
	case slog.LevelWarn:
		msg = "token purge failed; retrying next tick"
	}
	r.logger.Log(ctx, level, msg, "error", err, "code", apperrors.GetCode(err))
}

// purgeErrorLevel keeps store outages and timeouts out of error-level logs:
// the next tick retries them.
func purgeErrorLevel(err error) slog.Level {
	switch {
	case isContextCancellation(err):
		return slog.LevelDebug
	case apperrors.IsUnavailable(err), apperrors.IsTimeout(err):
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
