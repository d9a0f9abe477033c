package whatsapp

import (
	"context"
	"errors"
	"time"

	"github.com/ailab/linkguard/internal/setup/config"
	"github.com/cenkalti/backoff/v4"
	"go.mau.fi/whatsmeow"
	"go.uber.org/zap"
)

// connector opens the protocol connection.
type connector interface {
	Connect() error
}

// newBackOff builds the delay policy between reconnect attempts. Zero
// intervals retry immediately, otherwise delays grow exponentially up to
// the maximum. Attempts never stop on their own.
func newBackOff(cfg *config.Reconnect) backoff.BackOff {
	if cfg.InitialInterval <= 0 && cfg.MaxInterval <= 0 {
		return &backoff.ZeroBackOff{}
	}

	initial := time.Duration(cfg.InitialInterval) * time.Millisecond
	maximum := time.Duration(cfg.MaxInterval) * time.Millisecond

	if initial <= 0 {
		initial = maximum
	}

	if maximum < initial {
		maximum = initial
	}

	return backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(initial),
		backoff.WithMaxInterval(maximum),
		backoff.WithMaxElapsedTime(0),
	)
}

// reconnect calls Connect until it succeeds or ctx is done.
// An already open connection counts as success.
func reconnect(ctx context.Context, conn connector, policy backoff.BackOff, logger *zap.Logger) error {
	policy.Reset()

	attempt := 0
	operation := func() error {
		attempt++

		err := conn.Connect()
		if err == nil || errors.Is(err, whatsmeow.ErrAlreadyConnected) {
			return nil
		}

		return err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("Reconnect attempt failed",
			zap.Int("attempt", attempt),
			zap.Duration("retryIn", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(policy, ctx), notify); err != nil {
		return err
	}

	logger.Info("Reconnected", zap.Int("attempts", attempt))

	return nil
}
