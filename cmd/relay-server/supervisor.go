package main

import (
	"context"
	"errors"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/retry"
)

// session is the part of the relay the supervisor drives.
type session interface {
	Connect(ctx context.Context, endpoint relay.Endpoint, creds relay.Credentials) error
	Wait(ctx context.Context) error
}

// supervise keeps a broker session up until ctx is cancelled. Failed connects
// and lost sessions are retried with strategy's backoff; a session that was
// established resets the attempt counter.
func supervise(
	ctx context.Context,
	r session,
	endpoint relay.Endpoint,
	creds relay.Credentials,
	strategy retry.Strategy,
	logger relay.Logger,
) error {
	attempt := 0
	for {
		err := r.Connect(ctx, endpoint, creds)
		if err == nil {
			attempt = 0
			err = r.Wait(ctx)
			if ctx.Err() != nil {
				return nil
			}
			logger.Warnf("Broker session ended: %v", err)
		} else {
			if errors.Is(err, relay.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			logger.Errorf("Connect attempt %d failed: %v", attempt+1, err)
		}

		if !strategy.IsRetryable(attempt) {
			return errors.New("giving up on broker connection after repeated failures")
		}
		delay := strategy.CalculateRetryDelay(attempt)
		logger.Infof("Reconnecting in %s", delay)
		if err := strategy.Wait(ctx, attempt); err != nil {
			return nil
		}
		attempt++
	}
}
