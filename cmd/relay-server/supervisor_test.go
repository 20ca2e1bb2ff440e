package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	relay "github.com/coregx/brokerrelay"
	"github.com/coregx/brokerrelay/retry"
)

type scriptedSession struct {
	mu       sync.Mutex
	connects int
	results  []error // per-connect result; beyond the script, connects succeed
	lost     chan error
}

func (s *scriptedSession) Connect(_ context.Context, _ relay.Endpoint, _ relay.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.connects
	s.connects++
	if i < len(s.results) {
		return s.results[i]
	}
	return nil
}

func (s *scriptedSession) Wait(ctx context.Context) error {
	select {
	case err := <-s.lost:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *scriptedSession) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

func fastStrategy(maxAttempts int) retry.Strategy {
	return retry.Strategy{
		MaxAttempts:     maxAttempts,
		BaseDelay:       time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		ExponentialBase: 2.0,
	}
}

func TestSupervise_GivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("refused")
	s := &scriptedSession{results: []error{boom, boom, boom, boom}, lost: make(chan error)}

	err := supervise(context.Background(), s, relay.Endpoint{}, relay.Credentials{}, fastStrategy(2), &relay.NoopLogger{})

	require.Error(t, err)
	assert.Equal(t, 3, s.count())
}

func TestSupervise_ReconnectsAfterLostSession(t *testing.T) {
	s := &scriptedSession{lost: make(chan error, 1)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- supervise(ctx, s, relay.Endpoint{}, relay.Credentials{}, fastStrategy(0), &relay.NoopLogger{})
	}()

	s.lost <- errors.New("connection lost")
	require.Eventually(t, func() bool { return s.count() >= 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("supervise did not stop on cancellation")
	}
}

func TestSupervise_StopsWhenRelayClosed(t *testing.T) {
	s := &scriptedSession{results: []error{relay.ErrClosed}, lost: make(chan error)}

	err := supervise(context.Background(), s, relay.Endpoint{}, relay.Credentials{}, fastStrategy(0), &relay.NoopLogger{})

	assert.NoError(t, err)
	assert.Equal(t, 1, s.count())
}
