package relay

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.delivered()
	m.delivered()
	m.decodeFailed()
	m.messagePersisted()
	m.published(true)
	m.published(false)
	m.published(false)
	m.notified(NotifyBroadcast, true)
	m.setState(StateConnected)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.deliveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.persisted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.publishes.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues(NotifyBroadcast, "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.connectionState))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.delivered()
		m.pipelineFailed()
		m.published(true)
		m.notified(NotifyDirect, false)
		m.setState(StateConnecting)
	})
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)

	_, err = NewMetrics(reg)
	assert.True(t, HasCode(err, ErrCodeConfiguration))
}
