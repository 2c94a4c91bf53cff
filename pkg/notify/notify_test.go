package notify

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/pkg/messaging/file"
	"github.com/jwalitptl/patient-registry/pkg/messaging/memory"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("change not observed")
	}
}

func TestNotifyReachesOtherContextsOnly(t *testing.T) {
	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })
	m := metrics.New("test")
	hub := New(broker, "", nil, m)
	assert.Equal(t, DefaultKey, hub.Key())

	a := hub.Peer("tab-a")
	b := hub.Peer("tab-b")

	var aCount, bCount atomic.Int32
	bSeen := make(chan struct{}, 4)

	stopA, err := a.OnChanged(func() { aCount.Add(1) })
	require.NoError(t, err)
	defer stopA()
	stopB, err := b.OnChanged(func() {
		bCount.Add(1)
		bSeen <- struct{}{}
	})
	require.NoError(t, err)
	defer stopB()

	require.NoError(t, a.NotifyChanged(context.Background()))
	waitFor(t, bSeen)

	// Give a stray duplicate time to show up.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), bCount.Load())
	assert.Equal(t, int32(0), aCount.Load())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChangesPublished.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ChangesReceived))
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })
	hub := New(broker, DefaultKey, nil, nil)

	var count atomic.Int32
	stop, err := hub.Peer("b").OnChanged(func() { count.Add(1) })
	require.NoError(t, err)

	stop()
	stop()
	assert.Equal(t, 0, broker.Subscribers(DefaultKey))

	require.NoError(t, hub.Peer("a").NotifyChanged(context.Background()))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestIdleContextNeverReloads(t *testing.T) {
	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })
	hub := New(broker, DefaultKey, nil, nil)

	var count atomic.Int32
	stop, err := hub.Peer("idle").OnChanged(func() { count.Add(1) })
	require.NoError(t, err)
	defer stop()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), count.Load())
}

func TestMalformedEventsAreIgnored(t *testing.T) {
	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })
	hub := New(broker, DefaultKey, nil, nil)

	seen := make(chan struct{}, 4)
	stop, err := hub.Peer("b").OnChanged(func() { seen <- struct{}{} })
	require.NoError(t, err)
	defer stop()

	// A plain string does not decode into an Event.
	require.NoError(t, broker.Publish(context.Background(), DefaultKey, "garbage"))
	require.NoError(t, hub.Peer("a").NotifyChanged(context.Background()))

	waitFor(t, seen)
	select {
	case <-seen:
		t.Fatal("malformed event delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifyAcrossProcessesThroughFiles(t *testing.T) {
	dir := t.TempDir()
	first, err := file.NewBroker(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { first.Close() })
	second, err := file.NewBroker(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	seen := make(chan struct{}, 4)
	stop, err := New(second, DefaultKey, nil, nil).Peer("tab-b").OnChanged(func() { seen <- struct{}{} })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, New(first, DefaultKey, nil, nil).Peer("tab-a").NotifyChanged(context.Background()))
	waitFor(t, seen)
}
