package serial

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherDataDelivery(t *testing.T) {
	adapter := newFakeAdapter()
	d := newDispatcher()

	var mu sync.Mutex
	var received [][]byte
	done := make(chan struct{}, 10)

	err := d.startData(1, adapter, func(handle int, data []byte) {
		mu.Lock()
		received = append(received, data)
		mu.Unlock()
		done <- struct{}{}
	})
	require.NoError(t, err)

	adapter.pushData(1, []byte("hello"))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for data delivery")
	}

	mu.Lock()
	require.Equal(t, [][]byte{[]byte("hello")}, received)
	mu.Unlock()

	d.stopData(1, adapter)
}

func TestDispatcherPauseSuppressesDelivery(t *testing.T) {
	adapter := newFakeAdapter()
	d := newDispatcher()

	count := make(chan struct{}, 10)
	err := d.startData(1, adapter, func(handle int, data []byte) { count <- struct{}{} })
	require.NoError(t, err)

	d.pauseData(1)
	adapter.pushData(1, []byte("ignored"))

	select {
	case <-count:
		t.Fatal("callback fired while paused")
	case <-time.After(100 * time.Millisecond):
	}

	d.resumeData(1)
	adapter.pushData(1, []byte("seen"))
	select {
	case <-count:
	case <-time.After(time.Second):
		t.Fatal("callback never fired after resume")
	}

	d.stopData(1, adapter)
}

func TestDispatcherEventMaskFiltering(t *testing.T) {
	adapter := newFakeAdapter()
	d := newDispatcher()

	got := make(chan EventMask, 10)
	err := d.startEvent(1, adapter, func() EventMask { return EventCTS }, func(handle int, mask EventMask) { got <- mask })
	require.NoError(t, err)

	adapter.pushEvent(1, EventDSR)
	select {
	case <-got:
		t.Fatal("unmasked event delivered")
	case <-time.After(100 * time.Millisecond):
	}

	adapter.pushEvent(1, EventCTS|EventDSR)
	select {
	case m := <-got:
		require.Equal(t, EventCTS, m)
	case <-time.After(time.Second):
		t.Fatal("masked event never delivered")
	}

	d.stopEvent(1, adapter)
}

func TestDispatcherEventMaskIsLiveNotCapturedAtRegistration(t *testing.T) {
	adapter := newFakeAdapter()
	d := newDispatcher()

	var mu sync.Mutex
	mask := EventCTS
	got := make(chan EventMask, 10)
	err := d.startEvent(1, adapter, func() EventMask {
		mu.Lock()
		defer mu.Unlock()
		return mask
	}, func(handle int, m EventMask) { got <- m })
	require.NoError(t, err)

	adapter.pushEvent(1, EventDSR)
	select {
	case <-got:
		t.Fatal("event matching the old mask should not have been delivered")
	case <-time.After(100 * time.Millisecond):
	}

	mu.Lock()
	mask = EventDSR
	mu.Unlock()

	adapter.pushEvent(1, EventDSR)
	select {
	case m := <-got:
		require.Equal(t, EventDSR, m)
	case <-time.After(time.Second):
		t.Fatal("event matching the updated mask was never delivered")
	}

	d.stopEvent(1, adapter)
}

func TestDispatcherStopIsIdempotentForUnknownHandle(t *testing.T) {
	adapter := newFakeAdapter()
	d := newDispatcher()
	d.stopData(42, adapter)
	d.stopEvent(42, adapter)
}
