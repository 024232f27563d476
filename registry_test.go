package serial

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestOpenNameExclusiveAgainstExisting(t *testing.T) {
	r := newPortRegistry()
	_, err := r.openName("/dev/ttyUSB0", 1, true, true, false)
	require.NoError(t, err)

	_, err = r.openName("/dev/ttyUSB0", 2, true, true, true)
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestOpenNameNonExclusiveCoexist(t *testing.T) {
	r := newPortRegistry()
	_, err := r.openName("/dev/ttyUSB0", 1, true, true, false)
	require.NoError(t, err)

	_, err = r.openName("/dev/ttyUSB0", 2, true, true, false)
	require.NoError(t, err)
	require.True(t, r.isOpen("/dev/ttyUSB0"))
}

func TestOpenNameRejectsAgainstExistingExclusive(t *testing.T) {
	r := newPortRegistry()
	_, err := r.openName("/dev/ttyUSB0", 1, true, true, true)
	require.NoError(t, err)

	_, err = r.openName("/dev/ttyUSB0", 2, true, true, false)
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestRemoveSplicesHandleOutOfName(t *testing.T) {
	r := newPortRegistry()
	_, _ = r.openName("/dev/ttyUSB0", 1, true, true, false)
	_, _ = r.openName("/dev/ttyUSB0", 2, true, true, false)

	r.remove(1)
	_, ok := r.get(1)
	require.False(t, ok)
	require.True(t, r.isOpen("/dev/ttyUSB0"))

	r.remove(2)
	require.False(t, r.isOpen("/dev/ttyUSB0"))
}

func TestDataListenerLifecycle(t *testing.T) {
	r := newPortRegistry()
	_, _ = r.openName("/dev/ttyUSB0", 1, true, true, true)

	token, err := r.setDataListener(1, EventMaskAll)
	require.NoError(t, err)

	_, err = r.setDataListener(1, EventMaskAll)
	require.ErrorIs(t, err, ErrAlreadyHasDataListener)

	data, event := r.hasActiveListeners(1)
	require.True(t, data)
	require.False(t, event)

	require.ErrorIs(t, r.clearDataListener(1, uuid.New()), ErrUnknownListener)
	require.NoError(t, r.clearDataListener(1, token))

	data, _ = r.hasActiveListeners(1)
	require.False(t, data)
}

func TestEventListenerLifecycle(t *testing.T) {
	r := newPortRegistry()
	_, _ = r.openName("/dev/ttyUSB0", 1, true, true, true)

	token, err := r.setEventListener(1, EventCTS)
	require.NoError(t, err)
	require.ErrorIs(t, r.clearEventListener(1, uuid.New()), ErrUnknownListener)
	require.NoError(t, r.clearEventListener(1, token))
}

func TestWatchingFlag(t *testing.T) {
	r := newPortRegistry()
	_, _ = r.openName("/dev/ttyUSB0", 1, true, true, true)
	require.False(t, r.isWatching(1))
	r.setWatching(1, true)
	require.True(t, r.isWatching(1))
	r.setWatching(1, false)
	require.False(t, r.isWatching(1))
}

func TestUnknownHandleOperations(t *testing.T) {
	r := newPortRegistry()
	_, ok := r.get(99)
	require.False(t, ok)

	_, err := r.setDataListener(99, EventMaskAll)
	require.ErrorIs(t, err, ErrUnknownHandle)

	_, err = r.setEventListener(99, EventMaskAll)
	require.ErrorIs(t, err, ErrUnknownHandle)
}
