package serial

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestManager() (*Manager, *fakeAdapter) {
	adapter := newFakeAdapter()
	m := &Manager{
		adapter:    adapter,
		registry:   newPortRegistry(),
		dispatcher: newDispatcher(),
		hotplug:    newHotplugMonitor(),
	}
	return m, adapter
}

func TestManagerOpenRequiresReadOrWrite(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.Open("/dev/ttyUSB0", false, false, true)
	require.ErrorIs(t, err, ErrInvalidArg)
}

func TestManagerOpenCloseRoundTrip(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, handle, 0)

	require.NoError(t, m.Close(handle))
	require.ErrorIs(t, m.Close(handle), ErrUnknownHandle)
}

func TestManagerCloseRefusedWithActiveDataListener(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	token, err := m.RegisterDataListener(handle, func(data []byte) {})
	require.NoError(t, err)

	require.ErrorIs(t, m.Close(handle), ErrMustUnregisterData)

	require.NoError(t, m.UnregisterDataListener(token))
	require.NoError(t, m.Close(handle))
}

func TestManagerCloseRefusedWithActiveEventListener(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	token, err := m.RegisterEventListener(handle, EventMaskAll, func(mask EventMask) {})
	require.NoError(t, err)

	require.ErrorIs(t, m.Close(handle), ErrMustUnregisterEvent)

	require.NoError(t, m.UnregisterEventListener(token))
	require.NoError(t, m.Close(handle))
}

func TestManagerWriteReadBytes(t *testing.T) {
	m, adapter := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	n, err := m.WriteBytes(handle, []byte("ping"), 0)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	require.Equal(t, []byte("ping"), adapter.writtenBytes(handle))

	adapter.feedRead(handle, []byte("pong"))
	data, err := m.ReadBytes(handle, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("pong"), data)
}

func TestManagerUnknownHandleOperationsFail(t *testing.T) {
	m, _ := newTestManager()
	_, err := m.ReadBytes(99, 0)
	require.ErrorIs(t, err, ErrUnknownHandle)

	err = m.Configure(99, DefaultConfig())
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestManagerDataListenerDelivery(t *testing.T) {
	m, adapter := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	got := make(chan []byte, 1)
	token, err := m.RegisterDataListener(handle, func(data []byte) { got <- data })
	require.NoError(t, err)

	_, err = m.RegisterDataListener(handle, func(data []byte) {})
	require.ErrorIs(t, err, ErrAlreadyHasDataListener)

	adapter.pushData(handle, []byte("live"))
	select {
	case data := <-got:
		require.Equal(t, []byte("live"), data)
	case <-time.After(time.Second):
		t.Fatal("data listener never fired")
	}

	require.NoError(t, m.UnregisterDataListener(token))
}

func TestManagerPortMonitorLifecycle(t *testing.T) {
	m, adapter := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	got := make(chan PortMonitorEvent, 1)
	require.NoError(t, m.RegisterPortMonitor(handle, func(ev PortMonitorEvent) { got <- ev }))
	require.ErrorIs(t, m.Close(handle), ErrMustUnregisterEvent)

	adapter.pushPortEvent(handle, PortRemoved)
	select {
	case ev := <-got:
		require.Equal(t, PortRemoved, ev)
	case <-time.After(time.Second):
		t.Fatal("port monitor never fired")
	}

	require.NoError(t, m.UnregisterPortMonitor(handle))
	require.NoError(t, m.Close(handle))
}

func TestManagerConfigureRejectsBadCustomBaud(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Baud = BaudCustom
	require.ErrorIs(t, m.Configure(handle, cfg), ErrInvalidArg)
}

func TestManagerOpenRejectsNullName(t *testing.T) {
	m, adapter := newTestManager()
	_, err := m.Open("", true, true, true)
	require.ErrorIs(t, err, ErrNullArg)
	require.Equal(t, 0, adapter.openCallCount())
}

func TestManagerOpenExclusiveShortCircuitsWithoutTouchingAdapter(t *testing.T) {
	m, adapter := newTestManager()
	first, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, first, 0)
	require.Equal(t, 1, adapter.openCallCount())

	second, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)
	require.Equal(t, -1, second)
	require.Equal(t, 1, adapter.openCallCount(), "exclusive open must not reach the adapter on collision")
}

func TestManagerOpenNonExclusiveAgainstExistingExclusiveIsAnError(t *testing.T) {
	m, adapter := newTestManager()
	_, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)
	require.Equal(t, 1, adapter.openCallCount())

	_, err = m.Open("/dev/ttyUSB0", true, true, false)
	require.ErrorIs(t, err, ErrInvalidArg)
	require.Equal(t, 2, adapter.openCallCount(), "non-exclusive collisions are detected after the adapter round-trip")
}

func TestManagerOpenNonExclusiveCoexistWithNonExclusive(t *testing.T) {
	m, _ := newTestManager()
	first, err := m.Open("/dev/ttyUSB0", true, true, false)
	require.NoError(t, err)
	second, err := m.Open("/dev/ttyUSB0", true, true, false)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestManagerRegisterDataListenerRejectsNilCallback(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	_, err = m.RegisterDataListener(handle, nil)
	require.ErrorIs(t, err, ErrNullArg)
}

func TestManagerRegisterEventListenerRejectsNilCallback(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	_, err = m.RegisterEventListener(handle, EventMaskAll, nil)
	require.ErrorIs(t, err, ErrNullArg)
}

func TestManagerSetAndGetEventMask(t *testing.T) {
	m, adapter := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	got := make(chan EventMask, 10)
	token, err := m.RegisterEventListener(handle, EventCTS, func(mask EventMask) { got <- mask })
	require.NoError(t, err)

	mask, err := m.GetEventMask(token)
	require.NoError(t, err)
	require.Equal(t, EventCTS, mask)

	adapter.pushEvent(handle, EventDSR)
	select {
	case <-got:
		t.Fatal("event outside the original mask should not have been delivered")
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, m.SetEventMask(token, EventDSR))
	mask, err = m.GetEventMask(token)
	require.NoError(t, err)
	require.Equal(t, EventDSR, mask)

	adapter.pushEvent(handle, EventDSR)
	select {
	case m := <-got:
		require.Equal(t, EventDSR, m)
	case <-time.After(time.Second):
		t.Fatal("event matching the updated mask was never delivered")
	}

	require.NoError(t, m.UnregisterEventListener(token))
}

func TestManagerSetEventMaskFailsWithoutActiveListener(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	require.ErrorIs(t, m.SetEventMask(ListenerToken{handle: handle}, EventCTS), ErrUnknownListener)
	_, err = m.GetEventMask(ListenerToken{handle: handle})
	require.ErrorIs(t, err, ErrUnknownListener)
}

func TestManagerWriteIntWidths(t *testing.T) {
	m, adapter := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	require.NoError(t, m.WriteInt(handle, 650, EndianBig, 2))
	require.Equal(t, []byte{0x02, 0x8A}, adapter.writtenBytes(handle))
}

func TestManagerClearIOBuffersAndSendBreakAcquireFacadeMutex(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	// Not deadlocking here is the point: both methods must take and
	// release the same mutex rather than one leaving it held.
	require.NoError(t, m.ClearIOBuffers(handle, true, true))
	require.NoError(t, m.SendBreak(handle, 50))
	require.NoError(t, m.ClearIOBuffers(handle, true, true))
}

func TestManagerSendFileRejectsUnknownHandle(t *testing.T) {
	m, _ := newTestManager()
	err := m.SendFile(99, "/nonexistent", ProtocolXMODEM)
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestManagerReceiveFileRejectsUnknownHandle(t *testing.T) {
	m, _ := newTestManager()
	err := m.ReceiveFile(99, "/nonexistent", ProtocolXMODEM)
	require.ErrorIs(t, err, ErrUnknownHandle)
}

func TestManagerSendFileRejectsUnknownProtocol(t *testing.T) {
	m, _ := newTestManager()
	handle, err := m.Open("/dev/ttyUSB0", true, true, true)
	require.NoError(t, err)

	err = m.SendFile(handle, "/nonexistent", FileTransferProtocol(99))
	require.ErrorIs(t, err, ErrInvalidArg)
}
