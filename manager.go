// Package serial is a cross-platform serial port and HID device
// access library. Manager is its entry point: a single façade over
// platform-specific open/configure/read/write/modem-line/hotplug
// operations, addressed by small integer handles rather than typed
// port objects, so a caller can hold one Manager for the process and
// juggle many ports through it.
package serial

import (
	"bufio"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/daedaluz/goserial2/xmodem"
)

// Manager is the Manager Façade (C10), composing the Native Adapter
// (C1), Port Registry (C4), Read/Write Façade (C5), Port Configurator
// (C6), Dispatcher/Looper (C7/C8), and Hotplug Monitor (C9) behind the
// single entry point a caller addresses by integer handle. mu guards
// only the operations documented to be additionally synchronized at
// the façade level (ClearIOBuffers, SendBreak); everything else
// serializes through the registry's own lock.
type Manager struct {
	adapter    nativeAdapter
	registry   *portRegistry
	dispatcher *dispatcher
	hotplug    *hotplugMonitor

	mu sync.Mutex
}

// NewManager constructs a Manager bound to the current platform's
// native adapter. Callers normally want exactly one of these per
// process.
func NewManager() *Manager {
	return &Manager{
		adapter:    newPlatformAdapter(),
		registry:   newPortRegistry(),
		dispatcher: newDispatcher(),
		hotplug:    newHotplugMonitor(),
	}
}

// ListPorts enumerates candidate device paths on this platform.
func (m *Manager) ListPorts() []string {
	return m.adapter.ListPorts()
}

// Open registers and opens name, returning a handle for use with every
// other Manager method. Windows requires exclusive access; requesting
// non-exclusive there is ErrPlatformConstraint. If exclusive is true
// and a handle already exists for name in this process, Open returns
// the sentinel (-1, nil) without ever calling the adapter.
func (m *Manager) Open(name string, enableRead, enableWrite, exclusive bool) (int, error) {
	if name == "" {
		return -1, ErrNullArg
	}
	if !enableRead && !enableWrite {
		return -1, ErrInvalidArg
	}
	if currentPlatform == PlatformWindows && !exclusive {
		return -1, ErrPlatformConstraint
	}
	if exclusive && m.registry.isOpen(name) {
		return -1, nil
	}

	rc := m.adapter.Open(name, enableRead, enableWrite, exclusive)
	if rc < 0 {
		return -1, newIOError(rc)
	}

	if _, err := m.registry.openName(name, rc, enableRead, enableWrite, exclusive); err != nil {
		m.adapter.Close(rc)
		return -1, err
	}

	logger().Info("port opened", zap.String("name", name), zap.Int("handle", rc), zap.Bool("exclusive", exclusive))
	return rc, nil
}

// Close closes handle, refusing if a data or event
// listener is still registered on it.
func (m *Manager) Close(handle int) error {
	if _, ok := m.registry.get(handle); !ok {
		return ErrUnknownHandle
	}
	if data, event := m.registry.hasActiveListeners(handle); data {
		return ErrMustUnregisterData
	} else if event {
		return ErrMustUnregisterEvent
	}
	if m.registry.isWatching(handle) {
		return ErrMustUnregisterEvent
	}

	rc := m.adapter.Close(handle)
	if rc < 0 {
		return newIOError(rc)
	}
	// Only remove the registry record once the native close actually
	// succeeds: a failed close leaves handle valid
	// for the caller to retry rather than silently forgetting it.
	m.registry.remove(handle)
	logger().Info("port closed", zap.Int("handle", handle))
	return nil
}

func (m *Manager) requireHandle(handle int) error {
	if _, ok := m.registry.get(handle); !ok {
		return ErrUnknownHandle
	}
	return nil
}

// Configure applies framing/baud/flow-control settings to handle.
func (m *Manager) Configure(handle int, cfg Config) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	return configure(m.adapter, handle, cfg)
}

// CurrentConfiguration returns the adapter's raw configuration vector
// for handle (platform-specific string encoding, useful for
// diagnostics rather than programmatic parsing).
func (m *Manager) CurrentConfiguration(handle int) ([]string, error) {
	if err := m.requireHandle(handle); err != nil {
		return nil, err
	}
	return currentConfiguration(m.adapter, handle), nil
}

// WriteBytes writes data to handle, optionally pacing transmission
// with interByteDelayMs between bytes.
func (m *Manager) WriteBytes(handle int, data []byte, interByteDelayMs int) (int, error) {
	if err := m.requireHandle(handle); err != nil {
		return 0, err
	}
	return writeBytes(m.adapter, handle, data, interByteDelayMs)
}

func (m *Manager) WriteSingleByte(handle int, b byte) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	return writeSingleByte(m.adapter, handle, b)
}

func (m *Manager) WriteString(handle int, s, charset string, interByteDelayMs int) (int, error) {
	if err := m.requireHandle(handle); err != nil {
		return 0, err
	}
	return writeString(m.adapter, handle, s, charset, interByteDelayMs)
}

// WriteInt packs v into width bytes (2 or 4) using endian's byte order
// before writing; width=2 truncates v's high bits silently.
func (m *Manager) WriteInt(handle int, v int32, endian Endian, width int) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	return writeInt(m.adapter, handle, v, endian, width)
}

func (m *Manager) WriteIntArray(handle int, values []int32, endian Endian, width int) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	return writeIntArray(m.adapter, handle, values, endian, width)
}

// ReadBytes reads up to n bytes (DefaultReadSize if n<=0). A nil,nil
// return means no data is currently available, not an error.
func (m *Manager) ReadBytes(handle int, n int) ([]byte, error) {
	if err := m.requireHandle(handle); err != nil {
		return nil, err
	}
	return readBytes(m.adapter, handle, n)
}

func (m *Manager) ReadSingleByte(handle int) (byte, bool, error) {
	if err := m.requireHandle(handle); err != nil {
		return 0, false, err
	}
	return readSingleByte(m.adapter, handle)
}

func (m *Manager) ReadString(handle int, n int, charset string) (string, error) {
	if err := m.requireHandle(handle); err != nil {
		return "", err
	}
	return readString(m.adapter, handle, n, charset)
}

// SetMinDataLength configures the POSIX VMIN-equivalent minimum read
// size; returns false on platforms without the concept (Windows).
func (m *Manager) SetMinDataLength(handle int, n int) (bool, error) {
	if err := m.requireHandle(handle); err != nil {
		return false, err
	}
	return setMinDataLength(m.adapter, handle, n), nil
}

// SetRTS/SetDTR drive the modem-control output lines directly,
// independent of the data/event listener machinery.
func (m *Manager) SetRTS(handle int, asserted bool) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	if rc := m.adapter.SetRTS(handle, asserted); rc < 0 {
		return newIOError(rc)
	}
	return nil
}

func (m *Manager) SetDTR(handle int, asserted bool) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	if rc := m.adapter.SetDTR(handle, asserted); rc < 0 {
		return newIOError(rc)
	}
	return nil
}

// ClearIOBuffers additionally holds the façade-level mutex, unlike the
// rest of the Read/Write Façade's methods.
func (m *Manager) ClearIOBuffers(handle int, rx, tx bool) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rc := m.adapter.ClearIOBuffers(handle, rx, tx); rc < 0 {
		return newIOError(rc)
	}
	return nil
}

// SendBreak additionally holds the façade-level mutex, unlike the rest
// of the Read/Write Façade's methods.
func (m *Manager) SendBreak(handle int, durationMs int) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rc := m.adapter.SendBreak(handle, durationMs); rc < 0 {
		return newIOError(rc)
	}
	return nil
}

func (m *Manager) InterruptCounts(handle int) (InterruptCounts, error) {
	if err := m.requireHandle(handle); err != nil {
		return InterruptCounts{}, err
	}
	return m.adapter.InterruptCounts(handle), nil
}

func (m *Manager) LineStatus(handle int) (LineStatus, error) {
	if err := m.requireHandle(handle); err != nil {
		return LineStatus{}, err
	}
	return m.adapter.LineStatus(handle), nil
}

func (m *Manager) IOBufferByteCounts(handle int) (rxCount, txCount int, err error) {
	if err := m.requireHandle(handle); err != nil {
		return 0, 0, err
	}
	rx, tx := m.adapter.IOBufferByteCounts(handle)
	return rx, tx, nil
}

// RegisterDataListener starts background delivery of raw received
// bytes to cb and returns an opaque token for UnregisterDataListener.
// Only one data listener may be active per handle at a time.
func (m *Manager) RegisterDataListener(handle int, cb func(data []byte)) (ListenerToken, error) {
	if cb == nil {
		return ListenerToken{}, ErrNullArg
	}
	if err := m.requireHandle(handle); err != nil {
		return ListenerToken{}, err
	}
	token, err := m.registry.setDataListener(handle, EventMaskAll)
	if err != nil {
		return ListenerToken{}, err
	}
	if err := m.dispatcher.startData(handle, m.adapter, func(h int, data []byte) { cb(data) }); err != nil {
		m.registry.clearDataListener(handle, token)
		return ListenerToken{}, err
	}
	return ListenerToken{handle: handle, id: token}, nil
}

func (m *Manager) UnregisterDataListener(token ListenerToken) error {
	if err := m.registry.clearDataListener(token.handle, token.id); err != nil {
		return err
	}
	m.dispatcher.stopData(token.handle, m.adapter)
	return nil
}

func (m *Manager) PauseDataListener(token ListenerToken) { m.dispatcher.pauseData(token.handle) }
func (m *Manager) ResumeDataListener(token ListenerToken) { m.dispatcher.resumeData(token.handle) }

// RegisterEventListener starts background delivery of line-status
// change events matching mask. Only one event listener may be active
// per handle at a time.
func (m *Manager) RegisterEventListener(handle int, mask EventMask, cb func(mask EventMask)) (ListenerToken, error) {
	if cb == nil {
		return ListenerToken{}, ErrNullArg
	}
	if err := m.requireHandle(handle); err != nil {
		return ListenerToken{}, err
	}
	token, err := m.registry.setEventListener(handle, mask)
	if err != nil {
		return ListenerToken{}, err
	}
	currentMask := func() EventMask {
		em, _ := m.registry.getEventMask(handle)
		return em
	}
	if err := m.dispatcher.startEvent(handle, m.adapter, currentMask, func(h int, ev EventMask) { cb(ev) }); err != nil {
		m.registry.clearEventListener(handle, token)
		return ListenerToken{}, err
	}
	return ListenerToken{handle: handle, id: token}, nil
}

// SetEventMask updates the live mask consulted by tok's event
// listener; it takes effect on the next event delivered after this
// call returns. Fails with UnknownListener if tok has no active event
// listener.
func (m *Manager) SetEventMask(tok ListenerToken, mask EventMask) error {
	return m.registry.setEventMask(tok.handle, mask)
}

// GetEventMask returns the live mask currently consulted by tok's
// event listener.
func (m *Manager) GetEventMask(tok ListenerToken) (EventMask, error) {
	return m.registry.getEventMask(tok.handle)
}

func (m *Manager) UnregisterEventListener(token ListenerToken) error {
	if err := m.registry.clearEventListener(token.handle, token.id); err != nil {
		return err
	}
	m.dispatcher.stopEvent(token.handle, m.adapter)
	return nil
}

func (m *Manager) PauseEventListener(token ListenerToken)  { m.dispatcher.pauseEvent(token.handle) }
func (m *Manager) ResumeEventListener(token ListenerToken) { m.dispatcher.resumeEvent(token.handle) }

// RegisterPortMonitor watches for the add/remove of handle's
// underlying device node. Linux only; other platforms return
// ErrPlatformConstraint (see hotplug_other.go).
func (m *Manager) RegisterPortMonitor(handle int, cb func(event PortMonitorEvent)) error {
	info, ok := m.registry.get(handle)
	if !ok {
		return ErrUnknownHandle
	}
	if err := m.hotplug.register(handle, m.adapter, info.name, func(h int, ev PortMonitorEvent) { cb(ev) }); err != nil {
		return err
	}
	m.registry.setWatching(handle, true)
	return nil
}

func (m *Manager) UnregisterPortMonitor(handle int) error {
	if err := m.hotplug.unregister(handle, m.adapter); err != nil {
		return err
	}
	m.registry.setWatching(handle, false)
	return nil
}

// portReadWriter adapts a handle's WriteBytes/ReadBytes pair into an
// io.ReadWriter, the shape file-transfer protocols expect. ReadBytes
// returning nil,nil means no data yet rather than EOF, so Read polls
// rather than returning a short read.
type portReadWriter struct {
	mgr    *Manager
	handle int
}

func (p *portReadWriter) Write(data []byte) (int, error) {
	return p.mgr.WriteBytes(p.handle, data, 0)
}

func (p *portReadWriter) Read(buf []byte) (int, error) {
	for {
		data, err := p.mgr.ReadBytes(p.handle, len(buf))
		if err != nil {
			return 0, err
		}
		if len(data) > 0 {
			return copy(buf, data), nil
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// SendFile transmits the file at path over handle using proto,
// delegating to the XMODEM collaborator after validating handle.
func (m *Manager) SendFile(handle int, path string, proto FileTransferProtocol) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	if proto != ProtocolXMODEM {
		return ErrInvalidArg
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	rw := &portReadWriter{mgr: m, handle: handle}
	return xmodem.Send(rw, bufio.NewReader(f), rw)
}

// ReceiveFile writes an incoming XMODEM transfer on handle to path,
// delegating to the XMODEM collaborator after validating handle.
func (m *Manager) ReceiveFile(handle int, path string, proto FileTransferProtocol) error {
	if err := m.requireHandle(handle); err != nil {
		return err
	}
	if proto != ProtocolXMODEM {
		return ErrInvalidArg
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	rw := &portReadWriter{mgr: m, handle: handle}
	return xmodem.Receive(rw, xmodem.WithReadTimeout(rw, 30*time.Second), out)
}

// ListenerToken is an opaque identity: callers compare/store it but
// never rely on its internal shape.
type ListenerToken struct {
	handle int
	id     uuid.UUID
}
