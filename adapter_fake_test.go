package serial

import "sync"

// fakeAdapter is an in-memory nativeAdapter stand-in for exercising
// the registry/dispatcher/rw/manager layers without a real device,
// the same role a loopback pty plays for adapter_linux_test.go.
type fakeAdapter struct {
	mu sync.Mutex

	ports []string

	nextHandle int
	open       map[int]bool
	openCalls  int

	writeBuf map[int][]byte
	readBuf  map[int][]byte

	dataCh  map[int]chan []byte
	eventCh map[int]chan EventMask

	portCh map[int]chan PortMonitorEvent

	lastConfig map[int]Config
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		open:       make(map[int]bool),
		writeBuf:   make(map[int][]byte),
		readBuf:    make(map[int][]byte),
		dataCh:     make(map[int]chan []byte),
		eventCh:    make(map[int]chan EventMask),
		portCh:     make(map[int]chan PortMonitorEvent),
		lastConfig: make(map[int]Config),
	}
}

func (f *fakeAdapter) ListPorts() []string { return f.ports }

func (f *fakeAdapter) Open(name string, enableRead, enableWrite, exclusive bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openCalls++
	h := f.nextHandle
	f.nextHandle++
	f.open[h] = true
	return h
}

func (f *fakeAdapter) openCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.openCalls
}

func (f *fakeAdapter) Close(handle int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open[handle] {
		return -1
	}
	delete(f.open, handle)
	return 0
}

func (f *fakeAdapter) Write(handle int, data []byte, interByteDelayMs int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeBuf[handle] = append(f.writeBuf[handle], data...)
	return len(data)
}

func (f *fakeAdapter) Read(handle int, buf []byte) (int, readStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := f.readBuf[handle]
	if len(pending) == 0 {
		return 0, readNoData
	}
	n := copy(buf, pending)
	f.readBuf[handle] = pending[n:]
	return n, readData
}

// feedRead appends bytes a real device would have received, for
// ReadBytes/data-listener tests to consume.
func (f *fakeAdapter) feedRead(handle int, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readBuf[handle] = append(f.readBuf[handle], data...)
}

func (f *fakeAdapter) writtenBytes(handle int) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.writeBuf[handle]...)
}

func (f *fakeAdapter) ConfigureData(handle int, dataBits DataBits, stopBits StopBits, parity Parity, baud Baud, customBaud int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.lastConfig[handle]
	cfg.DataBits, cfg.StopBits, cfg.Parity, cfg.Baud, cfg.CustomBaud = dataBits, stopBits, parity, baud, customBaud
	f.lastConfig[handle] = cfg
	return 0
}

func (f *fakeAdapter) ConfigureControl(handle int, flow FlowControl, xonChar, xoffChar byte, parityFrameErrorCheck, overflowErrorCheck bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg := f.lastConfig[handle]
	cfg.Flow, cfg.XonChar, cfg.XoffChar = flow, xonChar, xoffChar
	cfg.ParityFrameErrorCheck, cfg.OverflowErrorCheck = parityFrameErrorCheck, overflowErrorCheck
	f.lastConfig[handle] = cfg
	return 0
}

func (f *fakeAdapter) CurrentConfiguration(handle int) []string {
	return []string{"fake"}
}

func (f *fakeAdapter) SetRTS(handle int, asserted bool) int { return 0 }
func (f *fakeAdapter) SetDTR(handle int, asserted bool) int { return 0 }
func (f *fakeAdapter) ClearIOBuffers(handle int, rx, tx bool) int { return 0 }
func (f *fakeAdapter) SendBreak(handle int, durationMs int) int  { return 0 }

func (f *fakeAdapter) InterruptCounts(handle int) InterruptCounts { return InterruptCounts{} }
func (f *fakeAdapter) LineStatus(handle int) LineStatus           { return LineStatus{} }
func (f *fakeAdapter) IOBufferByteCounts(handle int) (int, int)   { return 0, 0 }

func (f *fakeAdapter) SetMinDataLength(handle int, n int) bool { return true }

func (f *fakeAdapter) BeginDataDelivery(handle int) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan []byte, 16)
	f.dataCh[handle] = ch
	return ch, nil
}

func (f *fakeAdapter) StopDataDelivery(handle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.dataCh[handle]; ok {
		close(ch)
		delete(f.dataCh, handle)
	}
}

// pushData delivers data as if it had just arrived on the wire, for
// data-listener tests.
func (f *fakeAdapter) pushData(handle int, data []byte) {
	f.mu.Lock()
	ch := f.dataCh[handle]
	f.mu.Unlock()
	if ch != nil {
		ch <- data
	}
}

func (f *fakeAdapter) BeginEventDelivery(handle int) (<-chan EventMask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan EventMask, 16)
	f.eventCh[handle] = ch
	return ch, nil
}

func (f *fakeAdapter) StopEventDelivery(handle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.eventCh[handle]; ok {
		close(ch)
		delete(f.eventCh, handle)
	}
}

func (f *fakeAdapter) pushEvent(handle int, mask EventMask) {
	f.mu.Lock()
	ch := f.eventCh[handle]
	f.mu.Unlock()
	if ch != nil {
		ch <- mask
	}
}

func (f *fakeAdapter) WatchPort(handle int, portName string) (<-chan PortMonitorEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan PortMonitorEvent, 4)
	f.portCh[handle] = ch
	return ch, nil
}

func (f *fakeAdapter) UnwatchPort(handle int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.portCh[handle]; ok {
		close(ch)
		delete(f.portCh, handle)
	}
}

func (f *fakeAdapter) pushPortEvent(handle int, ev PortMonitorEvent) {
	f.mu.Lock()
	ch := f.portCh[handle]
	f.mu.Unlock()
	if ch != nil {
		ch <- ev
	}
}

var _ nativeAdapter = (*fakeAdapter)(nil)
