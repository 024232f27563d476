//go:build windows

package serial

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

func defaultPlatformAdapter() nativeAdapter {
	return newWindowsAdapter()
}

// DCB.flags bit layout (Win32 _DCB), since x/sys/windows.DCB exposes
// the packed bitfield as a single uint32.
const (
	dcbBinary        = 1 << 0
	dcbParity        = 1 << 1
	dcbOutxCtsFlow   = 1 << 2
	dcbOutxDsrFlow   = 1 << 3
	dcbDtrControlLo  = 1 << 4
	dcbDtrControlHi  = 1 << 5
	dcbDsrSensitivty = 1 << 6
	dcbOutX          = 1 << 8
	dcbInX           = 1 << 9
	dcbRtsControlLo  = 1 << 12
	dcbRtsControlHi  = 1 << 13
)

const (
	commEscSetRTS   = 3
	commEscClrRTS   = 4
	commEscSetDTR   = 5
	commEscClrDTR   = 6
	commEscSetBreak = 8
	commEscClrBreak = 9

	purgeTxAbort = 0x0001
	purgeRxAbort = 0x0002
	purgeTxClear = 0x0004
	purgeRxClear = 0x0008

	msCtsOn  = 0x0010
	msDsrOn  = 0x0020
	msRingOn = 0x0040
	msRlsdOn = 0x0080 // DCD
)

type windowsPort struct {
	handle windows.Handle
	mu     sync.Mutex

	dataStop, dataDone   chan struct{}
	eventStop, eventDone chan struct{}
}

// windowsAdapter implements nativeAdapter via the Win32 comm APIs
// (CreateFile/GetCommState/SetCommState/SetCommTimeouts/
// EscapeCommFunction) through golang.org/x/sys/windows, following the
// same DCB-centric model every Windows serial library uses.
// Windows requires exclusive=true; open never grants
// shared access.
type windowsAdapter struct {
	unsupportedHotplug

	mu    sync.Mutex
	ports map[int]*windowsPort
	next  int
}

func newWindowsAdapter() *windowsAdapter {
	return &windowsAdapter{ports: map[int]*windowsPort{}, next: 1}
}

func (a *windowsAdapter) ListPorts() []string {
	var out []string
	for i := 1; i <= 256; i++ {
		name := `\\.\COM` + itoa(uint32(i))
		h, err := windows.CreateFile(
			windows.StringToUTF16Ptr(name),
			windows.GENERIC_READ|windows.GENERIC_WRITE,
			0, nil, windows.OPEN_EXISTING, 0, 0)
		if err == nil {
			windows.CloseHandle(h)
			out = append(out, name)
		}
	}
	return out
}

func (a *windowsAdapter) Open(name string, enableRead, enableWrite, exclusive bool) int {
	if !exclusive {
		return -1 // caller should have already rejected this as PlatformConstraint
	}
	var access uint32
	if enableRead {
		access |= windows.GENERIC_READ
	}
	if enableWrite {
		access |= windows.GENERIC_WRITE
	}
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(name), access, 0, nil,
		windows.OPEN_EXISTING, windows.FILE_ATTRIBUTE_NORMAL, 0)
	if err != nil {
		return -1
	}
	timeouts := windows.CommTimeouts{
		ReadIntervalTimeout:        windows.MAXDWORD,
		ReadTotalTimeoutMultiplier: 0,
		ReadTotalTimeoutConstant:   0,
	}
	_ = windows.SetCommTimeouts(h, &timeouts)

	a.mu.Lock()
	handle := a.next
	a.next++
	a.ports[handle] = &windowsPort{handle: h}
	a.mu.Unlock()
	return handle
}

func (a *windowsAdapter) get(handle int) *windowsPort {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ports[handle]
}

func (a *windowsAdapter) Close(handle int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	if err := windows.CloseHandle(p.handle); err != nil {
		return -1
	}
	a.mu.Lock()
	delete(a.ports, handle)
	a.mu.Unlock()
	return 0
}

func (a *windowsAdapter) Write(handle int, data []byte, interByteDelayMs int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	if interByteDelayMs <= 0 {
		var written uint32
		if err := windows.WriteFile(p.handle, data, &written, nil); err != nil {
			return -1
		}
		return int(written)
	}
	for i, b := range data {
		var written uint32
		if err := windows.WriteFile(p.handle, []byte{b}, &written, nil); err != nil {
			return -1
		}
		if i != len(data)-1 {
			time.Sleep(time.Duration(interByteDelayMs) * time.Millisecond)
		}
	}
	return len(data)
}

func (a *windowsAdapter) Read(handle int, buf []byte) (int, readStatus) {
	p := a.get(handle)
	if p == nil {
		return 0, readError
	}
	var read uint32
	if err := windows.ReadFile(p.handle, buf, &read, nil); err != nil {
		return 0, readError
	}
	if read == 0 {
		return 0, readNoData
	}
	return int(read), readData
}

func dataBitsToByteSize(d DataBits) byte { return byte(d) }

func (a *windowsAdapter) ConfigureData(handle int, dataBits DataBits, stopBits StopBits, parity Parity, baud Baud, customBaud int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	var dcb windows.DCB
	if err := windows.GetCommState(p.handle, &dcb); err != nil {
		return -1
	}
	dcb.DCBlength = uint32(unsafe.Sizeof(dcb))
	if baud == BaudCustom {
		dcb.BaudRate = uint32(customBaud)
	} else {
		dcb.BaudRate = uint32(baud)
	}
	dcb.ByteSize = dataBitsToByteSize(dataBits)

	switch stopBits {
	case StopBits1:
		dcb.StopBits = 0 // ONESTOPBIT
	case StopBits1_5:
		dcb.StopBits = 1 // ONE5STOPBITS
	case StopBits2:
		dcb.StopBits = 2 // TWOSTOPBITS
	}

	switch parity {
	case ParityNone:
		dcb.Parity = 0
	case ParityOdd:
		dcb.Parity = 1
	case ParityEven:
		dcb.Parity = 2
	case ParityMark:
		dcb.Parity = 3
	case ParitySpace:
		dcb.Parity = 4
	}

	if err := windows.SetCommState(p.handle, &dcb); err != nil {
		return -1
	}
	return 0
}

func (a *windowsAdapter) ConfigureControl(handle int, flow FlowControl, xonChar, xoffChar byte, parityFrameErrorCheck, overflowErrorCheck bool) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	var dcb windows.DCB
	if err := windows.GetCommState(p.handle, &dcb); err != nil {
		return -1
	}
	dcb.Flags &^= dcbOutxCtsFlow | dcbRtsControlLo | dcbRtsControlHi | dcbOutX | dcbInX
	switch flow {
	case FlowNone:
		// hardware/software bits cleared above, DTR/RTS left under manual control
	case FlowHardware:
		dcb.Flags |= dcbOutxCtsFlow | dcbRtsControlHi // RTS_CONTROL_HANDSHAKE
		dcb.XonChar = xonChar
		dcb.XoffChar = xoffChar
	case FlowSoftware:
		dcb.Flags |= dcbOutX | dcbInX
		dcb.XonChar = xonChar
		dcb.XoffChar = xoffChar
	}
	if err := windows.SetCommState(p.handle, &dcb); err != nil {
		return -1
	}
	return 0
}

func (a *windowsAdapter) CurrentConfiguration(handle int) []string {
	p := a.get(handle)
	if p == nil {
		return nil
	}
	var dcb windows.DCB
	if err := windows.GetCommState(p.handle, &dcb); err != nil {
		return nil
	}
	return []string{
		itoa(dcb.DCBlength), itoa(dcb.BaudRate),
		itoa(uint32(dcb.ByteSize)), itoa(uint32(dcb.Parity)), itoa(uint32(dcb.StopBits)),
		itoa(uint32(dcb.XonChar)), itoa(uint32(dcb.XoffChar)),
	}
}

func (a *windowsAdapter) escape(handle int, fn uint32) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	if err := windows.EscapeCommFunction(p.handle, fn); err != nil {
		return -1
	}
	return 0
}

func (a *windowsAdapter) SetRTS(handle int, asserted bool) int {
	if asserted {
		return a.escape(handle, commEscSetRTS)
	}
	return a.escape(handle, commEscClrRTS)
}

func (a *windowsAdapter) SetDTR(handle int, asserted bool) int {
	if asserted {
		return a.escape(handle, commEscSetDTR)
	}
	return a.escape(handle, commEscClrDTR)
}

func (a *windowsAdapter) ClearIOBuffers(handle int, rx, tx bool) int {
	if !rx && !tx {
		return 0
	}
	p := a.get(handle)
	if p == nil {
		return -1
	}
	var flags uint32
	if rx {
		flags |= purgeRxAbort | purgeRxClear
	}
	if tx {
		flags |= purgeTxAbort | purgeTxClear
	}
	if err := windows.PurgeComm(p.handle, flags); err != nil {
		return -1
	}
	return 0
}

func (a *windowsAdapter) SendBreak(handle int, durationMs int) int {
	if a.escape(handle, commEscSetBreak) != 0 {
		return -1
	}
	if durationMs > 0 {
		time.Sleep(time.Duration(durationMs) * time.Millisecond)
	}
	return a.escape(handle, commEscClrBreak)
}

// InterruptCounts is Linux-specific ("On non-Linux
// platforms returns all-zero").
func (a *windowsAdapter) InterruptCounts(handle int) InterruptCounts {
	return InterruptCounts{}
}

func (a *windowsAdapter) LineStatus(handle int) LineStatus {
	p := a.get(handle)
	if p == nil {
		return LineStatus{}
	}
	var status uint32
	if err := windows.GetCommModemStatus(p.handle, &status); err != nil {
		return LineStatus{}
	}
	bit := func(m uint32) int {
		if status&m != 0 {
			return 1
		}
		return 0
	}
	// CTS, DSR, DCD, RI, LOOP, RTS, DTR — Windows reports no LOOP/RTS/DTR
	// readback via GetCommModemStatus, so those stay 0.
	return LineStatus{bit(msCtsOn), bit(msDsrOn), bit(msRlsdOn), bit(msRingOn), 0, 0, 0}
}

func (a *windowsAdapter) IOBufferByteCounts(handle int) (int, int) {
	p := a.get(handle)
	if p == nil {
		return 0, 0
	}
	var errs uint32
	var stat windows.ComStat
	if err := windows.ClearCommError(p.handle, &errs, &stat); err != nil {
		return 0, 0
	}
	return int(stat.CbInQue), int(stat.CbOutQue)
}

// SetMinDataLength: POSIX VMIN has no Windows analogue
func (a *windowsAdapter) SetMinDataLength(handle int, n int) bool {
	return false
}

func (a *windowsAdapter) BeginDataDelivery(handle int) (<-chan []byte, error) {
	p := a.get(handle)
	if p == nil {
		return nil, ErrUnknownHandle
	}
	ch := make(chan []byte, 16)
	p.mu.Lock()
	p.dataStop = make(chan struct{})
	p.dataDone = make(chan struct{})
	stop, done := p.dataStop, p.dataDone
	p.mu.Unlock()

	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			select {
			case <-stop:
				return
			default:
			}
			var read uint32
			if err := windows.ReadFile(p.handle, buf, &read, nil); err != nil || read == 0 {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			chunk := make([]byte, read)
			copy(chunk, buf[:read])
			select {
			case ch <- chunk:
			case <-stop:
				return
			}
		}
	}()
	return ch, nil
}

func (a *windowsAdapter) StopDataDelivery(handle int) {
	p := a.get(handle)
	if p == nil {
		return
	}
	p.mu.Lock()
	stop, done := p.dataStop, p.dataDone
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	if done != nil {
		<-done
	}
}

func (a *windowsAdapter) BeginEventDelivery(handle int) (<-chan EventMask, error) {
	p := a.get(handle)
	if p == nil {
		return nil, ErrUnknownHandle
	}
	ch := make(chan EventMask, 16)
	p.mu.Lock()
	p.eventStop = make(chan struct{})
	p.eventDone = make(chan struct{})
	stop, done := p.eventStop, p.eventDone
	p.mu.Unlock()

	go func() {
		defer close(done)
		var last uint32
		windows.GetCommModemStatus(p.handle, &last)
		for {
			select {
			case <-stop:
				return
			default:
			}
			time.Sleep(100 * time.Millisecond)
			var status uint32
			if err := windows.GetCommModemStatus(p.handle, &status); err != nil {
				continue
			}
			if status == last {
				continue
			}
			last = status
			bit := func(m uint32) bool { return status&m != 0 }
			var ev EventMask
			if bit(msCtsOn) {
				ev |= EventCTS
			}
			if bit(msDsrOn) {
				ev |= EventDSR
			}
			if bit(msRlsdOn) {
				ev |= EventDCD
			}
			if bit(msRingOn) {
				ev |= EventRI
			}
			select {
			case ch <- ev:
			case <-stop:
				return
			}
		}
	}()
	return ch, nil
}

func (a *windowsAdapter) StopEventDelivery(handle int) {
	p := a.get(handle)
	if p == nil {
		return
	}
	p.mu.Lock()
	stop, done := p.eventStop, p.eventDone
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	if done != nil {
		<-done
	}
}
