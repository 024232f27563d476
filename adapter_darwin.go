//go:build darwin

package serial

import (
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func defaultPlatformAdapter() nativeAdapter {
	return newDarwinAdapter()
}

type darwinPort struct {
	fd   int
	name string
	mu   sync.Mutex

	dataStop, dataDone   chan struct{}
	eventStop, eventDone chan struct{}
}

// darwinAdapter is the BSD-termios sibling of linuxAdapter: same
// open/read/write/close shape, but attribute access goes through
// golang.org/x/sys/unix's IoctlGetTermios/IoctlSetTermios (TIOCGETA/
// TIOCSETA) instead of Linux's tcgets2/tcsets2, since macOS has no
// BOTHER-style arbitrary-speed escape hatch — unix.Termios speeds are
// set via cfsetspeed-equivalent Ospeed/Ispeed fields directly.
type darwinAdapter struct {
	unsupportedHotplug

	mu    sync.Mutex
	ports map[int]*darwinPort
	next  int
}

func newDarwinAdapter() *darwinAdapter {
	return &darwinAdapter{ports: map[int]*darwinPort{}, next: 1}
}

func (a *darwinAdapter) get(handle int) *darwinPort {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ports[handle]
}

func (a *darwinAdapter) ListPorts() []string {
	matches, _ := globPorts("/dev/cu.*", "/dev/tty.*")
	return matches
}

func (a *darwinAdapter) Open(name string, enableRead, enableWrite, exclusive bool) int {
	flags := syscall.O_NOCTTY | syscall.O_NONBLOCK
	switch {
	case enableRead && enableWrite:
		flags |= syscall.O_RDWR
	case enableRead:
		flags |= syscall.O_RDONLY
	case enableWrite:
		flags |= syscall.O_WRONLY
	default:
		flags |= syscall.O_RDONLY
	}
	fd, err := syscall.Open(name, flags, 0)
	if err != nil {
		return -int(err.(syscall.Errno))
	}
	if exclusive {
		if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
			syscall.Close(fd)
			return -int(err.(syscall.Errno))
		}
	}
	cur, _ := unix.FcntlInt(uintptr(fd), syscall.F_GETFL, 0)
	unix.FcntlInt(uintptr(fd), syscall.F_SETFL, cur&^syscall.O_NONBLOCK)

	a.mu.Lock()
	handle := a.next
	a.next++
	a.ports[handle] = &darwinPort{fd: fd, name: name}
	a.mu.Unlock()
	return handle
}

func (a *darwinAdapter) Close(handle int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	if err := syscall.Close(p.fd); err != nil {
		return -int(err.(syscall.Errno))
	}
	a.mu.Lock()
	delete(a.ports, handle)
	a.mu.Unlock()
	return 0
}

func (a *darwinAdapter) Write(handle int, data []byte, interByteDelayMs int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	if interByteDelayMs <= 0 {
		total := 0
		for total < len(data) {
			n, err := syscall.Write(p.fd, data[total:])
			if err != nil {
				if err == syscall.EINTR {
					continue
				}
				return -int(err.(syscall.Errno))
			}
			total += n
		}
		return total
	}
	for i, b := range data {
		if _, err := syscall.Write(p.fd, []byte{b}); err != nil {
			return -int(err.(syscall.Errno))
		}
		if i != len(data)-1 {
			time.Sleep(time.Duration(interByteDelayMs) * time.Millisecond)
		}
	}
	return len(data)
}

func (a *darwinAdapter) Read(handle int, buf []byte) (int, readStatus) {
	p := a.get(handle)
	if p == nil {
		return 0, readError
	}
	n, err := syscall.Read(p.fd, buf)
	if err != nil {
		if err == syscall.EAGAIN {
			return 0, readNoData
		}
		return 0, readError
	}
	if n == 0 {
		return 0, readEOF
	}
	return n, readData
}

func darwinBaudConst(baud Baud) uint32 {
	return uint32(baud)
}

func (a *darwinAdapter) ConfigureData(handle int, dataBits DataBits, stopBits StopBits, parity Parity, baud Baud, customBaud int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TIOCGETA)
	if err != nil {
		return -int(err.(syscall.Errno))
	}

	t.Cflag &^= unix.CSIZE
	switch dataBits {
	case DataBits5:
		t.Cflag |= unix.CS5
	case DataBits6:
		t.Cflag |= unix.CS6
	case DataBits7:
		t.Cflag |= unix.CS7
	case DataBits8:
		t.Cflag |= unix.CS8
	}

	switch stopBits {
	case StopBits2:
		t.Cflag |= unix.CSTOPB
	default:
		t.Cflag &^= unix.CSTOPB
	}

	t.Cflag &^= (unix.PARENB | unix.PARODD)
	switch parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		t.Cflag |= unix.PARENB
	case ParityMark, ParitySpace:
		t.Cflag |= unix.PARENB
	}

	t.Cflag |= unix.CREAD | unix.CLOCAL

	speed := darwinBaudConst(baud)
	if baud == BaudCustom {
		speed = uint32(customBaud)
	}
	t.Ispeed = speed
	t.Ospeed = speed

	if err := unix.IoctlSetTermios(p.fd, unix.TIOCSETA, t); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *darwinAdapter) ConfigureControl(handle int, flow FlowControl, xonChar, xoffChar byte, parityFrameErrorCheck, overflowErrorCheck bool) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TIOCGETA)
	if err != nil {
		return -int(err.(syscall.Errno))
	}

	t.Cflag &^= unix.CRTSCTS
	t.Iflag &^= (unix.IXON | unix.IXOFF)
	switch flow {
	case FlowHardware:
		t.Cflag |= unix.CRTSCTS
	case FlowSoftware:
		t.Iflag |= unix.IXON | unix.IXOFF
		t.Cc[unix.VSTART] = xonChar
		t.Cc[unix.VSTOP] = xoffChar
	}

	if parityFrameErrorCheck {
		t.Iflag |= unix.INPCK
		t.Iflag &^= unix.IGNPAR
	} else {
		t.Iflag &^= unix.INPCK
		t.Iflag |= unix.IGNPAR
	}
	if !overflowErrorCheck {
		t.Iflag &^= unix.PARMRK
	}

	if err := unix.IoctlSetTermios(p.fd, unix.TIOCSETA, t); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *darwinAdapter) CurrentConfiguration(handle int) []string {
	p := a.get(handle)
	if p == nil {
		return nil
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TIOCGETA)
	if err != nil {
		return nil
	}
	return []string{
		itoa(uint32(t.Iflag)), itoa(uint32(t.Oflag)), itoa(uint32(t.Cflag)),
		itoa(uint32(t.Lflag)), itoa(t.Ispeed), itoa(t.Ospeed),
	}
}

func (a *darwinAdapter) setModemBit(handle int, bit int, asserted bool) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	req := unix.TIOCMBIS
	if !asserted {
		req = unix.TIOCMBIC
	}
	if err := unix.IoctlSetPointerInt(p.fd, uint(req), bit); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *darwinAdapter) SetRTS(handle int, asserted bool) int {
	return a.setModemBit(handle, unix.TIOCM_RTS, asserted)
}

func (a *darwinAdapter) SetDTR(handle int, asserted bool) int {
	return a.setModemBit(handle, unix.TIOCM_DTR, asserted)
}

func (a *darwinAdapter) ClearIOBuffers(handle int, rx, tx bool) int {
	if !rx && !tx {
		return 0
	}
	p := a.get(handle)
	if p == nil {
		return -1
	}
	queue := unix.TCIOFLUSH
	switch {
	case rx && !tx:
		queue = unix.TCIFLUSH
	case tx && !rx:
		queue = unix.TCOFLUSH
	}
	if err := unix.IoctlSetInt(p.fd, unix.TIOCFLUSH, queue); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *darwinAdapter) SendBreak(handle int, durationMs int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	if err := unix.IoctlSetInt(p.fd, unix.TIOCSBRK, 0); err != nil {
		return -int(err.(syscall.Errno))
	}
	if durationMs > 0 {
		time.Sleep(time.Duration(durationMs) * time.Millisecond)
	}
	if err := unix.IoctlSetInt(p.fd, unix.TIOCCBRK, 0); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

// InterruptCounts is Linux-specific
func (a *darwinAdapter) InterruptCounts(handle int) InterruptCounts {
	return InterruptCounts{}
}

func (a *darwinAdapter) LineStatus(handle int) LineStatus {
	p := a.get(handle)
	if p == nil {
		return LineStatus{}
	}
	bits, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return LineStatus{}
	}
	bit := func(m int) int {
		if bits&m != 0 {
			return 1
		}
		return 0
	}
	return LineStatus{
		bit(unix.TIOCM_CTS), bit(unix.TIOCM_DSR), bit(unix.TIOCM_CD), bit(unix.TIOCM_RI),
		0, bit(unix.TIOCM_RTS), bit(unix.TIOCM_DTR),
	}
}

func (a *darwinAdapter) IOBufferByteCounts(handle int) (int, int) {
	p := a.get(handle)
	if p == nil {
		return 0, 0
	}
	rx, err := unix.IoctlGetInt(p.fd, unix.FIONREAD)
	if err != nil {
		rx = 0
	}
	return rx, 0
}

// SetMinDataLength sets VMIN (with VTIME=0) through BSD termios, the
// same way the Linux adapter does through termios2.
func (a *darwinAdapter) SetMinDataLength(handle int, n int) bool {
	p := a.get(handle)
	if p == nil {
		return false
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TIOCGETA)
	if err != nil {
		return false
	}
	t.Cc[unix.VMIN] = byte(n)
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(p.fd, unix.TIOCSETA, t) == nil
}

func (a *darwinAdapter) BeginDataDelivery(handle int) (<-chan []byte, error) {
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
			n, err := syscall.Read(p.fd, buf)
			if err != nil || n <= 0 {
				time.Sleep(50 * time.Millisecond)
				continue
			}
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case ch <- chunk:
			case <-stop:
				return
			}
		}
	}()
	return ch, nil
}

func (a *darwinAdapter) StopDataDelivery(handle int) {
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

func (a *darwinAdapter) BeginEventDelivery(handle int) (<-chan EventMask, error) {
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
		last, _ := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
		for {
			select {
			case <-stop:
				return
			default:
			}
			time.Sleep(100 * time.Millisecond)
			bits, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
			if err != nil || bits == last {
				continue
			}
			last = bits
			var ev EventMask
			if bits&unix.TIOCM_CTS != 0 {
				ev |= EventCTS
			}
			if bits&unix.TIOCM_DSR != 0 {
				ev |= EventDSR
			}
			if bits&unix.TIOCM_CD != 0 {
				ev |= EventDCD
			}
			if bits&unix.TIOCM_RI != 0 {
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

func (a *darwinAdapter) StopEventDelivery(handle int) {
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
