//go:build solaris

package serial

import (
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

func defaultPlatformAdapter() nativeAdapter {
	return newSolarisAdapter()
}

type solarisPort struct {
	fd   int
	name string
	mu   sync.Mutex

	dataStop, dataDone   chan struct{}
	eventStop, eventDone chan struct{}
}

// solarisAdapter mirrors darwinAdapter's termios-via-x/sys/unix shape;
// Solaris's ioctl surface for TIOCEXCL/TIOCMGET/TIOCMBIS/TIOCMBIC/
// TIOCSBRK/TIOCCBRK matches the other two Unixes closely enough that
// the same structure applies, just against /dev/term or /dev/cua nodes.
type solarisAdapter struct {
	unsupportedHotplug

	mu    sync.Mutex
	ports map[int]*solarisPort
	next  int
}

func newSolarisAdapter() *solarisAdapter {
	return &solarisAdapter{ports: map[int]*solarisPort{}, next: 1}
}

func (a *solarisAdapter) get(handle int) *solarisPort {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ports[handle]
}

func (a *solarisAdapter) ListPorts() []string {
	matches, _ := globPorts("/dev/term/*", "/dev/cua/*")
	return matches
}

func (a *solarisAdapter) Open(name string, enableRead, enableWrite, exclusive bool) int {
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
	a.ports[handle] = &solarisPort{fd: fd, name: name}
	a.mu.Unlock()
	return handle
}

func (a *solarisAdapter) Close(handle int) int {
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

func (a *solarisAdapter) Write(handle int, data []byte, interByteDelayMs int) int {
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

func (a *solarisAdapter) Read(handle int, buf []byte) (int, readStatus) {
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

func (a *solarisAdapter) ConfigureData(handle int, dataBits DataBits, stopBits StopBits, parity Parity, baud Baud, customBaud int) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
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

	if stopBits == StopBits2 {
		t.Cflag |= unix.CSTOPB
	} else {
		t.Cflag &^= unix.CSTOPB
	}

	t.Cflag &^= (unix.PARENB | unix.PARODD)
	switch parity {
	case ParityOdd:
		t.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven, ParityMark, ParitySpace:
		t.Cflag |= unix.PARENB
	}

	t.Cflag |= unix.CREAD | unix.CLOCAL

	speed := uint32(baud)
	if baud == BaudCustom {
		speed = uint32(customBaud)
	}
	t.Ispeed = speed
	t.Ospeed = speed

	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, t); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *solarisAdapter) ConfigureControl(handle int, flow FlowControl, xonChar, xoffChar byte, parityFrameErrorCheck, overflowErrorCheck bool) int {
	p := a.get(handle)
	if p == nil {
		return -1
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
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

	if err := unix.IoctlSetTermios(p.fd, unix.TCSETS, t); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *solarisAdapter) CurrentConfiguration(handle int) []string {
	p := a.get(handle)
	if p == nil {
		return nil
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return nil
	}
	return []string{
		itoa(uint32(t.Iflag)), itoa(uint32(t.Oflag)), itoa(uint32(t.Cflag)),
		itoa(uint32(t.Lflag)), itoa(t.Ispeed), itoa(t.Ospeed),
	}
}

func (a *solarisAdapter) setModemBit(handle int, bit int, asserted bool) int {
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

func (a *solarisAdapter) SetRTS(handle int, asserted bool) int {
	return a.setModemBit(handle, unix.TIOCM_RTS, asserted)
}

func (a *solarisAdapter) SetDTR(handle int, asserted bool) int {
	return a.setModemBit(handle, unix.TIOCM_DTR, asserted)
}

func (a *solarisAdapter) ClearIOBuffers(handle int, rx, tx bool) int {
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
	if err := unix.IoctlSetInt(p.fd, unix.TCFLSH, queue); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *solarisAdapter) SendBreak(handle int, durationMs int) int {
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
func (a *solarisAdapter) InterruptCounts(handle int) InterruptCounts {
	return InterruptCounts{}
}

func (a *solarisAdapter) LineStatus(handle int) LineStatus {
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

func (a *solarisAdapter) IOBufferByteCounts(handle int) (int, int) {
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

func (a *solarisAdapter) SetMinDataLength(handle int, n int) bool {
	p := a.get(handle)
	if p == nil {
		return false
	}
	t, err := unix.IoctlGetTermios(p.fd, unix.TCGETS)
	if err != nil {
		return false
	}
	t.Cc[unix.VMIN] = byte(n)
	t.Cc[unix.VTIME] = 0
	return unix.IoctlSetTermios(p.fd, unix.TCSETS, t) == nil
}

func (a *solarisAdapter) BeginDataDelivery(handle int) (<-chan []byte, error) {
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

func (a *solarisAdapter) StopDataDelivery(handle int) {
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

func (a *solarisAdapter) BeginEventDelivery(handle int) (<-chan EventMask, error) {
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

func (a *solarisAdapter) StopEventDelivery(handle int) {
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
