package serial

import (
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
	"github.com/daedaluz/fdev/poll"
)

func defaultPlatformAdapter() nativeAdapter {
	return newLinuxAdapter()
}

// linuxPort is the per-handle state kept by linuxAdapter. The fd
// itself doubles as the handle value.
type linuxPort struct {
	fd   int
	name string

	mu sync.Mutex // guards the fields below

	dataStop  chan struct{}
	dataDone  chan struct{}
	eventStop chan struct{}
	eventDone chan struct{}

	watchStop chan struct{}
	watchDone chan struct{}
}

// linuxAdapter implements nativeAdapter on top of POSIX termios and
// Linux-specific ioctls. github.com/daedaluz/goioctl issues the raw
// ioctls; github.com/daedaluz/fdev/poll backs timed reads.
type linuxAdapter struct {
	mu    sync.Mutex
	ports map[int]*linuxPort
}

func newLinuxAdapter() *linuxAdapter {
	return &linuxAdapter{ports: map[int]*linuxPort{}}
}

func (a *linuxAdapter) get(handle int) *linuxPort {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ports[handle]
}

func (a *linuxAdapter) ListPorts() []string {
	var out []string
	for _, pattern := range []string{"ttyS*", "ttyUSB*", "ttyACM*"} {
		matches, _ := filepath.Glob(filepath.Join("/dev", pattern))
		for _, m := range matches {
			base := filepath.Base(m)
			if _, err := os.Lstat(filepath.Join("/sys/class/tty", base, "device")); err == nil {
				out = append(out, m)
			}
		}
	}
	return out
}

func (a *linuxAdapter) Open(name string, enableRead, enableWrite, exclusive bool) int {
	mode := syscall.O_NOCTTY | syscall.O_NONBLOCK
	switch {
	case enableRead && enableWrite:
		mode |= syscall.O_RDWR
	case enableRead:
		mode |= syscall.O_RDONLY
	case enableWrite:
		mode |= syscall.O_WRONLY
	}
	fd, err := syscall.Open(name, mode, 0)
	if err != nil {
		return -int(err.(syscall.Errno))
	}
	if exclusive {
		if err := ioctl.Ioctl(uintptr(fd), tiocexcl, 0); err != nil {
			syscall.Close(fd)
			return -int(err.(syscall.Errno))
		}
	}
	// Clear O_NONBLOCK now that we own the exclusive lock; the façade's
	// blocking read/write contract expects blocking semantics from here.
	if _, _, errno := syscall.Syscall(syscall.SYS_FCNTL, uintptr(fd), syscall.F_SETFL, uintptr(mode&^syscall.O_NONBLOCK)); errno != 0 {
		syscall.Close(fd)
		return -int(errno)
	}
	a.mu.Lock()
	a.ports[fd] = &linuxPort{fd: fd, name: name}
	a.mu.Unlock()
	return fd
}

func (a *linuxAdapter) Close(handle int) int {
	a.mu.Lock()
	p := a.ports[handle]
	a.mu.Unlock()
	if p == nil {
		return -int(syscall.EBADF)
	}
	if err := syscall.Close(p.fd); err != nil {
		return -int(err.(syscall.Errno))
	}
	a.mu.Lock()
	delete(a.ports, handle)
	a.mu.Unlock()
	return 0
}

func (a *linuxAdapter) Write(handle int, data []byte, interByteDelayMs int) int {
	if interByteDelayMs <= 0 {
		total := 0
		for total < len(data) {
			n, err := syscall.Write(handle, data[total:])
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
		if _, err := syscall.Write(handle, []byte{b}); err != nil {
			return -int(err.(syscall.Errno))
		}
		if i != len(data)-1 {
			time.Sleep(time.Duration(interByteDelayMs) * time.Millisecond)
		}
	}
	return len(data)
}

func (a *linuxAdapter) Read(handle int, buf []byte) (int, readStatus) {
	n, err := syscall.Read(handle, buf)
	if err != nil {
		if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK {
			return 0, readNoData
		}
		return 0, readError
	}
	if n == 0 {
		return 0, readEOF
	}
	return n, readData
}

func (a *linuxAdapter) getAttr2(handle int) (*Termios2, error) {
	attrs := &Termios2{}
	if err := ioctl.Ioctl(uintptr(handle), tcgets2, uintptr(unsafe.Pointer(attrs))); err != nil {
		return nil, err
	}
	return attrs, nil
}

func (a *linuxAdapter) setAttr2(handle int, attrs *Termios2) error {
	return ioctl.Ioctl(uintptr(handle), tcsets2, uintptr(unsafe.Pointer(attrs)))
}

func dataBitsToCflag(d DataBits) CFlag {
	switch d {
	case DataBits5:
		return CS5
	case DataBits6:
		return CS6
	case DataBits7:
		return CS7
	default:
		return CS8
	}
}

func baudToCflag(b Baud) CFlag {
	switch b {
	case Baud50:
		return B50
	case Baud75:
		return B75
	case Baud110:
		return B110
	case Baud134:
		return B134
	case Baud150:
		return B150
	case Baud200:
		return B200
	case Baud300:
		return B300
	case Baud600:
		return B600
	case Baud1200:
		return B1200
	case Baud1800:
		return B1800
	case Baud2400:
		return B2400
	case Baud4800:
		return B4800
	case Baud9600:
		return B9600
	case Baud19200:
		return B19200
	case Baud38400:
		return B38400
	case Baud57600:
		return B57600
	case Baud115200:
		return B115200
	case Baud230400:
		return B230400
	case Baud460800:
		return B460800
	case Baud921600:
		return B921600
	case Baud1000000:
		return B1000000
	case Baud2000000:
		return B2000000
	default:
		return B9600
	}
}

func (a *linuxAdapter) ConfigureData(handle int, dataBits DataBits, stopBits StopBits, parity Parity, baud Baud, customBaud int) int {
	attrs, err := a.getAttr2(handle)
	if err != nil {
		return -int(err.(syscall.Errno))
	}
	attrs.Cflag &= ^(CSIZE)
	attrs.Cflag |= dataBitsToCflag(dataBits)

	if stopBits == StopBits2 || stopBits == StopBits1_5 {
		attrs.Cflag |= CSTOPB
	} else {
		attrs.Cflag &= ^(CSTOPB)
	}

	attrs.Cflag &= ^(PARENB | PARODD | CMSPAR)
	switch parity {
	case ParityOdd:
		attrs.Cflag |= PARENB | PARODD
	case ParityEven:
		attrs.Cflag |= PARENB
	case ParityMark:
		attrs.Cflag |= PARENB | PARODD | CMSPAR
	case ParitySpace:
		attrs.Cflag |= PARENB | CMSPAR
	}

	attrs.Cflag |= CREAD | CLOCAL

	if baud == BaudCustom {
		attrs.SetCustomSpeed(uint32(customBaud))
	} else {
		attrs.Cflag &= ^(CBAUD)
		attrs.Cflag |= baudToCflag(baud)
		attrs.ISpeed = uint32(baud)
		attrs.OSpeed = uint32(baud)
	}

	if err := a.setAttr2(handle, attrs); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *linuxAdapter) ConfigureControl(handle int, flow FlowControl, xonChar, xoffChar byte, parityFrameErrorCheck, overflowErrorCheck bool) int {
	attrs, err := a.getAttr2(handle)
	if err != nil {
		return -int(err.(syscall.Errno))
	}
	attrs.Cflag &= ^(CRTSCTS)
	attrs.Iflag &= ^(IXON | IXOFF)
	switch flow {
	case FlowHardware:
		attrs.Cflag |= CRTSCTS
	case FlowSoftware:
		attrs.Iflag |= IXON | IXOFF
		attrs.Cc[VSTART] = xonChar
		attrs.Cc[VSTOP] = xoffChar
	}

	if parityFrameErrorCheck {
		attrs.Iflag |= INPCK
		attrs.Iflag &= ^(IGNPAR)
	} else {
		attrs.Iflag &= ^(INPCK)
		attrs.Iflag |= IGNPAR
	}
	if overflowErrorCheck {
		attrs.Iflag &= ^(IGNPAR)
	}

	if err := a.setAttr2(handle, attrs); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *linuxAdapter) CurrentConfiguration(handle int) []string {
	attrs, err := a.getAttr2(handle)
	if err != nil {
		return nil
	}
	out := []string{
		itoa(uint32(attrs.Iflag)),
		itoa(uint32(attrs.Oflag)),
		itoa(uint32(attrs.Cflag)),
		itoa(uint32(attrs.Lflag)),
		itoa(uint32(attrs.Line)),
	}
	for i := 0; i < 17; i++ {
		out = append(out, itoa(uint32(attrs.Cc[i])))
	}
	out = append(out, itoa(attrs.ISpeed), itoa(attrs.OSpeed))
	return out
}


func (a *linuxAdapter) SetRTS(handle int, asserted bool) int {
	return a.setModemBit(handle, tiocmRTS, asserted)
}

func (a *linuxAdapter) SetDTR(handle int, asserted bool) int {
	return a.setModemBit(handle, tiocmDTR, asserted)
}

func (a *linuxAdapter) setModemBit(handle int, bit tiocmBits, asserted bool) int {
	req := tiocmbic
	if asserted {
		req = tiocmbis
	}
	line := bit
	if err := ioctl.Ioctl(uintptr(handle), req, uintptr(unsafe.Pointer(&line))); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *linuxAdapter) ClearIOBuffers(handle int, rx, tx bool) int {
	if !rx && !tx {
		return 0
	}
	var queue Queue
	switch {
	case rx && tx:
		queue = TCIOFLUSH
	case rx:
		queue = TCIFLUSH
	default:
		queue = TCOFLUSH
	}
	if err := ioctl.Ioctl(uintptr(handle), tcflsh, uintptr(queue)); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *linuxAdapter) SendBreak(handle int, durationMs int) int {
	if err := ioctl.Ioctl(uintptr(handle), tiocsbrk, 1); err != nil {
		return -int(err.(syscall.Errno))
	}
	if durationMs > 0 {
		time.Sleep(time.Duration(durationMs) * time.Millisecond)
	}
	if err := ioctl.Ioctl(uintptr(handle), tioccbrk, 1); err != nil {
		return -int(err.(syscall.Errno))
	}
	return 0
}

func (a *linuxAdapter) InterruptCounts(handle int) InterruptCounts {
	var c serialICounter
	if err := ioctl.Ioctl(uintptr(handle), tiocgicount, uintptr(unsafe.Pointer(&c))); err != nil {
		return InterruptCounts{}
	}
	return InterruptCounts{
		int(c.Cts), int(c.Dsr), int(c.Rng), int(c.Dcd),
		int(c.Rx), int(c.Tx), int(c.Frame), int(c.Overrun),
		int(c.Parity), int(c.Brk), int(c.BufOverrun),
	}
}

func (a *linuxAdapter) LineStatus(handle int) LineStatus {
	var bits tiocmBits
	if err := ioctl.Ioctl(uintptr(handle), tiocmget, uintptr(unsafe.Pointer(&bits))); err != nil {
		return LineStatus{}
	}
	return tiocmToLineStatus(bits)
}

func tiocmToLineStatus(bits tiocmBits) LineStatus {
	bit := func(b tiocmBits) int {
		if bits&b != 0 {
			return 1
		}
		return 0
	}
	return LineStatus{
		bit(tiocmCTS), bit(tiocmDSR), bit(tiocmCAR), bit(tiocmRNG),
		bit(tiocmLOOP), bit(tiocmRTS), bit(tiocmDTR),
	}
}

func tiocmToEventMask(bits tiocmBits) EventMask {
	var m EventMask
	set := func(b tiocmBits, e EventMask) {
		if bits&b != 0 {
			m |= e
		}
	}
	set(tiocmCTS, EventCTS)
	set(tiocmDSR, EventDSR)
	set(tiocmCAR, EventDCD)
	set(tiocmRNG, EventRI)
	set(tiocmLOOP, EventLOOP)
	set(tiocmRTS, EventRTS)
	set(tiocmDTR, EventDTR)
	return m
}

func (a *linuxAdapter) IOBufferByteCounts(handle int) (int, int) {
	var rx, tx int32
	_ = ioctl.Ioctl(uintptr(handle), tiocinq, uintptr(unsafe.Pointer(&rx)))
	_ = ioctl.Ioctl(uintptr(handle), tiocoutq, uintptr(unsafe.Pointer(&tx)))
	return int(rx), int(tx)
}

func (a *linuxAdapter) SetMinDataLength(handle int, n int) bool {
	attrs, err := a.getAttr2(handle)
	if err != nil {
		return false
	}
	attrs.Cc[VMIN] = byte(n)
	attrs.Cc[VTIME] = 0
	return a.setAttr2(handle, attrs) == nil
}

func (a *linuxAdapter) BeginDataDelivery(handle int) (<-chan []byte, error) {
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
			if err := poll.WaitInput(p.fd, 150*time.Millisecond); err != nil {
				continue
			}
			n, err := syscall.Read(p.fd, buf)
			if err != nil || n <= 0 {
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

func (a *linuxAdapter) StopDataDelivery(handle int) {
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

func (a *linuxAdapter) BeginEventDelivery(handle int) (<-chan EventMask, error) {
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
		var last tiocmBits
		var bits tiocmBits
		if err := ioctl.Ioctl(uintptr(p.fd), tiocmget, uintptr(unsafe.Pointer(&last))); err != nil {
			return
		}
		for {
			select {
			case <-stop:
				return
			default:
			}
			// TIOCMIWAIT blocks until any of CTS/DSR/RI/CD changes.
			mask := uintptr(tiocmCTS | tiocmDSR | tiocmRNG | tiocmCAR)
			if err := ioctl.Ioctl(uintptr(p.fd), tiocmiwait, mask); err != nil {
				time.Sleep(200 * time.Millisecond)
				continue
			}
			if err := ioctl.Ioctl(uintptr(p.fd), tiocmget, uintptr(unsafe.Pointer(&bits))); err != nil {
				continue
			}
			changed := bits ^ last
			last = bits
			if changed == 0 {
				continue
			}
			select {
			case ch <- tiocmToEventMask(bits):
			case <-stop:
				return
			}
		}
	}()
	return ch, nil
}

func (a *linuxAdapter) StopEventDelivery(handle int) {
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
