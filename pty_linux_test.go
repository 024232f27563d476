package serial

import (
	"fmt"
	"syscall"
	"testing"
	"unsafe"

	ioctl "github.com/daedaluz/goioctl"
)

// openPTYPair opens a master/slave pty pair directly via syscall.Open
// plus the ptmx unlock/TIOCGPTN dance, giving adapter_linux_test.go a
// real Linux tty pair to drive ConfigureData/Read/Write against
// without touching actual hardware.
func openPTYPair(t *testing.T) (masterFd int, slaveName string) {
	t.Helper()

	master, err := syscall.Open("/dev/ptmx", syscall.O_RDWR|syscall.O_NOCTTY, 0)
	if err != nil {
		t.Skipf("pty unavailable: %v", err)
	}

	if err := ioctl.Ioctl(uintptr(master), tiocsptlck, 0); err != nil {
		syscall.Close(master)
		t.Fatalf("unlock pty: %v", err)
	}

	var n uint32
	if err := ioctl.Ioctl(uintptr(master), tiocgptn, uintptr(unsafe.Pointer(&n))); err != nil {
		syscall.Close(master)
		t.Fatalf("get pty number: %v", err)
	}

	name := fmt.Sprintf("/dev/pts/%d", n)
	t.Cleanup(func() { syscall.Close(master) })
	return master, name
}
