//go:build linux

package hid

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// hidrawDevInfo mirrors struct hidraw_devinfo from <linux/hidraw.h>.
type hidrawDevInfo struct {
	BusType uint32
	Vendor  int16
	Product int16
}

const (
	hidiocGRDescSize = 0x80044801 // _IOR('H', 0x01, int)
	hidiocGRawInfo   = 0x80084803 // _IOR('H', 0x03, struct hidraw_devinfo)
)

// hidiocGRawName computes HIDIOCGRAWNAME(len): _IOC(_IOC_READ,'H',0x04,len).
func hidiocGRawName(length int) uintptr {
	const iocRead = 2
	return uintptr(iocRead<<30 | length<<16 | 'H'<<8 | 0x04)
}

func hidiocSFeature(length int) uintptr {
	const iocWR = 3
	return uintptr(iocWR<<30 | length<<16 | 'H'<<8 | 0x06)
}

func hidiocGFeature(length int) uintptr {
	const iocWR = 3
	return uintptr(iocWR<<30 | length<<16 | 'H'<<8 | 0x07)
}

func ioctl(fd int, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := syscall.Syscall(syscall.SYS_IOCTL, uintptr(fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}

func enumerate(vendorID, productID uint16) ([]DeviceInfo, error) {
	paths, err := filepath.Glob("/dev/hidraw*")
	if err != nil {
		return nil, err
	}
	var out []DeviceInfo
	for _, path := range paths {
		fd, err := syscall.Open(path, syscall.O_RDWR, 0)
		if err != nil {
			continue
		}
		var info hidrawDevInfo
		if err := ioctl(fd, hidiocGRawInfo, unsafe.Pointer(&info)); err != nil {
			syscall.Close(fd)
			continue
		}
		vid := uint16(info.Vendor)
		pid := uint16(info.Product)
		syscall.Close(fd)

		if vendorID != 0 && vendorID != vid {
			continue
		}
		if productID != 0 && productID != pid {
			continue
		}
		out = append(out, DeviceInfo{
			Path:      path,
			VendorID:  vid,
			ProductID: pid,
			Product:   rawName(path),
		})
	}
	return out, nil
}

// rawName best-effort reads HIDIOCGRAWNAME for display purposes only;
// a failure here doesn't fail enumeration.
func rawName(path string) string {
	fd, err := syscall.Open(path, syscall.O_RDWR, 0)
	if err != nil {
		return ""
	}
	defer syscall.Close(fd)
	buf := make([]byte, 256)
	if err := ioctl(fd, hidiocGRawName(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return ""
	}
	return strings.TrimRight(string(buf), "\x00")
}

type hidrawDevice struct {
	fd int
}

func openDevice(info DeviceInfo) (Device, error) {
	fd, err := syscall.Open(info.Path, syscall.O_RDWR, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return &hidrawDevice{fd: fd}, nil
}

func (d *hidrawDevice) Close() error {
	return syscall.Close(d.fd)
}

func (d *hidrawDevice) Write(data []byte) (int, error) {
	return syscall.Write(d.fd, data)
}

func (d *hidrawDevice) Read(buf []byte) (int, error) {
	return syscall.Read(d.fd, buf)
}

func (d *hidrawDevice) ReadTimeout(buf []byte, timeoutMs int) (int, error) {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, timeoutMs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}
	return syscall.Read(d.fd, buf)
}

func (d *hidrawDevice) SendFeatureReport(data []byte) (int, error) {
	if len(data) == 0 {
		return 0, nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	if err := ioctl(d.fd, hidiocSFeature(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return 0, err
	}
	return len(buf), nil
}

func (d *hidrawDevice) GetFeatureReport(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if err := ioctl(d.fd, hidiocGFeature(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return 0, err
	}
	return len(buf), nil
}
