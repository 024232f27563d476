// Package hid is the sibling Human Interface Device surface alongside
// the UART serial façade: enumerate, open, and talk
// to USB/Bluetooth HID devices by vendor/product ID. The interface
// shape is grounded on karalabe/hid (a cgo wrapper over hidapi), but
// this implementation is pure Go — the Linux backend talks directly to
// /dev/hidrawN rather than linking libhidapi.
package hid

import "errors"

// ErrPlatformUnsupported is returned by every Device/DeviceInfo
// operation on platforms with no backend wired up yet (see
// hid_other.go and DESIGN.md).
var ErrPlatformUnsupported = errors.New("hid: not supported on this platform")

// ErrDeviceNotFound is returned by DeviceInfo.Open when the underlying
// device node has disappeared since Enumerate ran.
var ErrDeviceNotFound = errors.New("hid: device not found")

// DeviceInfo describes one enumerated HID device, mirroring the field
// set karalabe/hid's DeviceInfo exposes.
type DeviceInfo struct {
	Path         string
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Release      uint16
	Manufacturer string
	Product      string
	UsagePage    uint16
	Usage        uint16
	Interface    int
}

// Device is an open HID connection. Read/Write operate on the first
// byte as the report ID, following HID report framing convention.
type Device interface {
	Close() error
	Write(data []byte) (int, error)
	Read(buf []byte) (int, error)
	ReadTimeout(buf []byte, timeoutMs int) (int, error)
	SendFeatureReport(data []byte) (int, error)
	GetFeatureReport(buf []byte) (int, error)
}

// Enumerate lists HID devices, optionally filtered by vendorID/
// productID (0 matches any).
func Enumerate(vendorID, productID uint16) ([]DeviceInfo, error) {
	return enumerate(vendorID, productID)
}

// Open connects to the device described by info.
func (info DeviceInfo) Open() (Device, error) {
	return openDevice(info)
}
