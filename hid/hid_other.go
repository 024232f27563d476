//go:build !linux

package hid

// A cgo-free Windows/macOS HID backend isn't implemented yet; rather
// than fabricate one, every operation reports ErrPlatformUnsupported,
// the same documented-gap pattern unsupportedHotplug uses for the
// serial façade.
func enumerate(vendorID, productID uint16) ([]DeviceInfo, error) {
	return nil, ErrPlatformUnsupported
}

func openDevice(info DeviceInfo) (Device, error) {
	return nil, ErrPlatformUnsupported
}
