package hid

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumerateDoesNotPanic(t *testing.T) {
	devices, err := Enumerate(0, 0)
	if runtime.GOOS != "linux" {
		require.ErrorIs(t, err, ErrPlatformUnsupported)
		require.Nil(t, devices)
		return
	}
	require.NoError(t, err)
}

func TestOpenUnknownDeviceOnNonLinux(t *testing.T) {
	if runtime.GOOS == "linux" {
		t.Skip("requires a real hidraw node on Linux")
	}
	_, err := DeviceInfo{Path: "/dev/hidraw0"}.Open()
	require.True(t, errors.Is(err, ErrPlatformUnsupported))
}
