package serial

// unsupportedHotplug is embedded by adapters that have no device-
// notification mechanism wired up yet (windows, darwin, solaris — see
// DESIGN.md). It satisfies the WatchPort/UnwatchPort half of
// nativeAdapter without duplicating the same stub three times.
type unsupportedHotplug struct{}

func (unsupportedHotplug) WatchPort(handle int, portName string) (<-chan PortMonitorEvent, error) {
	return nil, ErrPlatformConstraint
}

func (unsupportedHotplug) UnwatchPort(handle int) {}
