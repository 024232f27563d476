package serial

import "sync"

type portMonitorCallback func(handle int, event PortMonitorEvent)

// hotplugMonitor is the façade side of the Hotplug Monitor (C9):
// register_port_monitor/unregister_port_monitor,
// built on the same Looper machinery as the data/event delivery paths
// so a watcher gets the same pause-free, synchronous-teardown
// guarantees without a third bespoke goroutine shape.
type hotplugMonitor struct {
	mu    sync.Mutex
	watch map[int]*looper[PortMonitorEvent]
}

func newHotplugMonitor() *hotplugMonitor {
	return &hotplugMonitor{watch: make(map[int]*looper[PortMonitorEvent])}
}

func (h *hotplugMonitor) register(handle int, adapter nativeAdapter, portName string, cb portMonitorCallback) error {
	h.mu.Lock()
	_, exists := h.watch[handle]
	h.mu.Unlock()
	if exists {
		return ErrAlreadyHasEventListener
	}

	ch, err := adapter.WatchPort(handle, portName)
	if err != nil {
		return err
	}
	l := newLooper(ch, func(ev PortMonitorEvent) { cb(handle, ev) })
	h.mu.Lock()
	h.watch[handle] = l
	h.mu.Unlock()
	return nil
}

func (h *hotplugMonitor) unregister(handle int, adapter nativeAdapter) error {
	h.mu.Lock()
	l, ok := h.watch[handle]
	delete(h.watch, handle)
	h.mu.Unlock()
	if !ok {
		return ErrUnknownListener
	}
	l.stopAndWait()
	adapter.UnwatchPort(handle)
	return nil
}
