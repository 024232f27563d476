package serial

import (
	"sync"

	"go.uber.org/zap"
)

type dataCallback func(handle int, data []byte)
type eventCallback func(handle int, mask EventMask)

// dispatcher is the Dispatcher (C7): maps each handle with an active
// listener to its Looper(s) and runs the setup/teardown sequence
// (adapter delivery channel -> Looper -> registry bookkeeping).
// Kept separate from portRegistry because a registry
// entry can exist with no active listener, but a looper entry implies
// one is running.
type dispatcher struct {
	mu    sync.Mutex
	data  map[int]*looper[[]byte]
	event map[int]*looper[EventMask]
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		data:  make(map[int]*looper[[]byte]),
		event: make(map[int]*looper[EventMask]),
	}
}

func (d *dispatcher) startData(handle int, adapter nativeAdapter, cb dataCallback) error {
	ch, err := adapter.BeginDataDelivery(handle)
	if err != nil {
		return wrapErr("dispatcher: begin data delivery", err)
	}
	l := newLooper(ch, func(b []byte) { cb(handle, b) })
	d.mu.Lock()
	d.data[handle] = l
	d.mu.Unlock()
	logger().Debug("data delivery started", zap.Int("handle", handle))
	return nil
}

func (d *dispatcher) stopData(handle int, adapter nativeAdapter) {
	d.mu.Lock()
	l := d.data[handle]
	delete(d.data, handle)
	d.mu.Unlock()
	if l == nil {
		return
	}
	l.stopAndWait()
	adapter.StopDataDelivery(handle)
	logger().Debug("data delivery stopped", zap.Int("handle", handle))
}

func (d *dispatcher) pauseData(handle int) {
	d.mu.Lock()
	l := d.data[handle]
	d.mu.Unlock()
	if l != nil {
		l.pause()
	}
}

func (d *dispatcher) resumeData(handle int) {
	d.mu.Lock()
	l := d.data[handle]
	d.mu.Unlock()
	if l != nil {
		l.resume()
	}
}

// startEvent filters each raw adapter event against the mask currentMask
// returns before calling cb, so a listener registered for e.g.
// EventCTS|EventDSR never sees an unrelated break/overrun bit. currentMask
// is consulted fresh on every delivered event rather than captured once,
// so set_event_mask takes effect on the next event after it returns.
func (d *dispatcher) startEvent(handle int, adapter nativeAdapter, currentMask func() EventMask, cb eventCallback) error {
	ch, err := adapter.BeginEventDelivery(handle)
	if err != nil {
		return wrapErr("dispatcher: begin event delivery", err)
	}
	l := newLooper(ch, func(m EventMask) {
		if filtered := m & currentMask(); filtered != 0 {
			cb(handle, filtered)
		}
	})
	d.mu.Lock()
	d.event[handle] = l
	d.mu.Unlock()
	logger().Debug("event delivery started", zap.Int("handle", handle))
	return nil
}

func (d *dispatcher) stopEvent(handle int, adapter nativeAdapter) {
	d.mu.Lock()
	l := d.event[handle]
	delete(d.event, handle)
	d.mu.Unlock()
	if l == nil {
		return
	}
	l.stopAndWait()
	adapter.StopEventDelivery(handle)
	logger().Debug("event delivery stopped", zap.Int("handle", handle))
}

func (d *dispatcher) pauseEvent(handle int) {
	d.mu.Lock()
	l := d.event[handle]
	d.mu.Unlock()
	if l != nil {
		l.pause()
	}
}

func (d *dispatcher) resumeEvent(handle int) {
	d.mu.Lock()
	l := d.event[handle]
	d.mu.Unlock()
	if l != nil {
		l.resume()
	}
}
