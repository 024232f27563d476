package serial

import (
	"sync"

	"github.com/google/uuid"
)

// handleInfo is the Handle Info Record (C3): everything the Manager
// Façade needs about an open port beyond the bare native handle.
// Generalized from a simpler fd-plus-closed-flag record into one a
// registry can look up by either handle or name, with listener
// bookkeeping a single-port type never needed.
type handleInfo struct {
	handle int
	name   string

	enableRead  bool
	enableWrite bool
	exclusive   bool

	// dataToken/eventToken are opaque identities handed back at
	// register_*_listener time so a caller can unregister without
	// holding a reference to anything the registry itself owns.
	dataToken *uuid.UUID
	dataMask  EventMask

	eventToken *uuid.UUID
	eventMask  EventMask

	watching bool
}

// portRegistry is the Port Registry (C4): the single source of truth
// for which ports are open, under which handles, and whether a given
// port name is already held exclusively. All structural operations
// (open, close, listener register/unregister) serialize through mu,
// following a one-mutex-per-resource discipline: "one lock owns the
// state transition", scaled from a single atomic.Bool flag up to many
// ports.
type portRegistry struct {
	mu       sync.Mutex
	byHandle map[int]*handleInfo
	byName   map[string][]int
}

func newPortRegistry() *portRegistry {
	return &portRegistry{
		byHandle: make(map[int]*handleInfo),
		byName:   make(map[string][]int),
	}
}

// isOpen reports whether name currently has at least one registered
// handle, regardless of whether it was opened exclusively.
func (r *portRegistry) isOpen(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byName[name]) > 0
}

// openName validates the exclusive-ownership invariant and records the
// new handle atomically under one lock acquisition, closing the
// check-then-register race a separate isOpen+register pair would have.
// Per the documented open-question decision, the
// check is asymmetric: requesting exclusive=true fails against ANY
// existing handle for the name, but a non-exclusive request only fails
// if an existing handle already holds the name exclusively — two
// non-exclusive opens of the same name are allowed to coexist.
func (r *portRegistry) openName(name string, handle int, enableRead, enableWrite, exclusive bool) (*handleInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.byName[name]
	if exclusive && len(existing) > 0 {
		return nil, ErrInvalidArg
	}
	for _, h := range existing {
		if r.byHandle[h].exclusive {
			return nil, ErrInvalidArg
		}
	}

	info := &handleInfo{
		handle:      handle,
		name:        name,
		enableRead:  enableRead,
		enableWrite: enableWrite,
		exclusive:   exclusive,
	}
	r.byHandle[handle] = info
	r.byName[name] = append(existing, handle)
	return info, nil
}

func (r *portRegistry) get(handle int) (*handleInfo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	return info, ok
}

// hasActiveListeners reports whether close must be refused per
// a handle with a live data or event listener cannot be closed until
// the caller unregisters it.
func (r *portRegistry) hasActiveListeners(handle int) (data, event bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return false, false
	}
	return info.dataToken != nil, info.eventToken != nil
}

// remove deletes the handle's record. This is only called after a successful
// native Close — a failed close leaves the record in place so the
// handle stays valid for a retry.
func (r *portRegistry) remove(handle int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return
	}
	delete(r.byHandle, handle)
	handles := r.byName[info.name]
	for i, h := range handles {
		if h == handle {
			handles = append(handles[:i], handles[i+1:]...)
			break
		}
	}
	if len(handles) == 0 {
		delete(r.byName, info.name)
	} else {
		r.byName[info.name] = handles
	}
}

func (r *portRegistry) setDataListener(handle int, mask EventMask) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return uuid.UUID{}, ErrUnknownHandle
	}
	if info.dataToken != nil {
		return uuid.UUID{}, ErrAlreadyHasDataListener
	}
	token := uuid.New()
	info.dataToken = &token
	info.dataMask = mask
	return token, nil
}

func (r *portRegistry) clearDataListener(handle int, token uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if info.dataToken == nil || *info.dataToken != token {
		return ErrUnknownListener
	}
	info.dataToken = nil
	info.dataMask = 0
	return nil
}

func (r *portRegistry) setEventListener(handle int, mask EventMask) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return uuid.UUID{}, ErrUnknownHandle
	}
	if info.eventToken != nil {
		return uuid.UUID{}, ErrAlreadyHasEventListener
	}
	token := uuid.New()
	info.eventToken = &token
	info.eventMask = mask
	return token, nil
}

func (r *portRegistry) clearEventListener(handle int, token uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if info.eventToken == nil || *info.eventToken != token {
		return ErrUnknownListener
	}
	info.eventToken = nil
	info.eventMask = 0
	return nil
}

// setEventMask updates the live mask consulted by handle's event
// listener on its next delivered event. Fails with UnknownListener if
// no event listener is currently registered for handle.
func (r *portRegistry) setEventMask(handle int, mask EventMask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if info.eventToken == nil {
		return ErrUnknownListener
	}
	info.eventMask = mask
	return nil
}

func (r *portRegistry) getEventMask(handle int) (EventMask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	if !ok {
		return 0, ErrUnknownHandle
	}
	if info.eventToken == nil {
		return 0, ErrUnknownListener
	}
	return info.eventMask, nil
}

func (r *portRegistry) setWatching(handle int, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if info, ok := r.byHandle[handle]; ok {
		info.watching = on
	}
}

func (r *portRegistry) isWatching(handle int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.byHandle[handle]
	return ok && info.watching
}
