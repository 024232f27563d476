package serial

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchPort implements the Hotplug Monitor's adapter side (C9) on
// Linux via github.com/fsnotify/fsnotify watching /dev for the
// creation/removal of portName's device node, rather than hand-rolling
// a netlink/udev client.
func (a *linuxAdapter) WatchPort(handle int, portName string) (<-chan PortMonitorEvent, error) {
	p := a.get(handle)
	if p == nil {
		return nil, ErrUnknownHandle
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, wrapErr("hotplug: create watcher", err)
	}
	if err := watcher.Add("/dev"); err != nil {
		watcher.Close()
		return nil, wrapErr("hotplug: watch /dev", err)
	}

	base := filepath.Base(portName)
	ch := make(chan PortMonitorEvent, 8)

	p.mu.Lock()
	p.watchStop = make(chan struct{})
	p.watchDone = make(chan struct{})
	stop, done := p.watchStop, p.watchDone
	p.mu.Unlock()

	go func() {
		defer close(done)
		defer watcher.Close()
		for {
			select {
			case <-stop:
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				switch {
				case ev.Op&(fsnotify.Create) != 0:
					send(ch, stop, PortAdded)
				case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					send(ch, stop, PortRemoved)
				}
			case <-watcher.Errors:
				// Best-effort monitor: a watcher error doesn't tear
				// down the looper, it keeps waiting for the next event.
			}
		}
	}()

	return ch, nil
}

func send(ch chan<- PortMonitorEvent, stop <-chan struct{}, ev PortMonitorEvent) {
	select {
	case ch <- ev:
	case <-stop:
	}
}

func (a *linuxAdapter) UnwatchPort(handle int) {
	p := a.get(handle)
	if p == nil {
		return
	}
	p.mu.Lock()
	stop, done := p.watchStop, p.watchDone
	p.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	if done != nil {
		<-done
	}
}
