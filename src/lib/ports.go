package lib

import (
	"arr/src/config"
	"errors"
	"fmt"
	"net"
	"sync"
)

var ErrNoPortsAvailable = errors.New("no available ports in range")

// PortAllocator hands out local ports for bridge processes. A port is free
// only if it is not in the reserved set AND nothing on the host is bound to
// it, so a restarted server never trusts stale reservations.
type PortAllocator struct {
	mu    sync.Mutex
	start int
	end   int
	used  map[int]bool
	probe func(port int) bool
}

func CreatePortAllocator(start, end int, probe func(port int) bool) *PortAllocator {
	if probe == nil {
		probe = portFree
	}
	return &PortAllocator{
		start: start,
		end:   end,
		used:  make(map[int]bool),
		probe: probe,
	}
}

func portFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

func (a *PortAllocator) Acquire() (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for port := a.start; port <= a.end; port++ {
		if a.used[port] {
			continue
		}
		if !a.probe(port) {
			continue
		}
		a.used[port] = true
		return port, nil
	}
	return 0, ErrNoPortsAvailable
}

func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.used, port)
}

func (a *PortAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.used)
}

var portAllocator *PortAllocator

func GetPortAllocator() *PortAllocator {
	if portAllocator != nil {
		return portAllocator
	}
	portAllocator = CreatePortAllocator(config.NOVNC_PORT_START, config.NOVNC_PORT_END, nil)
	return portAllocator
}

// NewPortAllocator Replace allocator instance with custom implementation
func NewPortAllocator(a *PortAllocator) *PortAllocator {
	portAllocator = a
	return portAllocator
}
