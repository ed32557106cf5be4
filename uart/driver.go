package uart

import (
	"fmt"
	"log/slog"
	"sync"
)

// Driver is the registration point the host framework attaches ports to,
// the moral equivalent of a serial-core driver entry. This simulation
// carries a single port, so MaxPorts defaults to 1.
type Driver struct {
	Name     string
	DevName  string
	MaxPorts int

	logger *slog.Logger

	mu    sync.RWMutex
	ports map[string]*Port
}

// NewDriver registers a driver with the given names.
func NewDriver(name, devName string, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("serial driver registered", "driver", name, "dev", devName)
	return &Driver{
		Name:     name,
		DevName:  devName,
		MaxPorts: 1,
		logger:   logger,
		ports:    make(map[string]*Port),
	}
}

// AddPort attaches a port to the driver.
func (d *Driver) AddPort(p *Port) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.ports) >= d.MaxPorts {
		return fmt.Errorf("uart: driver %s is full (%d ports)", d.Name, d.MaxPorts)
	}
	if _, ok := d.ports[p.Name()]; ok {
		return fmt.Errorf("uart: port %s already registered", p.Name())
	}
	if err := p.RequestPort(); err != nil {
		return err
	}
	p.ConfigPort()
	d.ports[p.Name()] = p
	d.logger.Info("port added", "port", p.Name(), "type", p.Type())
	return nil
}

// RemovePort detaches a port, shutting it down and releasing its timer.
func (d *Driver) RemovePort(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.ports[name]
	if !ok {
		return fmt.Errorf("uart: no such port %s", name)
	}
	delete(d.ports, name)

	p.mu.Lock()
	p.releaseLocked()
	p.mu.Unlock()
	p.ReleasePort()

	d.logger.Info("port removed", "port", name)
	return nil
}

// Port looks up an attached port by name.
func (d *Driver) Port(name string) (*Port, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.ports[name]
	return p, ok
}

// Ports returns the attached ports.
func (d *Driver) Ports() []*Port {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Port, 0, len(d.ports))
	for _, p := range d.ports {
		out = append(out, p)
	}
	return out
}

// Unregister removes every port and tears the driver down.
func (d *Driver) Unregister() {
	d.mu.Lock()
	names := make([]string, 0, len(d.ports))
	for name := range d.ports {
		names = append(names, name)
	}
	d.mu.Unlock()

	for _, name := range names {
		if err := d.RemovePort(name); err != nil {
			d.logger.Warn("removing port", "port", name, "error", err)
		}
	}
	d.logger.Info("serial driver unregistered", "driver", d.Name)
}
