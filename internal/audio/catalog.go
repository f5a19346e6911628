package audio

import (
	"errors"

	"github.com/rs/zerolog"
)

// Catalog enumerates and resolves input devices of a host.
type Catalog struct {
	host Host
	log  zerolog.Logger
}

// NewCatalog creates a catalog backed by host.
func NewCatalog(host Host, log zerolog.Logger) *Catalog {
	return &Catalog{
		host: host,
		log:  log.With().Str("component", "catalog").Str("host", host.Name()).Logger(),
	}
}

// Host returns the underlying host.
func (c *Catalog) Host() Host {
	return c.host
}

// ListDevices returns "Default" followed by the names of all input devices.
// A device whose name cannot be read fails the whole listing.
func (c *Catalog) ListDevices() ([]string, error) {
	devices, err := c.host.InputDevices()
	if err != nil {
		return nil, &EnumerationError{Host: c.host.Name(), Err: err}
	}

	names := make([]string, 0, len(devices)+1)
	names = append(names, DefaultDeviceName)
	for i, d := range devices {
		name, err := d.Name()
		if err != nil {
			return nil, &DeviceNameError{Index: i, Err: err}
		}
		names = append(names, name)
	}

	return names, nil
}

// Resolve returns the device called name. An empty name or "Default" yields the
// host default input device as of now.
func (c *Catalog) Resolve(name string) (Device, error) {
	if name == "" || name == DefaultDeviceName {
		d, err := c.host.DefaultInputDevice()
		if err != nil {
			if errors.Is(err, ErrNoDeviceAvailable) {
				return nil, ErrNoDeviceAvailable
			}
			return nil, &EnumerationError{Host: c.host.Name(), Err: err}
		}
		if d == nil {
			return nil, ErrNoDeviceAvailable
		}
		return d, nil
	}

	d, err := c.find(name)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDeviceNotFound
	}
	return d, nil
}

// Exists reports whether a device called name is currently present.
func (c *Catalog) Exists(name string) bool {
	if name == "" || name == DefaultDeviceName {
		return true
	}

	d, err := c.find(name)
	if err != nil {
		c.log.Warn().Err(err).Str("device", name).Msg("Device lookup failed")
		return false
	}
	return d != nil
}

// find scans for an exact name match, skipping devices with unreadable names.
func (c *Catalog) find(name string) (Device, error) {
	devices, err := c.host.InputDevices()
	if err != nil {
		return nil, &EnumerationError{Host: c.host.Name(), Err: err}
	}

	for i, d := range devices {
		n, err := d.Name()
		if err != nil {
			c.log.Warn().Err(err).Int("index", i).Msg("Failed to get device name, skipping")
			continue
		}
		if n == name {
			return d, nil
		}
	}
	return nil, nil
}
