package sensor

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

type devKey struct {
	bus  string
	addr uint16
}

// Hardware opens I2C buses and devices once and shares them between
// channels. Several channels can read fields of the same BME280.
type Hardware struct {
	mu      sync.Mutex
	inited  bool
	buses   map[string]i2c.BusCloser
	bme     map[devKey]*bmxx80.Dev
	ads     map[devKey]*ads1x15.Dev
	halters []interface{ Halt() error }
}

func NewHardware() *Hardware {
	return &Hardware{
		buses: make(map[string]i2c.BusCloser),
		bme:   make(map[devKey]*bmxx80.Dev),
		ads:   make(map[devKey]*ads1x15.Dev),
	}
}

// bus must be called with h.mu held.
func (h *Hardware) bus(name string) (i2c.Bus, error) {
	if !h.inited {
		if _, err := host.Init(); err != nil {
			return nil, fmt.Errorf("periph host init: %w", err)
		}
		h.inited = true
	}
	if b, ok := h.buses[name]; ok {
		return b, nil
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", name, err)
	}
	h.buses[name] = b
	return b, nil
}

func (h *Hardware) bme280(busName string, addr uint16) (*bmxx80.Dev, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := devKey{busName, addr}
	if d, ok := h.bme[key]; ok {
		return d, nil
	}
	b, err := h.bus(busName)
	if err != nil {
		return nil, err
	}
	d, err := bmxx80.NewI2C(b, addr, &bmxx80.DefaultOpts)
	if err != nil {
		return nil, fmt.Errorf("bme280 at %#x: %w", addr, err)
	}
	h.bme[key] = d
	h.halters = append(h.halters, d)
	return d, nil
}

func (h *Hardware) ads1115(busName string, addr uint16) (*ads1x15.Dev, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := devKey{busName, addr}
	if d, ok := h.ads[key]; ok {
		return d, nil
	}
	b, err := h.bus(busName)
	if err != nil {
		return nil, err
	}
	opts := ads1x15.DefaultOpts
	opts.I2cAddress = addr
	d, err := ads1x15.NewADS1115(b, &opts)
	if err != nil {
		return nil, fmt.Errorf("ads1115 at %#x: %w", addr, err)
	}
	h.ads[key] = d
	h.halters = append(h.halters, d)
	return d, nil
}

// Close halts every device and closes the buses.
func (h *Hardware) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	for i := len(h.halters) - 1; i >= 0; i-- {
		err = errors.Join(err, h.halters[i].Halt())
	}
	for name, b := range h.buses {
		err = errors.Join(err, b.Close())
		delete(h.buses, name)
	}
	h.halters = nil
	clear(h.bme)
	clear(h.ads)
	return err
}
