package sensor

import (
	"context"
	"fmt"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
)

type ADS1115Config struct {
	Bus     string `yaml:"bus"`
	Address uint16 `yaml:"address"`
	// Channel is the single-ended input, 0 to 3.
	Channel int `yaml:"channel"`
	// MaxVolts selects the programmable gain range.
	MaxVolts float64 `yaml:"max_volts"`
}

func (c *ADS1115Config) ApplyDefaults() {
	if c.Address == 0 {
		c.Address = 0x48
	}
	if c.MaxVolts == 0 {
		c.MaxVolts = 4.096
	}
}

func (c *ADS1115Config) Validate() error {
	if c.Channel < 0 || c.Channel > 3 {
		return fmt.Errorf("ads1115.channel must be 0..3, got %d", c.Channel)
	}
	if c.MaxVolts <= 0 {
		return fmt.Errorf("ads1115.max_volts must be positive")
	}
	return nil
}

var adsChannels = [...]ads1x15.Channel{ads1x15.Channel0, ads1x15.Channel1, ads1x15.Channel2, ads1x15.Channel3}

type analogPin interface {
	Read() (analog.Sample, error)
}

// ADS1115Source returns raw ADC counts. Pair it with a ratio conversion.
type ADS1115Source struct {
	pin analogPin
}

func NewADS1115Source(hw *Hardware, cfg ADS1115Config) (*ADS1115Source, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dev, err := hw.ads1115(cfg.Bus, cfg.Address)
	if err != nil {
		return nil, err
	}
	maxV := physic.ElectricPotential(cfg.MaxVolts * float64(physic.Volt))
	pin, err := dev.PinForChannel(adsChannels[cfg.Channel], maxV, physic.Hertz, ads1x15.SaveEnergy)
	if err != nil {
		return nil, fmt.Errorf("ads1115 channel %d: %w", cfg.Channel, err)
	}
	return &ADS1115Source{pin: pin}, nil
}

func (s *ADS1115Source) Read(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sample, err := s.pin.Read()
	if err != nil {
		return 0, fmt.Errorf("ads1115 read: %w", err)
	}
	return float64(sample.Raw), nil
}
