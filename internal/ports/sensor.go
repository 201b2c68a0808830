package ports

import "context"

// SensorSource performs one raw read of a sensor channel. Conversion to
// engineering units and validation happen in the sampler.
type SensorSource interface {
	Read(ctx context.Context) (float64, error)
}
