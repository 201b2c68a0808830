package airdaq

import (
	"fmt"
	"io"
	"time"

	"github.com/ghalamif/airdaq/internal/adapters/opcua"
	"github.com/ghalamif/airdaq/internal/adapters/sensor"
	"github.com/ghalamif/airdaq/internal/adapters/transport/appendlog"
	"github.com/ghalamif/airdaq/internal/adapters/transport/breaker"
	"github.com/ghalamif/airdaq/internal/adapters/transport/docstore"
	"github.com/ghalamif/airdaq/internal/adapters/transport/influx"
	"github.com/ghalamif/airdaq/internal/adapters/transport/kafka"
	"github.com/ghalamif/airdaq/internal/adapters/transport/mqtt"
	"github.com/ghalamif/airdaq/internal/adapters/transport/rest"
	"github.com/ghalamif/airdaq/internal/adapters/transport/sqlstore"
	"github.com/ghalamif/airdaq/internal/app/config"
	"github.com/ghalamif/airdaq/internal/app/pipeline"
	"github.com/ghalamif/airdaq/internal/ports"
)

// session is an Opener the runtime opens during bring-up and keeps alive.
type session struct {
	name     string
	opener   ports.Opener
	required bool
}

// wiring turns config sections into adapters. Shared hardware handles are
// created on first use and released when the runtime shuts down.
type wiring struct {
	cfg *Config
	obs ports.Observability

	hw       *sensor.Hardware
	opcua    *opcua.Session
	closers  []io.Closer
	sessions []session
}

func (w *wiring) hardware() *sensor.Hardware {
	if w.hw == nil {
		w.hw = sensor.NewHardware()
		w.closers = append(w.closers, w.hw)
	}
	return w.hw
}

func (w *wiring) opcuaSession() (*opcua.Session, error) {
	if w.opcua != nil {
		return w.opcua, nil
	}
	s, err := opcua.NewSession(w.cfg.OPCUA)
	if err != nil {
		return nil, fmt.Errorf("opcua session: %w", err)
	}
	w.opcua = s
	w.closers = append(w.closers, s)
	// Reads reconnect lazily, so a failed first connect is not fatal.
	w.sessions = append(w.sessions, session{name: "opcua", opener: s})
	return s, nil
}

func (w *wiring) source(sc config.SensorConfig) (ports.SensorSource, error) {
	switch sc.Driver {
	case config.DriverIIO:
		return sensor.NewIIOSource(sc.IIO)
	case config.DriverBME280:
		return sensor.NewBME280Source(w.hardware(), sc.BME280)
	case config.DriverADS1115:
		return sensor.NewADS1115Source(w.hardware(), sc.ADS1115)
	case config.DriverSim:
		return sensor.NewSimSource(sc.Sim)
	case config.DriverOPCUA:
		s, err := w.opcuaSession()
		if err != nil {
			return nil, err
		}
		return s.Source(sc.OPCUA)
	default:
		return nil, fmt.Errorf("unknown driver %q", sc.Driver)
	}
}

func (w *wiring) transport(tc config.TransportConfig) (ports.Transport, error) {
	var (
		tr  ports.Transport
		err error
	)
	switch tc.Type {
	case config.TransportDocstore:
		tr, err = docstore.New(tc.Name, tc.Docstore, nil)
	case config.TransportREST:
		tr, err = rest.New(tc.Name, tc.REST, nil)
	case config.TransportAppendLog:
		tr, err = appendlog.New(tc.Name, tc.AppendLog)
	case config.TransportMQTT:
		mc := tc.MQTT
		mc.SensorTopics = mc.SensorTopics || tc.PerSensor
		tr, err = mqtt.New(tc.Name, mc)
	case config.TransportInflux:
		tr, err = influx.New(tc.Name, tc.Influx, tc.Timeout)
	case config.TransportSQL:
		tr, err = sqlstore.Open(tc.Name, tc.SQL)
	case config.TransportKafka:
		tr, err = kafka.New(tc.Name, tc.Kafka)
	default:
		return nil, fmt.Errorf("unknown transport type %q", tc.Type)
	}
	if err != nil {
		return nil, err
	}
	if c, ok := tr.(io.Closer); ok {
		w.closers = append(w.closers, c)
	}
	_, stateful := tr.(ports.Opener)
	if tc.Breaker.Enabled {
		tr = breaker.Wrap(tr, tc.Breaker, w.obs)
	}
	if op, ok := tr.(ports.Opener); ok && stateful {
		w.sessions = append(w.sessions, session{name: tc.Name, opener: op, required: tc.Required})
	}
	return tr, nil
}

func (w *wiring) channels(overrides map[string]SensorSource) ([]pipeline.Channel, error) {
	out := make([]pipeline.Channel, 0, len(w.cfg.Sensors))
	for _, sc := range w.cfg.Sensors {
		kind, err := ParseKind(sc.Kind)
		if err != nil {
			return nil, fmt.Errorf("sensor %s: %w", sc.ID, err)
		}
		src, ok := overrides[sc.ID]
		if !ok || src == nil {
			src, err = w.source(sc)
			if err != nil {
				return nil, fmt.Errorf("sensor %s: %w", sc.ID, err)
			}
		}
		label := sc.Label
		if label == "" {
			label = sc.ID
		}
		out = append(out, pipeline.Channel{
			ID:         sc.ID,
			Label:      label,
			Kind:       kind,
			Source:     src,
			Conversion: sc.Conversion,
		})
	}
	return out, nil
}

func (w *wiring) routes() ([]pipeline.Route, error) {
	out := make([]pipeline.Route, 0, len(w.cfg.Transports))
	for _, tc := range w.cfg.Transports {
		tr, err := w.transport(tc)
		if err != nil {
			return nil, fmt.Errorf("transport %s: %w", tc.Name, err)
		}
		timeout := tc.Timeout
		if timeout == 0 {
			timeout = 10 * time.Second
		}
		out = append(out, pipeline.Route{
			Transport: tr,
			Sensors:   tc.Sensors,
			PerSensor: perSensor(tc),
			Timeout:   timeout,
		})
	}
	return out, nil
}

// perSensor reports whether records for tc are split one reading per send.
// Document stores and per-sensor MQTT topics always write one path per
// sensor, so each reading gets its own outcome.
func perSensor(tc config.TransportConfig) bool {
	switch tc.Type {
	case config.TransportDocstore:
		return true
	case config.TransportMQTT:
		return tc.PerSensor || tc.MQTT.SensorTopics
	default:
		return tc.PerSensor
	}
}
