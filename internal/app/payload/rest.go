package payload

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ghalamif/airdaq/internal/domain"
)

// RESTFlavor selects the JSON body shape for the REST transport.
type RESTFlavor string

const (
	// FlavorPlain keys each value by sensor ID: {"Temperature":"21.50",...}.
	FlavorPlain RESTFlavor = "plain"
	// FlavorThingSpeak uses {"api_key":...,"field1":...} in reading order.
	FlavorThingSpeak RESTFlavor = "thingspeak"
)

// ParseRESTFlavor validates a configured flavor; empty means plain.
func ParseRESTFlavor(s string) (RESTFlavor, error) {
	switch f := RESTFlavor(s); f {
	case "", FlavorPlain:
		return FlavorPlain, nil
	case FlavorThingSpeak:
		return f, nil
	default:
		return "", fmt.Errorf("unknown rest flavor %q", s)
	}
}

// RESTBody renders rec with string-encoded, two-decimal values.
func RESTBody(rec *domain.Record, flavor RESTFlavor, apiKey string) ([]byte, error) {
	var o object
	switch flavor {
	case FlavorThingSpeak:
		o = o.add("api_key", apiKey)
		for i, rd := range rec.Readings {
			o = o.add("field"+strconv.Itoa(i+1), formatValue(rd.Value))
		}
	default:
		for _, rd := range rec.Readings {
			o = o.add(rd.ID, formatValue(rd.Value))
		}
	}
	return json.Marshal(o)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
