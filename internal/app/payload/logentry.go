package payload

import (
	"encoding/json"

	"github.com/ghalamif/airdaq/internal/domain"
)

// LogEntry renders rec as a compact object: {"Time":<epoch>,"<id>":<value>,...}.
// Time is null when unknown.
func LogEntry(rec *domain.Record) ([]byte, error) {
	var o object
	if sec, ok := rec.Time.Unix(); ok {
		o = o.add("Time", sec)
	} else {
		o = o.add("Time", nil)
	}
	for _, rd := range rec.Readings {
		o = o.add(rd.ID, rd.Value)
	}
	return json.Marshal(o)
}
