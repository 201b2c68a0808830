package payload

import (
	"encoding/json"

	"github.com/ghalamif/airdaq/internal/domain"
)

// Document is the per-sensor document written to the document store.
// Time is null when the device clock never synchronized.
type Document struct {
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Location string  `json:"location"`
	Value    float64 `json:"value"`
	Time     *string `json:"time"`
}

// NewDocument renders one reading of rec.
func NewDocument(rec *domain.Record, rd domain.Reading) Document {
	doc := Document{
		Name:     rd.Label,
		Type:     string(rd.Kind),
		Location: rec.Location,
		Value:    rd.Value,
	}
	if rec.Time.Known() {
		s := rec.Time.Format()
		doc.Time = &s
	}
	return doc
}

// DocumentPath is the logical store path for a reading: /{location}/{id}.
func DocumentPath(location, id string) string {
	return "/" + location + "/" + id
}

// EncodeDocument marshals the document for rd.
func EncodeDocument(rec *domain.Record, rd domain.Reading) ([]byte, error) {
	return json.Marshal(NewDocument(rec, rd))
}
