package domain

// Meta is the static device metadata stamped onto every record.
type Meta struct {
	Location string
}

// Record is one cycle's ready-to-send telemetry unit. Readings keep the
// configured channel order and are keyed by Reading.ID.
type Record struct {
	Location string
	Time     Timestamp
	Readings []Reading
}

// Reading looks up a reading by sensor ID.
func (r *Record) Reading(id string) (Reading, bool) {
	for _, rd := range r.Readings {
		if rd.ID == id {
			return rd, true
		}
	}
	return Reading{}, false
}

// Select returns a record restricted to ids, in the record's own order.
// An empty ids slice selects every reading.
func (r *Record) Select(ids []string) *Record {
	if len(ids) == 0 {
		return r
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := &Record{Location: r.Location, Time: r.Time}
	for _, rd := range r.Readings {
		if _, ok := want[rd.ID]; ok {
			out.Readings = append(out.Readings, rd)
		}
	}
	return out
}

// PerSensor splits the record into one single-reading record per sensor.
func (r *Record) PerSensor() []*Record {
	out := make([]*Record, 0, len(r.Readings))
	for _, rd := range r.Readings {
		out = append(out, &Record{
			Location: r.Location,
			Time:     r.Time,
			Readings: []Reading{rd},
		})
	}
	return out
}

// IDs lists the sensor IDs in the record, in order.
func (r *Record) IDs() []string {
	ids := make([]string, len(r.Readings))
	for i, rd := range r.Readings {
		ids[i] = rd.ID
	}
	return ids
}
