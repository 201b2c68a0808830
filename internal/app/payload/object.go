package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// object is a JSON object that keeps insertion order. Consumers of the REST
// and log formats read fields positionally, so map ordering is not usable.
type object []member

type member struct {
	key   string
	value any
}

func (o object) add(key string, value any) object {
	return append(o, member{key: key, value: value})
}

func (o object) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(m.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(m.value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", m.key, err)
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}
