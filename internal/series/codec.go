package series

import (
	"encoding/json"
	"fmt"
	"io"
)

// ReadPool decodes a JSON array of series, preserving file order.
func ReadPool(r io.Reader) (*Pool, error) {
	var items []*Series
	dec := json.NewDecoder(r)
	if err := dec.Decode(&items); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	return NewPool(items...)
}

// Marshal encodes one series in the ingestion format.
func Marshal(s *Series) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes and validates one series.
func Unmarshal(data []byte) (*Series, error) {
	var s Series
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode series: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
