package testgen

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	ResultPass = "Pass"
	ResultFail = "Fail"
)

// TestCase is one generated scenario for a field. Input nil denotes an
// intentionally absent value. IsInput distinguishes an input row from its
// paired expected-output row when cases are organized as pairs.
type TestCase struct {
	TestCase       string `json:"test_case"`
	Description    string `json:"description"`
	ExpectedResult string `json:"expected_result"`
	Input          any    `json:"input"`
	IsInput        bool   `json:"is_input"`
}

// Suite maps fully-qualified field names ("Entity.Field") to their ordered
// test cases. Key insertion order is preserved through JSON serialization.
type Suite struct {
	keys  []string
	cases map[string][]TestCase
}

// NewSuite returns an empty suite.
func NewSuite() *Suite {
	return &Suite{cases: make(map[string][]TestCase)}
}

// Add appends cases under key, creating the key on first use.
func (s *Suite) Add(key string, cases ...TestCase) {
	if _, ok := s.cases[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.cases[key] = append(s.cases[key], cases...)
}

// Cases returns the cases for key, or nil.
func (s *Suite) Cases(key string) []TestCase { return s.cases[key] }

// Keys returns field keys in insertion order.
func (s *Suite) Keys() []string { return s.keys }

// Len returns the number of field keys.
func (s *Suite) Len() int { return len(s.keys) }

// TotalCases returns the number of test cases across all fields.
func (s *Suite) TotalCases() int {
	n := 0
	for _, k := range s.keys {
		n += len(s.cases[k])
	}
	return n
}

// MarshalJSON writes the suite as an object with keys in insertion order.
func (s *Suite) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(s.cases[key])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the suite back preserving key order.
func (s *Suite) UnmarshalJSON(data []byte) error {
	s.keys = nil
	s.cases = make(map[string][]TestCase)

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var cases []TestCase
		if err := dec.Decode(&cases); err != nil {
			return err
		}
		s.Add(key, cases...)
	}
	_, err = dec.Token() // closing }
	return err
}
