package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DataType is the canonical semantic type tag carried by a field rule.
type DataType string

const (
	TypeString   DataType = "String"
	TypeDate     DataType = "Date"
	TypeDateTime DataType = "DateTime"
	TypeLong     DataType = "Long"
	TypeNumeric  DataType = "Numeric"
	TypeBoolean  DataType = "Boolean"
)

// NormalizeType maps a raw data-type cell to a canonical DataType.
// Parenthesized qualifiers like "decimal(10,2)" are stripped first.
// Blank or unknown input maps to TypeString.
func NormalizeType(raw string) DataType {
	s := foldCaser.String(raw)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	switch s {
	case "date":
		return TypeDate
	case "datetime", "timestamp", "timestamptz":
		return TypeDateTime
	case "long", "int", "integer", "bigint":
		return TypeLong
	case "numeric", "float", "double", "decimal", "number":
		return TypeNumeric
	case "boolean", "bool":
		return TypeBoolean
	case "", "string", "text", "varchar", "char":
		return TypeString
	default:
		return TypeString
	}
}

// FieldRule holds the validation attributes of one field within an entity.
type FieldRule struct {
	DataType              DataType `json:"data_type"`
	Mandatory             bool     `json:"mandatory_field"`
	FromSource            bool     `json:"from_source"`
	PrimaryKey            bool     `json:"primary_key"`
	RequiredForDeployment bool     `json:"required_for_deployment"`
	DeploymentValidation  bool     `json:"deployment_validation"`
	BusinessRules         string   `json:"business_rules"`
	Description           string   `json:"description"`
}

// Entity is one named grouping of field rules. Field insertion order is
// preserved through JSON serialization so repeated runs over unchanged
// input produce identical artifacts.
type Entity struct {
	Description string

	names  []string
	fields map[string]*FieldRule
}

// Field returns the rule for name, or nil.
func (e *Entity) Field(name string) *FieldRule {
	if e.fields == nil {
		return nil
	}
	return e.fields[name]
}

// FieldNames returns the field names in first-seen order.
func (e *Entity) FieldNames() []string { return e.names }

// Len returns the number of fields.
func (e *Entity) Len() int { return len(e.names) }

// PutField inserts a rule under name. A field name is unique within its
// entity; inserting an existing name replaces the stored pointer but keeps
// its original position. Callers that want merge semantics should check
// Field first.
func (e *Entity) PutField(name string, r *FieldRule) {
	if e.fields == nil {
		e.fields = make(map[string]*FieldRule)
	}
	if _, ok := e.fields[name]; !ok {
		e.names = append(e.names, name)
	}
	e.fields[name] = r
}

// MarshalJSON writes the entity as {"description":…, "fields":{…}} with
// fields in insertion order.
func (e *Entity) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"description":`)
	b, err := json.Marshal(e.Description)
	if err != nil {
		return nil, err
	}
	buf.Write(b)
	buf.WriteString(`,"fields":{`)
	for i, name := range e.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(e.fields[name])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the entity back preserving field order.
func (e *Entity) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		switch key {
		case "description":
			if err := dec.Decode(&e.Description); err != nil {
				return err
			}
		case "fields":
			if err := expectDelim(dec, '{'); err != nil {
				return err
			}
			for dec.More() {
				nameTok, err := dec.Token()
				if err != nil {
					return err
				}
				name, _ := nameTok.(string)
				var r FieldRule
				if err := dec.Decode(&r); err != nil {
					return err
				}
				e.PutField(name, &r)
			}
			if _, err := dec.Token(); err != nil { // closing }
				return err
			}
		default:
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return err
			}
		}
	}
	_, err := dec.Token() // closing }
	return err
}

// Catalog is the full rule catalog: an ordered mapping from entity name to
// Entity. Insertion order reflects first-seen order in the source rows.
type Catalog struct {
	names    []string
	entities map[string]*Entity
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{entities: make(map[string]*Entity)}
}

// Entity returns the entity for name, or nil.
func (c *Catalog) Entity(name string) *Entity { return c.entities[name] }

// Ensure returns the entity for name, creating it on first use.
func (c *Catalog) Ensure(name string) *Entity {
	if e, ok := c.entities[name]; ok {
		return e
	}
	e := &Entity{}
	c.entities[name] = e
	c.names = append(c.names, name)
	return e
}

// Names returns entity names in first-seen order.
func (c *Catalog) Names() []string { return c.names }

// Len returns the number of entities.
func (c *Catalog) Len() int { return len(c.names) }

// TotalFields returns the number of field rules across all entities.
func (c *Catalog) TotalFields() int {
	n := 0
	for _, name := range c.names {
		n += c.entities[name].Len()
	}
	return n
}

// MarshalJSON writes the catalog as a JSON object with entities in
// insertion order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range c.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(c.entities[name])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a catalog back preserving entity order.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	c.names = nil
	c.entities = make(map[string]*Entity)

	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}
	for dec.More() {
		nameTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := nameTok.(string)
		var e Entity
		if err := dec.Decode(&e); err != nil {
			return err
		}
		c.entities[name] = &e
		c.names = append(c.names, name)
	}
	_, err := dec.Token() // closing }
	return err
}

func expectDelim(dec *json.Decoder, want rune) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok || rune(d) != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
