// Package extract turns resolved tabular rows into the hierarchical rule
// catalog. Extraction is best-effort per row: structural problems abort
// before any row is processed, per-row problems are collected into the
// Outcome and logged, never raised.
package extract

import (
	"log"
	"strings"

	"golang.org/x/text/cases"

	"rulegen/internal/rows"
	"rulegen/internal/schema"
)

// Config carries the extractor defaults explicitly so tests can vary them.
type Config struct {
	// DefaultType is assumed when the data-type cell is blank or
	// unparseable. Zero value means schema.TypeString.
	DefaultType schema.DataType

	// ObjectMarker is the data-type cell value (case-insensitive, trimmed)
	// that flags an entity-level annotation row. Zero value means "object".
	ObjectMarker string

	// Mandatory classifies a field as required from its free-text
	// description when the sheet carries no mandatory column. Zero value
	// means DefaultClassifier.
	Mandatory Classifier
}

func (c Config) withDefaults() Config {
	if c.DefaultType == "" {
		c.DefaultType = schema.TypeString
	}
	if c.ObjectMarker == "" {
		c.ObjectMarker = "object"
	}
	if c.Mandatory == nil {
		c.Mandatory = DefaultClassifier
	}
	return c
}

// Classifier decides whether a field is required from its description text.
type Classifier func(description string) bool

// DefaultClassifier is a literal substring match on the word "mandatory".
//
// Known limitation, kept on purpose: a description reading "not mandatory"
// still classifies as required. The heuristic is isolated behind this type
// so the vocabulary can be replaced without touching the extractor.
var DefaultClassifier Classifier = func(description string) bool {
	return strings.Contains(foldCaser.String(description), "mandatory")
}

var foldCaser = cases.Fold()

// RowSkip records one soft per-row condition.
type RowSkip struct {
	Line   int
	Entity string
	Reason string
}

// Outcome is the typed result of an extraction pass. It reports partial
// success explicitly instead of folding it into an error.
type Outcome struct {
	RowsRead   int
	ObjectRows int
	Fields     int
	Merged     int // duplicate field names whose descriptions were appended
	Skips      []RowSkip
}

// Run consumes resolved columns and the full row sequence and produces the
// rule catalog.
//
// Entity names are forward-filled: a row with a blank entity cell inherits
// the most recent non-blank entity above it (merged spreadsheet cells).
// Rows whose data type equals the object marker seed the owning entity's
// description and never become fields; a later object row for the same
// entity overwrites the earlier one (documented simplification). Rows with
// no field name are skipped with a logged warning.
func Run(rws []rows.Row, cols schema.Columns, cfg Config) (*schema.Catalog, Outcome) {
	cfg = cfg.withDefaults()

	catalog := schema.NewCatalog()
	var out Outcome

	objectDesc := collectObjectDescriptions(rws, cols, cfg.ObjectMarker)

	entityHdr := cols.HeaderFor(schema.RoleEntity)
	fieldHdr := cols.HeaderFor(schema.RoleField)
	typeHdr := cols.HeaderFor(schema.RoleDataType)
	descHdr := cols.HeaderFor(schema.RoleDescription)

	marker := foldCaser.String(cfg.ObjectMarker)

	var lastEntity string
	for _, row := range rws {
		out.RowsRead++

		entity := row.Cell(entityHdr)
		if entity == "" {
			entity = lastEntity
		} else {
			lastEntity = entity
		}

		rawType := row.Cell(typeHdr)
		isObjectRow := foldCaser.String(rawType) == marker

		if entity == "" {
			out.Skips = append(out.Skips, RowSkip{Line: row.Line, Reason: "no entity name (nothing to forward-fill)"})
			log.Printf("extract: line %d: skipped, no entity name", row.Line)
			continue
		}

		if isObjectRow {
			out.ObjectRows++
			e := catalog.Ensure(entity)
			if d, ok := objectDesc[entity]; ok {
				e.Description = d
			}
			continue
		}

		fieldName := row.Cell(fieldHdr)
		if fieldName == "" {
			out.Skips = append(out.Skips, RowSkip{Line: row.Line, Entity: entity, Reason: "missing field name"})
			log.Printf("extract: line %d: skipped row under entity %q, missing field name", row.Line, entity)
			continue
		}

		e := catalog.Ensure(entity)
		if d, ok := objectDesc[entity]; ok && e.Description == "" {
			e.Description = d
		}

		desc := row.Cell(descHdr)
		bizRules := optionalCell(row, cols, schema.RoleBusinessRules)

		if existing := e.Field(fieldName); existing != nil {
			// Duplicate field name: append descriptions, keep first-seen
			// attributes. Attributes are not re-derived on repeat.
			appendText(&existing.Description, desc)
			appendText(&existing.BusinessRules, bizRules)
			out.Merged++
			continue
		}

		dataType := cfg.DefaultType
		if rawType != "" {
			dataType = schema.NormalizeType(rawType)
		}

		rule := &schema.FieldRule{
			DataType:      dataType,
			FromSource:    optionalYes(row, cols, schema.RoleFromSource),
			PrimaryKey:    optionalYes(row, cols, schema.RolePrimaryKey),
			BusinessRules: bizRules,
			Description:   desc,

			RequiredForDeployment: optionalYes(row, cols, schema.RoleRequiredForDeployment),
			DeploymentValidation:  optionalYes(row, cols, schema.RoleDeploymentValidation),
		}

		// An explicit mandatory column is authoritative; the description
		// heuristic is only the fallback for sheets without one.
		if cols.Has(schema.RoleMandatory) {
			rule.Mandatory = isYes(row.Cell(cols.HeaderFor(schema.RoleMandatory)))
		} else {
			rule.Mandatory = cfg.Mandatory(desc)
		}

		e.PutField(fieldName, rule)
		out.Fields++
	}

	return catalog, out
}

// collectObjectDescriptions scans rows whose data-type cell equals the
// object marker and records entity -> description, using the forward-filled
// entity name. Later rows overwrite earlier ones.
func collectObjectDescriptions(rws []rows.Row, cols schema.Columns, objectMarker string) map[string]string {
	entityHdr := cols.HeaderFor(schema.RoleEntity)
	typeHdr := cols.HeaderFor(schema.RoleDataType)
	descHdr := cols.HeaderFor(schema.RoleDescription)
	marker := foldCaser.String(objectMarker)

	out := map[string]string{}
	var lastEntity string
	for _, row := range rws {
		entity := row.Cell(entityHdr)
		if entity == "" {
			entity = lastEntity
		} else {
			lastEntity = entity
		}
		if entity == "" {
			continue
		}
		if foldCaser.String(row.Cell(typeHdr)) != marker {
			continue
		}
		out[entity] = row.Cell(descHdr)
	}
	return out
}

func appendText(dst *string, add string) {
	if add == "" {
		return
	}
	if *dst == "" {
		*dst = add
		return
	}
	*dst = *dst + "\n" + add
}

func optionalCell(row rows.Row, cols schema.Columns, role schema.Role) string {
	if !cols.Has(role) {
		return ""
	}
	return row.Cell(cols.HeaderFor(role))
}

func optionalYes(row rows.Row, cols schema.Columns, role schema.Role) bool {
	if !cols.Has(role) {
		return false
	}
	return isYes(row.Cell(cols.HeaderFor(role)))
}

// isYes interprets the sheet's yes/no cells.
func isYes(v string) bool {
	switch foldCaser.String(strings.TrimSpace(v)) {
	case "yes", "y", "true", "1":
		return true
	default:
		return false
	}
}
