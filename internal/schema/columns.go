package schema

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Role is a semantic column role in the source sheet. The literal header
// text varies between sheets; roles are what the extractor actually needs.
type Role string

const (
	// Required roles. Extraction cannot start without all four.
	RoleEntity      Role = "entity"
	RoleField       Role = "field"
	RoleDataType    Role = "data_type"
	RoleDescription Role = "description"

	// Optional roles. When absent, the extractor falls back to its
	// description-text heuristics.
	RoleBusinessRules         Role = "business_rules"
	RoleMandatory             Role = "mandatory"
	RoleFromSource            Role = "from_source"
	RolePrimaryKey            Role = "primary_key"
	RoleRequiredForDeployment Role = "required_for_deployment"
	RoleDeploymentValidation  Role = "deployment_validation"
)

// requiredRoles is the set the resolver must satisfy.
var requiredRoles = []Role{RoleEntity, RoleField, RoleDataType, RoleDescription}

// roleOrder fixes resolution order. Order matters for overlapping
// vocabularies: "required for deployment validation" must claim its column
// before "deployment validation" gets a chance to.
var roleOrder = []Role{
	RoleEntity, RoleField, RoleDataType, RoleDescription,
	RoleBusinessRules, RoleMandatory, RoleFromSource, RolePrimaryKey,
	RoleRequiredForDeployment, RoleDeploymentValidation,
}

// vocabulary maps each role to the header substrings that identify it.
// Matching is case-folded substring containment, first match wins.
var vocabulary = map[Role][]string{
	RoleEntity:                {"rx bc", "schema name", "entity name"},
	RoleField:                 {"attributes details", "attribute details", "field name"},
	RoleDataType:              {"data type"},
	RoleDescription:           {"description"},
	RoleBusinessRules:         {"business rules"},
	RoleMandatory:             {"mandatory field"},
	RoleFromSource:            {"required from source"},
	RolePrimaryKey:            {"primary key"},
	RoleRequiredForDeployment: {"required for deployment validation"},
	RoleDeploymentValidation:  {"deployment validation"},
}

// Columns is the result of header resolution: for every resolved role the
// column index and the literal header under which cells are stored.
type Columns struct {
	Index  map[Role]int
	Header map[Role]string
}

// Has reports whether role was resolved.
func (c Columns) Has(role Role) bool {
	_, ok := c.Index[role]
	return ok
}

// HeaderFor returns the literal header for role, or "" if unresolved.
func (c Columns) HeaderFor(role Role) string { return c.Header[role] }

// DetectionError reports the required roles that could not be resolved from
// the header row. Extraction must not proceed when this is returned.
type DetectionError struct {
	Missing []Role
}

func (e *DetectionError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = string(r)
	}
	sort.Strings(names)
	return fmt.Sprintf("schema detection: unresolved column roles: %s", strings.Join(names, ", "))
}

var foldCaser = cases.Fold()

// foldHeader normalizes a header for matching: trim, case-fold, collapse
// interior whitespace runs to single spaces.
func foldHeader(h string) string {
	return strings.Join(strings.Fields(foldCaser.String(h)), " ")
}

// ResolveColumns locates the semantic roles in an ordered header row.
//
// Matching is first-match-wins per role, scanning headers left to right; a
// header claimed by an earlier role is not eligible for later ones. Returns
// *DetectionError if any required role stays unresolved. Pure function.
func ResolveColumns(headers []string) (Columns, error) {
	folded := make([]string, len(headers))
	for i, h := range headers {
		folded[i] = foldHeader(h)
	}

	cols := Columns{
		Index:  make(map[Role]int, len(roleOrder)),
		Header: make(map[Role]string, len(roleOrder)),
	}
	claimed := make([]bool, len(headers))

	for _, role := range roleOrder {
		for i, h := range folded {
			if claimed[i] || h == "" {
				continue
			}
			if !matchesRole(h, vocabulary[role]) {
				continue
			}
			cols.Index[role] = i
			cols.Header[role] = headers[i]
			claimed[i] = true
			break
		}
	}

	var missing []Role
	for _, role := range requiredRoles {
		if !cols.Has(role) {
			missing = append(missing, role)
		}
	}
	if len(missing) > 0 {
		return Columns{}, &DetectionError{Missing: missing}
	}
	return cols, nil
}

func matchesRole(foldedHeader string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(foldedHeader, t) {
			return true
		}
	}
	return false
}
