// Package district resolves the judicial district reference table and
// associates candidates with districts in two tiers: an exact
// (circuit, district) identifier pair, then a state-name fallback.
package district

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// Role is a logical reference column.
type Role string

// Reference column roles. DistrictName is the only optional one.
const (
	RoleDistrictID   Role = "district_id"
	RoleCircuitID    Role = "circuit_id"
	RoleDistrictName Role = "district_name"
	RoleEntityName   Role = "entity_name"
)

// requiredRoles must all resolve or the reference table is unusable.
var requiredRoles = []Role{RoleDistrictID, RoleCircuitID, RoleEntityName}

// ColumnSynonyms maps each role to the lower-case column names accepted for it.
type ColumnSynonyms map[Role][]string

// DefaultColumnSynonyms returns the column names seen in published
// district shapefiles and tables.
func DefaultColumnSynonyms() ColumnSynonyms {
	return ColumnSynonyms{
		RoleDistrictID:   {"distrito_j", "distrito_judicial", "dist_jud"},
		RoleCircuitID:    {"circuito", "circuito_judicial", "circ_jud"},
		RoleDistrictName: {"nombre_dis", "nombre_distrito_judicial", "nombre_dj"},
		RoleEntityName:   {"entidad", "cve_ent"},
	}
}

// Merge returns a copy of s with non-empty overrides applied.
func (s ColumnSynonyms) Merge(overrides map[Role][]string) ColumnSynonyms {
	out := make(ColumnSynonyms, len(s))
	for r, names := range s {
		out[r] = append([]string(nil), names...)
	}
	for r, names := range overrides {
		if len(names) == 0 {
			continue
		}
		lowered := make([]string, len(names))
		for i, n := range names {
			lowered[i] = strings.ToLower(n)
		}
		out[r] = lowered
	}
	return out
}

// Columns maps each role to the actual column key it resolved to.
// A role missing from the map did not resolve.
type Columns map[Role]string

// ResolveColumns matches keys (compared lower-cased) against the synonyms.
// It fails with a *domain.SchemaError naming the first identifying role
// that cannot be resolved.
func ResolveColumns(table string, keys []string, synonyms ColumnSynonyms) (Columns, error) {
	return ResolveRoles(table, keys, synonyms, requiredRoles...)
}

// ResolveRoles is ResolveColumns with an explicit set of required roles.
func ResolveRoles(table string, keys []string, synonyms ColumnSynonyms, required ...Role) (Columns, error) {
	lower := make(map[string]string, len(keys))
	for _, k := range keys {
		lk := strings.ToLower(strings.TrimSpace(k))
		if _, dup := lower[lk]; !dup {
			lower[lk] = k
		}
	}

	cols := make(Columns, 4)
	for _, role := range []Role{RoleDistrictID, RoleCircuitID, RoleDistrictName, RoleEntityName} {
		for _, name := range synonyms[role] {
			if actual, ok := lower[name]; ok {
				cols[role] = actual
				break
			}
		}
	}

	for _, role := range required {
		if _, ok := cols[role]; !ok {
			return nil, domain.NewSchemaError(table, string(role), synonyms[role])
		}
	}
	return cols, nil
}

// Row is one record of the reference table keyed by its original column names.
type Row map[string]domain.Scalar

// DistrictFrom builds a District from a row using the resolved columns.
func (c Columns) DistrictFrom(row Row) domain.District {
	d := domain.District{
		CircuitID:  row[c[RoleCircuitID]],
		DistrictID: row[c[RoleDistrictID]],
		EntityName: row[c[RoleEntityName]],
	}
	if col, ok := c[RoleDistrictName]; ok {
		d.DistrictName = row[col]
	}
	return d
}

type pairKey struct {
	circuit  domain.Scalar
	district domain.Scalar
}

// Reference is the immutable, indexed district reference set.
type Reference struct {
	districts []domain.District
	columns   Columns
	byPair    map[pairKey]int
	byEntity  map[string]int
	entities  []string
}

// NewReference resolves the header against synonyms and indexes rows.
// For both indexes the first row in table order wins.
func NewReference(header []string, rows []Row, synonyms ColumnSynonyms) (*Reference, error) {
	if synonyms == nil {
		synonyms = DefaultColumnSynonyms()
	}
	cols, err := ResolveColumns("districts", header, synonyms)
	if err != nil {
		return nil, err
	}

	ref := &Reference{
		districts: make([]domain.District, 0, len(rows)),
		columns:   cols,
		byPair:    make(map[pairKey]int, len(rows)),
		byEntity:  make(map[string]int),
	}
	for i, row := range rows {
		d := cols.DistrictFrom(row)
		ref.districts = append(ref.districts, d)

		if d.CircuitID != nil && d.DistrictID != nil {
			k := pairKey{circuit: d.CircuitID, district: d.DistrictID}
			if _, seen := ref.byPair[k]; !seen {
				ref.byPair[k] = i
			}
		}
		if name, ok := d.EntityName.(string); ok {
			folded := FoldName(name)
			if _, seen := ref.byEntity[folded]; !seen {
				ref.byEntity[folded] = i
				ref.entities = append(ref.entities, folded)
			}
		}
	}
	return ref, nil
}

// Districts returns the reference rows in table order.
func (r *Reference) Districts() []domain.District { return r.districts }

// Columns returns the resolved column mapping.
func (r *Reference) Columns() Columns { return r.columns }

// Len returns the number of reference rows.
func (r *Reference) Len() int { return len(r.districts) }

// ByPair returns the first district with exactly this identifier pair.
func (r *Reference) ByPair(circuit, district domain.Scalar) (domain.District, bool) {
	i, ok := r.byPair[pairKey{circuit: circuit, district: district}]
	if !ok {
		return domain.District{}, false
	}
	return r.districts[i], true
}

// ByEntity returns the first district whose entity name equals name after
// case folding.
func (r *Reference) ByEntity(name string) (domain.District, bool) {
	i, ok := r.byEntity[FoldName(name)]
	if !ok {
		return domain.District{}, false
	}
	return r.districts[i], true
}

// FoldName normalizes a name for case-insensitive comparison. Accents are
// kept; only case and Unicode composition are neutralized.
func FoldName(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}
