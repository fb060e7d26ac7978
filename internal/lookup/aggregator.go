// Package lookup builds reverse district lookups from associated
// candidates and attaches candidate lists to district geometries.
package lookup

import (
	"sort"
	"strings"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// DefaultSummaryLimit is the number of names listed per lookup row.
const DefaultSummaryLimit = 5

// Ellipsis marks a truncated name summary.
const Ellipsis = "..."

// Aggregator groups associated candidates by district.
type Aggregator struct {
	summaryLimit int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithSummaryLimit sets how many names a row summary lists.
func WithSummaryLimit(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.summaryLimit = n
		}
	}
}

// NewAggregator creates an Aggregator.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{summaryLimit: DefaultSummaryLimit}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns one row per distinct (circuit, district, name, entity)
// key. Unmatched candidates form the all-null group. Rows are sorted by key
// and names keep input order, so output is stable for a given input.
func (a *Aggregator) Aggregate(cands []domain.AssociatedCandidate) []domain.LookupRow {
	groups := make(map[domain.LookupKey][]string)
	var order []domain.LookupKey
	for _, c := range cands {
		k := KeyOf(c.Association)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c.DisplayName())
	}

	sort.SliceStable(order, func(i, j int) bool { return compareKeys(order[i], order[j]) < 0 })

	rows := make([]domain.LookupRow, 0, len(order))
	for _, k := range order {
		names := groups[k]
		rows = append(rows, domain.LookupRow{
			CircuitID:    k.CircuitID,
			DistrictID:   k.DistrictID,
			DistrictName: k.DistrictName,
			EntityName:   k.EntityName,
			Count:        len(names),
			Summary:      a.summarize(names),
		})
	}
	return rows
}

// KeyOf returns the lookup key of an association. Components are
// normalized so that decoded json.Number identifiers order numerically.
func KeyOf(a domain.Association) domain.LookupKey {
	return domain.LookupKey{
		CircuitID:    domain.NormalizeScalar(a.CircuitID),
		DistrictID:   domain.NormalizeScalar(a.DistrictID),
		DistrictName: domain.NormalizeScalar(a.DistrictName),
		EntityName:   domain.NormalizeScalar(a.EntityName),
	}
}

func (a *Aggregator) summarize(names []string) string {
	if len(names) <= a.summaryLimit {
		return strings.Join(names, ", ")
	}
	return strings.Join(names[:a.summaryLimit], ", ") + Ellipsis
}

func compareKeys(x, y domain.LookupKey) int {
	if c := domain.CompareScalars(x.CircuitID, y.CircuitID); c != 0 {
		return c
	}
	if c := domain.CompareScalars(x.DistrictID, y.DistrictID); c != 0 {
		return c
	}
	if c := domain.CompareScalars(x.DistrictName, y.DistrictName); c != 0 {
		return c
	}
	return domain.CompareScalars(x.EntityName, y.EntityName)
}
