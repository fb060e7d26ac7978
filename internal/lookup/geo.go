package lookup

import (
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/ahrav/go-judicatura/internal/district"
	"github.com/ahrav/go-judicatura/internal/domain"
)

// PropertyCandidates is the feature property holding attached candidates.
const PropertyCandidates = "candidatos"

// GeoSummary reports what Enrich attached.
type GeoSummary struct {
	Features          int `json:"features"`
	FeaturesWithMatch int `json:"features_with_match"`
	Attached          int `json:"attached"`
}

// Enrich sets the candidatos property of every district feature to the
// candidates associated with that feature's (circuit, district) pair, or
// an empty list. Identifiers are compared through their text form so that
// numeric GeoJSON properties line up with tabular reference values.
// Candidates without both identifiers are not attached anywhere.
func Enrich(fc *geojson.FeatureCollection, cands []domain.AssociatedCandidate, synonyms district.ColumnSynonyms) (GeoSummary, error) {
	if synonyms == nil {
		synonyms = district.DefaultColumnSynonyms()
	}

	cols, err := district.ResolveRoles("district_features", propertyKeys(fc), synonyms,
		district.RoleCircuitID, district.RoleDistrictID)
	if err != nil {
		return GeoSummary{}, err
	}

	byPair := make(map[string][]domain.AssociatedCandidate)
	for _, c := range cands {
		if c.CircuitID == nil || c.DistrictID == nil {
			continue
		}
		k := geoKey(c.CircuitID, c.DistrictID)
		byPair[k] = append(byPair[k], c)
	}

	sum := GeoSummary{Features: len(fc.Features)}
	for _, f := range fc.Features {
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		circuit := f.Properties[cols[district.RoleCircuitID]]
		dist := f.Properties[cols[district.RoleDistrictID]]

		attached := []domain.AssociatedCandidate{}
		if circuit != nil && dist != nil {
			if list, ok := byPair[geoKey(circuit, dist)]; ok {
				attached = append(attached, list...)
			}
		}
		f.Properties[PropertyCandidates] = attached
		if len(attached) > 0 {
			sum.FeaturesWithMatch++
			sum.Attached += len(attached)
		}
	}
	return sum, nil
}

func geoKey(circuit, dist any) string {
	return domain.FormatScalar(domain.NormalizeScalar(circuit)) + "_" + domain.FormatScalar(domain.NormalizeScalar(dist))
}

// propertyKeys returns the union of property keys in feature order, each
// feature's new keys sorted.
func propertyKeys(fc *geojson.FeatureCollection) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, f := range fc.Features {
		start := len(keys)
		for k := range f.Properties {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		sort.Strings(keys[start:])
	}
	return keys
}
