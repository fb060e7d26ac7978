package domain

// District is one row of the judicial district reference table. Its
// identity is the (CircuitID, DistrictID) pair. DistrictName is nil when
// the table has no name column.
type District struct {
	CircuitID    Scalar
	DistrictID   Scalar
	DistrictName Scalar
	EntityName   Scalar
}

// Association copies the district fields into a candidate Association.
func (d District) Association(tier MatchTier) Association {
	return Association{
		DistrictID:   d.DistrictID,
		CircuitID:    d.CircuitID,
		DistrictName: d.DistrictName,
		EntityName:   d.EntityName,
		Tier:         tier,
	}
}

// LookupKey groups associated candidates. Components are Scalars so a null
// component only ever equals another null component.
type LookupKey struct {
	CircuitID    Scalar
	DistrictID   Scalar
	DistrictName Scalar
	EntityName   Scalar
}

// LookupRow is one group of the reverse district lookup table.
type LookupRow struct {
	CircuitID    Scalar `json:"circuito_judicial"`
	DistrictID   Scalar `json:"distrito_judicial"`
	DistrictName Scalar `json:"nombre_distrito"`
	EntityName   Scalar `json:"entidad"`
	Count        int    `json:"num_candidatos"`
	Summary      string `json:"candidatos"`
}
