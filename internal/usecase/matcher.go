package usecase

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"github.com/vehiclematch/backend/internal/domain"
)

// Tolerance multiplier applied by the expanded tier
const expandedToleranceFactor = 2.0

// FindCluster returns the cluster of the first vehicle (in catalog order)
// whose make equals targetMake. A make may span several clusters; only the
// first one counts.
func FindCluster(catalog []domain.Vehicle, targetMake string) (string, error) {
	for _, v := range catalog {
		if v.Make == targetMake {
			return v.Cluster, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrMakeNotFound, targetMake)
}

// StrictMatch ranks vehicles from the query make's cluster that fall inside
// the price and mileage tolerance bands. An empty result is not an error.
func StrictMatch(catalog []domain.Vehicle, query domain.Query) ([]domain.RankedVehicle, error) {
	cluster, err := FindCluster(catalog, query.Make)
	if err != nil {
		return nil, err
	}
	return strictMatch(catalog, cluster, query), nil
}

// ExpandedMatch ranks vehicles inside doubled tolerance bands. It searches
// the whole catalog, not only the resolved cluster.
func ExpandedMatch(catalog []domain.Vehicle, query domain.Query) []domain.RankedVehicle {
	b := newBand(query, expandedToleranceFactor)

	var candidates []domain.Vehicle
	for _, v := range catalog {
		if b.contains(v) {
			candidates = append(candidates, v)
		}
	}
	return rank(candidates, query)
}

// FallbackMatch ranks the entire catalog without filtering
func FallbackMatch(catalog []domain.Vehicle, query domain.Query) []domain.RankedVehicle {
	return rank(catalog, query)
}

// Recommend escalates strict -> expanded -> fallback and stops at the first
// non-empty tier. Only an unknown make is reported as an error.
func Recommend(catalog []domain.Vehicle, query domain.Query) (*domain.Recommendation, error) {
	cluster, err := FindCluster(catalog, query.Make)
	if err != nil {
		return nil, err
	}

	result := &domain.Recommendation{
		Cluster: cluster,
		Query:   query,
	}

	if ranked := strictMatch(catalog, cluster, query); len(ranked) > 0 {
		result.Tier = domain.TierStrict
		result.Vehicles = ranked
		return result, nil
	}

	if ranked := ExpandedMatch(catalog, query); len(ranked) > 0 {
		result.Tier = domain.TierExpanded
		result.Vehicles = ranked
		return result, nil
	}

	result.Tier = domain.TierFallback
	result.Vehicles = FallbackMatch(catalog, query)
	return result, nil
}

// CombinedDifference is the ranking key: absolute price deviation plus
// absolute mileage deviation from the query targets.
func CombinedDifference(v domain.Vehicle, query domain.Query) float64 {
	return math.Abs(v.Price-query.Price) + math.Abs(v.Mileage-query.Mileage)
}

func strictMatch(catalog []domain.Vehicle, cluster string, query domain.Query) []domain.RankedVehicle {
	b := newBand(query, 1)

	var candidates []domain.Vehicle
	for _, v := range catalog {
		if v.Cluster == cluster && b.contains(v) {
			candidates = append(candidates, v)
		}
	}
	return rank(candidates, query)
}

// band is an inclusive price/mileage window around the query targets
type band struct {
	minPrice, maxPrice     float64
	minMileage, maxMileage float64
}

func newBand(query domain.Query, factor float64) band {
	priceTol := query.PriceTolerance * factor
	mileageTol := query.MileageTolerance * factor
	return band{
		minPrice:   query.Price - priceTol,
		maxPrice:   query.Price + priceTol,
		minMileage: query.Mileage - mileageTol,
		maxMileage: query.Mileage + mileageTol,
	}
}

func (b band) contains(v domain.Vehicle) bool {
	return v.Price >= b.minPrice && v.Price <= b.maxPrice &&
		v.Mileage >= b.minMileage && v.Mileage <= b.maxMileage
}

// rank scores candidates, stable-sorts them ascending and truncates to the
// query limit. Ties keep catalog order.
func rank(candidates []domain.Vehicle, query domain.Query) []domain.RankedVehicle {
	ranked := make([]domain.RankedVehicle, 0, len(candidates))
	for _, v := range candidates {
		ranked = append(ranked, domain.RankedVehicle{
			Vehicle:            v,
			CombinedDifference: CombinedDifference(v, query),
		})
	}

	slices.SortStableFunc(ranked, func(a, b domain.RankedVehicle) int {
		return cmp.Compare(a.CombinedDifference, b.CombinedDifference)
	})

	limit := max(query.Limit, 0)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
