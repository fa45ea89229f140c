package domain

import (
	"fmt"
	"math"
	"strings"
)

// Vehicle is one catalog listing. Cluster is assigned upstream and is
// treated as an opaque label.
type Vehicle struct {
	Make      string            `json:"make"`
	Model     string            `json:"model,omitempty"`
	ModelYear string            `json:"modelYear,omitempty"`
	Price     float64           `json:"price"`
	Mileage   float64           `json:"mileage"`
	Cluster   string            `json:"cluster"`
	StockType string            `json:"stockType"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// Query holds the matching parameters for a single recommendation
type Query struct {
	Make             string  `json:"make"`
	Price            float64 `json:"price"`
	Mileage          float64 `json:"mileage"`
	PriceTolerance   float64 `json:"priceTolerance"`
	MileageTolerance float64 `json:"mileageTolerance"`
	Limit            int     `json:"limit"`
}

// Validate checks the query at the service boundary. maxLimit <= 0 disables
// the upper bound on Limit.
func (q Query) Validate(maxLimit int) error {
	if strings.TrimSpace(q.Make) == "" {
		return fmt.Errorf("%w: make is required", ErrInvalidQuery)
	}

	numbers := []struct {
		name  string
		value float64
	}{
		{"price", q.Price},
		{"mileage", q.Mileage},
		{"priceTolerance", q.PriceTolerance},
		{"mileageTolerance", q.MileageTolerance},
	}
	for _, n := range numbers {
		if math.IsNaN(n.value) || math.IsInf(n.value, 0) {
			return fmt.Errorf("%w: %s must be a finite number", ErrInvalidQuery, n.name)
		}
	}

	if q.Price < 0 {
		return fmt.Errorf("%w: price must not be negative: %v", ErrInvalidQuery, q.Price)
	}
	if q.Mileage < 0 {
		return fmt.Errorf("%w: mileage must not be negative: %v", ErrInvalidQuery, q.Mileage)
	}
	if q.PriceTolerance <= 0 {
		return fmt.Errorf("%w: priceTolerance must be positive: %v", ErrInvalidQuery, q.PriceTolerance)
	}
	if q.MileageTolerance <= 0 {
		return fmt.Errorf("%w: mileageTolerance must be positive: %v", ErrInvalidQuery, q.MileageTolerance)
	}
	if q.Limit < 1 {
		return fmt.Errorf("%w: limit must be at least 1: %d", ErrInvalidQuery, q.Limit)
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		return fmt.Errorf("%w: limit must not exceed %d: %d", ErrInvalidQuery, maxLimit, q.Limit)
	}

	return nil
}

// RankedVehicle is a catalog vehicle scored against a query
type RankedVehicle struct {
	Vehicle
	CombinedDifference float64 `json:"combinedDifference"`
}

// Tier names the escalation level that produced a recommendation
type Tier string

const (
	TierStrict   Tier = "strict"
	TierExpanded Tier = "expanded"
	TierFallback Tier = "fallback"
)

// Message returns the user-facing headline for results of this tier
func (t Tier) Message() string {
	switch t {
	case TierStrict:
		return "Recommendations (Strict Criteria)"
	case TierExpanded:
		return "No exact matches found. Here are matches with expanded tolerances"
	case TierFallback:
		return "Still no matches found. Showing general recommendations"
	default:
		return ""
	}
}

// Recommendation is the ranked output of the matcher plus the tier that produced it
type Recommendation struct {
	Tier     Tier            `json:"tier"`
	Cluster  string          `json:"cluster"`
	Query    Query           `json:"query"`
	Vehicles []RankedVehicle `json:"results"`
}

// RecommendRequest is an inbound recommendation request. Omitted numeric
// fields fall back to configured defaults.
type RecommendRequest struct {
	Make             string   `json:"make" binding:"required"`
	Price            *float64 `json:"price,omitempty"`
	Mileage          *float64 `json:"mileage,omitempty"`
	PriceTolerance   *float64 `json:"priceTolerance,omitempty"`
	MileageTolerance *float64 `json:"mileageTolerance,omitempty"`
	Limit            *int     `json:"limit,omitempty"`
}
