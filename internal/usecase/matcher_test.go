package usecase

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vehiclematch/backend/internal/domain"
)

func sampleCatalog() []domain.Vehicle {
	return []domain.Vehicle{
		{Make: "Ford", Model: "Focus", Price: 20000, Mileage: 50000, Cluster: "1", StockType: "Used"},
		{Make: "Ford", Model: "Fiesta", Price: 20500, Mileage: 49000, Cluster: "1", StockType: "Used"},
		{Make: "Honda", Model: "Civic", Price: 21000, Mileage: 48000, Cluster: "2", StockType: "Used"},
	}
}

func models(ranked []domain.RankedVehicle) []string {
	out := make([]string, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.Model)
	}
	return out
}

func TestFindCluster(t *testing.T) {
	t.Run("returns cluster of first matching make", func(t *testing.T) {
		catalog := []domain.Vehicle{
			{Make: "Audi", Cluster: "7"},
			{Make: "Ford", Cluster: "1"},
			{Make: "Ford", Cluster: "3"},
		}

		cluster, err := FindCluster(catalog, "Ford")
		require.NoError(t, err)
		assert.Equal(t, "1", cluster)
	})

	t.Run("unknown make is not found", func(t *testing.T) {
		_, err := FindCluster(sampleCatalog(), "Tesla")
		assert.ErrorIs(t, err, domain.ErrMakeNotFound)
	})

	t.Run("make comparison is exact", func(t *testing.T) {
		_, err := FindCluster(sampleCatalog(), "ford")
		assert.ErrorIs(t, err, domain.ErrMakeNotFound)
	})

	t.Run("empty catalog is not found", func(t *testing.T) {
		_, err := FindCluster(nil, "Ford")
		assert.ErrorIs(t, err, domain.ErrMakeNotFound)
	})
}

func TestStrictMatch(t *testing.T) {
	query := domain.Query{
		Make: "Ford", Price: 20000, Mileage: 50000,
		PriceTolerance: 1000, MileageTolerance: 2000, Limit: 5,
	}

	t.Run("returns in-cluster vehicles ranked by combined difference", func(t *testing.T) {
		ranked, err := StrictMatch(sampleCatalog(), query)
		require.NoError(t, err)
		require.Len(t, ranked, 2)

		assert.Equal(t, []string{"Focus", "Fiesta"}, models(ranked))
		assert.Equal(t, 0.0, ranked[0].CombinedDifference)
		assert.Equal(t, 1500.0, ranked[1].CombinedDifference)
	})

	t.Run("excludes other clusters even inside the bands", func(t *testing.T) {
		ranked, err := StrictMatch(sampleCatalog(), query)
		require.NoError(t, err)
		for _, r := range ranked {
			assert.NotEqual(t, "Honda", r.Make)
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		catalog := []domain.Vehicle{
			{Make: "Ford", Model: "edge-high", Price: 21000, Mileage: 52000, Cluster: "1"},
			{Make: "Ford", Model: "edge-low", Price: 19000, Mileage: 48000, Cluster: "1"},
			{Make: "Ford", Model: "outside", Price: 21000.01, Mileage: 50000, Cluster: "1"},
		}

		ranked, err := StrictMatch(catalog, query)
		require.NoError(t, err)
		assert.Equal(t, []string{"edge-high", "edge-low"}, models(ranked))
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		q := query
		q.Price = 90000
		ranked, err := StrictMatch(sampleCatalog(), q)
		require.NoError(t, err)
		assert.Empty(t, ranked)
	})

	t.Run("unknown make propagates not found", func(t *testing.T) {
		q := query
		q.Make = "Tesla"
		_, err := StrictMatch(sampleCatalog(), q)
		assert.ErrorIs(t, err, domain.ErrMakeNotFound)
	})
}

func TestExpandedMatch(t *testing.T) {
	t.Run("doubles the tolerance bands", func(t *testing.T) {
		query := domain.Query{
			Make: "Ford", Price: 20250, Mileage: 49500,
			PriceTolerance: 200, MileageTolerance: 400, Limit: 5,
		}

		strict, err := StrictMatch(sampleCatalog(), query)
		require.NoError(t, err)
		require.Empty(t, strict)

		ranked := ExpandedMatch(sampleCatalog(), query)
		assert.Equal(t, []string{"Focus", "Fiesta"}, models(ranked))
		assert.Equal(t, 750.0, ranked[0].CombinedDifference)
		assert.Equal(t, 750.0, ranked[1].CombinedDifference)
	})

	t.Run("searches outside the resolved cluster", func(t *testing.T) {
		catalog := []domain.Vehicle{
			{Make: "Ford", Model: "Mustang", Price: 30000, Mileage: 100000, Cluster: "1"},
			{Make: "Honda", Model: "Civic", Price: 20000, Mileage: 50000, Cluster: "2"},
		}
		query := domain.Query{
			Make: "Ford", Price: 20500, Mileage: 50000,
			PriceTolerance: 300, MileageTolerance: 1000, Limit: 5,
		}

		ranked := ExpandedMatch(catalog, query)
		require.Len(t, ranked, 1)
		assert.Equal(t, "Honda", ranked[0].Make)
		assert.Equal(t, "2", ranked[0].Cluster)
	})
}

func TestFallbackMatch(t *testing.T) {
	query := domain.Query{
		Make: "Ford", Price: 100000, Mileage: 0,
		PriceTolerance: 100, MileageTolerance: 100, Limit: 2,
	}

	t.Run("ranks the whole catalog", func(t *testing.T) {
		ranked := FallbackMatch(sampleCatalog(), query)
		assert.Equal(t, []string{"Civic", "Fiesta"}, models(ranked))
		assert.Equal(t, 127000.0, ranked[0].CombinedDifference)
	})

	t.Run("non-empty for any non-empty catalog", func(t *testing.T) {
		catalog := []domain.Vehicle{{Make: "Kia", Price: 1, Mileage: 1, Cluster: "9"}}
		assert.Len(t, FallbackMatch(catalog, query), 1)
	})

	t.Run("never exceeds the limit", func(t *testing.T) {
		for limit := 1; limit <= 5; limit++ {
			q := query
			q.Limit = limit
			ranked := FallbackMatch(sampleCatalog(), q)
			assert.LessOrEqual(t, len(ranked), limit)
			assert.Len(t, ranked, min(limit, len(sampleCatalog())))
		}
	})
}

func TestRankIsStable(t *testing.T) {
	catalog := []domain.Vehicle{
		{Make: "Ford", Model: "a", Price: 1000, Mileage: 0, Cluster: "1"},
		{Make: "Ford", Model: "b", Price: 0, Mileage: 1000, Cluster: "1"},
		{Make: "Ford", Model: "c", Price: 500, Mileage: 0, Cluster: "1"},
		{Make: "Ford", Model: "d", Price: 500, Mileage: 500, Cluster: "1"},
		{Make: "Ford", Model: "e", Price: 250, Mileage: 250, Cluster: "1"},
	}
	query := domain.Query{Make: "Ford", PriceTolerance: 1, MileageTolerance: 1, Limit: 10}

	ranked := FallbackMatch(catalog, query)
	assert.Equal(t, []string{"c", "e", "a", "b", "d"}, models(ranked))

	assert.True(t, slices.IsSortedFunc(ranked, func(a, b domain.RankedVehicle) int {
		switch {
		case a.CombinedDifference < b.CombinedDifference:
			return -1
		case a.CombinedDifference > b.CombinedDifference:
			return 1
		}
		return 0
	}))
}

func TestRecommend(t *testing.T) {
	t.Run("strict tier stops escalation", func(t *testing.T) {
		query := domain.Query{
			Make: "Ford", Price: 20000, Mileage: 50000,
			PriceTolerance: 1000, MileageTolerance: 2000, Limit: 5,
		}

		rec, err := Recommend(sampleCatalog(), query)
		require.NoError(t, err)
		assert.Equal(t, domain.TierStrict, rec.Tier)
		assert.Equal(t, "1", rec.Cluster)
		assert.Equal(t, []string{"Focus", "Fiesta"}, models(rec.Vehicles))
	})

	t.Run("escalates to expanded", func(t *testing.T) {
		query := domain.Query{
			Make: "Ford", Price: 20250, Mileage: 49500,
			PriceTolerance: 200, MileageTolerance: 400, Limit: 5,
		}

		rec, err := Recommend(sampleCatalog(), query)
		require.NoError(t, err)
		assert.Equal(t, domain.TierExpanded, rec.Tier)
		assert.Len(t, rec.Vehicles, 2)
	})

	t.Run("escalates to fallback including other makes", func(t *testing.T) {
		query := domain.Query{
			Make: "Ford", Price: 100000, Mileage: 0,
			PriceTolerance: 100, MileageTolerance: 100, Limit: 5,
		}

		rec, err := Recommend(sampleCatalog(), query)
		require.NoError(t, err)
		assert.Equal(t, domain.TierFallback, rec.Tier)
		assert.Equal(t, []string{"Civic", "Fiesta", "Focus"}, models(rec.Vehicles))
	})

	t.Run("unknown make is an error", func(t *testing.T) {
		query := domain.Query{Make: "Tesla", PriceTolerance: 1, MileageTolerance: 1, Limit: 5}
		_, err := Recommend(sampleCatalog(), query)
		assert.ErrorIs(t, err, domain.ErrMakeNotFound)
	})

	t.Run("does not modify the catalog", func(t *testing.T) {
		catalog := sampleCatalog()
		snapshot := slices.Clone(catalog)

		query := domain.Query{
			Make: "Ford", Price: 100000, Mileage: 0,
			PriceTolerance: 100, MileageTolerance: 100, Limit: 5,
		}
		_, err := Recommend(catalog, query)
		require.NoError(t, err)
		assert.Equal(t, snapshot, catalog)
	})
}
