package csvcatalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/vehiclematch/backend/internal/domain"
)

// Canonical column names after normalization
const (
	ColumnMake      = "make"
	ColumnPrice     = "price"
	ColumnMileage   = "mileage"
	ColumnCluster   = "cluster"
	ColumnStockType = "stock_type"
	ColumnModel     = "model"
	ColumnModelYear = "model_year"
)

// RequiredColumns must be present in every catalog file
var RequiredColumns = []string{ColumnMake, ColumnPrice, ColumnCluster, ColumnMileage, ColumnStockType}

var knownColumns = map[string]bool{
	ColumnMake: true, ColumnPrice: true, ColumnMileage: true, ColumnCluster: true,
	ColumnStockType: true, ColumnModel: true, ColumnModelYear: true,
}

// NormalizeColumn folds a header cell to its canonical form, so MAKE, Make
// and " make " all map to "make".
func NormalizeColumn(name string) string {
	name = strings.TrimPrefix(name, "\ufeff")
	return strings.ToLower(strings.TrimSpace(name))
}

// Parse reads a CSV catalog. The header row is required; rows keep file
// order. Columns outside the canonical schema are kept in Vehicle.Extra.
func Parse(r io.Reader) ([]domain.Vehicle, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: file has no header row", domain.ErrInvalidCatalog)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header: %v", domain.ErrInvalidCatalog, err)
	}

	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, name := range header {
		columns[i] = NormalizeColumn(name)
		if _, dup := index[columns[i]]; !dup {
			index[columns[i]] = i
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingColumns, strings.Join(missing, ", "))
	}

	var vehicles []domain.Vehicle
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidCatalog, line, err)
		}

		v, err := toVehicle(record, columns, index)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", domain.ErrInvalidCatalog, line, err)
		}
		vehicles = append(vehicles, v)
	}

	return vehicles, nil
}

// LoadFile opens and parses a CSV catalog from disk
func LoadFile(path string) ([]domain.Vehicle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()

	vehicles, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return vehicles, nil
}

// FileSource is a domain.CatalogSource backed by a CSV file
type FileSource struct {
	Path string
}

// Load implements domain.CatalogSource
func (s FileSource) Load(ctx context.Context) ([]domain.Vehicle, error) {
	return LoadFile(s.Path)
}

func toVehicle(record, columns []string, index map[string]int) (domain.Vehicle, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	price, err := parseAmount(ColumnPrice, cell(ColumnPrice))
	if err != nil {
		return domain.Vehicle{}, err
	}
	mileage, err := parseAmount(ColumnMileage, cell(ColumnMileage))
	if err != nil {
		return domain.Vehicle{}, err
	}

	v := domain.Vehicle{
		Make:      cell(ColumnMake),
		Model:     cell(ColumnModel),
		ModelYear: cell(ColumnModelYear),
		Price:     price,
		Mileage:   mileage,
		Cluster:   cell(ColumnCluster),
		StockType: cell(ColumnStockType),
	}

	for i, col := range columns {
		if knownColumns[col] || col == "" || i >= len(record) {
			continue
		}
		if v.Extra == nil {
			v.Extra = make(map[string]string)
		}
		if _, seen := v.Extra[col]; !seen {
			v.Extra[col] = record[i]
		}
	}

	return v, nil
}

func parseAmount(column, raw string) (float64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is empty", column)
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", column, raw)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, fmt.Errorf("%s %q is not a finite number", column, raw)
	}
	if value < 0 {
		return 0, fmt.Errorf("%s must not be negative: %v", column, value)
	}
	return value, nil
}
