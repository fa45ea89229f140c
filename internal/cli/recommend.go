package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vehiclematch/backend/internal/domain"
	"github.com/vehiclematch/backend/internal/usecase"
)

const (
	OutputTable = "table"
	OutputJSON  = "json"
)

var errNoMake = errors.New("--make is required when stdin is not a terminal")

func newRecommendCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Print recommendations for a make, price and mileage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRecommend(cmd, opts)
		},
	}

	cmd.Flags().StringP("make", "m", "", "vehicle make; prompts with the catalog makes when omitted")
	cmd.Flags().Float64P("price", "p", 0, "target price (default from config)")
	cmd.Flags().Float64P("mileage", "k", 0, "target mileage (default from config)")
	cmd.Flags().Float64("price-tolerance", 0, "price tolerance (default from config)")
	cmd.Flags().Float64("mileage-tolerance", 0, "mileage tolerance (default from config)")
	cmd.Flags().IntP("limit", "n", 0, "number of recommendations (default from config)")
	cmd.Flags().StringP("output", "o", OutputTable, "output format: table or json")

	return cmd
}

func runRecommend(cmd *cobra.Command, opts *options) error {
	ctx := cmd.Context()

	format, _ := cmd.Flags().GetString("output")
	if format != OutputTable && format != OutputJSON {
		return fmt.Errorf("unknown output format %q", format)
	}

	cfg, log, err := opts.bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	catalog, closeCatalog, err := openCatalog(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeCatalog()

	service, closeCache := newService(cfg, catalog, log)
	defer closeCache()

	request, err := requestFromFlags(cmd)
	if err != nil {
		return err
	}

	if request.Make == "" {
		request.Make, err = promptMake(cmd, service)
		if err != nil {
			return err
		}
	}

	result, err := service.Recommend(ctx, request)
	if err != nil {
		return err
	}
	log.Debug("recommendation printed", zap.String("tier", string(result.Tier)))

	return printRecommendation(cmd.OutOrStdout(), result, format)
}

// requestFromFlags builds a request from the flags that were set explicitly
func requestFromFlags(cmd *cobra.Command) (*domain.RecommendRequest, error) {
	flags := cmd.Flags()
	request := &domain.RecommendRequest{}

	var err error
	if request.Make, err = flags.GetString("make"); err != nil {
		return nil, err
	}

	floats := []struct {
		name   string
		target **float64
	}{
		{"price", &request.Price},
		{"mileage", &request.Mileage},
		{"price-tolerance", &request.PriceTolerance},
		{"mileage-tolerance", &request.MileageTolerance},
	}
	for _, f := range floats {
		if !flags.Changed(f.name) {
			continue
		}
		value, err := flags.GetFloat64(f.name)
		if err != nil {
			return nil, err
		}
		*f.target = &value
	}

	if flags.Changed("limit") {
		limit, err := flags.GetInt("limit")
		if err != nil {
			return nil, err
		}
		request.Limit = &limit
	}

	return request, nil
}

// promptMake asks the user to pick one of the catalog makes
func promptMake(cmd *cobra.Command, service *usecase.RecommendationService) (string, error) {
	if !isTerminal(os.Stdin) {
		return "", errNoMake
	}

	makes, err := service.Makes(cmd.Context())
	if err != nil {
		return "", err
	}
	if len(makes) == 0 {
		return "", domain.ErrCatalogEmpty
	}

	prompt := promptui.Select{
		Label: "Make",
		Items: makes,
		Size:  10,
	}
	_, selected, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("selecting a make: %w", err)
	}
	return selected, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// printRecommendation writes result as an aligned table or indented JSON
func printRecommendation(w io.Writer, result *domain.Recommendation, format string) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintln(w, result.Tier.Message())
	fmt.Fprintf(w, "make: %s  cluster: %s\n\n", result.Query.Make, result.Cluster)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMAKE\tMODEL\tYEAR\tPRICE\tMILEAGE\tCLUSTER\tSTOCK TYPE\tDIFFERENCE")
	for i, v := range result.Vehicles {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			v.Make,
			v.Model,
			v.ModelYear,
			formatAmount(v.Price),
			formatAmount(v.Mileage),
			v.Cluster,
			v.StockType,
			formatAmount(v.CombinedDifference),
		)
	}
	return tw.Flush()
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
