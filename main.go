package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"keyword-pivot/pkg/dataset"
	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/pivot"
)

// getEnvOrDefault returns environment variable value or default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvIntOrDefault returns environment variable as int or default
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns environment variable as bool or default
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseRange builds a Range from two optional bounds; empty strings leave
// that side open.
func parseRange(name, minStr, maxStr string) (*pivot.Range, error) {
	var r pivot.Range
	for _, b := range []struct {
		raw string
		dst **float64
	}{{minStr, &r.Min}, {maxStr, &r.Max}} {
		if strings.TrimSpace(b.raw) == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(b.raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s bound %q: %w", name, b.raw, err)
		}
		*b.dst = pivot.Float64(v)
	}
	if !r.Active() {
		return nil, nil
	}
	return &r, nil
}

func main() {
	defaultDataset := getEnvOrDefault("KWPIVOT_DATASET_SOURCE", "")
	defaultBrands := getEnvOrDefault("KWPIVOT_VOCABULARY_BRANDS", "")
	defaultCategories := getEnvOrDefault("KWPIVOT_VOCABULARY_CATEGORIES", "")
	defaultIntents := getEnvOrDefault("KWPIVOT_VOCABULARY_INTENTS", "")
	defaultPageSize := getEnvIntOrDefault("KWPIVOT_QUERY_DEFAULT_PAGE_SIZE", 25)
	defaultTimeoutMs := getEnvIntOrDefault("KWPIVOT_DATASET_TIMEOUT_MS", 30000)
	defaultDebug := getEnvBoolOrDefault("DEBUG", false)

	var (
		source     = flag.String("dataset", defaultDataset, "Dataset file path or http(s) URL (env: KWPIVOT_DATASET_SOURCE)")
		brands     = flag.String("brands", defaultBrands, "Comma-separated brand roster (env: KWPIVOT_VOCABULARY_BRANDS)")
		categories = flag.String("categories", defaultCategories, "Comma-separated category vocabulary (env: KWPIVOT_VOCABULARY_CATEGORIES)")
		intents    = flag.String("intents", defaultIntents, "Comma-separated intent vocabulary (env: KWPIVOT_VOCABULARY_INTENTS)")

		selBrands     = flag.String("select-brands", "", "Comma-separated brands to filter on")
		selCategories = flag.String("select-categories", "", "Comma-separated categories to filter on")
		selIntents    = flag.String("select-intents", "", "Comma-separated intents to filter on")
		search        = flag.String("search", "", "Keyword substring search")
		minVolume     = flag.String("min-volume", "", "Minimum search volume")
		maxVolume     = flag.String("max-volume", "", "Maximum search volume")
		minCPC        = flag.String("min-cpc", "", "Minimum CPC")
		maxCPC        = flag.String("max-cpc", "", "Maximum CPC")

		sortKey   = flag.String("sort", "", "Sort key: keyword, volume, cpc, spend, clicks")
		direction = flag.String("direction", "desc", "Sort direction: asc or desc")
		page      = flag.Int("page", 0, "Zero-based page index")
		pageSize  = flag.Int("page-size", defaultPageSize, "Rows per page (env: KWPIVOT_QUERY_DEFAULT_PAGE_SIZE)")
		asJSON    = flag.Bool("json", false, "Print the result as JSON")
		debug     = flag.Bool("debug", defaultDebug, "Enable debug logging (env: DEBUG)")
		help      = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		printUsage()
		return
	}
	if *source == "" {
		fmt.Println("ERROR: A dataset source is required.")
		fmt.Println("Use -dataset flag or KWPIVOT_DATASET_SOURCE environment variable.")
		fmt.Println("")
		printUsage()
		os.Exit(1)
	}

	level := "warn"
	if *debug {
		level = "debug"
	}
	logger.SetLogger(logger.New(logger.Config{Level: level, Format: "console", Output: "stderr"}))
	log := logger.GetLogger().WithField("component", "main")

	volumeRange, err := parseRange("volume", *minVolume, *maxVolume)
	if err != nil {
		log.WithError(err).Fatal("Invalid volume range")
	}
	cpcRange, err := parseRange("cpc", *minCPC, *maxCPC)
	if err != nil {
		log.WithError(err).Fatal("Invalid cpc range")
	}
	key, err := pivot.ParseSortKey(*sortKey)
	if err != nil {
		log.WithError(err).Fatal("Invalid sort key")
	}
	dir, err := pivot.ParseDirection(*direction)
	if err != nil {
		log.WithError(err).Fatal("Invalid sort direction")
	}

	timeout := time.Duration(defaultTimeoutMs) * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	configured := pivot.Vocabulary{
		Brands:     splitList(*brands),
		Categories: splitList(*categories),
		Intents:    splitList(*intents),
	}
	store, report, err := dataset.NewLoader(timeout).Load(ctx, *source, configured)
	if err != nil {
		log.WithError(err).Fatal("Failed to load dataset")
	}

	engine, err := pivot.NewEngine(store, nil)
	if err != nil {
		log.WithError(err).Fatal("Failed to create engine")
	}

	state := pivot.FilterState{
		SelectedBrands:     splitList(*selBrands),
		SelectedCategories: splitList(*selCategories),
		SelectedIntents:    splitList(*selIntents),
		SearchText:         *search,
		VolumeRange:        volumeRange,
		CPCRange:           cpcRange,
	}
	result, err := engine.ApplyFilter(ctx, state)
	if err != nil {
		log.WithError(err).Fatal("Failed to apply filter")
	}
	rows, err := engine.GetPage(ctx, state, pivot.PageRequest{SortKey: key, Direction: dir, PageIndex: *page, PageSize: *pageSize})
	if err != nil {
		log.WithError(err).Fatal("Failed to build page")
	}

	if *asJSON {
		out := struct {
			Dataset *dataset.LoadReport `json:"dataset"`
			Filter  pivot.FilterState   `json:"filter"`
			Result  *pivot.FilterResult `json:"result"`
			Page    *pivot.Page         `json:"page"`
		}{report, state, result, rows}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			log.WithError(err).Fatal("Failed to encode result")
		}
		return
	}

	printReport(report, result, rows)
}

func formatOptional(v pivot.OptionalFloat) string {
	if f, ok := v.Get(); ok {
		return fmt.Sprintf("%.2f", f)
	}
	return "-"
}

func printReport(report *dataset.LoadReport, result *pivot.FilterResult, rows *pivot.Page) {
	fmt.Printf("\n=== Dataset ===\n")
	fmt.Printf("Source: %s\n", report.Source)
	fmt.Printf("Records: %d (rejected: %d)\n", report.Accepted, report.Rejected)
	for kind, count := range report.Issues {
		fmt.Printf("   Issue %s: %d\n", kind, count)
	}

	s := result.Summary
	fmt.Printf("\n=== Summary ===\n")
	fmt.Printf("Visible: %d of %d\n", s.VisibleCount, s.TotalRecords)
	if len(result.ActiveAxes) > 0 {
		fmt.Printf("Filters: %s\n", strings.Join(result.ActiveAxes, ", "))
	}
	fmt.Printf("Branded: %d\n", s.BrandedCount)
	fmt.Printf("Volume: %d\n", s.TotalVolume)
	fmt.Printf("Clicks: %d\n", s.TotalClicks)
	fmt.Printf("Spend: %.2f\n", s.TotalEstimatedSpend)
	fmt.Printf("Weighted CPC: %s\n", formatOptional(s.VolumeWeightedCPC))

	fmt.Printf("\n=== Brands ===\n")
	for _, b := range result.Brands {
		marker := " "
		if b.Selected {
			marker = "*"
		}
		fmt.Printf("%s %-24s records=%-5d clicks=%-8d spend=%-10.2f cpc=%s\n",
			marker, b.Brand, b.RecordCount, b.TotalClicks, b.TotalEstimatedSpend, formatOptional(b.VolumeWeightedCPC))
	}

	fmt.Printf("\n=== Categories ===\n")
	for _, c := range result.Categories {
		fmt.Printf("  %-24s records=%-5d volume=%-8d spend=%-10.2f cpc=%s\n",
			c.Category, c.RecordCount, c.TotalVolume, c.TotalEstimatedSpend, formatOptional(c.VolumeWeightedCPC))
	}

	fmt.Printf("\n=== Keywords (page %d of %d) ===\n", rows.PageIndex+1, rows.TotalPages)
	for i := range rows.Records {
		r := &rows.Records[i]
		volume := "-"
		if v, ok := r.VolumeValue(); ok {
			volume = strconv.FormatInt(v, 10)
		}
		cpc := "-"
		if c, ok := r.CPCValue(); ok {
			cpc = fmt.Sprintf("%.2f", c)
		}
		fmt.Printf("  %-40s volume=%-8s cpc=%-6s spend=%.2f\n", r.Keyword, volume, cpc, r.TotalSpend())
	}
}

func printUsage() {
	fmt.Println("Keyword Pivot Report")
	fmt.Println("")
	fmt.Println("USAGE:")
	fmt.Println("    ./keyword-pivot -dataset <PATH|URL> [OPTIONS]")
	fmt.Println("    ./keyword-pivot  # Uses environment variables")
	fmt.Println("")
	fmt.Println("REQUIRED:")
	fmt.Println("    -dataset string          Dataset file or URL (env: KWPIVOT_DATASET_SOURCE)")
	fmt.Println("")
	fmt.Println("VOCABULARY:")
	fmt.Println("    -brands string           Brand roster, comma-separated (env: KWPIVOT_VOCABULARY_BRANDS)")
	fmt.Println("    -categories string       Category list (env: KWPIVOT_VOCABULARY_CATEGORIES)")
	fmt.Println("    -intents string          Intent list (env: KWPIVOT_VOCABULARY_INTENTS)")
	fmt.Println("")
	fmt.Println("FILTERS:")
	fmt.Println("    -select-brands string    Brands to include")
	fmt.Println("    -select-categories string Categories to include")
	fmt.Println("    -select-intents string   Intents to include")
	fmt.Println("    -search string           Keyword substring")
	fmt.Println("    -min-volume / -max-volume Volume bounds")
	fmt.Println("    -min-cpc / -max-cpc      CPC bounds")
	fmt.Println("")
	fmt.Println("OUTPUT:")
	fmt.Println("    -sort string             keyword, volume, cpc, spend, clicks")
	fmt.Println("    -direction string        asc or desc (default: desc)")
	fmt.Println("    -page int                Zero-based page (default: 0)")
	fmt.Println("    -page-size int           Rows per page (default: 25)")
	fmt.Println("    -json                    Print JSON instead of a report")
	fmt.Println("    -debug                   Enable debug logging (env: DEBUG)")
	fmt.Println("    -help                    Show this help message")
	fmt.Println("")
	fmt.Println("EXAMPLES:")
	fmt.Println("    ./keyword-pivot -dataset testdata/sample.json -select-brands \"Acme Solar\" -sort spend")
	fmt.Println("    ./keyword-pivot -dataset https://exports.example.com/keywords.json.gz -search solar -json")
}
