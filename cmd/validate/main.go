// Command validate performs integrity checks on the utility ETL inputs and
// outputs: meter-reading CSVs, the provider response cache, and rendered
// charts. It verifies date ordering, value sanity, cache readability, and
// output presence.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -electric testdata/electric.csv -gas testdata/gas.csv \
//	  -cache cache/db.sqlite -output-dir out
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/couchcryptid/utility-usage-etl/internal/adapter/cachedb"
	"github.com/couchcryptid/utility-usage-etl/internal/domain"
	"github.com/couchcryptid/utility-usage-etl/internal/ingest"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	electric := flag.String("electric", "", "path to electric readings CSV")
	gas := flag.String("gas", "", "path to gas readings CSV")
	cachePath := flag.String("cache", "", "path to the provider response cache (optional)")
	outputDir := flag.String("output-dir", "", "directory of rendered charts (optional)")
	flag.Parse()

	if *electric == "" && *gas == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*electric, *gas, *cachePath, *outputDir); code != 0 {
		os.Exit(code)
	}
}

func run(electricPath, gasPath, cachePath, outputDir string) int {
	fmt.Println("=== Utility Usage Data Validation ===")
	fmt.Println()

	var phases []*phase
	if electricPath != "" {
		phases = append(phases, validateReadings("electric readings", electricPath, "electric", "kWh"))
	}
	if gasPath != "" {
		phases = append(phases, validateReadings("gas readings", gasPath, "gas", "therms"))
	}
	if cachePath != "" {
		phases = append(phases, validateCache(cachePath))
	}
	if outputDir != "" {
		phases = append(phases, validateOutputs(outputDir, electricPath != "", gasPath != ""))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		allPassed = false
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	if !allPassed {
		return 1
	}
	fmt.Println("\nall checks passed")
	return 0
}

// validateReadings parses a readings CSV and checks ordering, spacing, and
// value sanity. The parser itself rejects duplicates and malformed rows.
func validateReadings(name, path, utility, unit string) *phase {
	p := &phase{name: name}

	series, err := ingest.ReadFile(path, utility, unit)
	if err != nil {
		p.errorf("parse: %v", err)
		return p
	}
	if len(series.Readings) < 2 {
		p.errorf("need at least two readings, got %d", len(series.Readings))
		return p
	}

	var prev domain.Reading
	for i, r := range series.Readings {
		if i > 0 {
			gap := domain.DayNumber(r.Date) - domain.DayNumber(prev.Date)
			if gap > 90 {
				p.errorf("gap of %d days before %s", gap, r.Date.Format(time.DateOnly))
			}
		}
		if i > 0 && r.Amount < 0 {
			p.errorf("negative amount %.1f on %s", r.Amount, r.Date.Format(time.DateOnly))
		}
		prev = r
	}

	first := series.Readings[0].Date
	last := series.Readings[len(series.Readings)-1].Date
	fmt.Printf("%s: %d readings, %s to %s\n", name, len(series.Readings),
		first.Format(time.DateOnly), last.Format(time.DateOnly))
	return p
}

// validateCache opens the response cache and confirms each provider bucket
// is readable.
func validateCache(path string) *phase {
	p := &phase{name: "response cache"}

	store, err := cachedb.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return p
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, provider := range []string{"visual_crossing", "open_meteo", "nws"} {
		bucket, err := store.Bucket(provider)
		if err != nil {
			p.errorf("%s: bucket: %v", provider, err)
			continue
		}
		// Probing an arbitrary day exercises open, decode, and the schema.
		if _, _, err := bucket.Get(ctx, domain.DayNumber(time.Now().AddDate(0, 0, -1))); err != nil {
			p.errorf("%s: read: %v", provider, err)
		}
	}
	return p
}

// validateOutputs checks that rendered charts exist and look like plotly pages.
func validateOutputs(dir string, wantElectric, wantGas bool) *phase {
	p := &phase{name: "rendered charts"}

	var want []string
	if wantElectric {
		want = append(want, "electric.html")
	}
	if wantGas {
		want = append(want, "gas.html")
	}

	for _, name := range want {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			p.errorf("%s: %v", name, err)
			continue
		}
		if !strings.Contains(string(data), "plotly") {
			p.errorf("%s: does not look like a rendered chart", name)
		}
	}
	return p
}
