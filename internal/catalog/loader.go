package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/giftlens/giftlens/internal/observability"
)

// LoadOptions configures catalog loading.
type LoadOptions struct {
	// SkipRows is the number of raw preamble lines before the header row.
	SkipRows int
	Logger   *observability.Logger
}

// LoadStats summarises a load.
type LoadStats struct {
	Rows              int  `json:"rows"` // data rows read, including skipped ones
	Kept              int  `json:"kept"`
	Skipped           int  `json:"skipped"` // malformed rows
	DroppedNoName     int  `json:"dropped_no_name"`
	NameColumnMissing bool `json:"name_column_missing"`
}

// Load reads a CSV catalog from path.
func Load(ctx context.Context, path string, opts LoadOptions) (*Catalog, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	cat, stats, err := Parse(ctx, f, opts)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = path
		}
		return nil, stats, err
	}
	return cat, stats, nil
}

// Parse reads a CSV catalog from r. Malformed rows are skipped; the load only
// fails when the header cannot be read.
func Parse(ctx context.Context, r io.Reader, opts LoadOptions) (*Catalog, LoadStats, error) {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}

	var stats LoadStats
	br := bufio.NewReader(r)
	for i := 0; i < opts.SkipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			return nil, stats, &LoadError{Path: "<reader>", Err: fmt.Errorf("skip preamble row %d: %w", i+1, err)}
		}
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		return nil, stats, &LoadError{Path: "<reader>", Err: fmt.Errorf("read header: %w", err)}
	}

	columns := make([]string, len(header))
	nameIdx := -1
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		columns[i] = normalizeHeader(h)
		if columns[i] == ColumnName && nameIdx < 0 {
			nameIdx = i
		}
	}
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "") {
		return nil, stats, &LoadError{Path: "<reader>", Err: errors.New("empty header row")}
	}

	if nameIdx < 0 {
		stats.NameColumnMissing = true
		logger.Warn().
			Strs("columns", columns).
			Msg("'name' column not found in catalog, keeping all rows")
	}

	products := make([]Product, 0, 1024)
	for {
		if stats.Rows%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		stats.Rows++
		if err != nil {
			stats.Skipped++
			logger.Debug().Err(fmt.Errorf("%w: %v", ErrParse, err)).Int("row", stats.Rows).Msg("Skipping malformed row")
			continue
		}
		if len(record) > len(columns) {
			stats.Skipped++
			logger.Debug().
				Int("row", stats.Rows).
				Int("fields", len(record)).
				Int("expected", len(columns)).
				Msg("Skipping row with too many fields")
			continue
		}

		attrs := make(map[string]string, len(record))
		for i, cell := range record {
			if columns[i] == "" || isNull(cell) {
				continue
			}
			if _, dup := attrs[columns[i]]; dup {
				continue
			}
			attrs[columns[i]] = strings.TrimSpace(cell)
		}

		if nameIdx >= 0 {
			if attrs[ColumnName] == "" {
				stats.DroppedNoName++
				continue
			}
		} else {
			name := firstValue(record)
			if name == "" {
				stats.Skipped++
				continue
			}
			attrs[ColumnName] = name
		}

		products = append(products, newProduct(RowID(len(products)), attrs))
	}

	stats.Kept = len(products)
	logger.Info().
		Int("rows", stats.Rows).
		Int("kept", stats.Kept).
		Int("skipped", stats.Skipped).
		Int("dropped_no_name", stats.DroppedNoName).
		Msg("Catalog loaded")

	return &Catalog{columns: columns, products: products}, stats, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// nullTokens mirrors the null markers common in exported product datasets.
var nullTokens = map[string]bool{
	"":     true,
	"na":   true,
	"n/a":  true,
	"nan":  true,
	"null": true,
	"none": true,
	"#n/a": true,
	"<na>": true,
}

func isNull(v string) bool {
	return nullTokens[strings.ToLower(strings.TrimSpace(v))]
}

func firstValue(record []string) string {
	for _, cell := range record {
		if !isNull(cell) {
			return strings.TrimSpace(cell)
		}
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
