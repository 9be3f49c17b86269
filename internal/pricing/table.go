// Package pricing turns token counts into dollar costs using a static,
// per-model price table.
package pricing

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var defaultPrices []byte

// Price is the unit price of one model, quoted per million tokens.
type Price struct {
	InputPerMillion  decimal.Decimal
	OutputPerMillion decimal.Decimal
}

// InputPerToken is the price of a single input token.
func (p Price) InputPerToken() decimal.Decimal {
	return p.InputPerMillion.Shift(-6)
}

// OutputPerToken is the price of a single output token.
func (p Price) OutputPerToken() decimal.Decimal {
	return p.OutputPerMillion.Shift(-6)
}

// Table is an immutable model -> price map.
type Table struct {
	prices map[string]Price
}

type fileFormat struct {
	Models map[string]struct {
		InputPerMillion  string `yaml:"input_per_million"`
		OutputPerMillion string `yaml:"output_per_million"`
	} `yaml:"models"`
}

// NewTable copies prices into a new table.
func NewTable(prices map[string]Price) *Table {
	t := &Table{prices: make(map[string]Price, len(prices))}
	for model, p := range prices {
		t.prices[model] = p
	}
	return t
}

// Default returns the built-in price table.
func Default() *Table {
	t, err := Parse(defaultPrices)
	if err != nil {
		panic(fmt.Sprintf("pricing: embedded price table is invalid: %v", err))
	}
	return t
}

// LoadFile reads a YAML price table from disk.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read price table %s: %w", path, err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price table %s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a YAML price table. Prices must be non-negative decimals.
func Parse(data []byte) (*Table, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	prices := make(map[string]Price, len(f.Models))
	for model, raw := range f.Models {
		in, err := parsePrice(raw.InputPerMillion)
		if err != nil {
			return nil, fmt.Errorf("model %s: input_per_million: %w", model, err)
		}
		out, err := parsePrice(raw.OutputPerMillion)
		if err != nil {
			return nil, fmt.Errorf("model %s: output_per_million: %w", model, err)
		}
		prices[model] = Price{InputPerMillion: in, OutputPerMillion: out}
	}

	return &Table{prices: prices}, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a decimal: %q", raw)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative: %s", raw)
	}
	return d, nil
}

// Merge returns a new table with other's entries layered over t's.
func (t *Table) Merge(other *Table) *Table {
	merged := NewTable(t.prices)
	if other != nil {
		for model, p := range other.prices {
			merged.prices[model] = p
		}
	}
	return merged
}

// snapshotSuffix matches the date stamp vendors append to pinned model ids,
// as in "gpt-4o-2024-08-06" or "claude-3-haiku-20240307".
var snapshotSuffix = regexp.MustCompile(`-(\d{4}-\d{2}-\d{2}|\d{8})$`)

// Lookup finds the price for model. A dated snapshot of a priced model uses
// the base model's price; any other unlisted id is unknown.
func (t *Table) Lookup(model string) (Price, bool) {
	if p, ok := t.prices[model]; ok {
		return p, true
	}

	base := snapshotSuffix.ReplaceAllString(model, "")
	if base == model {
		return Price{}, false
	}
	p, ok := t.prices[base]
	return p, ok
}

// Models lists the priced model identifiers in sorted order.
func (t *Table) Models() []string {
	models := make([]string, 0, len(t.prices))
	for model := range t.prices {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}
