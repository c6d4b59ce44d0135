package catalog

import (
	"fmt"
	"sort"
	"strings"
)

// Column headers of the supplier price-list schema, matched after trimming.
const (
	ColItemNo       = "PART #"
	ColDescription  = "DESCRIPTION"
	ColSize         = "UOM"
	ColBrand        = "BRAND"
	ColManufacturer = "MANUFACTURER"
	ColPrice        = "PRICE"
	ColCurrency     = "CURRENCY"
	ColCatalogNo    = "CATALOG #"
)

// Row is the canonical, fixed-shape form of one price-list row.
// Every field is trimmed; absent columns are empty strings.
type Row struct {
	ItemNo       string
	Description  string
	Size         string
	Brand        string
	Manufacturer string
	Price        string
	Currency     string
	CatalogNo    string
}

// CleanKeys returns a copy of raw with surrounding whitespace removed from
// every field name. When two names collide after trimming, a non-empty value
// beats an empty one; otherwise the lexically first original name wins.
func CleanKeys(raw map[string]string) map[string]string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]string, len(raw))
	for _, k := range keys {
		name := strings.TrimSpace(k)
		v := raw[k]
		if prev, ok := out[name]; ok && (strings.TrimSpace(prev) != "" || strings.TrimSpace(v) == "") {
			continue
		}
		out[name] = v
	}
	return out
}

// NormalizeRow maps one raw record onto the canonical schema.
//
// manufacturerHint is used when the row has neither a MANUFACTURER nor a
// BRAND value (typically the manufacturer token of the source file name).
// Returns ErrSkippedRow when the item number is empty after trimming.
func NormalizeRow(raw map[string]string, manufacturerHint string) (Row, error) {
	fields := CleanKeys(raw)
	get := func(col string) string {
		return strings.TrimSpace(fields[col])
	}

	row := Row{
		ItemNo:       get(ColItemNo),
		Description:  get(ColDescription),
		Size:         get(ColSize),
		Brand:        get(ColBrand),
		Manufacturer: get(ColManufacturer),
		Price:        get(ColPrice),
		Currency:     get(ColCurrency),
		CatalogNo:    get(ColCatalogNo),
	}
	if row.ItemNo == "" {
		return Row{}, fmt.Errorf("%w: column %q is empty", ErrSkippedRow, ColItemNo)
	}

	// Brand doubles as the manufacturer when the list has no separate column.
	if row.Manufacturer == "" {
		row.Manufacturer = row.Brand
	}
	if row.Manufacturer == "" {
		row.Manufacturer = strings.TrimSpace(manufacturerHint)
	}
	return row, nil
}
