package catalog

import (
	"fmt"
	"strings"
)

// Merger folds supplier rows into products keyed by item number.
//
// A Merger is owned by a single run and is not safe for concurrent use.
// Products and suppliers are recorded in first-seen order so the snapshot is
// deterministic for a given input order.
type Merger struct {
	reference string
	rates     RateTable

	products map[string]*Product
	order    []string

	suppliers     map[string]struct{}
	supplierOrder []string
}

// NewMerger creates an empty merger converting prices into reference using
// rates. The table is copied; later changes to rates do not affect the merger.
func NewMerger(reference string, rates RateTable) *Merger {
	reference = NormalizeCode(reference)
	table := rates.Clone()
	table[reference] = 1.0

	return &Merger{
		reference: reference,
		rates:     table,
		products:  make(map[string]*Product),
		suppliers: make(map[string]struct{}),
	}
}

// Reference returns the reference currency code.
func (m *Merger) Reference() string {
	return m.reference
}

// AddSupplier records a supplier in the supplier list.
// Adding an already known supplier is a no-op.
func (m *Merger) AddSupplier(name string) {
	if _, ok := m.suppliers[name]; ok {
		return
	}
	m.suppliers[name] = struct{}{}
	m.supplierOrder = append(m.supplierOrder, name)
}

// Add merges one normalized row contributed by supplier.
//
// Returns ErrSkippedRow (and changes nothing) when the row has no item
// number. Otherwise the row is always merged: empty descriptive fields of the
// product are filled from the row and a new offer is appended. Recoverable
// conditions met while building the offer (invalid price, missing rate) are
// returned as warnings.
func (m *Merger) Add(supplier string, row Row) (warnings []error, err error) {
	itemNo := strings.TrimSpace(row.ItemNo)
	if itemNo == "" {
		return nil, ErrSkippedRow
	}
	m.AddSupplier(supplier)

	p, ok := m.products[itemNo]
	if !ok {
		p = &Product{ItemNo: itemNo}
		m.products[itemNo] = p
		m.order = append(m.order, itemNo)
	}
	fill(&p.Description, row.Description)
	fill(&p.Manufacturer, row.Manufacturer)
	fill(&p.Brand, row.Brand)
	fill(&p.Size, row.Size)

	offer, warnings := m.buildOffer(supplier, itemNo, row)
	p.SupplierOffers = append(p.SupplierOffers, offer)
	return warnings, nil
}

// fill sets *dst to v only when *dst is still empty.
func fill(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func (m *Merger) buildOffer(supplier, itemNo string, row Row) (Offer, []error) {
	var warnings []error

	price, status := ParsePrice(row.Price)
	if status == PriceInvalid {
		warnings = append(warnings, fmt.Errorf("%w: %q for item %s from %s", ErrPriceParse, row.Price, itemNo, supplier))
	}

	currency := NormalizeCode(row.Currency)
	if currency == "" {
		currency = m.reference
	}

	normalized, err := ToReference(price, currency, m.reference, m.rates)
	if err != nil {
		warnings = append(warnings, fmt.Errorf("item %s from %s: %w", itemNo, supplier, err))
	}

	catalogNo := strings.TrimSpace(row.CatalogNo)
	if catalogNo == "" {
		catalogNo = itemNo
	}

	return Offer{
		SupplierName:     supplier,
		OriginalPrice:    price,
		OriginalCurrency: currency,
		NormalizedPrice:  normalized,
		CatalogNo:        catalogNo,
		RawPrice:         row.Price,
		PriceStatus:      status,
	}, warnings
}

// Len returns the number of distinct products merged so far.
func (m *Merger) Len() int {
	return len(m.order)
}

// Suppliers returns the supplier names in first-seen order.
func (m *Merger) Suppliers() []string {
	out := make([]string, len(m.supplierOrder))
	copy(out, m.supplierOrder)
	return out
}

// Snapshot projects the merged state into ordered lists.
// The returned snapshot shares no memory with the merger.
func (m *Merger) Snapshot() Snapshot {
	products := make([]Product, 0, len(m.order))
	for _, itemNo := range m.order {
		p := *m.products[itemNo]
		p.SupplierOffers = append([]Offer(nil), p.SupplierOffers...)
		products = append(products, p)
	}
	return Snapshot{
		Suppliers: m.Suppliers(),
		Products:  products,
	}
}
