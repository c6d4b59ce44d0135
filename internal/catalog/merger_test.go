package catalog

import (
	"errors"
	"reflect"
	"testing"
)

func testRates() RateTable {
	return RateTable{"USD": 1, "EUR": 1.1, "GBP": 0.78}
}

func TestMerger_FirstEncounterCreatesProduct(t *testing.T) {
	m := NewMerger("USD", testRates())

	warnings, err := m.Add("MRS", Row{
		ItemNo:       "00.1001",
		Description:  "Air tokens",
		Brand:        "Thermo",
		Manufacturer: "Thermo",
		Size:         "EA",
		Price:        "100",
		Currency:     "EUR",
		CatalogNo:    "",
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	snap := m.Snapshot()
	if len(snap.Products) != 1 {
		t.Fatalf("products = %d, want 1", len(snap.Products))
	}
	p := snap.Products[0]
	if p.ItemNo != "00.1001" || p.Description != "Air tokens" || p.Brand != "Thermo" || p.Manufacturer != "Thermo" || p.Size != "EA" {
		t.Errorf("unexpected product fields: %+v", p)
	}
	if len(p.SupplierOffers) != 1 {
		t.Fatalf("offers = %d, want 1", len(p.SupplierOffers))
	}

	o := p.SupplierOffers[0]
	want := Offer{
		SupplierName:     "MRS",
		OriginalPrice:    100,
		OriginalCurrency: "EUR",
		NormalizedPrice:  90.91,
		CatalogNo:        "00.1001",
		RawPrice:         "100",
		PriceStatus:      PriceOK,
	}
	if o != want {
		t.Errorf("offer = %+v, want %+v", o, want)
	}
}

func TestMerger_FillPolicy(t *testing.T) {
	tests := []struct {
		name  string
		first string
		later string
		want  string
	}{
		{name: "first non-empty wins", first: "A", later: "B", want: "A"},
		{name: "later fills empty slot", first: "", later: "B", want: "B"},
		{name: "later empty keeps value", first: "A", later: "", want: "A"},
		{name: "both empty", first: "", later: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMerger("USD", testRates())
			mustAdd(t, m, "S1", Row{ItemNo: "X", Description: tt.first, Brand: tt.first, Manufacturer: tt.first, Size: tt.first})
			mustAdd(t, m, "S2", Row{ItemNo: "X", Description: tt.later, Brand: tt.later, Manufacturer: tt.later, Size: tt.later})

			p, ok := m.Snapshot().Product("X")
			if !ok {
				t.Fatal("product X missing")
			}
			for field, got := range map[string]string{
				"description":  p.Description,
				"brand":        p.Brand,
				"manufacturer": p.Manufacturer,
				"size":         p.Size,
			} {
				if got != tt.want {
					t.Errorf("%s = %q, want %q", field, got, tt.want)
				}
			}
		})
	}
}

func TestMerger_BrandAndManufacturerFillIndependently(t *testing.T) {
	m := NewMerger("USD", testRates())
	mustAdd(t, m, "S1", Row{ItemNo: "X", Brand: "", Manufacturer: "Thermo"})
	mustAdd(t, m, "S2", Row{ItemNo: "X", Brand: "Nunc", Manufacturer: "Fisher"})

	p, _ := m.Snapshot().Product("X")
	if p.Manufacturer != "Thermo" {
		t.Errorf("Manufacturer = %q, want %q", p.Manufacturer, "Thermo")
	}
	if p.Brand != "Nunc" {
		t.Errorf("Brand = %q, want %q", p.Brand, "Nunc")
	}
}

func TestMerger_FileNameHintFixesManufacturer(t *testing.T) {
	// The first source has no BRAND, so its file name supplies the
	// manufacturer. A later source's BRAND still fills the empty Brand but
	// cannot replace the manufacturer, leaving the two fields different.
	m := NewMerger("USD", testRates())

	first, err := NormalizeRow(map[string]string{"PART #": "X", "PRICE": "10"}, "Thermo")
	if err != nil {
		t.Fatal(err)
	}
	second, err := NormalizeRow(map[string]string{"PART #": "X", "BRAND": "Nunc", "PRICE": "12"}, "Fisher")
	if err != nil {
		t.Fatal(err)
	}
	mustAdd(t, m, "S1", first)
	mustAdd(t, m, "S2", second)

	p, _ := m.Snapshot().Product("X")
	if p.Manufacturer != "Thermo" || p.Brand != "Nunc" {
		t.Errorf("Manufacturer, Brand = %q, %q, want %q, %q", p.Manufacturer, p.Brand, "Thermo", "Nunc")
	}
}

func TestMerger_OfferCountMatchesRows(t *testing.T) {
	m := NewMerger("USD", testRates())
	rows := []struct {
		supplier string
		row      Row
	}{
		{"S1", Row{ItemNo: "X", Description: "A", Price: "1"}},
		{"S2", Row{ItemNo: "X", Description: "B", Price: "2"}},
		{"S1", Row{ItemNo: "X", Description: "", Price: "3"}},
		{"S2", Row{ItemNo: "Y", Price: "4"}},
	}
	for _, r := range rows {
		mustAdd(t, m, r.supplier, r.row)
	}

	snap := m.Snapshot()
	x, _ := snap.Product("X")
	if len(x.SupplierOffers) != 3 {
		t.Errorf("X offers = %d, want 3", len(x.SupplierOffers))
	}

	var prices []float64
	for _, o := range x.SupplierOffers {
		prices = append(prices, o.OriginalPrice)
	}
	if !reflect.DeepEqual(prices, []float64{1, 2, 3}) {
		t.Errorf("offer order = %v, want encounter order [1 2 3]", prices)
	}
	if snap.OfferCount() != 4 {
		t.Errorf("OfferCount() = %d, want 4", snap.OfferCount())
	}
}

func TestMerger_SkippedRowContributesNothing(t *testing.T) {
	m := NewMerger("USD", testRates())

	warnings, err := m.Add("S1", Row{ItemNo: "  ", Description: "orphan", Price: "5"})
	if !errors.Is(err, ErrSkippedRow) {
		t.Fatalf("error = %v, want ErrSkippedRow", err)
	}
	if warnings != nil {
		t.Errorf("warnings = %v, want nil", warnings)
	}

	snap := m.Snapshot()
	if len(snap.Products) != 0 || snap.OfferCount() != 0 {
		t.Errorf("skipped row produced %d products, %d offers", len(snap.Products), snap.OfferCount())
	}
	if len(snap.Suppliers) != 0 {
		t.Errorf("skipped row registered suppliers %v", snap.Suppliers)
	}
}

func TestMerger_OfferDefaults(t *testing.T) {
	m := NewMerger("usd", testRates())
	mustAdd(t, m, "S1", Row{ItemNo: "X", Price: "10", Currency: " ", CatalogNo: ""})

	p, _ := m.Snapshot().Product("X")
	o := p.SupplierOffers[0]
	if o.OriginalCurrency != "USD" {
		t.Errorf("OriginalCurrency = %q, want reference USD", o.OriginalCurrency)
	}
	if o.CatalogNo != "X" {
		t.Errorf("CatalogNo = %q, want item number", o.CatalogNo)
	}
	if o.NormalizedPrice != 10 {
		t.Errorf("NormalizedPrice = %v, want 10", o.NormalizedPrice)
	}
}

func TestMerger_Warnings(t *testing.T) {
	tests := []struct {
		name       string
		row        Row
		wantErr    error
		wantPrice  float64
		wantNorm   float64
		wantStatus PriceStatus
	}{
		{
			name:       "invalid price",
			row:        Row{ItemNo: "X", Price: "call us"},
			wantErr:    ErrPriceParse,
			wantStatus: PriceInvalid,
		},
		{
			name:       "unknown currency",
			row:        Row{ItemNo: "X", Price: "100", Currency: "JPY"},
			wantErr:    ErrRateUnavailable,
			wantPrice:  100,
			wantNorm:   100,
			wantStatus: PriceOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMerger("USD", testRates())
			warnings, err := m.Add("S1", tt.row)
			if err != nil {
				t.Fatalf("Add() error = %v", err)
			}
			if len(warnings) != 1 || !errors.Is(warnings[0], tt.wantErr) {
				t.Fatalf("warnings = %v, want one %v", warnings, tt.wantErr)
			}

			p, _ := m.Snapshot().Product("X")
			o := p.SupplierOffers[0]
			if o.OriginalPrice != tt.wantPrice || o.NormalizedPrice != tt.wantNorm || o.PriceStatus != tt.wantStatus {
				t.Errorf("offer = %+v", o)
			}
		})
	}
}

func TestMerger_EmptyPriceIsNotAWarning(t *testing.T) {
	m := NewMerger("USD", testRates())
	warnings, err := m.Add("S1", Row{ItemNo: "X", Price: ""})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none for a blank price", warnings)
	}
}

func TestMerger_SupplierOrder(t *testing.T) {
	m := NewMerger("USD", testRates())
	m.AddSupplier("Mizala")
	mustAdd(t, m, "MRS", Row{ItemNo: "A"})
	mustAdd(t, m, "Mizala", Row{ItemNo: "B"})
	m.AddSupplier("MRS")

	if got, want := m.Suppliers(), []string{"Mizala", "MRS"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Suppliers() = %v, want %v", got, want)
	}
}

func TestMerger_ProductOrderIsFirstSeen(t *testing.T) {
	m := NewMerger("USD", testRates())
	for _, id := range []string{"C", "A", "B", "A", "C"} {
		mustAdd(t, m, "S", Row{ItemNo: id})
	}

	var got []string
	for _, p := range m.Snapshot().Products {
		got = append(got, p.ItemNo)
	}
	if want := []string{"C", "A", "B"}; !reflect.DeepEqual(got, want) {
		t.Errorf("product order = %v, want %v", got, want)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
}

func TestMerger_SnapshotIsIndependent(t *testing.T) {
	m := NewMerger("USD", testRates())
	mustAdd(t, m, "S1", Row{ItemNo: "X", Description: "A"})

	snap := m.Snapshot()
	snap.Products[0].Description = "mutated"
	snap.Products[0].SupplierOffers[0].SupplierName = "mutated"
	snap.Suppliers[0] = "mutated"

	again := m.Snapshot()
	if again.Products[0].Description != "A" || again.Products[0].SupplierOffers[0].SupplierName != "S1" || again.Suppliers[0] != "S1" {
		t.Errorf("snapshot mutation leaked into merger: %+v", again)
	}
}

func TestMerger_RatesAreCopied(t *testing.T) {
	rates := testRates()
	m := NewMerger("USD", rates)
	rates["EUR"] = 2

	mustAdd(t, m, "S1", Row{ItemNo: "X", Price: "100", Currency: "EUR"})
	p, _ := m.Snapshot().Product("X")
	if got := p.SupplierOffers[0].NormalizedPrice; got != 90.91 {
		t.Errorf("NormalizedPrice = %v, want 90.91 from the original table", got)
	}
}

func TestMerger_EmptySnapshotHasNonNilLists(t *testing.T) {
	snap := NewMerger("USD", nil).Snapshot()
	if snap.Products == nil || snap.Suppliers == nil {
		t.Errorf("empty snapshot should serialize as empty lists, got %+v", snap)
	}
}

func mustAdd(t *testing.T, m *Merger, supplier string, row Row) {
	t.Helper()
	if _, err := m.Add(supplier, row); err != nil {
		t.Fatalf("Add(%s, %+v) error = %v", supplier, row, err)
	}
}
