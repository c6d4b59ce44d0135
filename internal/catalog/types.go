package catalog

// PriceStatus records how an offer's raw price text was interpreted.
type PriceStatus int

const (
	PriceOK      PriceStatus = iota // parsed to a number
	PriceEmpty                      // no price stated, zero by convention
	PriceInvalid                    // text present but not a price, zero by default
)

// String returns the status name used in logs and diagnostics.
func (s PriceStatus) String() string {
	switch s {
	case PriceOK:
		return "ok"
	case PriceEmpty:
		return "empty"
	case PriceInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Offer is one supplier's price quotation for a product.
// Offers are created once per contributing row and never modified.
type Offer struct {
	SupplierName     string  `json:"supplierName"`
	OriginalPrice    float64 `json:"originalPrice"`
	OriginalCurrency string  `json:"originalCurrency"`
	NormalizedPrice  float64 `json:"normalizedPrice"`
	CatalogNo        string  `json:"catalogNo"`

	// RawPrice and PriceStatus keep the source text so "no price" and
	// "bad price" stay distinguishable after parsing.
	RawPrice    string      `json:"-"`
	PriceStatus PriceStatus `json:"-"`
}

// Product is one logical item merged across all supplier price lists.
type Product struct {
	ItemNo         string  `json:"itemNo"`
	Description    string  `json:"description"`
	Manufacturer   string  `json:"manufacturer"`
	Brand          string  `json:"brand"`
	Size           string  `json:"size"`
	SupplierOffers []Offer `json:"supplierOffers"`
}

// Snapshot is the serializable result of a merge run.
// Suppliers and Products are both in first-seen order.
type Snapshot struct {
	Suppliers []string  `json:"suppliers"`
	Products  []Product `json:"products"`
}

// Product returns the product with the given item number.
func (s Snapshot) Product(itemNo string) (Product, bool) {
	for _, p := range s.Products {
		if p.ItemNo == itemNo {
			return p, true
		}
	}
	return Product{}, false
}

// OfferCount returns the total number of offers across all products.
func (s Snapshot) OfferCount() int {
	n := 0
	for _, p := range s.Products {
		n += len(p.SupplierOffers)
	}
	return n
}
