// Package lookup answers "who sells these part numbers, and who is cheapest"
// against a built catalog.
package lookup

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/pricemerge/internal/catalog"
)

// DefaultMargin is the price protection added on top of normalized prices.
const DefaultMargin = 0.03

// MaxPartNumbers caps the part numbers accepted in one request.
const MaxPartNumbers = 500

// Request asks for offers on part numbers of one manufacturer.
type Request struct {
	Manufacturer string   `json:"manufacturer" validate:"required"`
	PartNumbers  []string `json:"partNumbers" validate:"required,min=1,max=500,dive,required"`
}

// SupplierPrice is one supplier offer for a requested part number.
type SupplierPrice struct {
	Supplier         string  `json:"supplier"`
	CatalogNo        string  `json:"catalogNo"`
	OriginalPrice    float64 `json:"originalPrice"`
	OriginalCurrency string  `json:"originalCurrency"`
	NormalizedPrice  float64 `json:"normalizedPrice"`
	ProtectedPrice   float64 `json:"protectedPrice"`
	IsWinner         bool    `json:"isWinner"`
}

// PartResult lists the offers found for one part number, cheapest first.
type PartResult struct {
	PartNumber string          `json:"partNumber"`
	Found      bool            `json:"found"`
	Suppliers  []SupplierPrice `json:"suppliers"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON names in validation errors.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims the request fields and drops blank and repeated part
// numbers, keeping the first occurrence.
func (r *Request) Normalize() {
	r.Manufacturer = strings.TrimSpace(r.Manufacturer)

	seen := make(map[string]bool, len(r.PartNumbers))
	parts := r.PartNumbers[:0]
	for _, pn := range r.PartNumbers {
		pn = strings.ToUpper(strings.TrimSpace(pn))
		if pn == "" || seen[pn] {
			continue
		}
		seen[pn] = true
		parts = append(parts, pn)
	}
	r.PartNumbers = parts
}

// Validate checks the request against its struct tags.
func (r *Request) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid lookup request: %s", strings.Join(msgs, "; "))
}

var partSeparators = regexp.MustCompile(`[\s,;]+`)

// SplitPartNumbers splits free text (one per line, or comma separated) into
// part numbers.
func SplitPartNumbers(text string) []string {
	var out []string
	for _, pn := range partSeparators.Split(text, -1) {
		if pn != "" {
			out = append(out, pn)
		}
	}
	return out
}

// Lookup finds offers for every part number in req.
//
// Products match when the item number equals the part number and the product
// manufacturer equals req.Manufacturer, both case-insensitively. Offers
// without a parsed price are ignored. Each offer gets
// protectedPrice = round2(normalizedPrice * (1 + margin)); offers are sorted
// by protected price and every offer from the cheapest supplier is marked as
// the winner. The request must already be normalized.
func Lookup(snap catalog.Snapshot, req Request, margin float64) []PartResult {
	index := make(map[string][]catalog.Product)
	for _, p := range snap.Products {
		if !strings.EqualFold(strings.TrimSpace(p.Manufacturer), req.Manufacturer) {
			continue
		}
		key := strings.ToUpper(strings.TrimSpace(p.ItemNo))
		index[key] = append(index[key], p)
	}

	results := make([]PartResult, 0, len(req.PartNumbers))
	for _, pn := range req.PartNumbers {
		res := PartResult{PartNumber: pn, Suppliers: []SupplierPrice{}}

		for _, p := range index[pn] {
			for _, o := range p.SupplierOffers {
				if o.PriceStatus != catalog.PriceOK {
					continue
				}
				res.Suppliers = append(res.Suppliers, SupplierPrice{
					Supplier:         o.SupplierName,
					CatalogNo:        o.CatalogNo,
					OriginalPrice:    o.OriginalPrice,
					OriginalCurrency: o.OriginalCurrency,
					NormalizedPrice:  o.NormalizedPrice,
					ProtectedPrice:   catalog.Round2(o.NormalizedPrice * (1 + margin)),
				})
			}
		}

		if len(res.Suppliers) > 0 {
			res.Found = true
			sort.SliceStable(res.Suppliers, func(i, j int) bool {
				return res.Suppliers[i].ProtectedPrice < res.Suppliers[j].ProtectedPrice
			})
			winner := res.Suppliers[0].Supplier
			for i := range res.Suppliers {
				res.Suppliers[i].IsWinner = res.Suppliers[i].Supplier == winner
			}
		}
		results = append(results, res)
	}
	return results
}
