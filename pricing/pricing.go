// Package pricing turns a client purchase request into a priced order. The
// price is always recomputed from the clamped grid dimensions, never taken
// from the client.
package pricing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const (
	// MinUnits and MaxUnits bound each grid dimension, in units.
	MinUnits = 1
	MaxUnits = 100
	// DefaultUnits is used for a dimension missing from the request.
	DefaultUnits = 10
	// PixelsPerUnit is the size of a unit: a 10x10 pixel block.
	PixelsPerUnit = 100
	// DefaultPricePerPixelCents is $1.00 per pixel.
	DefaultPricePerPixelCents = 100
	// DefaultProductName prefixes the line item name of every order.
	DefaultProductName = "Dubai MDH Block"
	// descriptionSeparator joins the label and the link in the line item description.
	descriptionSeparator = " • "
)

// Metadata keys attached to each checkout session.
const (
	MetadataWUnits = "wUnits"
	MetadataHUnits = "hUnits"
	MetadataPixels = "pixels"
	MetadataLabel  = "label"
	MetadataHref   = "href"
)

var numberPrinter = message.NewPrinter(language.AmericanEnglish)

// PurchaseRequest is the body of a checkout request. The dimensions hold the
// result of the numeric coercion, NaN when the submitted value was not a
// number.
type PurchaseRequest struct {
	WUnits float64 `json:"wUnits"`
	HUnits float64 `json:"hUnits"`
	Label  string  `json:"label"`
	Href   string  `json:"href"`

	// truthiness of the submitted values, used by the description
	labelTruth truth
	hrefTruth  truth
}

// NewPurchaseRequest returns a request holding the default values, the one
// used when the body is empty.
func NewPurchaseRequest() *PurchaseRequest {
	return &PurchaseRequest{WUnits: DefaultUnits, HUnits: DefaultUnits}
}

// UnmarshalJSON decodes a request body. Fields are never rejected: numbers
// are coerced and missing fields take their default. An array body is
// accepted and yields the defaults, any other non object body is an error.
func (r *PurchaseRequest) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var body any
	if err := dec.Decode(&body); err != nil {
		return err
	}
	*r = *NewPurchaseRequest()
	switch fields := body.(type) {
	case map[string]any:
		if v, ok := fields[MetadataWUnits]; ok {
			r.WUnits = toNumber(v)
		}
		if v, ok := fields[MetadataHUnits]; ok {
			r.HUnits = toNumber(v)
		}
		r.Label = toString(fields[MetadataLabel])
		r.Href = toString(fields[MetadataHref])
		r.labelTruth = truthOf(fields[MetadataLabel])
		r.hrefTruth = truthOf(fields[MetadataHref])
	case []any:
		// an array carries no named fields, every default applies
	default:
		return fmt.Errorf("request body must be a JSON object")
	}
	return nil
}

// Order is the server side priced view of a purchase request.
type Order struct {
	W          float64
	H          float64
	Pixels     float64
	TotalCents float64
	Label      string
	Href       string

	labelTruth truth
	hrefTruth  truth
}

// ClampUnits bounds a coerced dimension to [MinUnits, MaxUnits]. NaN and zero
// become MinUnits; other in-range values are kept as they are.
func ClampUnits(v float64) float64 {
	if math.IsNaN(v) || v == 0 {
		v = MinUnits
	}
	return math.Max(MinUnits, math.Min(MaxUnits, v))
}

// Quote clamps the requested dimensions and computes the order price.
func Quote(req *PurchaseRequest, pricePerPixelCents int64) *Order {
	w := ClampUnits(req.WUnits)
	h := ClampUnits(req.HUnits)
	pixels := w * h * PixelsPerUnit
	return &Order{
		W:          w,
		H:          h,
		Pixels:     pixels,
		TotalCents: pixels * float64(pricePerPixelCents),
		Label:      req.Label,
		Href:       req.Href,
		labelTruth: req.labelTruth,
		hrefTruth:  req.hrefTruth,
	}
}

// UnitAmount returns the total price as whole cents. The second value is
// false when the total has a fractional part, which only happens for
// fractional dimensions.
func (o *Order) UnitAmount() (int64, bool) {
	if o.TotalCents != math.Trunc(o.TotalCents) || o.TotalCents > math.MaxInt64 {
		return 0, false
	}
	return int64(o.TotalCents), true
}

// ProductName returns the line item name, for instance
// "Dubai MDH Block 10x10 (10,000 px)".
func (o *Order) ProductName(prefix string) string {
	if prefix == "" {
		prefix = DefaultProductName
	}
	pixels := numberPrinter.Sprintf("%v", number.Decimal(o.Pixels, number.MaxFractionDigits(3)))
	return fmt.Sprintf("%s %sx%s (%s px)", prefix, FormatNumber(o.W), FormatNumber(o.H), pixels)
}

// Description joins the label and the link. A falsy label drops its
// separator, so an order without label is described by its link alone.
// A falsy link is left out. Orders built without decoding a request treat
// the empty string as the only falsy value.
func (o *Order) Description() string {
	var description string
	if o.labelTruth.is(o.Label) {
		description = o.Label + descriptionSeparator
	}
	if o.hrefTruth.is(o.Href) {
		description += o.Href
	}
	return description
}

// Metadata returns the reconciliation data attached to the checkout session.
func (o *Order) Metadata() map[string]string {
	return map[string]string{
		MetadataWUnits: FormatNumber(o.W),
		MetadataHUnits: FormatNumber(o.H),
		MetadataPixels: FormatNumber(o.Pixels),
		MetadataLabel:  o.Label,
		MetadataHref:   o.Href,
	}
}
