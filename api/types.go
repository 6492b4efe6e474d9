package api

// PublicConfig is the checkout configuration exposed to the client pages.
type PublicConfig struct {
	PublishableKey     string `json:"publishableKey"`
	PricePerPixelCents int64  `json:"pricePerPixelCents"`
	PixelsPerUnit      int    `json:"pixelsPerUnit"`
	MinUnits           int    `json:"minUnits"`
	MaxUnits           int    `json:"maxUnits"`
	DefaultUnits       int    `json:"defaultUnits"`
	Currency           string `json:"currency"`
}
