package analysis

// ProductDescription is the structured result of one analysis call.
// It lives for a single request: built here, consumed by the scene
// prompt builder, then discarded. Missing fields decode to their zero
// values; the prompt builder fills sensible defaults.
type ProductDescription struct {
	ProductEN string            `json:"product_en"`
	ProductRU string            `json:"product_ru"`
	Category  string            `json:"category"`
	Colors    []string          `json:"colors"`
	Style     string            `json:"style"`
	Material  string            `json:"material"`
	Features  string            `json:"features"`
	Scenes    map[string]string `json:"scenes"`
}
