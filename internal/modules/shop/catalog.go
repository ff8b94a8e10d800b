package shop

// Product is a catalog entry. The catalog is static configuration: changing
// it requires a restart.
type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
}

type Catalog struct {
	products []Product
	byID     map[string]Product
}

// NewCatalog builds the default product catalog priced in currency.
func NewCatalog(currency string) *Catalog {
	products := []Product{
		{ID: "starter-pack", Name: "Starter Pack", Description: "Starter creative assets pack", AmountCents: 1900, Currency: currency},
		{ID: "pro-pack", Name: "Pro Pack", Description: "Expanded assets + premium templates", AmountCents: 4900, Currency: currency},
		{ID: "studio-pack", Name: "Studio Pack", Description: "Full bundle with lifetime updates", AmountCents: 9900, Currency: currency},
	}

	byID := make(map[string]Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &Catalog{products: products, byID: byID}
}

func (c *Catalog) Get(id string) (Product, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// List returns products in catalog order.
func (c *Catalog) List() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}
