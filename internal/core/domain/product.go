package domain

import (
	"errors"
	"fmt"
)

type Product struct {
	ID          string
	Name        string
	Description string
	UnitName    string
	PriceNative Amount
	PriceStable Amount
}

// A Catalog is the static, read-only product list loaded at start.
type Catalog struct {
	products []Product
	byID     map[string]int
}

func NewCatalog(ps []Product) (Catalog, error) {
	c := Catalog{
		products: make([]Product, 0, len(ps)),
		byID:     make(map[string]int, len(ps)),
	}
	for _, p := range ps {
		if p.ID == "" {
			return Catalog{}, errors.New("product id is empty")
		}
		if _, ok := c.byID[p.ID]; ok {
			return Catalog{}, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c, nil
}

func (c Catalog) Lookup(id string) (Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.products[i], true
}

func (c Catalog) Products() []Product {
	out := make([]Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c Catalog) Len() int {
	return len(c.products)
}

// A ChargeRequest maps product id to the raw requested quantity.
type ChargeRequest map[string]string
