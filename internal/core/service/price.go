package service

import (
	"strconv"
	"strings"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
)

// CalculatePrice returns the stablecoin total of the requested products.
//
// Unknown product ids are ignored, malformed or negative quantities count as zero.
func CalculatePrice(c domain.Catalog, req domain.ChargeRequest) domain.Amount {
	return sumPrices(c, req, func(p domain.Product) domain.Amount {
		return p.PriceStable
	})
}

// CalculateNativePrice is [CalculatePrice] in the ledger's native currency.
func CalculateNativePrice(c domain.Catalog, req domain.ChargeRequest) domain.Amount {
	return sumPrices(c, req, func(p domain.Product) domain.Amount {
		return p.PriceNative
	})
}

func sumPrices(
	c domain.Catalog,
	req domain.ChargeRequest,
	price func(domain.Product) domain.Amount,
) (total domain.Amount) {
	for _, p := range c.Products() {
		raw, ok := req[p.ID]
		if !ok {
			continue
		}
		q := parseQuantity(raw)
		if q == 0 {
			continue
		}
		total = total.Add(price(p).MulQuantity(q))
	}
	return total
}

func parseQuantity(raw string) uint64 {
	q, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return q
}
