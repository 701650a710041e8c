package domain

import "github.com/shopspring/decimal"

type DiscountKind uint8

const (
	// DiscountAward credits coupons from the shop to the buyer at full price.
	DiscountAward DiscountKind = iota + 1
	// DiscountRedeem debits coupons from the buyer in exchange for a lower price.
	DiscountRedeem
)

func (k DiscountKind) String() string {
	switch k {
	case DiscountAward:
		return "award"
	case DiscountRedeem:
		return "redeem"
	default:
		return "unknown"
	}
}

// A DiscountDecision says which way coupon tokens move for one checkout
// and how the price is scaled.
type DiscountDecision struct {
	Kind       DiscountKind
	Units      uint64
	Multiplier decimal.Decimal
}

func (d DiscountDecision) Applied() bool {
	return d.Kind == DiscountRedeem
}
