package service

import (
	"log/slog"

	"github.com/niksmo/solpay-checkout/internal/core/domain"
	"github.com/niksmo/solpay-checkout/internal/core/port"
	"github.com/shopspring/decimal"
)

var _ port.DiscountEvaluator = DiscountEngine{}

const (
	DefaultDiscountThreshold = 5
	DefaultRedeemUnits       = 5
	DefaultAwardUnits        = 1
)

var DefaultRedeemMultiplier = decimal.RequireFromString("0.5")

type DiscountConfig struct {
	Threshold        uint64
	RedeemUnits      uint64
	AwardUnits       uint64
	RedeemMultiplier decimal.Decimal
}

func DefaultDiscountConfig() DiscountConfig {
	return DiscountConfig{
		Threshold:        DefaultDiscountThreshold,
		RedeemUnits:      DefaultRedeemUnits,
		AwardUnits:       DefaultAwardUnits,
		RedeemMultiplier: DefaultRedeemMultiplier,
	}
}

// A DiscountEngine decides the coupon movement of a checkout from the
// buyer's coupon balance snapshot.
type DiscountEngine struct {
	cfg DiscountConfig
}

func NewDiscountEngine(cfg DiscountConfig) DiscountEngine {
	const op = "NewDiscountEngine"
	log := slog.With("op", op)

	def := DefaultDiscountConfig()
	if cfg.RedeemUnits == 0 || cfg.RedeemUnits > cfg.Threshold {
		log.Warn("invalid redeem units, using defaults",
			"redeemUnits", cfg.RedeemUnits, "threshold", cfg.Threshold)
		cfg.Threshold, cfg.RedeemUnits = def.Threshold, def.RedeemUnits
	}
	if cfg.AwardUnits == 0 {
		cfg.AwardUnits = def.AwardUnits
	}
	m := cfg.RedeemMultiplier
	if !m.IsPositive() || m.GreaterThan(decimal.NewFromInt(1)) {
		log.Warn("invalid redeem multiplier, using default", "multiplier", m)
		cfg.RedeemMultiplier = def.RedeemMultiplier
	}
	return DiscountEngine{cfg}
}

func (e DiscountEngine) Evaluate(balance uint64) domain.DiscountDecision {
	if balance >= e.cfg.Threshold {
		return domain.DiscountDecision{
			Kind:       domain.DiscountRedeem,
			Units:      e.cfg.RedeemUnits,
			Multiplier: e.cfg.RedeemMultiplier,
		}
	}
	return domain.DiscountDecision{
		Kind:       domain.DiscountAward,
		Units:      e.cfg.AwardUnits,
		Multiplier: decimal.NewFromInt(1),
	}
}
