package usecase

import (
	"fmt"
	"time"

	"telegram-forecast-store/internal/config"
	"telegram-forecast-store/internal/domain"
)

// PricingUseCase computes the charge for a product kind at a given moment.
// Quote is a pure function of (kind, now, applyPromo) and the configuration
// snapshot the use case was built with, so an order can be re-quoted before
// the invoice goes out and get the same answer within the same rule window.
type PricingUseCase interface {
	// Quote returns the price in minor currency units. A zero `now` means
	// the current time.
	Quote(kind string, now time.Time, applyPromo bool) (int64, error)
}

var _ PricingUseCase = (*pricingUC)(nil)

type pricingUC struct {
	doc *config.PricingDoc
	loc *time.Location
}

// NewPricingUseCase resolves the document timezone once up front. A document
// that fails to validate is rejected here; quoting never sees a half-parsed
// snapshot.
func NewPricingUseCase(doc *config.PricingDoc) (PricingUseCase, error) {
	if doc == nil {
		return nil, domain.ErrInvalidArgument
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	loc, err := doc.Location()
	if err != nil {
		return nil, err
	}
	return &pricingUC{doc: doc, loc: loc}, nil
}

func (p *pricingUC) Quote(kind string, now time.Time, applyPromo bool) (int64, error) {
	kp, ok := p.doc.Kinds[kind]
	if !ok {
		return 0, fmt.Errorf("%w: no pricing for kind %q", domain.ErrPricingConfig, kind)
	}

	if now.IsZero() {
		now = time.Now()
	}
	now = now.In(p.loc)

	// Rules are evaluated in configured order; the first match wins.
	price := kp.DefaultMinor
	for i := range kp.Rules {
		match, err := kp.Rules[i].Matches(now, p.loc)
		if err != nil {
			return 0, err
		}
		if match {
			price = kp.Rules[i].PriceMinor
			break
		}
	}

	if applyPromo {
		price -= kp.PromoDiscountMinor
		if price < 0 {
			price = 0
		}
	}
	return price, nil
}
