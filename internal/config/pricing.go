package config

import (
	"fmt"
	"time"

	"telegram-forecast-store/internal/domain"
)

// PricingDoc is the pricing configuration surface: per product kind a default
// price, an ordered rule list, and a promo discount, evaluated in one
// configured timezone. Prices are minor currency units throughout.
type PricingDoc struct {
	Timezone            string                `yaml:"timezone"`
	TimezoneOffsetHours *int                  `yaml:"timezone_offset_hours"` // fallback when the IANA name is unavailable
	Kinds               map[string]KindPrices `yaml:"kinds"`
}

type KindPrices struct {
	DefaultMinor       int64       `yaml:"default_minor"`
	PromoDiscountMinor int64       `yaml:"promo_discount_minor"`
	Rules              []PriceRule `yaml:"rules"`
}

// PriceRule is one time-bounded price override. Type is one of window, from,
// until; when omitted it is inferred the way the stored documents historically
// did: window if an end is present, from otherwise.
type PriceRule struct {
	Type       string `yaml:"type"`
	Start      string `yaml:"start"` // "2006-01-02 15:04" in the document timezone
	End        string `yaml:"end"`
	PriceMinor int64  `yaml:"price_minor"`
}

const ruleTimeLayout = "2006-01-02 15:04"

// Location resolves the document timezone. The numeric offset fallback must
// be honored: deployment hosts do not always carry a tzdata database.
func (d *PricingDoc) Location() (*time.Location, error) {
	name := d.Timezone
	if name == "" {
		name = "Europe/Moscow"
	}
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc, nil
	}
	if d.TimezoneOffsetHours == nil {
		return nil, fmt.Errorf("%w: timezone %q not found and no timezone_offset_hours fallback", domain.ErrPricingConfig, name)
	}
	return time.FixedZone(name, *d.TimezoneOffsetHours*3600), nil
}

func (r *PriceRule) kind() string {
	if r.Type != "" {
		return r.Type
	}
	if r.End != "" {
		return "window"
	}
	return "from"
}

// Window returns the rule's effective [start, end) bounds parsed in loc.
// A zero start means open at the past end, a zero end means open-ended.
func (r *PriceRule) Window(loc *time.Location) (start, end time.Time, err error) {
	switch r.kind() {
	case "window":
		if r.Start == "" || r.End == "" {
			return start, end, fmt.Errorf("%w: window rule needs both start and end", domain.ErrPricingConfig)
		}
		if start, err = time.ParseInLocation(ruleTimeLayout, r.Start, loc); err != nil {
			return start, end, fmt.Errorf("%w: bad rule start %q: %v", domain.ErrPricingConfig, r.Start, err)
		}
		if end, err = time.ParseInLocation(ruleTimeLayout, r.End, loc); err != nil {
			return start, end, fmt.Errorf("%w: bad rule end %q: %v", domain.ErrPricingConfig, r.End, err)
		}
	case "from":
		if r.Start == "" {
			return start, end, fmt.Errorf("%w: from rule needs a start", domain.ErrPricingConfig)
		}
		if start, err = time.ParseInLocation(ruleTimeLayout, r.Start, loc); err != nil {
			return start, end, fmt.Errorf("%w: bad rule start %q: %v", domain.ErrPricingConfig, r.Start, err)
		}
	case "until":
		if r.End == "" {
			return start, end, fmt.Errorf("%w: until rule needs an end", domain.ErrPricingConfig)
		}
		if end, err = time.ParseInLocation(ruleTimeLayout, r.End, loc); err != nil {
			return start, end, fmt.Errorf("%w: bad rule end %q: %v", domain.ErrPricingConfig, r.End, err)
		}
	default:
		return start, end, fmt.Errorf("%w: unknown rule type %q", domain.ErrPricingConfig, r.Type)
	}
	return start, end, nil
}

// Matches reports whether the rule covers now. now must already be in the
// document timezone.
func (r *PriceRule) Matches(now time.Time, loc *time.Location) (bool, error) {
	start, end, err := r.Window(loc)
	if err != nil {
		return false, err
	}
	switch r.kind() {
	case "window":
		return !now.Before(start) && now.Before(end), nil
	case "from":
		return !now.Before(start), nil
	default: // until
		return now.Before(end), nil
	}
}

// Validate parses every rule once so malformed documents fail at load time.
func (d *PricingDoc) Validate() error {
	loc, err := d.Location()
	if err != nil {
		return err
	}
	for kind, kp := range d.Kinds {
		if kp.DefaultMinor < 0 || kp.PromoDiscountMinor < 0 {
			return fmt.Errorf("%w: negative price for kind %q", domain.ErrPricingConfig, kind)
		}
		for i := range kp.Rules {
			rule := kp.Rules[i]
			if rule.PriceMinor < 0 {
				return fmt.Errorf("%w: negative rule price for kind %q", domain.ErrPricingConfig, kind)
			}
			if _, _, err := rule.Window(loc); err != nil {
				return fmt.Errorf("kind %q rule %d: %w", kind, i, err)
			}
		}
	}
	return nil
}
