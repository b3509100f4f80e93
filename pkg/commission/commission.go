package commission

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DefaultRate is the platform-wide percentage applied when a service has no rate of its own.
var DefaultRate = decimal.NewFromInt(15)

// Calculate returns price × rate / 100. The result is not rounded.
func Calculate(price, rate decimal.Decimal) decimal.Decimal {
	return price.Mul(rate).Div(hundred)
}

// Policy resolves the rate in effect for a service.
type Policy struct {
	defaultRate decimal.Decimal
	configured  bool
}

// NewPolicy parses the configured default rate; an empty value falls back to DefaultRate.
func NewPolicy(defaultRate string) (Policy, error) {
	raw := strings.TrimSpace(defaultRate)
	if raw == "" {
		return Policy{defaultRate: DefaultRate}, nil
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil {
		return Policy{}, fmt.Errorf("invalid commission rate %q: %w", defaultRate, err)
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return Policy{}, fmt.Errorf("commission rate %s out of range [0,100]", rate)
	}
	return Policy{defaultRate: rate, configured: true}, nil
}

// Rate returns the service's own rate or the policy default.
func (p Policy) Rate(serviceRate *decimal.Decimal) decimal.Decimal {
	if serviceRate != nil {
		return *serviceRate
	}
	if !p.configured {
		return DefaultRate
	}
	return p.defaultRate
}

// Quote computes the frozen rate and commission amount for a booking.
func (p Policy) Quote(price decimal.Decimal, serviceRate *decimal.Decimal) (rate, amount decimal.Decimal) {
	rate = p.Rate(serviceRate)
	return rate, Calculate(price, rate)
}
