package currency

import (
	"errors"

	"golang.org/x/text/currency"
)

// Rates holds a static conversion table keyed by source then target currency,
// e.g. {"USD": {"EUR": 0.92}}.
type Rates struct {
	Conversions map[string]map[string]float64 `json:"conversions" mapstructure:"conversions"`
}

// NewRates creates a new Rates object holding currencies rates
func NewRates(conversions map[string]map[string]float64) *Rates {
	return &Rates{
		Conversions: conversions,
	}
}

// findIntermediateConversionRate returns the conversion rate between two currencies
// through a shared base currency, or a ConversionNotFoundError.
func findIntermediateConversionRate(r *Rates, from, to currency.Unit) (float64, error) {
	for _, conversions := range r.Conversions {
		toRate, hasToRate := conversions[to.String()]
		fromRate, hasFromRate := conversions[from.String()]

		if hasToRate && hasFromRate {
			return toRate / fromRate, nil
		}
	}

	return 0, ConversionNotFoundError{FromCur: from.String(), ToCur: to.String()}
}

// GetRate returns the conversion rate between two currencies or:
//   - An error if one of the currency strings is not well-formed
//   - An error if any of the currency strings is not a recognized currency code.
//   - A ConversionNotFoundError in case the conversion rate between the two
//     given currencies is not in the currencies rates map
func (r *Rates) GetRate(from, to string) (float64, error) {
	fromUnit, err := currency.ParseISO(from)
	if err != nil {
		return 0, err
	}
	toUnit, err := currency.ParseISO(to)
	if err != nil {
		return 0, err
	}
	if fromUnit.String() == toUnit.String() {
		return 1, nil
	}
	if r.Conversions == nil {
		return 0, errors.New("rates are nil")
	}
	if conversion, present := r.Conversions[fromUnit.String()][toUnit.String()]; present {
		return conversion, nil
	}
	if conversion, present := r.Conversions[toUnit.String()][fromUnit.String()]; present {
		return 1 / conversion, nil
	}
	return findIntermediateConversionRate(r, fromUnit, toUnit)
}
