package currency

// Conversions allows to get a conversion rate between two currencies.
// If the rate is not known, an error is returned.
type Conversions interface {
	GetRate(from string, to string) (float64, error)
}
