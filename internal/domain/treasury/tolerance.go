package treasury

import (
	"github.com/shopspring/decimal"
)

// ToleranceSource identifies the configuration tier that supplied a
// resolved tolerance value
type ToleranceSource string

const (
	ToleranceSourceCompany ToleranceSource = "company"
	ToleranceSourceCountry ToleranceSource = "country"
	ToleranceSourceSystem  ToleranceSource = "system"
)

// String returns the string representation of ToleranceSource
func (s ToleranceSource) String() string {
	return string(s)
}

// ToleranceSettings is the resolved payment-tolerance policy for a company.
// Percentage is a fraction (0.0050 = 0.5%), never a percent value.
type ToleranceSettings struct {
	Enabled    bool            `json:"enabled"`
	Percentage decimal.Decimal `json:"percentage"`
	MaxAmount  decimal.Decimal `json:"max_amount"`
	Source     ToleranceSource `json:"source"`
}

// Threshold returns the maximum remainder that may be written off for a
// payment of the given amount: min(percentage * amount, max amount)
func (t ToleranceSettings) Threshold(paymentAmount decimal.Decimal) decimal.Decimal {
	byPercentage := paymentAmount.Mul(t.Percentage)
	return decimal.Min(byPercentage, t.MaxAmount)
}

// Covers reports whether the given remainder is small enough to be
// written off under this policy
func (t ToleranceSettings) Covers(remainder, paymentAmount decimal.Decimal) bool {
	if !t.Enabled {
		return false
	}
	if remainder.LessThanOrEqual(decimal.Zero) {
		return true
	}
	return remainder.LessThanOrEqual(t.Threshold(paymentAmount))
}

// ToleranceOverrides carries the nullable override fields of one
// configuration tier (company or country). A nil field falls through to
// the next tier.
type ToleranceOverrides struct {
	Enabled    *bool
	Percentage *decimal.Decimal
	MaxAmount  *decimal.Decimal
}

// IsEmpty returns true if no field is set on this tier
func (o ToleranceOverrides) IsEmpty() bool {
	return o.Enabled == nil && o.Percentage == nil && o.MaxAmount == nil
}

// ResolveTolerance cascades company override -> country default -> system
// default, field by field. The returned Source is the most specific tier
// that contributed at least one field.
func ResolveTolerance(company, country ToleranceOverrides, system ToleranceSettings) ToleranceSettings {
	resolved := ToleranceSettings{
		Enabled:    system.Enabled,
		Percentage: system.Percentage,
		MaxAmount:  system.MaxAmount,
		Source:     ToleranceSourceSystem,
	}

	if country.Enabled != nil {
		resolved.Enabled = *country.Enabled
	}
	if country.Percentage != nil {
		resolved.Percentage = *country.Percentage
	}
	if country.MaxAmount != nil {
		resolved.MaxAmount = *country.MaxAmount
	}
	if !country.IsEmpty() {
		resolved.Source = ToleranceSourceCountry
	}

	if company.Enabled != nil {
		resolved.Enabled = *company.Enabled
	}
	if company.Percentage != nil {
		resolved.Percentage = *company.Percentage
	}
	if company.MaxAmount != nil {
		resolved.MaxAmount = *company.MaxAmount
	}
	if !company.IsEmpty() {
		resolved.Source = ToleranceSourceCompany
	}

	return resolved
}

// DisabledTolerance is the fail-closed policy used when tier data cannot
// be resolved: nothing is written off, every remainder becomes credit
func DisabledTolerance() ToleranceSettings {
	return ToleranceSettings{
		Enabled:    false,
		Percentage: decimal.Zero,
		MaxAmount:  decimal.Zero,
		Source:     ToleranceSourceSystem,
	}
}
