package pricing

import "github.com/shopspring/decimal"

// CODTerms are the cash-on-delivery surcharge parameters. Both sides of the
// protocol (the surcharge screen and the confirmation screen that inverts it)
// must be built from the same terms or the breakdown will not reconcile.
type CODTerms struct {
	FixedFee     decimal.Decimal
	VariableRate decimal.Decimal
}

// DefaultCODTerms returns the reference surcharge: 3.00 fixed plus 3% of the
// order total.
func DefaultCODTerms() CODTerms {
	return CODTerms{
		FixedFee:     decimal.NewFromFloat(3.00),
		VariableRate: decimal.NewFromFloat(0.03),
	}
}

// CODBreakdown decomposes a surcharged display total into its parts.
type CODBreakdown struct {
	Base         decimal.Decimal
	FixedFee     decimal.Decimal
	VariableFee  decimal.Decimal
	DisplayTotal decimal.Decimal
}

// DisplayTotal applies the surcharge on top of an already-priced total:
// total + fixed fee + total * rate.
func (t CODTerms) DisplayTotal(total decimal.Decimal) decimal.Decimal {
	return total.Add(t.FixedFee).Add(total.Mul(t.VariableRate)).Round(2)
}

// Quote returns the full forward breakdown for a pre-surcharge total.
func (t CODTerms) Quote(total decimal.Decimal) CODBreakdown {
	variable := total.Mul(t.VariableRate).Round(2)
	return CODBreakdown{
		Base:         total.Round(2),
		FixedFee:     t.FixedFee.Round(2),
		VariableFee:  variable,
		DisplayTotal: t.DisplayTotal(total),
	}
}

// Recover inverts the surcharge formula. The confirmation screen only
// receives the display total, so the pre-surcharge base is recovered
// algebraically: base = (display - fixed) / (1 + rate).
func (t CODTerms) Recover(displayTotal decimal.Decimal) CODBreakdown {
	one := decimal.NewFromInt(1)
	base := displayTotal.Sub(t.FixedFee).Div(one.Add(t.VariableRate)).Round(2)
	return CODBreakdown{
		Base:         base,
		FixedFee:     t.FixedFee.Round(2),
		VariableFee:  base.Mul(t.VariableRate).Round(2),
		DisplayTotal: displayTotal.Round(2),
	}
}
