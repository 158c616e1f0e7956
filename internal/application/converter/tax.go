package converter

import (
	"sort"

	"github.com/shopspring/decimal"
)

// TaxStatus classifies how prices of an order relate to tax
type TaxStatus string

const (
	TaxStatusGross TaxStatus = "gross"
	TaxStatusNet   TaxStatus = "net"
	TaxStatusFree  TaxStatus = "tax-free"
)

// TaxRule names one tax rate applied to a price. Percentage is the share of
// the price the rate applies to; a plain rule covers the full price.
type TaxRule struct {
	TaxRate    float64 `json:"taxRate"`
	Percentage float64 `json:"percentage"`
}

// NewTaxRule creates a rule covering the full price
func NewTaxRule(taxRate float64) TaxRule {
	return TaxRule{TaxRate: taxRate, Percentage: 100}
}

// CalculatedTax is the tax amount computed for one rate
type CalculatedTax struct {
	Tax     float64 `json:"tax"`
	TaxRate float64 `json:"taxRate"`
	Price   float64 `json:"price"`
}

// CalculatedPrice is a price with its computed tax breakdown
type CalculatedPrice struct {
	UnitPrice       float64         `json:"unitPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	CalculatedTaxes []CalculatedTax `json:"calculatedTaxes"`
	TaxRules        []TaxRule       `json:"taxRules"`
	Quantity        int             `json:"quantity"`
}

// QuantityPriceDefinition describes how a line item price is recomputed
type QuantityPriceDefinition struct {
	Price    float64   `json:"price"`
	TaxRules []TaxRule `json:"taxRules"`
	Quantity int       `json:"quantity"`
}

// CartPrice is the order-level price summary
type CartPrice struct {
	NetPrice        float64         `json:"netPrice"`
	TotalPrice      float64         `json:"totalPrice"`
	PositionPrice   float64         `json:"positionPrice"`
	CalculatedTaxes []CalculatedTax `json:"calculatedTaxes"`
	TaxRules        []TaxRule       `json:"taxRules"`
	TaxStatus       TaxStatus       `json:"taxStatus"`
}

// TaxCalculator computes tax amounts on net-basis or gross-basis prices.
// All arithmetic runs on decimals and is rounded to the given precision only
// at the end.
type TaxCalculator struct{}

// NewTaxCalculator creates a tax calculator
func NewTaxCalculator() *TaxCalculator {
	return &TaxCalculator{}
}

// CalculateNetTaxes computes the taxes to add on top of a net price:
// tax = price * percentage/100 * rate/100
func (c *TaxCalculator) CalculateNetTaxes(price float64, precision int32, rules []TaxRule) []CalculatedTax {
	taxes := make([]CalculatedTax, 0, len(rules))
	total := decimal.NewFromFloat(price)
	for _, rule := range rules {
		share := total.Mul(decimal.NewFromFloat(rule.Percentage)).Div(decimal.NewFromInt(100))
		tax := share.Mul(decimal.NewFromFloat(rule.TaxRate)).Div(decimal.NewFromInt(100))
		taxes = append(taxes, CalculatedTax{
			Tax:     tax.Round(precision).InexactFloat64(),
			TaxRate: rule.TaxRate,
			Price:   share.Round(precision).InexactFloat64(),
		})
	}
	return taxes
}

// CalculateGrossTaxes computes the taxes contained in a gross price:
// tax = price * percentage/100 * rate/(100+rate)
func (c *TaxCalculator) CalculateGrossTaxes(price float64, precision int32, rules []TaxRule) []CalculatedTax {
	taxes := make([]CalculatedTax, 0, len(rules))
	total := decimal.NewFromFloat(price)
	for _, rule := range rules {
		share := total.Mul(decimal.NewFromFloat(rule.Percentage)).Div(decimal.NewFromInt(100))
		rate := decimal.NewFromFloat(rule.TaxRate)
		tax := share.Mul(rate).Div(rate.Add(decimal.NewFromInt(100)))
		taxes = append(taxes, CalculatedTax{
			Tax:     tax.Round(precision).InexactFloat64(),
			TaxRate: rule.TaxRate,
			Price:   share.Round(precision).InexactFloat64(),
		})
	}
	return taxes
}

// distinctTaxRules builds the distinct tax-rate collection from line items
func distinctTaxRules(lineItems []map[string]any, rateKey string) []TaxRule {
	seen := make(map[float64]struct{})
	var rates []float64
	for _, item := range lineItems {
		rate, ok := toFloat(item[rateKey])
		if !ok {
			continue
		}
		if _, dup := seen[rate]; dup {
			continue
		}
		seen[rate] = struct{}{}
		rates = append(rates, rate)
	}
	sort.Float64s(rates)

	rules := make([]TaxRule, 0, len(rates))
	for _, rate := range rates {
		rules = append(rules, NewTaxRule(rate))
	}
	return rules
}
