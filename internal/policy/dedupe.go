package policy

import (
	"strings"

	"github.com/mcleblanc711/ResortFees/pkg/types"
)

// Dedupe collapses duplicate tax and fee candidates. Two facts are
// duplicates iff their case-insensitive name and amount both match;
// the first occurrence wins and discovery order is preserved.
// Extra-person and damage-deposit facts are already singletons by the
// time they reach here.
func Dedupe(c Candidates) Candidates {
	c.Taxes = dedupeTaxes(c.Taxes)
	c.Fees = dedupeFees(c.Fees)
	return c
}

func dedupeTaxes(taxes []types.TaxFact) []types.TaxFact {
	if len(taxes) == 0 {
		return taxes
	}
	seen := make(map[string]struct{}, len(taxes))
	out := make([]types.TaxFact, 0, len(taxes))
	for _, tax := range taxes {
		key := factKey(tax.Name, tax.Amount)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tax)
	}
	return out
}

func dedupeFees(fees []types.FeeFact) []types.FeeFact {
	if len(fees) == 0 {
		return fees
	}
	seen := make(map[string]struct{}, len(fees))
	out := make([]types.FeeFact, 0, len(fees))
	for _, fee := range fees {
		key := factKey(fee.Name, fee.Amount)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, fee)
	}
	return out
}

func factKey(name, amount string) string {
	return strings.ToLower(name) + "|" + strings.ToLower(amount)
}
