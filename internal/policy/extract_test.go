package policy

import (
	"reflect"
	"testing"

	"github.com/mcleblanc711/ResortFees/pkg/types"
)

func TestExtractCityTaxAndResortFee(t *testing.T) {
	text := "City Tax: 5% per night. Resort Fee $25.00 per night includes Wifi, Pool."
	c := Dedupe(NewExtractor("$").Extract(text))

	if len(c.Taxes) != 1 {
		t.Fatalf("expected 1 tax, got %d: %+v", len(c.Taxes), c.Taxes)
	}
	tax := c.Taxes[0]
	if tax.Name != "City Tax" || tax.Amount != "5%" || tax.Basis != types.BasisPerNight {
		t.Errorf("unexpected tax: %+v", tax)
	}

	if len(c.Fees) != 1 {
		t.Fatalf("expected 1 fee, got %d: %+v", len(c.Fees), c.Fees)
	}
	fee := c.Fees[0]
	if fee.Name != "Resort Fee" || fee.Amount != "$25.00" || fee.Basis != types.BasisPerNight {
		t.Errorf("unexpected fee: %+v", fee)
	}
	if !reflect.DeepEqual(fee.Includes, []string{"Wifi", "Pool"}) {
		t.Errorf("unexpected includes: %v", fee.Includes)
	}
}

func TestExtractDamageDeposit(t *testing.T) {
	text := "Damage deposit of $200.00 via credit card, refunded within 7 days."
	dd := NewExtractor("$").Extract(text).DamageDeposit

	if dd == nil {
		t.Fatal("expected a damage deposit")
	}
	if dd.Amount != "$200.00" {
		t.Errorf("amount = %q", dd.Amount)
	}
	if dd.Basis != types.BasisPerStay {
		t.Errorf("basis = %q, want per-stay default", dd.Basis)
	}
	if dd.Method != types.MethodCreditCardPreauth {
		t.Errorf("method = %q", dd.Method)
	}
	if dd.RefundTimeline != "Within 7 days" {
		t.Errorf("refund timeline = %q", dd.RefundTimeline)
	}
}

func TestExtractDepositMethods(t *testing.T) {
	cases := []struct {
		text   string
		method string
	}{
		{"Security deposit of $100 payable in cash on arrival.", types.MethodCash},
		{"Security deposit of $100 charged to your card at check-in.", types.MethodCreditCardHold},
		{"Security deposit of $100 held as a pre-authorization.", types.MethodCreditCardPreauth},
	}
	e := NewExtractor("$")
	for _, tc := range cases {
		dd := e.Extract(tc.text).DamageDeposit
		if dd == nil {
			t.Fatalf("no deposit extracted from %q", tc.text)
		}
		if dd.Method != tc.method {
			t.Errorf("%q: method = %q, want %q", tc.text, dd.Method, tc.method)
		}
	}
}

func TestZeroFeeDiscardedZeroTaxKept(t *testing.T) {
	text := "Resort fee: $0.00 per night. City tax: 0% per night."
	c := NewExtractor("$").Extract(text)

	if len(c.Fees) != 0 {
		t.Errorf("zero-amount fee should be discarded, got %+v", c.Fees)
	}
	if len(c.Taxes) == 0 {
		t.Fatal("zero-percent tax should be kept")
	}
	if c.Taxes[0].Amount != "0%" {
		t.Errorf("tax amount = %q", c.Taxes[0].Amount)
	}
}

func TestChildFreeAgeRangeUsesUpperBound(t *testing.T) {
	text := "Children 2-12 stay free when using existing bedding."
	ep := NewExtractor("$").Extract(text).ExtraPerson

	if ep == nil || ep.ChildrenFreeAge == nil {
		t.Fatal("expected a children-free age")
	}
	if *ep.ChildrenFreeAge != 12 {
		t.Errorf("age = %d, want 12", *ep.ChildrenFreeAge)
	}
}

func TestChildFreeAgeUnder(t *testing.T) {
	text := "Children under 6 stay free."
	ep := NewExtractor("$").Extract(text).ExtraPerson

	if ep == nil || ep.ChildrenFreeAge == nil {
		t.Fatal("expected a children-free age")
	}
	if *ep.ChildrenFreeAge != 6 {
		t.Errorf("age = %d, want 6", *ep.ChildrenFreeAge)
	}
}

func TestExtraPersonCharges(t *testing.T) {
	text := "Extra adult: 45.00 per person per night. Maximum occupancy: 4 guests."
	ep := NewExtractor("$").Extract(text).ExtraPerson

	if ep == nil {
		t.Fatal("expected an extra-person policy")
	}
	if ep.AdultCharge == nil {
		t.Fatal("expected an adult charge")
	}
	if ep.AdultCharge.Amount != "$45.00" {
		t.Errorf("bare amount should gain the currency symbol, got %q", ep.AdultCharge.Amount)
	}
	if ep.AdultCharge.Basis != types.BasisPerPersonPerNight {
		t.Errorf("basis = %q", ep.AdultCharge.Basis)
	}
	if ep.MaxOccupancy != "4 guests" {
		t.Errorf("max occupancy = %q", ep.MaxOccupancy)
	}
}

func TestParkingBasisSuffix(t *testing.T) {
	text := "Parking is $30.00 per day in the underground garage."
	c := NewExtractor("$").Extract(text)

	if len(c.Fees) == 0 {
		t.Fatal("expected a parking fee")
	}
	if c.Fees[0].Basis != types.BasisPerDay {
		t.Errorf("basis = %q, want per-day from explicit suffix", c.Fees[0].Basis)
	}
}

func TestPerRoomKeywordMapsToPerRoomPerNight(t *testing.T) {
	text := "Pet fee: $50.00 per room."
	c := NewExtractor("$").Extract(text)

	if len(c.Fees) == 0 {
		t.Fatal("expected a pet fee")
	}
	if c.Fees[0].Basis != types.BasisPerRoomPerNight {
		t.Errorf("basis = %q, want per-room-per-night", c.Fees[0].Basis)
	}
}

func TestExtractNothingFromIrrelevantText(t *testing.T) {
	text := "Welcome to our mountain lodge. Enjoy hiking trails and scenic views all year round."
	c := NewExtractor("$").Extract(text)

	if len(c.Taxes) != 0 || len(c.Fees) != 0 {
		t.Errorf("expected no facts, got taxes=%+v fees=%+v", c.Taxes, c.Fees)
	}
	if c.ExtraPerson != nil || c.DamageDeposit != nil {
		t.Errorf("expected nil singleton facts, got %+v %+v", c.ExtraPerson, c.DamageDeposit)
	}
}

func TestReversedTaxPhrasing(t *testing.T) {
	text := "Rates include 10% VAT."
	c := NewExtractor("$").Extract(text)

	if len(c.Taxes) == 0 {
		t.Fatal("expected a tax from reversed phrasing")
	}
	if c.Taxes[0].Amount != "10%" {
		t.Errorf("amount = %q", c.Taxes[0].Amount)
	}
}

func TestZeroOrFree(t *testing.T) {
	cases := map[string]bool{
		"$0.00":  true,
		"free":   true,
		"0%":     true,
		"$25.00": false,
		"5%":     false,
		"":       true,
	}
	for amount, want := range cases {
		if got := ZeroOrFree(amount); got != want {
			t.Errorf("ZeroOrFree(%q) = %v, want %v", amount, got, want)
		}
	}
}

func TestTitleCasePreservesAcronyms(t *testing.T) {
	if got := titleCase("city tax"); got != "City Tax" {
		t.Errorf("got %q", got)
	}
	if got := titleCase("GST"); got != "GST" {
		t.Errorf("acronym mangled: %q", got)
	}
}
