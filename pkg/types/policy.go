package types

// SourceKind identifies where a policy record was scraped from.
type SourceKind string

const (
	SourceOfficial   SourceKind = "official"
	SourceAggregator SourceKind = "aggregator"
)

// Charging bases recognised by the extractor. Amounts always carry one.
const (
	BasisPerNight          = "per-night"
	BasisPerStay           = "per-stay"
	BasisPerPerson         = "per-person"
	BasisPerPersonPerNight = "per-person-per-night"
	BasisPerRoomPerNight   = "per-room-per-night"
	BasisPerDay            = "per-day"
)

// Deposit collection methods.
const (
	MethodCreditCardPreauth = "credit-card-preauth"
	MethodCash              = "cash"
	MethodCreditCardHold    = "credit-card-hold"
)

// TaxFact is a single extracted tax. A zero-percent tax is meaningful
// and is preserved.
type TaxFact struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Basis  string `json:"basis"`
	Notes  string `json:"notes,omitempty"`
}

// FeeFact is a single extracted fee. Zero or "free" amounts are never
// recorded as fees.
type FeeFact struct {
	Name     string   `json:"name"`
	Amount   string   `json:"amount"`
	Basis    string   `json:"basis"`
	Includes []string `json:"includes,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// Charge pairs an amount with its charging basis.
type Charge struct {
	Amount string `json:"amount"`
	Basis  string `json:"basis"`
}

// ExtraPersonFact describes child/extra-guest policy. A nil pointer, not
// an empty struct, represents "nothing found".
type ExtraPersonFact struct {
	ChildrenFreeAge *int    `json:"childrenFreeAge,omitempty"`
	ChildCharge     *Charge `json:"childCharge,omitempty"`
	AdultCharge     *Charge `json:"adultCharge,omitempty"`
	MaxOccupancy    string  `json:"maxOccupancy,omitempty"`
	Notes           string  `json:"notes,omitempty"`
}

// Empty reports whether no field carries data.
func (e *ExtraPersonFact) Empty() bool {
	if e == nil {
		return true
	}
	return e.ChildrenFreeAge == nil && e.ChildCharge == nil && e.AdultCharge == nil &&
		e.MaxOccupancy == "" && e.Notes == ""
}

// DamageDepositFact describes a security/damage deposit.
type DamageDepositFact struct {
	Amount         string `json:"amount"`
	Basis          string `json:"basis"`
	Method         string `json:"method,omitempty"`
	RefundTimeline string `json:"refundTimeline,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// PolicyRecord is the terminal output of the extraction pipeline for one
// hotel. It is constructed fresh per run and frozen once handed to the
// output sink.
type PolicyRecord struct {
	SourceURL         string             `json:"sourceUrl"`
	SourceKind        SourceKind         `json:"sourceKind"`
	Taxes             []TaxFact          `json:"taxes"`
	Fees              []FeeFact          `json:"fees"`
	ExtraPersonPolicy *ExtraPersonFact   `json:"extraPersonPolicy,omitempty"`
	DamageDeposit     *DamageDepositFact `json:"damageDeposit,omitempty"`
	RawText           string             `json:"-"`
	Notes             string             `json:"notes,omitempty"`
}

// HasFacts reports whether the record carries at least one tax or fee.
func (r *PolicyRecord) HasFacts() bool {
	if r == nil {
		return false
	}
	return len(r.Taxes) > 0 || len(r.Fees) > 0
}
