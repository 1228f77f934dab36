package policy

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/mcleblanc711/ResortFees/pkg/types"
)

// Candidates holds the raw fact set produced by one extraction pass.
// Taxes and fees may contain overlapping matches from different rules;
// the deduplicator resolves those. Extra-person and damage-deposit
// facts are singletons decided here, first matching rule wins.
type Candidates struct {
	Taxes         []types.TaxFact
	Fees          []types.FeeFact
	ExtraPerson   *types.ExtraPersonFact
	DamageDeposit *types.DamageDepositFact
}

// factRule is one entry in the ordered pattern table. Patterns use
// named groups: "name" and "amount" are required, "basis" is optional
// and overrides window-based inference when captured.
type factRule struct {
	re       *regexp.Regexp
	includes bool // scan forward for bundled amenities (resort-style fees)
}

var taxRules = []factRule{
	// Percentage-based taxes.
	{re: regexp.MustCompile(`(?i)(?P<name>[\w ]+(?:tax|levy|GST|VAT|HST|PST))\s*[:\-]?\s*(?P<amount>\d+(?:\.\d+)?%)`)},
	// Fixed-amount taxes.
	{re: regexp.MustCompile(`(?i)(?P<name>[\w ]+(?:tax|levy))\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`)},
	// Tourism/destination levies.
	{re: regexp.MustCompile(`(?i)(?P<name>(?:tourism|destination|city|lodging|occupancy)\s+(?:levy|tax|fee))\s*[:\-]?\s*(?P<amount>\d+(?:\.\d+)?%|[$€£][\d,]+(?:\.\d{2})?)`)},
	// Reversed aggregator phrasing: "10% VAT".
	{re: regexp.MustCompile(`(?i)(?P<amount>\d+(?:\.\d+)?%)\s+(?P<name>[\w ]*(?:tax|VAT))`)},
}

var feeRules = []factRule{
	// Resort/amenity fees carry bundled inclusions.
	{re: regexp.MustCompile(`(?i)(?P<name>(?:resort|amenity|facility|destination)\s+fee)\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`), includes: true},
	// Parking with an explicit basis suffix.
	{re: regexp.MustCompile(`(?i)(?P<name>parking)\s*(?:is)?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)\s*per\s*(?P<basis>day|night|stay)`)},
	{re: regexp.MustCompile(`(?i)(?P<name>(?:self[- ]?park(?:ing)?|valet parking|valet|parking))\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`)},
	{re: regexp.MustCompile(`(?i)(?P<name>pet\s+fee)\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`)},
	{re: regexp.MustCompile(`(?i)(?P<name>service\s+charge)\s*[:\-]?\s*(?P<amount>\d+(?:\.\d+)?%|[$€£][\d,]+(?:\.\d{2})?)`)},
	{re: regexp.MustCompile(`(?i)(?P<name>(?:early\s+check[- ]?in|late\s+check[- ]?out)\s*(?:fee)?)\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`)},
	{re: regexp.MustCompile(`(?i)(?P<name>cleaning\s+fee)\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`)},
}

// Children's free-age phrasing variants, first match wins. When a range
// is given the higher bound applies.
var childFreeAgePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:children|kids)\s+(?:aged\s+)?(\d+)\s*(?:-|–|—|to)\s*(\d+)\s+(?:years?\s+)?(?:stay\s+)?free`),
	regexp.MustCompile(`(?i)children\s+(?:under|up\s+to)\s+(\d+)\s+(?:years?\s+)?(?:stay\s+)?free`),
	regexp.MustCompile(`(?i)(?:kids|children)\s+(\d+)\s+and\s+(?:under|younger)\s+(?:stay\s+)?free`),
}

var adultChargePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:extra|additional)\s+(?:adult|person)\s*[:\-]?\s*(?P<amount>[$€£]?[\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)extra\s+bed\s*[:\-]?\s*(?P<amount>[$€£][\d,]+(?:\.\d{2})?)`),
}

var childChargePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:extra|additional)\s+child\s*[:\-]?\s*(?P<amount>[$€£]?[\d,]+(?:\.\d{2})?)`),
}

var maxOccupancyPattern = regexp.MustCompile(`(?i)(?:maximum|max)\.?\s+occupancy\s*[:\-]?\s*(\d+(?:\s+(?:guests|persons|people))?)`)

var depositPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:damage|security|incidental)\s+deposit\s*(?:of)?\s*[:\-]?\s*(?P<amount>[$€£]?[\d,]+(?:\.\d{2})?)`),
	regexp.MustCompile(`(?i)(?P<amount>[$€£][\d,]+(?:\.\d{2})?)\s+(?:damage|security)\s+deposit`),
	regexp.MustCompile(`(?i)(?:pre[- ]?authorization|credit\s+card\s+hold)\s*(?:of)?\s*(?P<amount>[$€£]?[\d,]+(?:\.\d{2})?)`),
}

var refundTimelinePattern = regexp.MustCompile(`(?i)(?:refund|release)(?:ed)?\s+(?:within\s+)?(\d+)\s*(?:business\s+)?days?`)

// Basis keywords, most specific first.
var basisKeywords = []struct {
	keyword string
	basis   string
}{
	{"per person per night", types.BasisPerPersonPerNight},
	{"per person, per night", types.BasisPerPersonPerNight},
	{"per room per night", types.BasisPerRoomPerNight},
	{"per room, per night", types.BasisPerRoomPerNight},
	{"per stay", types.BasisPerStay},
	{"per person", types.BasisPerPerson},
	{"per room", types.BasisPerRoomPerNight},
	{"per day", types.BasisPerDay},
	{"per night", types.BasisPerNight},
}

// Amenities commonly bundled into a resort fee.
var includeKeywords = []string{
	"wifi", "wi-fi", "internet", "pool", "fitness", "gym",
	"breakfast", "parking", "spa", "shuttle", "newspaper",
	"coffee", "water", "resort credit",
}

const (
	basisWindow   = 60  // chars of context either side for basis inference
	depositWindow = 100 // wider window for deposit method/refund scanning
	includesSpan  = 500 // forward span scanned for bundled amenities
)

// Extractor turns normalized page text into candidate policy facts by
// running the ordered rule tables.
type Extractor struct {
	currencySymbol string
}

// NewExtractor builds an extractor. The currency symbol is prepended to
// bare numeric amounts; which symbol to assume is a policy decision, not
// a fact the text always states.
func NewExtractor(currencySymbol string) *Extractor {
	if currencySymbol == "" {
		currencySymbol = "$"
	}
	return &Extractor{currencySymbol: currencySymbol}
}

// Extract runs every rule against the text and returns the raw
// candidate set. Overlapping tax/fee matches are expected; callers pass
// the result through Dedupe before use.
func (e *Extractor) Extract(text string) Candidates {
	var c Candidates
	c.Taxes = e.extractTaxes(text)
	c.Fees = e.extractFees(text)
	c.ExtraPerson = e.extractExtraPerson(text)
	c.DamageDeposit = e.extractDamageDeposit(text)
	return c
}

func (e *Extractor) extractTaxes(text string) []types.TaxFact {
	var taxes []types.TaxFact
	for _, rule := range taxRules {
		for _, m := range findNamedMatches(rule.re, text) {
			name := titleCase(strings.TrimSpace(m.group("name")))
			amount := strings.TrimSpace(m.group("amount"))
			if name == "" || amount == "" {
				continue
			}
			basis := inferBasis(window(text, m.start, m.end, basisWindow), types.BasisPerNight)
			taxes = append(taxes, types.TaxFact{Name: name, Amount: amount, Basis: basis})
		}
	}
	return taxes
}

func (e *Extractor) extractFees(text string) []types.FeeFact {
	var fees []types.FeeFact
	for _, rule := range feeRules {
		for _, m := range findNamedMatches(rule.re, text) {
			name := titleCase(strings.TrimSpace(m.group("name")))
			amount := strings.TrimSpace(m.group("amount"))
			if name == "" || amount == "" {
				continue
			}
			// Fees with no real cost are noise, not facts.
			if ZeroOrFree(amount) {
				continue
			}

			basis := ""
			if b := m.group("basis"); b != "" {
				basis = basisFromSuffix(b)
			}
			if basis == "" {
				basis = inferBasis(window(text, m.start, m.end, basisWindow), types.BasisPerNight)
			}

			fee := types.FeeFact{Name: name, Amount: amount, Basis: basis}
			if rule.includes {
				fee.Includes = extractIncludes(text, m.start)
			}
			fees = append(fees, fee)
		}
	}
	return fees
}

func (e *Extractor) extractExtraPerson(text string) *types.ExtraPersonFact {
	fact := &types.ExtraPersonFact{}

	for _, re := range childFreeAgePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		age := atoiSafe(m[1])
		if len(m) > 2 && m[2] != "" {
			// Age range: the higher bound is the operative cutoff.
			if upper := atoiSafe(m[2]); upper > age {
				age = upper
			}
		}
		fact.ChildrenFreeAge = &age
		break
	}

	if charge := e.firstCharge(text, adultChargePatterns); charge != nil {
		fact.AdultCharge = charge
	}
	if charge := e.firstCharge(text, childChargePatterns); charge != nil {
		fact.ChildCharge = charge
	}

	if m := maxOccupancyPattern.FindStringSubmatch(text); m != nil {
		fact.MaxOccupancy = strings.TrimSpace(m[1])
	}

	if fact.Empty() {
		return nil
	}
	return fact
}

func (e *Extractor) firstCharge(text string, patterns []*regexp.Regexp) *types.Charge {
	for _, re := range patterns {
		loc := re.FindStringSubmatchIndex(text)
		if loc == nil || loc[2] < 0 {
			continue
		}
		amount := e.normalizeAmount(text[loc[2]:loc[3]])
		if ZeroOrFree(amount) {
			continue
		}
		basis := inferBasis(window(text, loc[0], loc[1], basisWindow), types.BasisPerNight)
		return &types.Charge{Amount: amount, Basis: basis}
	}
	return nil
}

func (e *Extractor) extractDamageDeposit(text string) *types.DamageDepositFact {
	for _, re := range depositPatterns {
		m := findFirstNamedMatch(re, text)
		if m == nil {
			continue
		}
		amount := e.normalizeAmount(strings.TrimSpace(m.group("amount")))
		if amount == "" {
			continue
		}

		ctx := strings.ToLower(window(text, m.start, m.end, depositWindow))

		basis := types.BasisPerStay
		if strings.Contains(ctx, "per night") {
			basis = types.BasisPerNight
		}

		method := ""
		switch {
		case strings.Contains(ctx, "credit card"), strings.Contains(ctx, "pre-authorization"),
			strings.Contains(ctx, "preauthorization"), strings.Contains(ctx, "pre authorization"):
			method = types.MethodCreditCardPreauth
		case strings.Contains(ctx, "cash"):
			method = types.MethodCash
		case strings.Contains(ctx, "card"):
			method = types.MethodCreditCardHold
		}

		refund := ""
		if rm := refundTimelinePattern.FindStringSubmatch(ctx); rm != nil {
			refund = "Within " + rm[1] + " days"
		}

		return &types.DamageDepositFact{
			Amount:         amount,
			Basis:          basis,
			Method:         method,
			RefundTimeline: refund,
		}
	}
	return nil
}

// normalizeAmount prepends the configured currency symbol to bare
// numeric amounts. Percentages pass through unchanged.
func (e *Extractor) normalizeAmount(amount string) string {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return amount
	}
	first := rune(amount[0])
	if unicode.IsDigit(first) && !strings.Contains(amount, "%") {
		return e.currencySymbol + amount
	}
	return amount
}

// ZeroOrFree reports whether an amount string normalizes to no charge.
func ZeroOrFree(amount string) bool {
	amount = strings.ToLower(strings.TrimSpace(amount))
	if amount == "" || amount == "free" || amount == "complimentary" {
		return true
	}
	stripped := strings.NewReplacer("$", "", "€", "", "£", "", "%", "", ",", "").Replace(amount)
	v, err := strconv.ParseFloat(strings.TrimSpace(stripped), 64)
	if err != nil {
		return false
	}
	return v == 0
}

func extractIncludes(text string, pos int) []string {
	end := pos + includesSpan
	if end > len(text) {
		end = len(text)
	}
	ctx := strings.ToLower(text[pos:end])

	var found []string
	seen := make(map[string]struct{})
	for _, kw := range includeKeywords {
		if !strings.Contains(ctx, kw) {
			continue
		}
		item := titleCase(strings.ReplaceAll(kw, "-", " "))
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		found = append(found, item)
	}
	return found
}

func inferBasis(windowText, fallback string) string {
	lowered := strings.ToLower(windowText)
	for _, entry := range basisKeywords {
		if strings.Contains(lowered, entry.keyword) {
			return entry.basis
		}
	}
	return fallback
}

func basisFromSuffix(suffix string) string {
	switch strings.ToLower(strings.TrimSpace(suffix)) {
	case "day":
		return types.BasisPerDay
	case "night":
		return types.BasisPerNight
	case "stay":
		return types.BasisPerStay
	default:
		return ""
	}
}

func window(text string, start, end, span int) string {
	lo := start - span
	if lo < 0 {
		lo = 0
	}
	hi := end + span
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// titleCase capitalizes the first letter of each word, leaving the rest
// untouched so acronyms like GST survive.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}

func atoiSafe(s string) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}

// namedMatch carries one regexp match with group access by name.
type namedMatch struct {
	re     *regexp.Regexp
	groups []string
	start  int
	end    int
}

func (m *namedMatch) group(name string) string {
	for i, n := range m.re.SubexpNames() {
		if n == name && i < len(m.groups) {
			return m.groups[i]
		}
	}
	return ""
}

func findNamedMatches(re *regexp.Regexp, text string) []*namedMatch {
	idxs := re.FindAllStringSubmatchIndex(text, -1)
	if idxs == nil {
		return nil
	}
	matches := make([]*namedMatch, 0, len(idxs))
	for _, loc := range idxs {
		matches = append(matches, matchFromIndex(re, text, loc))
	}
	return matches
}

func findFirstNamedMatch(re *regexp.Regexp, text string) *namedMatch {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil
	}
	return matchFromIndex(re, text, loc)
}

func matchFromIndex(re *regexp.Regexp, text string, loc []int) *namedMatch {
	groups := make([]string, len(loc)/2)
	for i := 0; i < len(loc)/2; i++ {
		if loc[2*i] >= 0 {
			groups[i] = text[loc[2*i]:loc[2*i+1]]
		}
	}
	return &namedMatch{re: re, groups: groups, start: loc[0], end: loc[1]}
}
