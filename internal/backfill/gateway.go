package backfill

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/mcleblanc711/ResortFees/internal/config"
	"github.com/mcleblanc711/ResortFees/internal/policy"
	"github.com/mcleblanc711/ResortFees/pkg/types"
)

// extractionPrompt instructs the model to return the same JSON shape the
// pipeline already speaks. The raw page text is appended after it.
const extractionPrompt = `You are a data extraction assistant. Extract hotel fee and policy information from the provided text.

Return a JSON object with the following structure (use null for missing values, empty arrays for no items):

{
  "taxes": [
    {"name": "Tax Name", "amount": "5%" or "$25.00", "basis": "per night|per stay|per person", "notes": "optional note"}
  ],
  "fees": [
    {"name": "Fee Name", "amount": "$XX.XX", "basis": "per night|per stay|per person", "includes": ["item1", "item2"] or null, "notes": "optional note"}
  ],
  "extraPersonPolicy": {
    "childrenFreeAge": 12 or null,
    "childCharge": {"amount": "$XX.XX", "basis": "per night"} or null,
    "adultCharge": {"amount": "$XX.XX", "basis": "per night"} or null,
    "maxOccupancy": "4 guests" or null,
    "notes": "optional note" or null
  } or null,
  "damageDeposit": {
    "amount": "$XXX.XX",
    "basis": "per stay|per night",
    "method": "Credit card pre-authorization" or null,
    "refundTimeline": "Within 7 days" or null,
    "notes": "optional note" or null
  } or null
}

Look for:
- TAXES: GST, HST, PST, VAT, tourism levy, lodging tax, city tax, occupancy tax
- FEES: Resort fee, destination fee, amenity fee, parking (self/valet), pet fee, cleaning fee, service charge, early check-in, late check-out
- EXTRA PERSON: Children free under age X, extra adult/child charges, rollaway/crib fees, max occupancy
- DAMAGE DEPOSIT: Security deposit, incidental hold, credit card authorization
- Only extract explicitly stated amounts (don't infer or estimate)
- Use the exact amounts as written (preserve currency symbols)
- If no relevant information is found, return empty arrays/null values
- Return ONLY the JSON object, no other text

Text to analyze:
`

// TextUnderstander is the narrow surface the gateway needs from a
// language model.
type TextUnderstander interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Gateway backfills a policy record from raw text when rule-based
// extraction came up empty. Every failure path is non-fatal; the record
// is simply left as it was.
type Gateway struct {
	client     TextUnderstander
	logger     *slog.Logger
	maxTextLen int
	minTextLen int
}

// NewGateway wires a gateway. A nil client produces a gateway that
// never runs, which is how a missing API key is handled.
func NewGateway(cfg config.LLMConfig, client TextUnderstander, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	maxLen := cfg.MaxTextLen
	if maxLen <= 0 {
		maxLen = 15000
	}
	minLen := cfg.MinTextLen
	if minLen <= 0 {
		minLen = 100
	}
	return &Gateway{client: client, logger: logger, maxTextLen: maxLen, minTextLen: minLen}
}

// Available reports whether the gateway can make model calls.
func (g *Gateway) Available() bool {
	return g != nil && g.client != nil
}

// llmPolicy mirrors the JSON shape requested by the prompt.
type llmPolicy struct {
	Taxes []struct {
		Name   string `json:"name"`
		Amount string `json:"amount"`
		Basis  string `json:"basis"`
		Notes  string `json:"notes"`
	} `json:"taxes"`
	Fees []struct {
		Name     string   `json:"name"`
		Amount   string   `json:"amount"`
		Basis    string   `json:"basis"`
		Includes []string `json:"includes"`
		Notes    string   `json:"notes"`
	} `json:"fees"`
	ExtraPersonPolicy *struct {
		ChildrenFreeAge *int       `json:"childrenFreeAge"`
		ChildCharge     *llmCharge `json:"childCharge"`
		AdultCharge     *llmCharge `json:"adultCharge"`
		MaxOccupancy    string     `json:"maxOccupancy"`
		Notes           string     `json:"notes"`
	} `json:"extraPersonPolicy"`
	DamageDeposit *struct {
		Amount         string `json:"amount"`
		Basis          string `json:"basis"`
		Method         string `json:"method"`
		RefundTimeline string `json:"refundTimeline"`
		Notes          string `json:"notes"`
	} `json:"damageDeposit"`
}

type llmCharge struct {
	Amount string `json:"amount"`
	Basis  string `json:"basis"`
}

// Enrich runs the model against the record's raw text and merges the
// result into empty slots. It is invoked only when rule-based
// extraction found neither taxes nor fees; slots the rules did fill are
// never overwritten. Returns true when any data was merged.
func (g *Gateway) Enrich(ctx context.Context, rec *types.PolicyRecord, hotelName string) bool {
	if !g.Available() || rec == nil {
		return false
	}
	if len(rec.Taxes) > 0 || len(rec.Fees) > 0 {
		return false
	}

	text := rec.RawText
	if len(text) < g.minTextLen {
		g.logger.Debug("text too short for backfill", "hotel", hotelName, "len", len(text))
		return false
	}
	if len(text) > g.maxTextLen {
		text = text[:g.maxTextLen] + "\n[Text truncated...]"
	}

	g.logger.Info("backfilling policy via model", "hotel", hotelName)
	response, err := g.client.Complete(ctx, extractionPrompt+text)
	if err != nil {
		g.logger.Warn("model call failed", "hotel", hotelName, "error", err)
		return false
	}

	parsed, err := parseModelResponse(response)
	if err != nil {
		g.logger.Warn("model response was not valid JSON", "hotel", hotelName, "error", err)
		return false
	}

	return g.merge(rec, parsed, hotelName)
}

// parseModelResponse decodes the model output, tolerating a markdown
// code fence around the JSON.
func parseModelResponse(response string) (*llmPolicy, error) {
	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		if len(lines) >= 2 {
			text = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	var parsed llmPolicy
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// merge copies model facts into record slots the rules left empty.
func (g *Gateway) merge(rec *types.PolicyRecord, parsed *llmPolicy, hotelName string) bool {
	merged := false

	if len(rec.Taxes) == 0 {
		for _, t := range parsed.Taxes {
			if t.Name == "" || t.Amount == "" {
				continue
			}
			rec.Taxes = append(rec.Taxes, types.TaxFact{
				Name:   t.Name,
				Amount: t.Amount,
				Basis:  normalizeBasis(t.Basis, types.BasisPerNight),
				Notes:  t.Notes,
			})
			merged = true
		}
	}

	if len(rec.Fees) == 0 {
		for _, f := range parsed.Fees {
			if f.Name == "" || f.Amount == "" || policy.ZeroOrFree(f.Amount) {
				continue
			}
			rec.Fees = append(rec.Fees, types.FeeFact{
				Name:     f.Name,
				Amount:   f.Amount,
				Basis:    normalizeBasis(f.Basis, types.BasisPerNight),
				Includes: f.Includes,
				Notes:    f.Notes,
			})
			merged = true
		}
	}

	if rec.ExtraPersonPolicy.Empty() && parsed.ExtraPersonPolicy != nil {
		epp := parsed.ExtraPersonPolicy
		fact := &types.ExtraPersonFact{
			ChildrenFreeAge: epp.ChildrenFreeAge,
			ChildCharge:     chargeFromLLM(epp.ChildCharge),
			AdultCharge:     chargeFromLLM(epp.AdultCharge),
			MaxOccupancy:    epp.MaxOccupancy,
			Notes:           epp.Notes,
		}
		if !fact.Empty() {
			rec.ExtraPersonPolicy = fact
			merged = true
		}
	}

	if rec.DamageDeposit == nil && parsed.DamageDeposit != nil && parsed.DamageDeposit.Amount != "" {
		dd := parsed.DamageDeposit
		rec.DamageDeposit = &types.DamageDepositFact{
			Amount:         dd.Amount,
			Basis:          normalizeBasis(dd.Basis, types.BasisPerStay),
			Method:         dd.Method,
			RefundTimeline: dd.RefundTimeline,
			Notes:          dd.Notes,
		}
		merged = true
	}

	if merged {
		rec.Notes = "Data extracted using LLM parsing"
		g.logger.Info("model backfill merged",
			"hotel", hotelName, "taxes", len(rec.Taxes), "fees", len(rec.Fees))
	}
	return merged
}

func chargeFromLLM(c *llmCharge) *types.Charge {
	if c == nil || c.Amount == "" {
		return nil
	}
	return &types.Charge{
		Amount: c.Amount,
		Basis:  normalizeBasis(c.Basis, types.BasisPerNight),
	}
}

// normalizeBasis maps freeform basis strings from the model onto the
// hyphenated constants used everywhere else.
func normalizeBasis(raw, fallback string) string {
	cleaned := strings.Join(strings.Fields(strings.ToLower(raw)), "-")
	switch cleaned {
	case types.BasisPerNight, types.BasisPerStay, types.BasisPerPerson,
		types.BasisPerPersonPerNight, types.BasisPerRoomPerNight, types.BasisPerDay:
		return cleaned
	case "per-room":
		return types.BasisPerRoomPerNight
	case "":
		return fallback
	default:
		return fallback
	}
}
