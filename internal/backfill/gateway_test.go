package backfill

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mcleblanc711/ResortFees/internal/config"
	"github.com/mcleblanc711/ResortFees/pkg/types"
)

type fakeModel struct {
	response string
	err      error
	calls    int
}

func (f *fakeModel) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testGateway(client TextUnderstander) *Gateway {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGateway(config.LLMConfig{MaxTextLen: 15000, MinTextLen: 10}, client, logger)
}

func emptyRecord() *types.PolicyRecord {
	return &types.PolicyRecord{
		SourceURL:  "https://example.com/policies",
		SourceKind: types.SourceOfficial,
		RawText:    "Long policy page text that the rules could not make sense of at all.",
	}
}

const fencedResponse = "```json\n" + `{
  "taxes": [{"name": "City Tax", "amount": "5%", "basis": "per night"}],
  "fees": [{"name": "Resort Fee", "amount": "$25.00", "basis": "per night", "includes": ["Wifi"]}],
  "extraPersonPolicy": null,
  "damageDeposit": {"amount": "$200.00", "basis": "per stay", "method": "Credit card pre-authorization"}
}` + "\n```"

func TestEnrichMergesIntoEmptyRecord(t *testing.T) {
	model := &fakeModel{response: fencedResponse}
	rec := emptyRecord()

	if !testGateway(model).Enrich(context.Background(), rec, "Test Hotel") {
		t.Fatal("expected a merge")
	}
	if model.calls != 1 {
		t.Errorf("model called %d times, want 1", model.calls)
	}
	if len(rec.Taxes) != 1 || rec.Taxes[0].Basis != types.BasisPerNight {
		t.Errorf("taxes = %+v", rec.Taxes)
	}
	if len(rec.Fees) != 1 || rec.Fees[0].Amount != "$25.00" {
		t.Errorf("fees = %+v", rec.Fees)
	}
	if rec.DamageDeposit == nil || rec.DamageDeposit.Basis != types.BasisPerStay {
		t.Errorf("deposit = %+v", rec.DamageDeposit)
	}
	if rec.Notes == "" {
		t.Error("merged record should carry a provenance note")
	}
}

func TestEnrichSkipsWhenRulesFoundFacts(t *testing.T) {
	model := &fakeModel{response: fencedResponse}
	rec := emptyRecord()
	rec.Fees = []types.FeeFact{{Name: "Resort Fee", Amount: "$40.00", Basis: types.BasisPerNight}}

	if testGateway(model).Enrich(context.Background(), rec, "Test Hotel") {
		t.Error("record with facts should not be enriched")
	}
	if model.calls != 0 {
		t.Errorf("model called %d times, want 0", model.calls)
	}
	if rec.Fees[0].Amount != "$40.00" {
		t.Error("existing fees must not be overwritten")
	}
}

func TestEnrichUnavailableLeavesRecordUnchanged(t *testing.T) {
	rec := emptyRecord()
	if testGateway(nil).Enrich(context.Background(), rec, "Test Hotel") {
		t.Error("unavailable gateway should do nothing")
	}
	if len(rec.Taxes) != 0 || len(rec.Fees) != 0 {
		t.Errorf("record changed: %+v", rec)
	}
}

func TestEnrichModelErrorIsNonFatal(t *testing.T) {
	model := &fakeModel{err: errors.New("capability unavailable")}
	rec := emptyRecord()

	if testGateway(model).Enrich(context.Background(), rec, "Test Hotel") {
		t.Error("errored call must not report a merge")
	}
	if len(rec.Taxes) != 0 || len(rec.Fees) != 0 {
		t.Errorf("record changed: %+v", rec)
	}
}

func TestEnrichRejectsMalformedJSON(t *testing.T) {
	model := &fakeModel{response: "Sorry, I could not find any fees on that page."}
	rec := emptyRecord()

	if testGateway(model).Enrich(context.Background(), rec, "Test Hotel") {
		t.Error("non-JSON response must not merge")
	}
}

func TestEnrichDiscardsZeroFees(t *testing.T) {
	model := &fakeModel{response: `{"taxes": [], "fees": [{"name": "Parking", "amount": "$0.00"}]}`}
	rec := emptyRecord()

	testGateway(model).Enrich(context.Background(), rec, "Test Hotel")
	if len(rec.Fees) != 0 {
		t.Errorf("zero fee merged: %+v", rec.Fees)
	}
}

func TestEnrichSkipsShortText(t *testing.T) {
	model := &fakeModel{response: fencedResponse}
	rec := emptyRecord()
	rec.RawText = "tiny"

	if testGateway(model).Enrich(context.Background(), rec, "Test Hotel") {
		t.Error("short text should be skipped")
	}
	if model.calls != 0 {
		t.Errorf("model called %d times, want 0", model.calls)
	}
}

func TestEnrichTruncatesLongText(t *testing.T) {
	model := &fakeModel{response: `{"taxes": [], "fees": []}`}
	var captured string
	capture := &captureModel{inner: model, prompt: &captured}
	gw := NewGateway(config.LLMConfig{MaxTextLen: 50, MinTextLen: 10},
		capture, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := emptyRecord()
	rec.RawText = strings.Repeat("fee details ", 20)
	gw.Enrich(context.Background(), rec, "Test Hotel")

	if !strings.Contains(captured, "[Text truncated...]") {
		t.Error("long text should carry a truncation marker")
	}
}

type captureModel struct {
	inner  TextUnderstander
	prompt *string
}

func (c *captureModel) Complete(ctx context.Context, prompt string) (string, error) {
	*c.prompt = prompt
	return c.inner.Complete(ctx, prompt)
}

func TestNormalizeBasis(t *testing.T) {
	cases := map[string]string{
		"per night":  types.BasisPerNight,
		"Per Stay":   types.BasisPerStay,
		"per room":   types.BasisPerRoomPerNight,
		"":           types.BasisPerNight,
		"sometimes":  types.BasisPerNight,
		"per person": types.BasisPerPerson,
	}
	for raw, want := range cases {
		if got := normalizeBasis(raw, types.BasisPerNight); got != want {
			t.Errorf("normalizeBasis(%q) = %q, want %q", raw, got, want)
		}
	}
}
