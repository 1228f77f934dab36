package types

// Coordinates is a lat/lng pair.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// HotelInput is one curated hotel to process. Immutable for the duration
// of a run.
type HotelInput struct {
	Name            string       `json:"name"`
	Town            string       `json:"town"`
	Region          string       `json:"region"`
	Country         string       `json:"country"`
	OfficialWebsite string       `json:"website,omitempty"`
	TripadvisorURL  string       `json:"tripadvisor_url,omitempty"`
	TripadvisorRank int          `json:"rank"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	MarketSegment   string       `json:"market_segment,omitempty"`
}

// Sources records provenance for a hotel's policy data.
type Sources struct {
	OfficialWebsite string `json:"officialWebsite,omitempty"`
	PolicyPage      string `json:"policyPage,omitempty"`
	AggregatorURL   string `json:"aggregatorUrl,omitempty"`
	DataSource      string `json:"dataSource"`
}

// HotelData is the complete per-hotel export record handed to the
// output sinks.
type HotelData struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Town              string             `json:"town"`
	Region            string             `json:"region"`
	Country           string             `json:"country"`
	MarketSegment     string             `json:"marketSegment"`
	TripadvisorRank   int                `json:"tripadvisorRank"`
	Coordinates       *Coordinates       `json:"coordinates,omitempty"`
	Sources           Sources            `json:"sources"`
	Taxes             []TaxFact          `json:"taxes"`
	Fees              []FeeFact          `json:"fees"`
	ExtraPersonPolicy *ExtraPersonFact   `json:"extraPersonPolicy,omitempty"`
	DamageDeposit     *DamageDepositFact `json:"damageDeposit,omitempty"`
	ScrapedAt         string             `json:"scrapedAt"`
	ScrapingNotes     string             `json:"scrapingNotes,omitempty"`
}
