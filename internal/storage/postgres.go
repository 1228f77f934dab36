package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	pq "github.com/lib/pq"

	"github.com/mcleblanc711/ResortFees/internal/config"
	"github.com/mcleblanc711/ResortFees/pkg/types"
)

// Store persists finished hotel records into a SQL database. It is an
// optional sink; runs without a configured DSN skip it entirely.
type Store struct {
	db          *sql.DB
	autoMigrate bool
}

// NewStore initialises a store from configuration and verifies
// connectivity.
func NewStore(cfg config.SQLConfig) (*Store, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping sql connection: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}

	store := &Store{db: db, autoMigrate: cfg.AutoMigrate}
	if cfg.AutoMigrate {
		if err := store.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// SaveHotel upserts one finished record keyed by hotel ID. The full
// record is kept as JSONB alongside the columns used for querying.
func (s *Store) SaveHotel(ctx context.Context, h *types.HotelData) error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.upsertHotel(ctx, h); err != nil {
		if s.autoMigrate && isUndefinedTableErr(err) {
			if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
				return fmt.Errorf("ensure schema: %w", schemaErr)
			}
			if retryErr := s.upsertHotel(ctx, h); retryErr != nil {
				return fmt.Errorf("insert hotel record: %w", retryErr)
			}
			return nil
		}
		return fmt.Errorf("insert hotel record: %w", err)
	}
	return nil
}

func (s *Store) upsertHotel(ctx context.Context, h *types.HotelData) error {
	record, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	query := `
        INSERT INTO hotel_records (id, name, town, region, country, market_segment, tripadvisor_rank,
                                   data_source, policy_page, aggregator_url, record, scraped_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            town = EXCLUDED.town,
            region = EXCLUDED.region,
            country = EXCLUDED.country,
            market_segment = EXCLUDED.market_segment,
            tripadvisor_rank = EXCLUDED.tripadvisor_rank,
            data_source = EXCLUDED.data_source,
            policy_page = EXCLUDED.policy_page,
            aggregator_url = EXCLUDED.aggregator_url,
            record = EXCLUDED.record,
            scraped_at = EXCLUDED.scraped_at
    `
	_, err = s.db.ExecContext(ctx, query,
		h.ID,
		h.Name,
		h.Town,
		h.Region,
		h.Country,
		h.MarketSegment,
		h.TripadvisorRank,
		h.Sources.DataSource,
		h.Sources.PolicyPage,
		h.Sources.AggregatorURL,
		record,
		h.ScrapedAt,
	)
	return err
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS hotel_records (
		    id TEXT PRIMARY KEY,
		    name TEXT NOT NULL,
		    town TEXT,
		    region TEXT,
		    country TEXT,
		    market_segment TEXT,
		    tripadvisor_rank INT,
		    data_source TEXT,
		    policy_page TEXT,
		    aggregator_url TEXT,
		    record JSONB,
		    scraped_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_hotel_records_country_town ON hotel_records (country, town)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist")
}
