package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/temperature-monitor/internal/weather"
)

// DBTX is the minimal interface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schema = `
CREATE TABLE IF NOT EXISTS temperature (
	id          BIGSERIAL PRIMARY KEY,
	city        TEXT NOT NULL,
	country     TEXT NOT NULL,
	temperature NUMERIC(6,2) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS temperature_city_created_at_idx ON temperature (city, created_at DESC);
CREATE INDEX IF NOT EXISTS temperature_country_created_at_idx ON temperature (country, created_at DESC);
`

const sampleColumns = `id, city, country, temperature::float8, created_at`

// PostgresStore persists samples in the temperature table.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore creates a store over db.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects a pool to databaseURL and verifies it with a ping.
func OpenPostgres(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the temperature table and its indexes when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate temperature table: %w", err)
	}
	return nil
}

func (s *PostgresStore) SaveSample(ctx context.Context, sample weather.Sample) (weather.Sample, error) {
	err := s.db.QueryRow(ctx,
		`INSERT INTO temperature (city, country, temperature, created_at)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		sample.City, sample.Country, sample.Temperature, sample.CreatedAt,
	).Scan(&sample.ID)
	if err != nil {
		return weather.Sample{}, fmt.Errorf("insert sample: %w", err)
	}
	return sample, nil
}

func (s *PostgresStore) QueryRange(ctx context.Context, city, country string, from, to time.Time) ([]weather.Sample, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+sampleColumns+`
		 FROM temperature
		 WHERE (city = $1 OR country = $2)
		   AND created_at >= $3 AND created_at < $4
		 ORDER BY created_at, id`,
		city, country, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := make([]weather.Sample, 0)
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

func (s *PostgresStore) QueryLatest(ctx context.Context, city, country string) (weather.Sample, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+sampleColumns+`
		 FROM temperature
		 WHERE city = $1 OR country = $2
		 ORDER BY created_at DESC, id DESC
		 LIMIT 1`,
		city, country,
	)
	sample, err := scanSample(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return weather.Sample{}, weather.ErrNotFound
		}
		return weather.Sample{}, err
	}
	return sample, nil
}

func scanSample(row pgx.Row) (weather.Sample, error) {
	var (
		sample weather.Sample
		temp   float64
	)
	// NUMERIC(6,2) is read back as float8 and re-rounded to two places.
	if err := row.Scan(&sample.ID, &sample.City, &sample.Country, &temp, &sample.CreatedAt); err != nil {
		return weather.Sample{}, fmt.Errorf("scan sample: %w", err)
	}
	sample.Temperature = weather.RoundTemperature(temp)
	sample.CreatedAt = sample.CreatedAt.UTC()
	return sample, nil
}

var (
	_ weather.Store = (*PostgresStore)(nil)
	_ weather.Store = (*MemoryStore)(nil)
)
