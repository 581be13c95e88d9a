package database

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"glucomeal/internal/classifier"
	"glucomeal/internal/dataset"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Service represents a read-only food reference store.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// ListFoods reads the whole reference table in id order.
	ListFoods(ctx context.Context) (dataset.Table, error)

	// Close terminates the database connection.
	Close()
}

type service struct {
	pool *pgxpool.Pool
	host string
}

const listFoodsQuery = `
	SELECT food, calories, sugar_level_category, bmi_category, diet_type
	FROM foods
	ORDER BY id`

// foodRow mirrors one row of the foods table.
type foodRow struct {
	Food               string  `db:"food"`
	Calories           float64 `db:"calories"`
	SugarLevelCategory string  `db:"sugar_level_category"`
	BMICategory        string  `db:"bmi_category"`
	DietType           string  `db:"diet_type"`
}

// NewService opens a connection pool and verifies it with a ping.
func NewService(ctx context.Context, connStr string) (Service, error) {
	cfg, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("invalid database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}

	log.Info().Str("host", cfg.ConnConfig.Host).Msg("Connected to database")
	return &service{pool: pool, host: cfg.ConnConfig.Host}, nil
}

// ListFoods reads every row of the foods table.
func (s *service) ListFoods(ctx context.Context) (dataset.Table, error) {
	rows, err := s.pool.Query(ctx, listFoodsQuery)
	if err != nil {
		return dataset.Table{}, fmt.Errorf("failed to query foods: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[foodRow])
	if err != nil {
		return dataset.Table{}, fmt.Errorf("failed to scan foods: %w", err)
	}

	return toTable(records)
}

func toTable(records []foodRow) (dataset.Table, error) {
	if len(records) == 0 {
		return dataset.Table{}, &dataset.LoadError{Path: "postgres:foods", Err: dataset.ErrEmptyTable}
	}

	out := make([]dataset.FoodRecord, 0, len(records))
	for _, r := range records {
		out = append(out, dataset.FoodRecord{
			Food:          strings.TrimSpace(r.Food),
			Calories:      r.Calories,
			SugarCategory: classifier.SugarCategory(strings.TrimSpace(r.SugarLevelCategory)),
			BMICategory:   classifier.BMICategory(strings.TrimSpace(r.BMICategory)),
			DietType:      classifier.DietType(strings.TrimSpace(r.DietType)),
		})
	}
	return dataset.NewTable(out), nil
}

// Health checks the health of the database connection.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	if err := s.pool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	poolStats := s.pool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) { // 80% capacity
		stats["message"] = "The database connection pool is experiencing heavy load."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() {
	log.Info().Str("host", s.host).Msg("Disconnected from database")
	s.pool.Close()
}
