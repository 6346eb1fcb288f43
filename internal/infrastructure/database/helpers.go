package database

import (
	"context"
	"fmt"
	"log"
	"time"

	zlog "github.com/rs/zerolog/log"
)

// Ping checks the pool is alive. Used by the /health endpoint.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Close releases the pool. Safe to call more than once.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		log.Println("[DATABASE] Pool is already closed or was never initialized")
		return nil
	}

	log.Println("[DATABASE] Closing database connection pool...")

	if db.sqlDB != nil {
		if err := db.sqlDB.Close(); err != nil {
			log.Printf("[DATABASE] Closing database/sql handle: %v", err)
		}
		db.sqlDB = nil
	}

	db.Pool.Close()
	db.Pool = nil

	log.Println("[DATABASE] Connection pool closed successfully")
	return nil
}

// PoolStats is a snapshot of the pool counters.
type PoolStats struct {
	AcquireCount         int64
	AcquireDuration      time.Duration
	AcquiredConns        int32
	CanceledAcquireCount int64
	EmptyAcquireCount    int64
	IdleConns            int32
	MaxConns             int32
	TotalConns           int32
}

func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	return &PoolStats{
		AcquireCount:         raw.AcquireCount(),
		AcquireDuration:      raw.AcquireDuration(),
		AcquiredConns:        raw.AcquiredConns(),
		CanceledAcquireCount: raw.CanceledAcquireCount(),
		EmptyAcquireCount:    raw.EmptyAcquireCount(),
		IdleConns:            raw.IdleConns(),
		MaxConns:             raw.MaxConns(),
		TotalConns:           raw.TotalConns(),
	}, nil
}

// AvgAcquireDuration returns zero when nothing was acquired yet.
func (s *PoolStats) AvgAcquireDuration() time.Duration {
	if s.AcquireCount == 0 {
		return 0
	}
	return s.AcquireDuration / time.Duration(s.AcquireCount)
}

// Utilization is the acquired share of MaxConns, in percent.
func (s *PoolStats) Utilization() float64 {
	if s.MaxConns == 0 {
		return 0
	}
	return float64(s.AcquiredConns) / float64(s.MaxConns) * 100
}

// MonitorPoolHealth samples pool stats every interval until ctx is done.
// Row locks taken by lease transitions hold connections, so saturation shows up here first.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration, observe func(*PoolStats)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats, err := db.Stats()
			if err != nil {
				zlog.Warn().Err(err).Msg("pool monitor: stats unavailable")
				continue
			}
			if observe != nil {
				observe(stats)
			}

			if u := stats.Utilization(); u > 80 {
				zlog.Warn().
					Float64("utilization_pct", u).
					Int32("acquired", stats.AcquiredConns).
					Int32("max", stats.MaxConns).
					Msg("pool monitor: high utilization")
			}
			if avg := stats.AvgAcquireDuration(); avg > 100*time.Millisecond {
				zlog.Warn().Dur("avg_acquire", avg).Msg("pool monitor: high acquire latency")
			}

		case <-ctx.Done():
			zlog.Info().Msg("pool monitor: stopped")
			return
		}
	}
}
