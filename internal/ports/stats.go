package ports

import "durak/internal/stats"

// PlayerStatsPort reads per-name records from the stats ledger.
type PlayerStatsPort interface {
	// Stats returns the record for name, creating an empty one if absent.
	Stats(name string) (stats.Record, error)
}
