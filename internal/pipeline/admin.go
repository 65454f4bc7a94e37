package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"cineflow/internal/warehouse"
)

// Admin ensures the fact_rating lookup indexes exist and fully rebuilds the
// mv_daily_metrics rollup. Idempotent; the schema bootstrap makes it safe
// as a standalone stage on a fresh warehouse.
type Admin struct {
	Warehouse warehouse.Warehouse
	Log       zerolog.Logger
}

func (s *Admin) Run(ctx context.Context) error {
	if err := s.Warehouse.InitSchema(ctx); err != nil {
		return err
	}
	if err := s.Warehouse.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := s.Warehouse.RebuildDailyMetrics(ctx); err != nil {
		return err
	}
	s.Log.Info().Msg("indexes ensured and daily metrics rebuilt")
	return nil
}
