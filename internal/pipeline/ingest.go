// Package pipeline implements the ETL stages: ingest CSVs into the raw
// store, validate the staged collections, transform/load them into the
// warehouse, and rebuild the derived aggregates.
package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"

	"cineflow/internal/errs"
	"cineflow/internal/rawstore"
)

// Ingest stages ratings.csv and movies.csv into the raw store, replacing
// both collections wholesale.
type Ingest struct {
	Store      rawstore.Store
	SamplesDir string
	Log        zerolog.Logger
}

func (s *Ingest) Run(ctx context.Context) error {
	ratingsPath := filepath.Join(s.SamplesDir, "ratings.csv")
	moviesPath := filepath.Join(s.SamplesDir, "movies.csv")

	// Both files must exist before any store is touched.
	for _, p := range []string{ratingsPath, moviesPath} {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("%w: %s", errs.ErrMissingInputFile, p)
		}
	}

	ratings, err := readCSVRecords(ratingsPath)
	if err != nil {
		return err
	}
	movies, err := readCSVRecords(moviesPath)
	if err != nil {
		return err
	}

	if err := s.Store.ReplaceCollection(ctx, rawstore.RatingsCollection, ratings); err != nil {
		return err
	}
	if err := s.Store.ReplaceCollection(ctx, rawstore.MoviesCollection, movies); err != nil {
		return err
	}

	s.Log.Info().
		Int("ratings", len(ratings)).
		Int("movies", len(movies)).
		Msg("raw collections replaced")
	return nil
}

// readCSVRecords reads a headered CSV into staged records. Cells under the
// known numeric columns are typed during parse; everything else stays a
// string, and empty cells become nulls.
func readCSVRecords(path string) ([]rawstore.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrMissingInputFile, path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}

	var records []rawstore.Record
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		rec := make(rawstore.Record, len(header))
		for i, col := range header {
			if i >= len(row) {
				continue
			}
			v, err := typeCell(col, row[i])
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
			}
			rec[col] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func typeCell(col, cell string) (any, error) {
	if cell == "" {
		return nil, nil
	}
	switch col {
	case "userId", "movieId", "timestamp":
		v, err := strconv.ParseInt(cell, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not an integer", col, cell)
		}
		return v, nil
	case "rating":
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("column %s: %q is not a number", col, cell)
		}
		return v, nil
	}
	return cell, nil
}
