package ingest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/verte-zerg/darkcmp/internal/fitsframe"
	"github.com/verte-zerg/darkcmp/internal/model"
	"github.com/verte-zerg/darkcmp/internal/stats"
)

// Cache stores reduced records between runs.
type Cache interface {
	LookupFrame(ctx context.Context, path string, size int64, modTime time.Time, crop float64) (model.ImageRecord, bool, error)
	PutFrame(ctx context.Context, runID string, rec model.ImageRecord, crop float64) error
}

// Progress is called after each file; done counts from 1 to total.
type Progress func(done, total int, path string)

// Options controls a run.
type Options struct {
	Extensions   []string
	CropFraction float64
	Cache        Cache
	RunID        string
	Progress     Progress
}

// Result is the outcome of a run.
type Result struct {
	Table  *model.StatsTable
	Files  int
	Cached int
}

// Run discovers every frame under root and reduces each one in order.
// The first failing file aborts the run.
func Run(ctx context.Context, root string, opts Options) (Result, error) {
	if _, err := os.Stat(root); err != nil {
		return Result{}, fmt.Errorf("failed to open folder: %w", err)
	}
	files, err := Discover(root, opts.Extensions)
	if err != nil {
		return Result{}, err
	}
	table := &model.StatsTable{}
	res := Result{Table: table, Files: len(files)}
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		rec, cached, err := load(ctx, path, opts)
		if err != nil {
			return Result{}, err
		}
		if err := table.Append(rec); err != nil {
			return Result{}, err
		}
		if cached {
			res.Cached++
		}
		if opts.Progress != nil {
			opts.Progress(i+1, len(files), path)
		}
	}
	return res, nil
}

func load(ctx context.Context, path string, opts Options) (model.ImageRecord, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.ImageRecord{}, false, err
	}
	if opts.Cache != nil {
		rec, ok, err := opts.Cache.LookupFrame(ctx, path, info.Size(), info.ModTime(), opts.CropFraction)
		if err != nil {
			return model.ImageRecord{}, false, fmt.Errorf("failed to read cache: %w", err)
		}
		if ok {
			return rec, true, nil
		}
	}
	rec, err := ReadRecord(path, opts.CropFraction)
	if err != nil {
		return model.ImageRecord{}, false, err
	}
	rec.Size = info.Size()
	rec.ModTime = info.ModTime()
	if opts.Cache != nil {
		if err := opts.Cache.PutFrame(ctx, opts.RunID, rec, opts.CropFraction); err != nil {
			return model.ImageRecord{}, false, fmt.Errorf("failed to write cache: %w", err)
		}
	}
	return rec, false, nil
}

// ReadRecord opens one frame, crops its border, and reduces the remaining
// pixels to summary statistics.
func ReadRecord(path string, cropFraction float64) (model.ImageRecord, error) {
	frame, err := fitsframe.Open(path)
	if err != nil {
		return model.ImageRecord{}, err
	}
	cropped, _, _, err := stats.Crop(frame.Pixels, frame.Width, frame.Height, cropFraction)
	if err != nil {
		return model.ImageRecord{}, fmt.Errorf("%s: %w", path, err)
	}
	summary := stats.Describe(cropped)
	return model.ImageRecord{
		Path:     path,
		Category: model.CategoryFor(frame.HasObject),
		Object:   frame.Object,
		Camera:   frame.Instrument,
		Gain:     frame.Gain,
		Exposure: frame.Exposure,
		Width:    frame.Width,
		Height:   frame.Height,
		Mean:     summary.Mean,
		Median:   summary.Median,
		StdDev:   summary.StdDev,
	}, nil
}
