package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/matzehuels/votemap/pkg/artifact"
	"github.com/matzehuels/votemap/pkg/config"
	"github.com/matzehuels/votemap/pkg/report"
)

type job struct {
	index int
	dept  config.Department
}

// RunAll transforms departments on a bounded worker pool and writes the
// index.json manifest once every worker has finished.
//
// A failing department never stops its siblings; its report carries the
// error. When ctx is cancelled, workers stop picking up departments, the
// ones not started are reported as failed, and ctx's error is returned
// alongside the summary.
//
// Departments of earlier runs that are not part of this one keep their
// index entries, so transforming a subset leaves the manifest complete.
func (r *Runner) RunAll(ctx context.Context, depts []config.Department, opts Options) (*report.Summary, error) {
	r.applyLogger(&opts)
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	results := make([]*Result, len(depts))
	jobs := make(chan job)
	var wg sync.WaitGroup

	workers := min(opts.Workers, len(depts))
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Errors live in the report.
				results[j.index], _ = r.Execute(ctx, j.dept, opts)
			}
		}()
	}

	opts.Logger.Info("transform started", "run", opts.RunID, "departments", len(depts), "workers", workers)
feed:
	for i, d := range depts {
		select {
		case jobs <- job{index: i, dept: d}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	reports := make([]*report.Report, len(depts))
	for i, res := range results {
		if res == nil {
			rep := report.New(opts.RunID, depts[i].Code)
			rep.Fail(fmt.Errorf("not started: %w", context.Cause(ctx)), "")
			rep.Finish(opts.Now().UTC())
			results[i] = &Result{Department: depts[i], Report: rep}
		}
		reports[i] = results[i].Report
	}

	if err := r.writeIndex(opts, results); err != nil {
		return report.Summarize(opts.RunID, reports), err
	}
	summary := report.Summarize(opts.RunID, reports)
	opts.Logger.Info("transform finished", "run", opts.RunID,
		"succeeded", summary.Succeeded, "warned", summary.Warned, "failed", summary.Failed)
	return summary, ctx.Err()
}

// writeIndex merges this run's departments into the manifest.
func (r *Runner) writeIndex(opts Options, results []*Result) error {
	entries := make(map[string]artifact.IndexEntry)
	if prev, err := artifact.ReadIndex(opts.Output); err == nil {
		for _, e := range prev.Departments {
			entries[e.Code] = e
		}
	}
	for _, res := range results {
		entries[res.Department.Code] = indexEntry(res)
	}

	list := make([]artifact.IndexEntry, 0, len(entries))
	for _, e := range entries {
		list = append(list, e)
	}
	return artifact.WriteIndex(opts.Output, artifact.NewIndex(opts.RunID, opts.Now(), list))
}

func indexEntry(res *Result) artifact.IndexEntry {
	e := artifact.IndexEntry{
		Code:      res.Department.Code,
		Name:      res.Department.DisplayName(),
		Status:    string(res.Report.Status),
		Artifacts: res.Artifacts,
		HasMap:    res.HasMap(),
		Warnings:  len(res.Report.Warnings),
		Error:     res.Report.Error,
	}
	for _, a := range res.Artifacts {
		if a == artifact.FileODD {
			e.HasODD = true
		}
	}
	return e
}
