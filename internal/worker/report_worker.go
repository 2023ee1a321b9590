// Package worker regenerates monthly summary exports when ledger events
// arrive. It follows a ledger written by the server process: every event
// triggers a reload and a rewrite of the affected month's summary file.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"shoptracker/internal/amqp"
	"shoptracker/internal/ledger"
	"shoptracker/internal/report"
)

type ReportWorker struct {
	ledger *ledger.Ledger
	outDir string
}

func NewReportWorker(l *ledger.Ledger, outDir string) *ReportWorker {
	return &ReportWorker{ledger: l, outDir: outDir}
}

// HandleEvent processes one ledger event: reload state, then rebuild
// affected summaries. A purchase touches one month; an item deletion
// cascades across every month the item ever appeared in, so those
// rebuild all months.
func (w *ReportWorker) HandleEvent(ctx context.Context, event *amqp.Event) error {
	if err := w.ledger.Reload(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}

	if event.Kind == amqp.KindItemDeleted {
		return w.writeAllMonths(ctx)
	}

	when := event.Date
	if when.IsZero() {
		when = time.Now()
	}

	if err := w.WriteMonthly(ctx, when.Month(), when.Year()); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Rebuilt monthly summary",
		"kind", event.Kind,
		"month", int(when.Month()),
		"year", when.Year())
	return nil
}

// RefreshAll reloads the ledger and rewrites every month's summary. Run
// periodically to cover events missed while the worker was down.
func (w *ReportWorker) RefreshAll(ctx context.Context) error {
	if err := w.ledger.Reload(ctx); err != nil {
		return fmt.Errorf("reload ledger: %w", err)
	}
	return w.writeAllMonths(ctx)
}

// writeAllMonths rewrites a summary for every month that has
// transactions plus every month with an existing export file, so a
// month emptied by a cascade delete is refreshed rather than left
// stale.
func (w *ReportWorker) writeAllMonths(ctx context.Context) error {
	type yearMonth struct {
		year  int
		month time.Month
	}
	months := make(map[yearMonth]struct{})
	for _, t := range w.ledger.Transactions() {
		months[yearMonth{t.Date.Year(), t.Date.Month()}] = struct{}{}
	}

	if entries, err := os.ReadDir(w.outDir); err == nil {
		for _, e := range entries {
			var year, month int
			if _, err := fmt.Sscanf(e.Name(), "summary-%d-%d.txt", &year, &month); err == nil &&
				month >= 1 && month <= 12 {
				months[yearMonth{year, time.Month(month)}] = struct{}{}
			}
		}
	}

	for ym := range months {
		if err := w.WriteMonthly(ctx, ym.month, ym.year); err != nil {
			return err
		}
	}

	slog.InfoContext(ctx, "Rebuilt monthly summaries", "months", len(months))
	return nil
}

// WriteMonthly renders the month's summary and writes it atomically to
// the export directory.
func (w *ReportWorker) WriteMonthly(ctx context.Context, month time.Month, year int) error {
	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}

	text := report.Render(report.BuildMonthly(w.ledger, month, year))
	path := filepath.Join(w.outDir, fmt.Sprintf("summary-%04d-%02d.txt", year, int(month)))

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace summary: %w", err)
	}

	slog.DebugContext(ctx, "Wrote summary file", "path", path)
	return nil
}
