// Package health tracks per-source scrape health: OK after a saving run,
// BROKEN after repeated or total failure, STALE in between.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/mandipulse/mandipulse/internal/logger"
	"github.com/mandipulse/mandipulse/internal/model"
	"github.com/mandipulse/mandipulse/internal/store"
)

// recentWindow is how many of the latest runs the failure rule inspects.
const recentWindow = 5

// brokenFailures is the failure count within the window that marks a source
// BROKEN.
const brokenFailures = 3

// Evaluate determines a source's health from the outcome of the current run
// and its recorded history. recentFailures counts failed runs among the last
// five (including the current one); hasAnySuccess is whether the source ever
// had a successful run.
func Evaluate(success bool, recordsSaved, recentFailures int, hasAnySuccess bool) (status, reason string) {
	if success && recordsSaved > 0 {
		return model.HealthOK, ""
	}
	if recentFailures >= brokenFailures {
		return model.HealthBroken,
			fmt.Sprintf("%d failures in last %d runs", recentFailures, recentWindow)
	}
	if !hasAnySuccess {
		return model.HealthBroken, "no successful scrapes recorded"
	}
	return model.HealthStale, "last scrape failed but previous successes exist"
}

// Update evaluates and persists the health status for a source after a run.
// The run log must already be stored so the failure window sees the current
// run. Returns the new status.
func Update(ctx context.Context, db *store.DB, sourceID string, success bool, recordsSaved int) (string, error) {
	if db == nil || sourceID == "" {
		logger.Debug("no database or source id, skipping health update")
		if success {
			return model.HealthOK, nil
		}
		return model.HealthBroken, nil
	}

	recentFailures := 0
	runs, err := db.Runs().RecentRuns(ctx, sourceID, recentWindow)
	if err != nil {
		return "", fmt.Errorf("loading recent runs: %w", err)
	}
	for _, r := range runs {
		if !r.Success {
			recentFailures++
		}
	}

	hasSuccess, err := db.Runs().HasAnySuccess(ctx, sourceID)
	if err != nil {
		return "", fmt.Errorf("checking run history: %w", err)
	}

	status, reason := Evaluate(success, recordsSaved, recentFailures, hasSuccess)

	var lastSuccess time.Time
	if status == model.HealthOK {
		lastSuccess = time.Now().UTC()
	}
	if err := db.Sources().UpdateHealth(ctx, sourceID, status, lastSuccess, reason); err != nil {
		return "", fmt.Errorf("persisting health: %w", err)
	}

	logger.Info("health updated", "source", sourceID, "status", status, "reason", reason)
	return status, nil
}
