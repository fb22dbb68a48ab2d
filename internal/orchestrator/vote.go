package orchestrator

import (
	"time"

	"github.com/aegisshield/readiness-engine/internal/activity"
)

// summarizeActivity classifies a set of material identifiers by majority
// vote over their precomputed activity records. Materials without a record
// count as DORMANT with zero transactions.
//
// Tie-break: ties default toward DORMANT, except that a populated INACTIVE
// bucket wins against a same-count DORMANT bucket.
func summarizeActivity(ids []string, records map[string]activity.Record) (activity.Status, *time.Time, int) {
	if len(ids) == 0 {
		return activity.StatusDormant, nil, 0
	}

	counts := map[activity.Status]int{}
	var latest *time.Time
	totalTransactions := 0
	seen := make(map[string]struct{}, len(ids))

	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		rec, ok := records[id]
		if !ok {
			counts[activity.StatusDormant]++
			continue
		}
		counts[rec.Status]++
		totalTransactions += rec.TransactionCount
		if rec.LastTransaction != nil && (latest == nil || rec.LastTransaction.After(*latest)) {
			t := *rec.LastTransaction
			latest = &t
		}
	}

	status := activity.StatusDormant
	best := counts[activity.StatusDormant]
	if counts[activity.StatusInactive] > 0 && counts[activity.StatusInactive] >= best {
		status = activity.StatusInactive
		best = counts[activity.StatusInactive]
	}
	if counts[activity.StatusActive] > best {
		status = activity.StatusActive
	}
	return status, latest, totalTransactions
}
