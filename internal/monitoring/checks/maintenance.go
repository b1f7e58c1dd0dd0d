package checks

import (
	"context"
	"strings"
	"time"

	"github.com/charlesng35/tronobserver/internal/monitoring"
)

const defaultMaintenanceMaxAge = 6 * time.Hour

// JobReporter exposes the run history of background jobs.
type JobReporter interface {
	Jobs() []monitoring.JobStatus
}

// Maintenance verifies that background jobs keep succeeding within maxAge.
func Maintenance(reporter JobReporter, maxAge time.Duration) monitoring.Check {
	if maxAge <= 0 {
		maxAge = defaultMaintenanceMaxAge
	}

	return monitoring.NewCheck("maintenance", func(ctx context.Context) monitoring.ProbeResult {
		if reporter == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "maintenance disabled"}
		}

		jobs := reporter.Jobs()
		if len(jobs) == 0 {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "no maintenance jobs registered"}
		}

		now := time.Now()
		status := monitoring.StatusUp
		var problems []string
		for _, job := range jobs {
			switch {
			case job.Runs == 0:
				problems = append(problems, job.Name+": pending first run")
			case job.ConsecutiveFailures > 0:
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				problems = append(problems, job.Name+": "+job.LastError)
			case now.Sub(job.LastRunAt) > maxAge:
				status = monitoring.Worst(status, monitoring.StatusDegraded)
				problems = append(problems, job.Name+": stale run "+job.LastRunAt.UTC().Format(time.RFC3339))
			}
		}

		return monitoring.ProbeResult{Status: status, Details: strings.Join(problems, "; ")}
	})
}
