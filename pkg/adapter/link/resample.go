package link

import (
	"context"
	"net/http"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// ResampleAttempt is one retry record for a failing URL.
type ResampleAttempt struct {
	URL      string `json:"url"`
	Attempt  int    `json:"attempt"`
	Status   string `json:"status"`
	Recovered bool  `json:"recovered"`
}

func isFailureClass(status string) bool {
	cat := categoryOf(status)
	return cat == "4xx" || cat == "5xx" || cat == "timeout" || cat == "error"
}

// Resample retries every URL currently in a failure class, backing off
// exponentially (min(1000*2^(n-1), 10000) ms) for up to maxAttempts tries.
// It mutates statuses in place for any URL that recovers and returns a
// links/resample.json summary.
func Resample(ctx context.Context, statuses map[string]string, client *http.Client, maxAttempts int) gate.LinksResampleArtifact {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var attempts []any
	resampled, recovered := 0, 0
	var stillFailing int

	for url, status := range statuses {
		if !isFailureClass(status) {
			continue
		}
		resampled++

		recoveredThisURL := false
		for n := 1; n <= maxAttempts; n++ {
			backoff := time.Duration(1000) * time.Millisecond
			for i := 1; i < n; i++ {
				backoff *= 2
			}
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			select {
			case <-ctx.Done():
				break
			case <-time.After(backoff):
			}

			newStatus := probeOnce(ctx, client, url)
			attempts = append(attempts, ResampleAttempt{URL: url, Attempt: n, Status: newStatus, Recovered: !isFailureClass(newStatus)})

			if !isFailureClass(newStatus) {
				statuses[url] = newStatus
				recoveredThisURL = true
				break
			}
		}

		if recoveredThisURL {
			recovered++
		} else {
			stillFailing++
		}
	}

	return gate.LinksResampleArtifact{
		TotalResampled:   resampled,
		Recovered:        recovered,
		StillFailed:      stillFailing,
		ResampleAttempts: attempts,
	}
}
