package link

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Mindburn-Labs/verigate/pkg/gate"
)

// CheckOptions mirrors the link_check profile keys consumed by this
// capability.
type CheckOptions struct {
	ConcurrentChecks int // default 5
	TimeoutMs        int // default 5000, per request
	RateLimitMs      int // default 100, between batches
}

func (o CheckOptions) withDefaults() CheckOptions {
	if o.ConcurrentChecks <= 0 {
		o.ConcurrentChecks = 5
	}
	if o.TimeoutMs <= 0 {
		o.TimeoutMs = 5000
	}
	if o.RateLimitMs <= 0 {
		o.RateLimitMs = 100
	}
	return o
}

// Check probes every URL concurrently, bounded by a semaphore sized to
// ConcurrentChecks, and returns the statuses map plus a check.json summary.
// Redirects are never auto-followed — the raw status is what's recorded.
func Check(ctx context.Context, urls []string, opts CheckOptions) (map[string]string, gate.LinksCheckArtifact) {
	opts = opts.withDefaults()

	client := &http.Client{
		Timeout: time.Duration(opts.TimeoutMs) * time.Millisecond,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	sem := make(chan struct{}, opts.ConcurrentChecks)
	var wg sync.WaitGroup
	var mu sync.Mutex
	statuses := make(map[string]string, len(urls))

	for i, u := range urls {
		wg.Add(1)
		go func(idx int, target string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if opts.RateLimitMs > 0 {
				batch := idx / opts.ConcurrentChecks
				time.Sleep(time.Duration(batch) * time.Duration(opts.RateLimitMs) * time.Millisecond)
			}

			status := probeOnce(ctx, client, target)
			mu.Lock()
			statuses[target] = status
			mu.Unlock()
		}(i, u)
	}
	wg.Wait()

	summary := gate.LinksCheckArtifact{TotalChecked: len(urls), Summary: map[string]int{}}
	for _, s := range statuses {
		cat := categoryOf(s)
		summary.Summary[cat]++
		if cat == "2xx" || cat == "3xx" {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return statuses, summary
}

func probeOnce(ctx context.Context, client *http.Client, target string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return "error"
	}
	resp, err := client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		return statusString(resp.StatusCode)
	}

	if ctx.Err() != nil {
		return "timeout"
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "error"
	}
	resp, err = client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "timeout"
		}
		return "error"
	}
	defer resp.Body.Close()
	return statusString(resp.StatusCode)
}

func statusString(code int) string {
	return strconv.Itoa(code)
}

func categoryOf(status string) string {
	if status == "timeout" || status == "error" {
		return status
	}
	if len(status) == 3 {
		return string(status[0]) + "xx"
	}
	return "error"
}
