package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retendo/account/internal/nintendo"
)

// Config controls a synthetic traffic run against a live service.
type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        uint64
}

// Result summarizes a completed run.
type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

type requestSpec struct {
	method string
	path   string
	body   string
}

// Run drives the configured traffic profile until the duration elapses.
// Requests intentionally carry junk credentials; the point is exercising
// the rejection paths, not authenticating.
func Run(ctx context.Context, cfg Config) (Result, error) {
	profile := normalizeProfile(cfg.Profile)
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 5 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	result := Result{StatusClasses: make(map[string]int)}
	var mu sync.Mutex

	specs := make(chan requestSpec)
	g, runCtx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		defer close(specs)
		rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
		ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return nil
			case <-ticker.C:
				select {
				case specs <- nextSpec(profile, rng):
				case <-runCtx.Done():
					return nil
				}
			}
		}
	})

	client := &http.Client{Timeout: 10 * time.Second}
	for range cfg.Concurrency {
		g.Go(func() error {
			for spec := range specs {
				status, err := perform(runCtx, client, baseURL, spec)
				mu.Lock()
				result.TotalRequests++
				if err != nil || status >= 500 {
					result.Failures++
				}
				if err == nil {
					result.StatusClasses[classifyStatusClass(status)]++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return result, err
	}
	return result, nil
}

func perform(ctx context.Context, client *http.Client, baseURL string, spec requestSpec) (int, error) {
	var body io.Reader
	if spec.body != "" {
		body = strings.NewReader(spec.body)
	}
	req, err := http.NewRequestWithContext(ctx, spec.method, baseURL+spec.path, body)
	if err != nil {
		return 0, err
	}
	if spec.body != "" {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

func nextSpec(profile string, rng *rand.Rand) requestSpec {
	switch profile {
	case "nasc":
		return nascSpec(rng)
	case "api":
		return apiSpec(rng)
	default:
		if rng.IntN(2) == 0 {
			return nascSpec(rng)
		}
		return apiSpec(rng)
	}
}

func nascSpec(rng *rand.Rand) requestSpec {
	enc := func(s string) string { return nintendo.Base64Encode([]byte(s)) }
	form := url.Values{}
	form.Set("action", enc("LOGIN"))
	form.Set("fcdcert", enc("junk"))
	form.Set("csnum", enc(fmt.Sprintf("CW%09d", rng.IntN(1_000_000_000))))
	form.Set("macadr", enc(fmt.Sprintf("0009BF%06X", rng.IntN(0x1000000))))
	form.Set("titleid", enc("000400300000A000"))
	form.Set("servertype", enc("L1"))
	return requestSpec{method: http.MethodPost, path: "/ac", body: form.Encode()}
}

func apiSpec(rng *rand.Rand) requestSpec {
	switch rng.IntN(3) {
	case 0:
		return requestSpec{method: http.MethodGet, path: "/health/live"}
	case 1:
		return requestSpec{method: http.MethodGet, path: "/v1/api/devices/@current/status"}
	default:
		form := url.Values{}
		form.Set("grant_type", "password")
		form.Set("user_id", fmt.Sprintf("probe%06d", rng.IntN(1_000_000)))
		form.Set("password", "invalid")
		return requestSpec{method: http.MethodPost, path: "/v1/api/oauth20/access_token/generate", body: form.Encode()}
	}
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(profile string) string {
	profile = strings.ToLower(strings.TrimSpace(profile))
	switch profile {
	case "nasc", "api":
		return profile
	default:
		return "mixed"
	}
}
