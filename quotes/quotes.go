/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package quotes fetches a random quote from a remote API, falling back to
// a small local list whenever the request fails for any reason.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Seednode/oracle/rng"
)

const (
	DefaultEndpoint = "https://api.quotable.io/random"
	DefaultTimeout  = 10 * time.Second

	maxBody = 64 << 10
)

var (
	ErrStatus     = errors.New("unexpected response status")
	ErrMalformed  = errors.New("malformed quote")
	ErrSuperseded = errors.New("superseded by a newer request")
)

type Quote struct {
	Text    string `json:"text"`
	Author  string `json:"author,omitempty"`
	Offline bool   `json:"offline"`
}

func (q Quote) String() string {
	if q.Author == "" {
		return "«" + q.Text + "»"
	}

	return "«" + q.Text + "» — " + q.Author
}

// Local is shown when the remote API cannot be reached, and rotated on the
// main page.
var Local = []Quote{
	{Text: "A good plan, violently executed now, is better than a perfect plan next week.", Author: "George S. Patton"},
	{Text: "The right decision made too late is a mistake.", Author: "Lee Iacocca"},
	{Text: "It's not all that serious.", Author: "Egor"},
}

type remoteQuote struct {
	Content string `json:"content"`
	Author  string `json:"author"`
}

// Fetcher requests quotes from Endpoint. The zero value is not usable; use
// NewFetcher.
type Fetcher struct {
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
	Fallback []Quote

	mu     sync.Mutex
	rng    *rng.RNG
	logger *zap.Logger
}

func NewFetcher(endpoint string, timeout time.Duration, r *rng.RNG, logger *zap.Logger) *Fetcher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		Endpoint: endpoint,
		Timeout:  timeout,
		Client:   http.DefaultClient,
		Fallback: Local,
		rng:      r,
		logger:   logger,
	}
}

// Fetch always returns a quote. Failures are logged and answered with a
// fallback entry marked Offline.
func (f *Fetcher) Fetch(ctx context.Context) Quote {
	q, err := f.remote(ctx)
	if err == nil {
		return q
	}

	f.logger.Warn("quotes: using local fallback",
		zap.String("endpoint", f.Endpoint),
		zap.Error(err),
	)

	return f.fallback()
}

func (f *Fetcher) remote(ctx context.Context) (Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.Client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Quote{}, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	var rq remoteQuote
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&rq); err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rq.Content = strings.TrimSpace(rq.Content)
	if rq.Content == "" {
		return Quote{}, fmt.Errorf("%w: empty content", ErrMalformed)
	}

	return Quote{Text: rq.Content, Author: strings.TrimSpace(rq.Author)}, nil
}

func (f *Fetcher) fallback() Quote {
	f.mu.Lock()
	q, err := rng.Pick(f.rng, f.Fallback)
	f.mu.Unlock()

	if err != nil {
		return Quote{Text: "…", Offline: true}
	}

	q.Offline = true

	return q
}

// Refresher wraps a Fetcher so that starting a refresh cancels whichever
// attempt is still in flight. A superseded attempt never reports its result.
type Refresher struct {
	fetcher *Fetcher

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

func NewRefresher(f *Fetcher) *Refresher {
	return &Refresher{fetcher: f}
}

// Refresh returns ErrSuperseded if a later Refresh started before this one
// finished.
func (r *Refresher) Refresh(ctx context.Context) (Quote, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	r.cancel = cancel
	r.mu.Unlock()

	q, err := r.fetcher.remote(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq != r.seq {
		return Quote{}, ErrSuperseded
	}
	r.cancel = nil

	if err != nil {
		r.fetcher.logger.Warn("quotes: using local fallback",
			zap.String("endpoint", r.fetcher.Endpoint),
			zap.Error(err),
		)

		return r.fetcher.fallback(), nil
	}

	return q, nil
}
