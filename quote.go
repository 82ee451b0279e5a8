/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/oracle/quotes"
	"github.com/Seednode/oracle/rng"
)

const maxRefreshers = 1024

// quoteDesk hands every player their own Refresher, so a manual refresh only
// supersedes that player's earlier request. Only the least recently used
// players lose theirs once the desk is full.
type quoteDesk struct {
	fetcher *quotes.Fetcher

	mu         sync.Mutex
	refreshers *lru.Cache[string, *quotes.Refresher]
}

func newQuoteDesk(cfg *Config, size int) (*quoteDesk, error) {
	refreshers, err := lru.New[string, *quotes.Refresher](size)
	if err != nil {
		return nil, err
	}

	return &quoteDesk{
		fetcher:    quotes.NewFetcher(cfg.quoteEndpoint, cfg.quoteTimeout, rng.FromSeed(rng.DefaultSeed(time.Now())+" quotes"), cfg.log()),
		refreshers: refreshers,
	}, nil
}

func (d *quoteDesk) refresher(playerID string) *quotes.Refresher {
	d.mu.Lock()
	defer d.mu.Unlock()

	if r, ok := d.refreshers.Get(playerID); ok {
		return r
	}

	r := quotes.NewRefresher(d.fetcher)
	d.refreshers.Add(playerID, r)

	return r
}

func writeJSON(cfg *Config, w http.ResponseWriter, v any, errs chan<- error) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(cfg, w)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		errs <- err
	}
}

func serveQuote(cfg *Config, desk *quoteDesk, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		playerID := getOrSetPlayerID(w, r)

		q, err := desk.refresher(playerID).Refresh(r.Context())
		if errors.Is(err, quotes.ErrSuperseded) {
			w.WriteHeader(http.StatusNoContent)

			return
		}

		writeJSON(cfg, w, q, errs)

		logf(cfg, "SERVE: Quote (offline: %t) to %s in %s",
			q.Offline,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func serveLocalQuotes(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, quotes.Local, errs)
	}
}

func serveQuotePage(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data, err := readPage(cfg, "assets/quote/index.html")
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		cacheHeaders(w)
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// registerQuotes sets up routes so that:
//   - $path          → HTML quote page
//   - $path/api      → one random quote as JSON, local on failure
//   - $path/local    → the local quote list as JSON
func registerQuotes(cfg *Config, path string, mux *httprouter.Router, errs chan<- error) {
	desk, err := newQuoteDesk(cfg, maxRefreshers)
	if err != nil {
		errs <- err

		return
	}

	mux.Handler("GET", cfg.prefix+path, compressed(serveQuotePage(cfg, errs)))

	mux.GET(cfg.prefix+path+"/api", serveQuote(cfg, desk, errs))

	mux.GET(cfg.prefix+path+"/local", serveLocalQuotes(cfg, errs))
}
