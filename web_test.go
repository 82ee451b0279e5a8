/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/oracle/quotes"
	"github.com/Seednode/oracle/store"
)

func newTestConfig(quoteEndpoint string) *Config {
	return &Config{
		bind:          "127.0.0.1",
		port:          8080,
		quoteEndpoint: quoteEndpoint,
		quoteTimeout:  time.Second,
	}
}

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()

	db, err := store.Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	errs := make(chan error, 64)
	mux, stop := newRouter(cfg, db, errs)

	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		stop()
		db.Close()
	})

	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(body)
}

func TestConfigValidate(t *testing.T) {
	cfg := newTestConfig("")
	assert.NoError(t, cfg.validate())

	cfg.tlsCert = "cert.pem"
	assert.Error(t, cfg.validate())
	cfg.tlsKey = "key.pem"
	assert.NoError(t, cfg.validate())
	assert.Equal(t, "https", cfg.scheme())

	cfg.port = 0
	assert.Error(t, cfg.validate())

	cfg.port = 8080
	cfg.quoteTimeout = 0
	assert.Error(t, cfg.validate())
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("ORACLE_PORT", "9090")
	t.Setenv("ORACLE_QUOTE_TIMEOUT", "3s")

	cfg := &Config{}
	_ = newCmd(cfg)

	assert.Equal(t, 9090, cfg.port)
	assert.Equal(t, 3*time.Second, cfg.quoteTimeout)
	assert.Equal(t, quotes.DefaultEndpoint, cfg.quoteEndpoint)
}

func TestStaticRoutes(t *testing.T) {
	srv := newTestServer(t, newTestConfig(""))

	tests := []struct {
		path        string
		contentType string
		contains    string
	}{
		{"/", "text/html", "quote-line"},
		{"/oracle", "text/html", "runes-canvas"},
		{"/quote", "text/html", "quote-text"},
		{"/assets/oracle/app.js", "text/javascript", "WebSocket"},
		{"/assets/page.css", "text/css", "--accent"},
		{"/favicons/favicon.svg", "image/svg+xml", "<svg"},
		{"/healthz", "text/plain", "Ok"},
		{"/robots.txt", "text/plain", "GPTBot"},
		{"/version", "text/plain", "oracle v" + releaseVersion},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), tt.contentType), resp.Header.Get("Content-Type"))
			assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestMissingAsset(t *testing.T) {
	srv := newTestServer(t, newTestConfig(""))

	resp, _ := get(t, srv.URL+"/assets/nope.js")

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPrefixedPagesLinkPrefixedAssets(t *testing.T) {
	cfg := newTestConfig("")
	cfg.prefix = "/game/"
	srv := newTestServer(t, cfg)

	for _, path := range []string{"/game/", "/game/oracle", "/game/quote"} {
		t.Run(path, func(t *testing.T) {
			resp, body := get(t, srv.URL+path)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, `href="/game/assets/page.css"`)
			assert.Contains(t, body, `href="/game/favicons/favicon.svg"`)
			assert.NotContains(t, body, "{{prefix}}")
		})
	}

	resp, body := get(t, srv.URL+"/game/assets/page.css")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "--accent")

	resp, _ = get(t, srv.URL+"/game/favicons/site.webmanifest")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewPageUsesPrefix(t *testing.T) {
	page := newPage("/game", "Server Error", "oops")

	assert.Contains(t, page, `href="/game/assets/page.css"`)
	assert.Contains(t, page, `href="/game/favicons/favicon.svg"`)
	assert.Contains(t, page, `<a href="/game/">oops</a>`)
}

func TestOracleSetsPlayerCookie(t *testing.T) {
	srv := newTestServer(t, newTestConfig(""))

	resp, _ := get(t, srv.URL+"/oracle")

	var found bool
	for _, c := range resp.Cookies() {
		if c.Name == playerCookieName {
			found = true
			assert.Len(t, c.Value, 36)
		}
	}
	assert.True(t, found)
}

func TestQRCode(t *testing.T) {
	srv := newTestServer(t, newTestConfig(""))

	resp, body := get(t, srv.URL+"/oracle/qr")

	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(body, "\x89PNG"))
}

func TestQuoteAPI(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":"Remote wisdom.","author":"Someone"}`))
	}))
	defer remote.Close()

	srv := newTestServer(t, newTestConfig(remote.URL))

	_, body := get(t, srv.URL+"/quote/api")

	var q quotes.Quote
	require.NoError(t, json.Unmarshal([]byte(body), &q))
	assert.Equal(t, quotes.Quote{Text: "Remote wisdom.", Author: "Someone"}, q)
}

func TestQuoteAPIFallback(t *testing.T) {
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer remote.Close()

	srv := newTestServer(t, newTestConfig(remote.URL))

	_, body := get(t, srv.URL+"/quote/api")

	var q quotes.Quote
	require.NoError(t, json.Unmarshal([]byte(body), &q))
	assert.True(t, q.Offline)
	assert.Contains(t, quotes.Local, quotes.Quote{Text: q.Text, Author: q.Author})
}

func TestLocalQuotes(t *testing.T) {
	srv := newTestServer(t, newTestConfig(""))

	_, body := get(t, srv.URL+"/quote/local")

	var list []quotes.Quote
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	assert.Equal(t, quotes.Local, list)
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.5 kB", humanReadableSize(1500))
	assert.Equal(t, "2.0 MB", humanReadableSize(2_000_000))
}
