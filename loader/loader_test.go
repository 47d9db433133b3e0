package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/loader"
	"sourcery.dny.nu/ldforge/registry"
)

const contextDoc = `{"@context":{"name":"https://schema.org/name"}}`

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/ld+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadDirect(t *testing.T) {
	srv := serve(t, http.StatusOK, contextDoc)

	doc, err := loader.New().Load(context.Background(), srv.URL+"/context.jsonld")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/context.jsonld", doc.URL)
	assert.JSONEq(t, contextDoc, string(doc.Document))
}

func TestLoadProxyFallback(t *testing.T) {
	origin := serve(t, http.StatusInternalServerError, "boom")

	var requested string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/ld+json")
		_, _ = w.Write([]byte(contextDoc))
	}))
	t.Cleanup(proxy.Close)

	reg := prometheus.NewRegistry()
	l := loader.New(
		loader.WithProxies(proxy.URL+"/?url={url}"),
		loader.WithMetrics(reg),
	)

	ref := origin.URL + "/context.jsonld"
	doc, err := l.Load(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, ref, requested)
	assert.Equal(t, ref, doc.URL, "documents loaded through a proxy keep their original URL")
	assert.JSONEq(t, contextDoc, string(doc.Document))

	expected := `
# HELP ldforge_loader_proxy_fallbacks_total Total number of fetches retried through a proxy
# TYPE ldforge_loader_proxy_fallbacks_total counter
ldforge_loader_proxy_fallbacks_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ldforge_loader_proxy_fallbacks_total"))
}

func TestLoadersShareMetrics(t *testing.T) {
	origin := serve(t, http.StatusInternalServerError, "boom")
	proxy := serve(t, http.StatusOK, contextDoc)

	reg := prometheus.NewRegistry()
	for range 2 {
		l := loader.New(
			loader.WithProxies(proxy.URL+"/?url={url}"),
			loader.WithMetrics(reg),
		)
		_, err := l.Load(context.Background(), origin.URL+"/context.jsonld")
		require.NoError(t, err)
	}

	expected := `
# HELP ldforge_loader_proxy_fallbacks_total Total number of fetches retried through a proxy
# TYPE ldforge_loader_proxy_fallbacks_total counter
ldforge_loader_proxy_fallbacks_total 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "ldforge_loader_proxy_fallbacks_total"))
}

func TestLoadProxyAppend(t *testing.T) {
	origin := serve(t, http.StatusNotFound, "")

	var requested string
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/ld+json")
		_, _ = w.Write([]byte(contextDoc))
	}))
	t.Cleanup(proxy.Close)

	ref := origin.URL + "/context.jsonld?v=1"
	_, err := loader.New(loader.WithProxies(proxy.URL+"/raw?")).Load(context.Background(), ref)
	require.NoError(t, err)

	assert.Equal(t, url.QueryEscape(ref), requested)
}

func TestLoadAllAttemptsFail(t *testing.T) {
	origin := serve(t, http.StatusInternalServerError, "")
	proxyA := serve(t, http.StatusBadGateway, "")
	proxyB := serve(t, http.StatusBadGateway, "")

	l := loader.New(loader.WithProxies(proxyA.URL+"/?u={url}", proxyB.URL+"/?u={url}"))

	ref := origin.URL + "/context.jsonld"
	_, err := l.Load(context.Background(), ref)
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, ref)
	assert.Contains(t, msg, proxyA.URL)
	assert.Contains(t, msg, proxyB.URL)
}

func TestLoadUnsupportedScheme(t *testing.T) {
	_, err := loader.New().Load(context.Background(), "ftp://example.com/context.jsonld")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported URL scheme "ftp"`)
}

func TestLoadCancelled(t *testing.T) {
	srv := serve(t, http.StatusOK, contextDoc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.New().Load(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExpandWithFailingContext(t *testing.T) {
	origin := serve(t, http.StatusInternalServerError, "")
	ref := origin.URL + "/missing.jsonld"

	l := loader.New()
	p := ldforge.NewProcessor(ldforge.WithResolver(
		ldforge.NewResolver(registry.NewMemory(), ldforge.WithLoader(l.Load)),
	))

	res := ldforge.Run(func() ([]ldforge.Node, error) {
		return p.Expand(context.Background(), json.RawMessage(`{"@context": "`+ref+`", "name": "Ann"}`), "")
	})

	require.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, "ContextResolutionError", res.Error.Kind)
	assert.Equal(t, ref, res.Error.Ref)
	assert.Contains(t, res.Error.Message, ref)
}
