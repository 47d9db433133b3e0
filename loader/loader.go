// Package loader fetches remote JSON-LD context documents over HTTP, with
// fallback to a list of proxy endpoints.
//
// Use [Loader.Load] as the loader of a resolver:
//
//	l := loader.New(loader.WithProxies("https://proxy.example/?url={url}"))
//	r := ldforge.NewResolver(store, ldforge.WithLoader(l.Load))
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/piprate/json-gold/ld"
	"github.com/prometheus/client_golang/prometheus"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
)

// Option configures a [Loader].
type Option func(*Loader)

// WithHTTPClient sets the HTTP client used for every attempt.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		l.client = c
	}
}

// WithProxies sets the proxy endpoints to try, in order, after a direct
// fetch failed.
//
// An endpoint containing {url} gets the escaped URL substituted there.
// Otherwise the escaped URL is appended to it.
func WithProxies(endpoints ...string) Option {
	return func(l *Loader) {
		l.proxies = append(l.proxies, endpoints...)
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = log
	}
}

// WithMetrics registers the loader's counters on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(l *Loader) {
		l.reg = reg
	}
}

// Loader loads documents over HTTP(S).
type Loader struct {
	client  *http.Client
	proxies []string
	logger  *slog.Logger
	reg     prometheus.Registerer
	metrics *metrics
}

// New creates a loader. Without options it fetches directly using
// [http.DefaultClient] and has no proxies.
func New(opts ...Option) *Loader {
	l := &Loader{
		client: http.DefaultClient,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(l)
	}

	l.metrics = newMetrics(l.reg, l.logger)
	return l
}

// Load fetches ref, first directly and then through each proxy. The first
// successful attempt wins. If all attempts fail the returned error joins
// the error of every attempt.
func (l *Loader) Load(ctx context.Context, ref string) (ldforge.RemoteDocument, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return ldforge.RemoteDocument{}, fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ldforge.RemoteDocument{}, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	targets := append([]string{ref}, l.proxyURLs(ref)...)

	var errs []error
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		if i > 0 {
			l.metrics.fallbacks.Inc()
			l.logger.Debug("retrying through proxy",
				slog.String("url", ref), slog.String("proxy", target))
		}

		doc, err := l.fetch(ctx, target)
		if err != nil {
			l.metrics.attempts.WithLabelValues("failure").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", target, err))
			continue
		}
		l.metrics.attempts.WithLabelValues("success").Inc()

		// Proxies serve the document under their own URL, relative
		// references still resolve against the original one.
		if i > 0 || doc.URL == "" {
			doc.URL = ref
		}
		return doc, nil
	}

	return ldforge.RemoteDocument{}, errors.Join(errs...)
}

func (l *Loader) proxyURLs(ref string) []string {
	res := make([]string, 0, len(l.proxies))
	escaped := url.QueryEscape(ref)
	for _, p := range l.proxies {
		if strings.Contains(p, "{url}") {
			res = append(res, strings.ReplaceAll(p, "{url}", escaped))
		} else {
			res = append(res, p+escaped)
		}
	}
	return res
}

func (l *Loader) fetch(ctx context.Context, target string) (ldforge.RemoteDocument, error) {
	client := *l.client
	client.Transport = contextTransport{ctx: ctx, next: transport(l.client)}

	rd, err := ld.NewDefaultDocumentLoader(&client).LoadDocument(target)
	if err != nil {
		return ldforge.RemoteDocument{}, err
	}

	raw, err := json.Marshal(rd.Document)
	if err != nil {
		return ldforge.RemoteDocument{}, err
	}

	return ldforge.RemoteDocument{
		URL:        rd.DocumentURL,
		ContextURL: rd.ContextURL,
		Document:   raw,
	}, nil
}

func transport(c *http.Client) http.RoundTripper {
	if c.Transport != nil {
		return c.Transport
	}
	return http.DefaultTransport
}

// contextTransport attaches ctx to every request, so cancelling ctx aborts
// the fetch.
type contextTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.next.RoundTrip(req.WithContext(t.ctx))
}

type metrics struct {
	attempts  *prometheus.CounterVec
	fallbacks prometheus.Counter
}

func newMetrics(reg prometheus.Registerer, logger *slog.Logger) *metrics {
	m := &metrics{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldforge",
			Subsystem: "loader",
			Name:      "attempts_total",
			Help:      "Total number of fetch attempts by outcome",
		}, []string{"outcome"}),
		fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ldforge",
			Subsystem: "loader",
			Name:      "proxy_fallbacks_total",
			Help:      "Total number of fetches retried through a proxy",
		}),
	}

	if reg == nil {
		return m
	}

	m.attempts = register(reg, logger, m.attempts)
	m.fallbacks = register(reg, logger, m.fallbacks)
	return m
}

// register adds c to reg. If an identical collector is already registered
// it is reused instead, so loaders sharing a registry share their counters.
func register[C prometheus.Collector](reg prometheus.Registerer, logger *slog.Logger, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		logger.Warn("failed to register metric", slog.Any("error", err))
	}
	return c
}
