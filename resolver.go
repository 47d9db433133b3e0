package ldforge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"

	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/registry"
)

// ResolverOption can be used to customise the behaviour of a [Resolver].
type ResolverOption func(*Resolver)

// Resolver turns context references into context documents.
//
// References are looked up in order: the registry for URNs starting with
// [RegistryPrefix], the cache, the canned contexts and finally the loader.
// Loaded documents are cached for the lifetime of the Resolver and
// concurrent loads of the same reference share a single request.
type Resolver struct {
	mu      sync.RWMutex
	cache   map[string]RemoteDocument
	entries []registry.Entry
	index   map[string]int

	canned  map[string]json.RawMessage
	store   registry.Store
	loader  LoaderFunc
	logger  *slog.Logger
	group   singleflight.Group
	metrics *resolverMetrics
	reg     prometheus.Registerer
}

// NewResolver creates a resolver persisting registrations to store. A nil
// store keeps registrations in memory.
//
// Call [Resolver.Load] to read previously persisted registrations.
func NewResolver(store registry.Store, opts ...ResolverOption) *Resolver {
	if store == nil {
		store = registry.NewMemory()
	}

	r := &Resolver{
		cache:  make(map[string]RemoteDocument),
		index:  make(map[string]int),
		canned: cannedContexts(),
		store:  store,
		logger: slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.metrics = newResolverMetrics(r.reg, r.logger)
	return r
}

// WithLoader sets the function used to fetch contexts over the network.
func WithLoader(l LoaderFunc) ResolverOption {
	return func(r *Resolver) {
		r.loader = l
	}
}

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithCannedContext serves doc for url without a network request. It
// replaces a built-in context for the same url.
func WithCannedContext(url string, doc json.RawMessage) ResolverOption {
	return func(r *Resolver) {
		r.canned[url] = doc
	}
}

// WithMetrics registers the resolver's metrics with reg.
func WithMetrics(reg prometheus.Registerer) ResolverOption {
	return func(r *Resolver) {
		r.reg = reg
	}
}

// Load replaces the registered contexts with the ones held by the store.
func (r *Resolver) Load(ctx context.Context) error {
	entries, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load context registry: %w", err)
	}

	index := make(map[string]int, len(entries))
	kept := make([]registry.Entry, 0, len(entries))
	for _, e := range entries {
		if !strings.HasPrefix(e.URN, RegistryPrefix) || !json.IsMap(e.Document) {
			r.logger.Warn("skipping invalid registry entry", slog.String("urn", e.URN))
			continue
		}
		index[e.URN] = len(kept)
		kept = append(kept, e)
	}

	r.mu.Lock()
	r.entries = kept
	r.index = index
	r.mu.Unlock()

	r.metrics.registered.Set(float64(len(kept)))
	r.logger.Info("loaded context registry", slog.Int("entries", len(kept)))
	return nil
}

// Entries returns the registered contexts in registration order.
func (r *Resolver) Entries() []registry.Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.entries)
}

// Register stores a context under a freshly minted URN and persists the
// registry. Resolving the URN yields {"@context": localContext}.
func (r *Resolver) Register(ctx context.Context, localContext json.RawMessage) (string, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, localContext); err != nil {
		return "", invalidContext("registered context is not valid JSON: %s", err)
	}

	doc := make(json.RawMessage, 0, buf.Len()+14)
	doc = append(doc, `{"@context":`...)
	doc = append(doc, buf.Bytes()...)
	doc = append(doc, '}')

	urn := RegistryPrefix + uuid.NewString()

	r.mu.Lock()
	defer r.mu.Unlock()

	entries := append(slices.Clone(r.entries), registry.Entry{URN: urn, Document: doc})
	if err := r.store.Save(ctx, entries); err != nil {
		return "", fmt.Errorf("failed to persist context registry: %w", err)
	}

	r.entries = entries
	r.index[urn] = len(entries) - 1
	r.metrics.registered.Set(float64(len(entries)))

	r.logger.Info("registered context", slog.String("urn", urn))
	return urn, nil
}

// Resolve returns the document for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (RemoteDocument, error) {
	if strings.HasPrefix(ref, RegistryPrefix) {
		return r.registered(ref)
	}

	if doc, ok := r.cached(ref); ok {
		r.metrics.lookups.WithLabelValues("cache").Inc()
		return doc, nil
	}

	if raw, ok := r.canned[ref]; ok {
		r.metrics.lookups.WithLabelValues("canned").Inc()
		return RemoteDocument{URL: ref, Document: raw}, nil
	}

	if r.loader == nil {
		r.metrics.failures.Inc()
		return RemoteDocument{}, &Error{
			Kind:    ErrContextResolution,
			Ref:     ref,
			Message: fmt.Sprintf("cannot load context %s: no document loader configured", ref),
		}
	}

	v, err, shared := r.group.Do(ref, func() (any, error) {
		if doc, ok := r.cached(ref); ok {
			return doc, nil
		}

		r.metrics.lookups.WithLabelValues("remote").Inc()
		r.logger.Debug("loading remote context", slog.String("url", ref))

		doc, err := r.loader(ctx, ref)
		if err != nil {
			return nil, &Error{
				Kind:    ErrContextResolution,
				Ref:     ref,
				Message: fmt.Sprintf("failed to load context %s", ref),
				Err:     err,
			}
		}

		norm, err := r.normalize(ref, doc.Document)
		if err != nil {
			return nil, err
		}
		doc.Document = norm
		if doc.URL == "" {
			doc.URL = ref
		}

		r.mu.Lock()
		r.cache[ref] = doc
		r.mu.Unlock()

		return doc, nil
	})
	if err != nil {
		r.metrics.failures.Inc()
		return RemoteDocument{}, err
	}

	if shared {
		r.logger.Debug("shared in-flight context load", slog.String("url", ref))
	}

	return v.(RemoteDocument), nil
}

func (r *Resolver) cached(ref string) (RemoteDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.cache[ref]
	return doc, ok
}

func (r *Resolver) registered(urn string) (RemoteDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[urn]
	if !ok {
		r.metrics.failures.Inc()
		return RemoteDocument{}, &Error{
			Kind:    ErrContextNotFound,
			Ref:     urn,
			Message: fmt.Sprintf("context %s is not registered", urn),
		}
	}

	r.metrics.lookups.WithLabelValues("registry").Inc()
	return RemoteDocument{URL: urn, Document: r.entries[i].Document}, nil
}

// normalize makes sure a loaded document has an @context entry. Documents
// that look like a bare context object are wrapped.
func (r *Resolver) normalize(ref string, raw json.RawMessage) (json.RawMessage, error) {
	decoded, err := json.Decode(raw)
	if err != nil {
		return nil, &Error{Kind: ErrContextResolution, Ref: ref, Message: fmt.Sprintf("context %s is not valid JSON", ref), Err: err}
	}

	obj, ok := decoded.(*json.Object)
	if !ok {
		return nil, &Error{Kind: ErrContextResolution, Ref: ref, Message: fmt.Sprintf("context %s is not a JSON object", ref)}
	}

	if _, ok := obj.Get(KeywordContext); ok {
		return raw, nil
	}

	if !looksLikeContext(obj) {
		return nil, &Error{
			Kind:    ErrContextResolution,
			Ref:     ref,
			Message: fmt.Sprintf("document at %s has no @context", ref),
			Hints:   []string{"the URL must serve a JSON-LD context document"},
		}
	}

	r.logger.Debug("wrapping bare context document", slog.String("url", ref))

	wrapper := json.NewObject()
	wrapper.Set(KeywordContext, obj)
	out, err := json.Marshal(wrapper)
	if err != nil {
		return nil, errors.Join(ErrContextResolution, err)
	}
	return out, nil
}

func looksLikeContext(obj *json.Object) bool {
	if obj.Len() == 0 {
		return false
	}

	for _, k := range obj.Keys() {
		if isContextKeyword(k) {
			continue
		}
		if isKeyword(k) {
			return false
		}

		v, _ := obj.Get(k)
		switch def := v.(type) {
		case nil, string:
		case *json.Object:
			_, hasID := def.Get(KeywordID)
			_, hasType := def.Get(KeywordType)
			_, hasContainer := def.Get(KeywordContainer)
			_, hasReverse := def.Get(KeywordReverse)
			if !hasID && !hasType && !hasContainer && !hasReverse {
				return false
			}
		default:
			return false
		}
	}

	return true
}

type resolverMetrics struct {
	lookups    *prometheus.CounterVec
	failures   prometheus.Counter
	registered prometheus.Gauge
}

func newResolverMetrics(reg prometheus.Registerer, logger *slog.Logger) *resolverMetrics {
	m := &resolverMetrics{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldforge",
			Subsystem: "resolver",
			Name:      "lookups_total",
			Help:      "Total number of context lookups by source",
		}, []string{"source"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ldforge",
			Subsystem: "resolver",
			Name:      "failures_total",
			Help:      "Total number of context lookups that failed",
		}),
		registered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ldforge",
			Subsystem: "resolver",
			Name:      "registered_contexts",
			Help:      "Current number of registered contexts",
		}),
	}

	if reg == nil {
		return m
	}

	m.lookups = register(reg, logger, m.lookups)
	m.failures = register(reg, logger, m.failures)
	m.registered = register(reg, logger, m.registered)
	return m
}

// register adds c to reg. If an identical collector is already registered
// it is reused instead.
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
