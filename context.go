package ldforge

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
)

// Context represents a processed JSON-LD context.
//
// Term definitions remember the order in which they were first declared.
// A redefinition replaces the definition but keeps its position.
type Context struct {
	defs         map[string]Term
	seq          map[string]int
	next         int
	base         string
	originalBase string
	vocab        string
	lang         string
}

// newContext initialises a new context with the specified documentURL set as
// the current and original base IRI.
func newContext(documentURL string) *Context {
	return &Context{
		defs:         make(map[string]Term),
		seq:          make(map[string]int),
		base:         documentURL,
		originalBase: documentURL,
	}
}

// Terms returns an iterator over context term definitions in declaration
// order.
func (c *Context) Terms() iter.Seq2[string, Term] {
	return func(yield func(string, Term) bool) {
		for _, k := range c.termNames() {
			if !yield(k, c.defs[k]) {
				return
			}
		}
	}
}

// Term returns the definition of a term.
func (c *Context) Term(name string) (Term, bool) {
	if c == nil {
		return Term{}, false
	}
	t, ok := c.defs[name]
	return t, ok
}

// Vocab returns the vocabulary mapping.
func (c *Context) Vocab() string { return c.vocab }

// Base returns the base IRI.
func (c *Context) Base() string { return c.base }

// Language returns the default language.
func (c *Context) Language() string { return c.lang }

func (c *Context) termNames() []string {
	names := slices.Collect(maps.Keys(c.defs))
	slices.SortFunc(names, func(a, b string) int {
		return c.seq[a] - c.seq[b]
	})
	return names
}

// reserve assigns a declaration position to name if it doesn't have one.
func (c *Context) reserve(name string) {
	if _, ok := c.seq[name]; !ok {
		c.seq[name] = c.next
		c.next++
	}
}

func (c *Context) define(name string, t Term) {
	c.reserve(name)
	c.defs[name] = t
}

func (c *Context) clone() *Context {
	return &Context{
		defs:         maps.Clone(c.defs),
		seq:          maps.Clone(c.seq),
		next:         c.next,
		base:         c.base,
		originalBase: c.originalBase,
		vocab:        c.vocab,
		lang:         c.lang,
	}
}

// Context takes in JSON and parses it into a [Context].
//
// The input is the value of an @context entry: an object, a string
// referencing a remote context, null, or an array of those.
func (p *Processor) Context(ctx context.Context, localContext json.RawMessage, baseURL string) (*Context, error) {
	active := p.initialContext(baseURL)

	if len(localContext) == 0 || json.IsNull(localContext) {
		return active, nil
	}

	local, err := json.Decode(localContext)
	if err != nil {
		return nil, invalidContext("context is not valid JSON: %s", err)
	}

	return p.context(ctx, active, local, baseURL, nil)
}

func (p *Processor) initialContext(baseURL string) *Context {
	if p.baseIRI != "" {
		baseURL = p.baseIRI
	}
	return newContext(baseURL)
}

func (p *Processor) context(
	ctx context.Context,
	active *Context,
	local any,
	baseURL string,
	remotes []string,
) (*Context, error) {
	// 1)
	result := active.clone()

	// 4)
	contexts, ok := local.([]any)
	if !ok {
		contexts = []any{local}
	}

	// 5)
	for _, lctx := range contexts {
		switch v := lctx.(type) {
		case nil:
			// 5.1)
			result = newContext(active.originalBase)
		case string:
			// 5.2)
			res, err := p.remoteContext(ctx, result, v, baseURL, remotes)
			if err != nil {
				return nil, err
			}
			result = res
		case *json.Object:
			if err := p.localContext(result, v, len(remotes) > 0); err != nil {
				return nil, err
			}
		default:
			return nil, invalidContext("context entries must be objects, strings or null")
		}
	}

	return result, nil
}

func (p *Processor) remoteContext(
	ctx context.Context,
	active *Context,
	ref string,
	baseURL string,
	remotes []string,
) (*Context, error) {
	// 5.2.1)
	if iri.Scheme(ref) == "" && baseURL != "" {
		u, err := iri.Resolve(baseURL, ref)
		if err != nil {
			return nil, &Error{Kind: ErrContextResolution, Ref: ref, Message: fmt.Sprintf("invalid context reference %s", ref), Err: err}
		}
		ref = u
	}

	// 5.2.2)
	if slices.Contains(remotes, ref) {
		return nil, invalidContext("recursive inclusion of context %s", ref)
	}

	// 5.2.3)
	if len(remotes) >= RemoteContextLimit {
		return nil, &Error{
			Kind:    ErrContextResolution,
			Ref:     ref,
			Message: fmt.Sprintf("too many nested remote contexts resolving %s", ref),
		}
	}

	// 5.2.4) 5.2.5)
	doc, err := p.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	decoded, err := json.Decode(doc.Document)
	if err != nil {
		return nil, &Error{Kind: ErrContextResolution, Ref: ref, Message: fmt.Sprintf("context %s is not valid JSON", ref), Err: err}
	}

	obj, ok := decoded.(*json.Object)
	if !ok {
		return nil, &Error{Kind: ErrContextResolution, Ref: ref, Message: fmt.Sprintf("context %s is not a JSON object", ref)}
	}

	inner, _ := obj.Get(KeywordContext)

	p.logger.Debug("processing remote context", slog.String("url", ref))

	// 5.2.6)
	url := doc.URL
	if url == "" {
		url = ref
	}
	return p.context(ctx, active, inner, url, append(slices.Clone(remotes), ref))
}

// localContext merges a context object into result. Definitions in later
// objects replace earlier ones.
func (p *Processor) localContext(result *Context, obj *json.Object, remote bool) error {
	// 5.5)
	if v, ok := obj.Get(KeywordVersion); ok {
		if n, ok := v.(json.Number); !ok || n.String() != "1.1" {
			return invalidContext("invalid @version value, only 1.1 is supported")
		}
	}

	// 5.6)
	if _, ok := obj.Get(KeywordImport); ok {
		return invalidContext("@import is not supported")
	}

	// 5.7)
	if v, ok := obj.Get(KeywordBase); ok && !remote {
		switch b := v.(type) {
		case nil:
			result.base = ""
		case string:
			switch {
			case iri.IsAbsolute(b):
				result.base = b
			case result.base != "":
				u, err := iri.Resolve(result.base, b)
				if err != nil {
					return invalidContext("invalid base IRI %q", b)
				}
				result.base = u
			default:
				return invalidContext("invalid base IRI %q", b)
			}
		default:
			return invalidContext("invalid base IRI")
		}
	}

	// 5.8)
	if v, ok := obj.Get(KeywordVocab); ok {
		switch voc := v.(type) {
		case nil:
			result.vocab = ""
		case string:
			if voc == "" {
				result.vocab = result.base
				break
			}
			u, err := p.expandIRI(result, voc, true, true, nil)
			if err != nil || (!iri.IsAbsolute(u) && !iri.IsBlank(u)) {
				return invalidContext("invalid vocab mapping %q", voc)
			}
			result.vocab = u
		default:
			return invalidContext("invalid vocab mapping")
		}
	}

	// 5.9)
	if v, ok := obj.Get(KeywordLanguage); ok {
		switch l := v.(type) {
		case nil:
			result.lang = ""
		case string:
			result.lang = strings.ToLower(l)
		default:
			return invalidContext("invalid default language")
		}
	}

	if _, ok := obj.Get(KeywordDirection); ok {
		p.logger.Warn("@direction is not supported and was ignored")
	}

	// 5.12)
	scope := &defineScope{local: obj, defined: map[string]termState{}}

	for _, k := range obj.Keys() {
		if !isContextKeyword(k) {
			result.reserve(k)
		}
	}

	// 5.13)
	for _, k := range obj.Keys() {
		if isContextKeyword(k) {
			continue
		}
		if err := p.createTerm(result, scope, k); err != nil {
			return err
		}
	}

	return nil
}

func isContextKeyword(k string) bool {
	switch k {
	case KeywordBase, KeywordDirection, KeywordImport,
		KeywordLanguage, KeywordPropagate, KeywordProtected,
		KeywordVersion, KeywordVocab:
		return true
	}
	return false
}
