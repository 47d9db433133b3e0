package ldforge

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/ns"
)

// termState tracks the definition state of a term during context processing.
type termState uint8

const (
	termUndefined termState = iota // Term not yet processed
	termDefining                   // Term is being defined (for cycle detection)
	termDefined                    // Term definition is complete
)

// Term represents a term definition in a JSON-LD context.
//
// A Term with an empty IRI is explicitly mapped to null. Properties using
// it are dropped during expansion.
type Term struct {
	IRI     string
	Prefix  bool
	Reverse bool

	Container []string
	// Language is the empty string when unset, and KeywordNull when the
	// term removes the default language.
	Language string
	// Type is KeywordID, KeywordVocab, KeywordNone, KeywordJSON or a
	// datatype IRI.
	Type string
}

// HasContainer returns if the term has the container mapping c.
func (t Term) HasContainer(c string) bool {
	return slices.Contains(t.Container, c)
}

// IsZero returns if the term is mapped to null.
func (t Term) IsZero() bool {
	return t.IRI == "" && !t.Prefix && !t.Reverse &&
		t.Container == nil && t.Language == "" && t.Type == ""
}

// generic returns if the term carries no coercion or container that would
// change how a value is interpreted.
func (t Term) generic() bool {
	return !t.Reverse && t.Type == "" && t.Language == "" &&
		(len(t.Container) == 0 || (len(t.Container) == 1 && t.HasContainer(KeywordSet)))
}

// defineScope holds the context object currently being processed so that
// terms can refer to each other regardless of the order they're defined in.
type defineScope struct {
	local   *json.Object
	defined map[string]termState
}

// pending returns if name is defined in the local context but has not
// been created yet.
func (s *defineScope) pending(name string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.local.Get(name); !ok {
		return false
	}
	return s.defined[name] != termDefined
}

var termKeys = map[string]struct{}{
	KeywordID:        {},
	KeywordReverse:   {},
	KeywordType:      {},
	KeywordContainer: {},
	KeywordLanguage:  {},
	KeywordPrefix:    {},
	KeywordProtected: {},
	KeywordContext:   {},
	KeywordIndex:     {},
	KeywordNest:      {},
	KeywordDirection: {},
}

func (p *Processor) createTerm(
	active *Context,
	scope *defineScope,
	term string,
) error {
	// 1)
	switch scope.defined[term] {
	case termDefined:
		return nil
	case termDefining:
		return invalidContext("cyclic IRI mapping for term %q", term)
	}

	// 2)
	if term == "" {
		return invalidContext("term definitions cannot use the empty string")
	}
	scope.defined[term] = termDefining
	defer func() { scope.defined[term] = termDefined }()

	// 3)
	value, _ := scope.local.Get(term)

	// 4)
	if term == KeywordType {
		obj, ok := value.(*json.Object)
		if !ok {
			return invalidContext("@type can only be redefined with an @container of @set")
		}
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			switch {
			case k == KeywordContainer && v == KeywordSet:
			case k == KeywordProtected:
			default:
				return invalidContext("@type can only be redefined with an @container of @set")
			}
		}
		active.define(term, Term{Container: []string{KeywordSet}})
		return nil
	}

	// 5)
	if isKeyword(term) {
		return invalidContext("keyword %s cannot be redefined", term)
	}

	if looksLikeKeyword(term) {
		p.logger.Warn("keyword lookalike term encountered", slog.String("term", term))
		return nil
	}

	// 6)
	delete(active.defs, term)

	// 7)
	if value == nil {
		active.define(term, Term{})
		return nil
	}

	var (
		obj    *json.Object
		simple bool
	)
	switch v := value.(type) {
	case string:
		simple = true
		obj = json.NewObject()
		obj.Set(KeywordID, v)
	case *json.Object:
		obj = v
	default:
		return invalidContext("invalid term definition for %q", term)
	}

	for _, k := range obj.Keys() {
		if _, ok := termKeys[k]; !ok {
			return invalidContext("invalid key %q in term definition for %q", k, term)
		}
		switch k {
		case KeywordContext, KeywordIndex, KeywordNest, KeywordDirection:
			p.logger.Warn("unsupported term definition key ignored",
				slog.String("term", term), slog.String("key", k))
		}
	}

	def := Term{}

	// 12)
	if v, ok := obj.Get(KeywordType); ok {
		s, ok := v.(string)
		if !ok {
			return invalidContext("invalid type mapping for term %q", term)
		}

		u, err := p.expandDatatype(active, s, scope)
		if err != nil {
			return err
		}

		switch u {
		case KeywordID, KeywordVocab, KeywordNone, KeywordJSON:
		default:
			if !iri.IsAbsolute(u) {
				return unresolvable(active, s)
			}
		}

		def.Type = u
	}

	idValue, hasID := obj.Get(KeywordID)

	// 13)
	if v, ok := obj.Get(KeywordReverse); ok {
		// 13.1)
		if hasID {
			return invalidContext("term %q cannot have both @id and @reverse", term)
		}

		s, ok := v.(string)
		if !ok {
			return invalidContext("invalid @reverse value for term %q", term)
		}

		// 13.3)
		if looksLikeKeyword(s) {
			p.logger.Warn("keyword lookalike value encountered",
				slog.String("value", s))
			return nil
		}

		// 13.4)
		u, err := p.expandIRI(active, s, false, true, scope)
		if err != nil {
			return err
		}

		if !iri.IsAbsolute(u) && !iri.IsBlank(u) {
			return unresolvable(active, s)
		}

		def.IRI = u
		def.Reverse = true
	} else {
		switch {
		case hasID && idValue == nil:
			// 14.1) explicitly null
			active.define(term, Term{})
			return nil

		case hasID && idValue != term:
			s, ok := idValue.(string)
			if !ok {
				return invalidContext("invalid @id value for term %q", term)
			}

			// 14.2.2)
			if !isKeyword(s) && looksLikeKeyword(s) {
				p.logger.Warn("keyword lookalike value encountered",
					slog.String("value", s))
				return nil
			}

			// 14.2.3)
			u, err := p.expandIRI(active, s, false, true, scope)
			if err != nil {
				return err
			}

			if !isKeyword(u) && !iri.IsAbsolute(u) && !iri.IsBlank(u) {
				return unresolvable(active, s)
			}

			if u == KeywordContext {
				return invalidContext("@context cannot be aliased")
			}

			def.IRI = u

			// 14.2.5)
			if !strings.ContainsAny(term, ":/") && simple &&
				(iri.EndsInGenDelim(u) || u == BlankNode) {
				if v, ok := p.remapPrefixIRIs[u]; ok {
					def.IRI = v
				}
				def.Prefix = true
			}

		case strings.Contains(term, ":"):
			// 15)
			scope.defined[term] = termDefined
			u, err := p.expandIRI(active, term, false, true, scope)
			if err != nil {
				return err
			}
			def.IRI = u

		case active.vocab != "":
			// 16)
			def.IRI = active.vocab + term

		default:
			return &Error{
				Kind:    ErrUnresolvableTerm,
				Ref:     term,
				Message: fmt.Sprintf("term %q has no @id mapping and no @vocab is set", term),
				Hints: []string{
					"add an @id to the term definition",
					"or set @vocab in the context",
				},
			}
		}
	}

	// 19)
	if v, ok := obj.Get(KeywordContainer); ok {
		containers, err := containerValues(v)
		if err != nil {
			return invalidContext("invalid container mapping for term %q", term)
		}

		for _, c := range containers {
			switch c {
			case KeywordList, KeywordSet, KeywordLanguage, KeywordIndex:
				def.Container = append(def.Container, c)
			default:
				p.logger.Warn("unsupported container mapping ignored",
					slog.String("term", term), slog.String("container", c))
			}
		}

		if def.HasContainer(KeywordList) && len(def.Container) > 1 {
			return invalidContext("@list containers cannot be combined for term %q", term)
		}

		if def.Reverse {
			for _, c := range def.Container {
				if c != KeywordSet && c != KeywordIndex {
					return invalidContext("reverse term %q can only use @set or @index containers", term)
				}
			}
		}
	}

	// 22)
	if v, ok := obj.Get(KeywordLanguage); ok && !def.Reverse {
		switch l := v.(type) {
		case nil:
			def.Language = KeywordNull
		case string:
			def.Language = strings.ToLower(l)
		default:
			return invalidContext("invalid language mapping for term %q", term)
		}
	}

	// 25)
	if v, ok := obj.Get(KeywordPrefix); ok {
		b, ok := v.(bool)
		if !ok {
			return invalidContext("invalid @prefix value for term %q", term)
		}
		if strings.ContainsAny(term, ":/") {
			return invalidContext("term %q cannot be used as a prefix", term)
		}
		def.Prefix = b
	}

	active.define(term, def)
	return nil
}

func containerValues(v any) ([]string, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []string{c}, nil
	case []any:
		res := make([]string, 0, len(c))
		for _, elem := range c {
			s, ok := elem.(string)
			if !ok {
				return nil, invalidContext("container mappings must be strings")
			}
			res = append(res, s)
		}
		return res, nil
	default:
		return nil, invalidContext("container mappings must be strings")
	}
}

// expandDatatype expands a value in a datatype position. A compact IRI
// whose prefix isn't defined falls back to the well-known namespaces.
func (p *Processor) expandDatatype(active *Context, value string, scope *defineScope) (string, error) {
	if prefix, local, found := strings.Cut(value, ":"); found && prefix != "_" && iri.IsCompactCandidate(value) {
		if _, defined := active.defs[prefix]; !defined && !scope.pending(prefix) {
			if nsIRI, ok := ns.Default().Lookup(prefix); ok {
				return nsIRI + local, nil
			}
		}
	}

	return p.expandIRI(active, value, false, true, scope)
}
