package ldforge

import (
	"log/slog"
	"strings"

	"sourcery.dny.nu/ldforge/internal/iri"
)

// expandIRI expands a token to an absolute IRI, a blank node identifier or a
// keyword.
//
// With vocab set the token is treated as a property or type, and a token
// that cannot be mapped is an [ErrUnresolvableTerm]. With relative set the
// token may be resolved against the base IRI.
//
// An empty result means the token must be dropped.
func (p *Processor) expandIRI(
	active *Context,
	value string,
	relative bool,
	vocab bool,
	scope *defineScope,
) (string, error) {
	// 1)
	if isKeyword(value) {
		return value, nil
	}

	// 2)
	if looksLikeKeyword(value) {
		p.logger.Warn("keyword lookalike value encountered",
			slog.String("value", value))
		return "", nil
	}

	// 3)
	if scope.pending(value) {
		if err := p.createTerm(active, scope, value); err != nil {
			return "", err
		}
	}

	// 4)
	if t, ok := active.defs[value]; ok && isKeyword(t.IRI) {
		return t.IRI, nil
	}

	// 5)
	if vocab {
		if t, ok := active.defs[value]; ok {
			return t.IRI, nil
		}
	}

	// 6)
	if iri.IsCompactCandidate(value) {
		// 6.1)
		prefix, suffix, _ := strings.Cut(value, ":")

		// 6.2)
		if prefix == "_" {
			return value, nil
		}

		// 6.3)
		if scope.pending(prefix) {
			if err := p.createTerm(active, scope, prefix); err != nil {
				return "", err
			}
		}

		// 6.4)
		if t, ok := active.defs[prefix]; ok && t.IRI != "" && t.Prefix {
			return t.IRI + suffix, nil
		}
	}

	// 6.5)
	if strings.Contains(value, ":") && iri.IsAbsolute(value) {
		return value, nil
	}

	// 7)
	if vocab && active.vocab != "" {
		return active.vocab + value, nil
	}

	// 8)
	if relative {
		if active.base == "" {
			if vocab {
				return "", unresolvable(active, value)
			}
			return value, nil
		}
		u, err := iri.Resolve(active.base, value)
		if err != nil {
			return "", invalidDocument("cannot resolve %q against %s", value, active.base)
		}
		return u, nil
	}

	if vocab {
		return "", unresolvable(active, value)
	}

	return value, nil
}
