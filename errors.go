package ldforge

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/ns"
)

// Error kinds. Every error returned by this module wraps exactly one of
// them so callers can switch on the kind with [errors.Is].
var (
	ErrContextResolution = errors.New("context resolution failed")
	ErrContextNotFound   = errors.New("context not found")
	ErrUnresolvableTerm  = errors.New("unresolvable term")
	ErrRDFConversion     = errors.New("rdf conversion failed")
	ErrSHACLSyntax       = errors.New("invalid shapes graph")
	ErrInvalidContext    = errors.New("invalid context")
	ErrInvalidDocument   = errors.New("invalid document")
)

// Error carries the kind of failure, the reference that caused it and
// zero or more human readable hints on how to fix the input.
type Error struct {
	Kind    error
	Ref     string
	Message string
	Hints   []string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the error's kind. A missing registry entry is also a context
// resolution failure.
func (e *Error) Is(target error) bool {
	if target == e.Kind {
		return true
	}
	return e.Kind == ErrContextNotFound && target == ErrContextResolution
}

// KindName returns the stable name of the kind of err as used in result
// envelopes.
func KindName(err error) string {
	switch {
	case errors.Is(err, ErrContextNotFound):
		return "ContextNotFound"
	case errors.Is(err, ErrContextResolution):
		return "ContextResolutionError"
	case errors.Is(err, ErrUnresolvableTerm):
		return "UnresolvableTerm"
	case errors.Is(err, ErrRDFConversion):
		return "RdfConversionError"
	case errors.Is(err, ErrSHACLSyntax):
		return "ShaclSyntaxError"
	case errors.Is(err, ErrInvalidContext):
		return "InvalidContext"
	case errors.Is(err, ErrInvalidDocument):
		return "InvalidDocument"
	default:
		return "InternalError"
	}
}

// Hints returns the hints attached to err, if any.
func Hints(err error) []string {
	var e *Error
	if errors.As(err, &e) {
		return e.Hints
	}
	return nil
}

func invalidContext(format string, args ...any) error {
	return &Error{Kind: ErrInvalidContext, Message: fmt.Sprintf(format, args...)}
}

func invalidDocument(format string, args ...any) error {
	return &Error{Kind: ErrInvalidDocument, Message: fmt.Sprintf(format, args...)}
}

func unresolvable(active *Context, token string) error {
	return &Error{
		Kind:    ErrUnresolvableTerm,
		Ref:     token,
		Message: fmt.Sprintf("term %q has no IRI mapping", token),
		Hints:   diagnoseTerm(active, token),
	}
}

func diagnoseTerm(active *Context, token string) []string {
	var hints []string

	if prefix, _, found := strings.Cut(token, ":"); found && iri.IsCompactCandidate(token) {
		hints = append(hints, fmt.Sprintf("prefix %q is not defined in the active context", prefix))
		if nsIRI, ok := ns.Default().Lookup(prefix); ok {
			hints = append(hints, fmt.Sprintf("add \"%s\": \"%s\" to your @context", prefix, nsIRI))
		}
		return hints
	}

	if active == nil || active.vocab == "" {
		hints = append(hints, "no @vocab is set in the active context")
	}

	hints = append(hints, fmt.Sprintf("term %q is not defined in the active context", token))

	if active != nil {
		lower := strings.ToLower(token)
		var similar []string
		for name := range active.defs {
			if name != token && strings.ToLower(name) == lower {
				similar = append(similar, name)
			}
		}
		slices.Sort(similar)
		for _, s := range similar {
			hints = append(hints, fmt.Sprintf("did you mean %q?", s))
		}
	}

	return hints
}

// schemes that are accepted in IRIs without further checks.
var knownSchemes = map[string]struct{}{
	"about": {}, "ark": {}, "at": {}, "data": {}, "did": {}, "dns": {},
	"doi": {}, "file": {}, "ftp": {}, "geo": {}, "git": {}, "http": {},
	"https": {}, "info": {}, "ipfs": {}, "ipns": {}, "magnet": {},
	"mailto": {}, "news": {}, "ni": {}, "sip": {}, "ssh": {}, "tag": {},
	"tel": {}, "urn": {}, "uuid": {}, "ws": {}, "wss": {}, "xmpp": {},
}

var reservedSchemes = map[string]struct{}{
	"javascript": {}, "vbscript": {},
}

// DiagnoseIRI checks whether value can be used as an IRI in an RDF
// statement. It returns nil when the value is acceptable, and a list of
// hints describing the problem otherwise.
func DiagnoseIRI(value string) []string {
	if iri.IsBlank(value) {
		return nil
	}

	var hints []string
	if c, ok := iri.InvalidChar(value); ok {
		if c == ' ' {
			hints = append(hints, "IRIs cannot contain spaces")
		} else {
			hints = append(hints, fmt.Sprintf("IRIs cannot contain the character %q", c))
		}
	}

	scheme := iri.Scheme(value)
	switch {
	case scheme == "":
		hints = append(hints, fmt.Sprintf("%q is a relative IRI, set @base or use an absolute IRI", value))
	case isReserved(scheme):
		hints = append(hints, fmt.Sprintf("the %q URI scheme is not allowed in linked data", scheme))
	case !isKnownScheme(scheme) && iri.IsCompactCandidate(value):
		hints = append(hints, fmt.Sprintf("prefix %q is not defined in the active context", scheme))
		if nsIRI, ok := ns.Default().Lookup(scheme); ok {
			hints = append(hints, fmt.Sprintf("add \"%s\": \"%s\" to your @context", scheme, nsIRI))
		}
	}

	return hints
}

func isKnownScheme(s string) bool {
	_, ok := knownSchemes[s]
	return ok
}

func isReserved(s string) bool {
	_, ok := reservedSchemes[s]
	return ok
}
