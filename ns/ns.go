// Package ns holds the namespace IRIs of well-known vocabularies and a
// prefix table used to shorten and resolve them.
package ns

import (
	"slices"
	"strings"
)

// Vocabulary namespaces.
const (
	RDF     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS    = "http://www.w3.org/2000/01/rdf-schema#"
	XSD     = "http://www.w3.org/2001/XMLSchema#"
	OWL     = "http://www.w3.org/2002/07/owl#"
	SH      = "http://www.w3.org/ns/shacl#"
	Schema  = "https://schema.org/"
	FOAF    = "http://xmlns.com/foaf/0.1/"
	DCTerms = "http://purl.org/dc/terms/"
	DC      = "http://purl.org/dc/elements/1.1/"
	SKOS    = "http://www.w3.org/2004/02/skos/core#"
	PROV    = "http://www.w3.org/ns/prov#"
	AS      = "https://www.w3.org/ns/activitystreams#"
	Sec     = "https://w3id.org/security#"
	LDP     = "http://www.w3.org/ns/ldp#"
)

// Frequently used IRIs.
const (
	RDFType       = RDF + "type"
	RDFFirst      = RDF + "first"
	RDFRest       = RDF + "rest"
	RDFNil        = RDF + "nil"
	RDFLangString = RDF + "langString"
	RDFJSON       = RDF + "JSON"

	XSDString  = XSD + "string"
	XSDBoolean = XSD + "boolean"
	XSDInteger = XSD + "integer"
	XSDDouble  = XSD + "double"
	XSDDecimal = XSD + "decimal"
	XSDDate    = XSD + "date"
)

// Prefix binds a short name to a namespace IRI.
type Prefix struct {
	Name string
	IRI  string
}

// Table is a set of prefix bindings. The zero value is an empty table.
type Table struct {
	byName map[string]string
}

// Default returns a new table holding the well-known vocabularies.
func Default() *Table {
	return &Table{byName: map[string]string{
		"rdf":     RDF,
		"rdfs":    RDFS,
		"xsd":     XSD,
		"owl":     OWL,
		"sh":      SH,
		"schema":  Schema,
		"foaf":    FOAF,
		"dcterms": DCTerms,
		"dc":      DC,
		"skos":    SKOS,
		"prov":    PROV,
		"as":      AS,
		"sec":     Sec,
		"ldp":     LDP,
	}}
}

// With returns a copy of the table with an additional binding. An existing
// binding for name is replaced.
func (t *Table) With(name, iri string) *Table {
	out := &Table{byName: make(map[string]string, t.Len()+1)}
	if t != nil {
		for k, v := range t.byName {
			out.byName[k] = v
		}
	}
	out.byName[name] = iri
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byName)
}

// Lookup returns the namespace bound to name.
func (t *Table) Lookup(name string) (string, bool) {
	if t == nil {
		return "", false
	}
	v, ok := t.byName[name]
	return v, ok
}

// Entries returns all bindings sorted by name.
func (t *Table) Entries() []Prefix {
	if t == nil {
		return nil
	}
	res := make([]Prefix, 0, len(t.byName))
	for k, v := range t.byName {
		res = append(res, Prefix{Name: k, IRI: v})
	}
	slices.SortFunc(res, func(a, b Prefix) int { return strings.Compare(a.Name, b.Name) })
	return res
}

// Shorten splits iri into the prefix with the longest matching namespace
// and the remaining local part.
//
// Ties between namespaces of equal length are broken by prefix name.
func (t *Table) Shorten(iri string) (name string, local string, ok bool) {
	best := ""
	for _, p := range t.Entries() {
		if !strings.HasPrefix(iri, p.IRI) || len(p.IRI) <= len(best) {
			continue
		}
		best = p.IRI
		name = p.Name
	}
	if best == "" {
		return "", "", false
	}
	return name, iri[len(best):], true
}

// Expand resolves a compact IRI of the form prefix:local. It returns false
// if the prefix is not bound or the value is not a compact IRI.
func (t *Table) Expand(value string) (string, bool) {
	prefix, local, found := strings.Cut(value, ":")
	if !found || strings.HasPrefix(local, "//") {
		return "", false
	}
	ns, ok := t.Lookup(prefix)
	if !ok {
		return "", false
	}
	return ns + local, true
}
