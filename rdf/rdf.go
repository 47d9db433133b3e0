// Package rdf converts expanded JSON-LD to RDF quads and back, and handles
// the textual RDF formats: N-Quads, Turtle and canonical N-Quads.
package rdf

import (
	"strings"

	"sourcery.dny.nu/ldforge/ns"
)

// Kind is the kind of an RDF term.
type Kind uint8

const (
	// KindNone is the zero value. Used for the default graph.
	KindNone Kind = iota
	KindIRI
	KindBlank
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "IRI"
	case KindBlank:
		return "BlankNode"
	case KindLiteral:
		return "Literal"
	default:
		return "DefaultGraph"
	}
}

// Term is an IRI, a blank node or a literal.
//
// Blank node values include the _: prefix. Literals always have a
// datatype. Language tagged literals have a datatype of rdf:langString.
type Term struct {
	Kind     Kind
	Value    string
	Datatype string
	Language string
}

// NewIRI returns an IRI term.
func NewIRI(v string) Term {
	return Term{Kind: KindIRI, Value: v}
}

// NewBlank returns a blank node term. The _: prefix is added when missing.
func NewBlank(label string) Term {
	if !strings.HasPrefix(label, "_:") {
		label = "_:" + label
	}
	return Term{Kind: KindBlank, Value: label}
}

// NewLiteral returns a literal term. An empty datatype results in
// xsd:string, or rdf:langString when a language is given.
func NewLiteral(lexical, datatype, language string) Term {
	language = strings.ToLower(language)
	switch {
	case language != "":
		datatype = ns.RDFLangString
	case datatype == "":
		datatype = ns.XSDString
	}
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype, Language: language}
}

// IsZero returns if this is the zero term, the default graph.
func (t Term) IsZero() bool {
	return t.Kind == KindNone
}

// String returns the N-Quads form of the term.
func (t Term) String() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return t.Value
	case KindLiteral:
		var b strings.Builder
		b.WriteByte('"')
		b.WriteString(escape(t.Value))
		b.WriteByte('"')
		switch {
		case t.Language != "":
			b.WriteByte('@')
			b.WriteString(t.Language)
		case t.Datatype != "" && t.Datatype != ns.XSDString:
			b.WriteString("^^<")
			b.WriteString(t.Datatype)
			b.WriteByte('>')
		}
		return b.String()
	default:
		return ""
	}
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func escape(s string) string {
	return escaper.Replace(s)
}

// Quad is a statement in a graph. A zero Graph is the default graph.
type Quad struct {
	Subject   Term
	Predicate Term
	Object    Term
	Graph     Term
}

// String returns the quad as a single N-Quads statement, without the
// trailing newline.
func (q Quad) String() string {
	var b strings.Builder
	b.WriteString(q.Subject.String())
	b.WriteByte(' ')
	b.WriteString(q.Predicate.String())
	b.WriteByte(' ')
	b.WriteString(q.Object.String())
	if !q.Graph.IsZero() {
		b.WriteByte(' ')
		b.WriteString(q.Graph.String())
	}
	b.WriteString(" .")
	return b.String()
}

// Dataset is an ordered set of quads.
type Dataset struct {
	quads []Quad
	seen  map[string]struct{}
}

// NewDataset returns a dataset holding quads, without duplicates.
func NewDataset(quads ...Quad) *Dataset {
	d := &Dataset{seen: make(map[string]struct{})}
	for _, q := range quads {
		d.Add(q)
	}
	return d
}

// Add adds a quad unless an identical one is already present. It returns
// if the quad was added.
func (d *Dataset) Add(q Quad) bool {
	if d.seen == nil {
		d.seen = make(map[string]struct{})
	}
	key := q.String()
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	d.quads = append(d.quads, q)
	return true
}

// Quads returns the quads in insertion order.
func (d *Dataset) Quads() []Quad {
	if d == nil {
		return nil
	}
	return d.quads
}

// Len returns the number of quads.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.quads)
}

// Match returns the quads with the given subject and predicate, in any
// graph.
func (d *Dataset) Match(subject, predicate Term) []Quad {
	var res []Quad
	for _, q := range d.Quads() {
		if q.Subject == subject && q.Predicate == predicate {
			res = append(res, q)
		}
	}
	return res
}
