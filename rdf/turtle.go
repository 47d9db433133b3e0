package rdf

import (
	"errors"
	"io"
	"regexp"
	"strings"

	knakk "github.com/knakk/rdf"

	"sourcery.dny.nu/ldforge/ns"
)

// ParseTurtle reads a Turtle document into quads in the default graph.
// Unlike [Parse] the whole document must be valid.
func ParseTurtle(text string) ([]Quad, error) {
	dec := knakk.NewTripleDecoder(strings.NewReader(text), knakk.Turtle)

	var res []Quad
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res = append(res, Quad{
			Subject:   fromTerm(t.Subj),
			Predicate: fromTerm(t.Pred),
			Object:    fromTerm(t.Obj),
		})
	}
}

// Turtle writes quads as Turtle. Named graphs are merged into a single
// graph.
//
// Statements are grouped by subject in order of first appearance, with
// rdf:type written as a. IRIs are shortened with prefixes and only the
// prefixes that are used get declared. A nil table uses [ns.Default].
func Turtle(quads []Quad, prefixes *ns.Table) string {
	if prefixes == nil {
		prefixes = ns.Default()
	}

	w := &turtleWriter{prefixes: prefixes, used: map[string]struct{}{}}

	type subject struct {
		term  Term
		preds []string
		objs  map[string][]Term
	}

	var (
		order    []string
		subjects = map[string]*subject{}
		seen     = map[string]struct{}{}
	)

	for _, q := range quads {
		q.Graph = Term{}
		key := q.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		sk := q.Subject.String()
		s, ok := subjects[sk]
		if !ok {
			s = &subject{term: q.Subject, objs: map[string][]Term{}}
			subjects[sk] = s
			order = append(order, sk)
		}

		pk := q.Predicate.Value
		if _, ok := s.objs[pk]; !ok {
			if pk == ns.RDFType {
				s.preds = append([]string{pk}, s.preds...)
			} else {
				s.preds = append(s.preds, pk)
			}
		}
		s.objs[pk] = append(s.objs[pk], q.Object)
	}

	var body strings.Builder
	for i, sk := range order {
		if i > 0 {
			body.WriteByte('\n')
		}
		s := subjects[sk]
		body.WriteString(w.term(s.term))
		for j, p := range s.preds {
			if j == 0 {
				body.WriteByte(' ')
			} else {
				body.WriteString(" ;\n    ")
			}
			if p == ns.RDFType {
				body.WriteString("a")
			} else {
				body.WriteString(w.term(NewIRI(p)))
			}
			for k, o := range s.objs[p] {
				if k == 0 {
					body.WriteByte(' ')
				} else {
					body.WriteString(" , ")
				}
				body.WriteString(w.term(o))
			}
		}
		body.WriteString(" .\n")
	}

	var out strings.Builder
	for _, p := range prefixes.Entries() {
		if _, ok := w.used[p.Name]; !ok {
			continue
		}
		out.WriteString("@prefix " + p.Name + ": <" + p.IRI + "> .\n")
	}
	if out.Len() > 0 && body.Len() > 0 {
		out.WriteByte('\n')
	}
	out.WriteString(body.String())

	return out.String()
}

type turtleWriter struct {
	prefixes *ns.Table
	used     map[string]struct{}
}

var (
	localName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)
	integer   = regexp.MustCompile(`^[+-]?[0-9]+$`)
)

func (w *turtleWriter) iri(v string) string {
	if name, local, ok := w.prefixes.Shorten(v); ok && (local == "" || localName.MatchString(local)) {
		w.used[name] = struct{}{}
		return name + ":" + local
	}
	return "<" + v + ">"
}

func (w *turtleWriter) term(t Term) string {
	switch t.Kind {
	case KindIRI:
		return w.iri(t.Value)
	case KindBlank:
		return t.Value
	case KindLiteral:
		lit := `"` + escape(t.Value) + `"`
		switch {
		case t.Language != "":
			return lit + "@" + t.Language
		case t.Datatype == ns.XSDString || t.Datatype == "":
			return lit
		case t.Datatype == ns.XSDInteger && integer.MatchString(t.Value):
			return t.Value
		case t.Datatype == ns.XSDBoolean && (t.Value == "true" || t.Value == "false"):
			return t.Value
		default:
			return lit + "^^" + w.iri(t.Datatype)
		}
	default:
		return ""
	}
}
