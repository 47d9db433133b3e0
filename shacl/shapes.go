// Package shacl implements a small subset of SHACL: node shapes targeting a
// class, with property shapes checking cardinality, datatype, node kind,
// string patterns, string lengths and enumerations.
package shacl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/ns"
	"sourcery.dny.nu/ldforge/rdf"
)

// Severity of a validation result.
type Severity string

const (
	Violation Severity = "Violation"
	Warning   Severity = "Warning"
	Info      Severity = "Info"
)

// Node kinds accepted by sh:nodeKind.
const (
	KindIRI                = ns.SH + "IRI"
	KindBlankNode          = ns.SH + "BlankNode"
	KindLiteral            = ns.SH + "Literal"
	KindBlankNodeOrIRI     = ns.SH + "BlankNodeOrIRI"
	KindBlankNodeOrLiteral = ns.SH + "BlankNodeOrLiteral"
	KindIRIOrLiteral       = ns.SH + "IRIOrLiteral"
)

// ShapesGraph holds the node shapes of a shapes graph.
type ShapesGraph struct {
	Shapes []NodeShape
}

// NodeShape targets all instances of its target classes.
type NodeShape struct {
	ID          string
	TargetClass []string
	Severity    Severity
	Properties  []PropertyShape
}

// PropertyShape constrains the values of a single predicate. Unset
// numeric constraints are nil.
type PropertyShape struct {
	ID        string
	Path      string
	MinCount  *int
	MaxCount  *int
	Datatype  string
	NodeKind  string
	Pattern   *regexp.Regexp
	MinLength *int
	MaxLength *int
	In        []rdf.Term
	Message   string
	Severity  Severity
}

func syntaxError(format string, args ...any) error {
	return &ldforge.Error{
		Kind:    ldforge.ErrSHACLSyntax,
		Message: fmt.Sprintf(format, args...),
	}
}

// Parse reads a shapes graph from Turtle.
func Parse(turtle string) (*ShapesGraph, error) {
	quads, err := rdf.ParseTurtle(turtle)
	if err != nil {
		return nil, &ldforge.Error{
			Kind:    ldforge.ErrSHACLSyntax,
			Message: "failed to parse shapes graph",
			Err:     err,
		}
	}

	g := newGraph(quads)
	res := &ShapesGraph{}

	for _, s := range g.subjects {
		if !g.isNodeShape(s) {
			continue
		}

		shape := NodeShape{ID: s.Value}

		for _, t := range g.objects(s, ns.SH+"targetClass") {
			if t.Kind != rdf.KindIRI {
				return nil, syntaxError("sh:targetClass of %s must be an IRI", s.Value)
			}
			shape.TargetClass = append(shape.TargetClass, t.Value)
		}

		sev, err := g.severity(s)
		if err != nil {
			return nil, err
		}
		shape.Severity = sev

		for _, p := range g.objects(s, ns.SH+"property") {
			ps, err := g.propertyShape(p)
			if err != nil {
				return nil, err
			}
			shape.Properties = append(shape.Properties, ps)
		}

		res.Shapes = append(res.Shapes, shape)
	}

	return res, nil
}

// graph indexes triples by subject and predicate, keeping the order in
// which subjects first appear.
type graph struct {
	subjects []rdf.Term
	index    map[rdf.Term]map[string][]rdf.Term
}

func newGraph(quads []rdf.Quad) *graph {
	g := &graph{index: map[rdf.Term]map[string][]rdf.Term{}}
	for _, q := range quads {
		preds, ok := g.index[q.Subject]
		if !ok {
			preds = map[string][]rdf.Term{}
			g.index[q.Subject] = preds
			g.subjects = append(g.subjects, q.Subject)
		}
		preds[q.Predicate.Value] = append(preds[q.Predicate.Value], q.Object)
	}
	return g
}

func (g *graph) objects(s rdf.Term, pred string) []rdf.Term {
	return g.index[s][pred]
}

func (g *graph) one(s rdf.Term, pred string) (rdf.Term, bool) {
	objs := g.objects(s, pred)
	if len(objs) == 0 {
		return rdf.Term{}, false
	}
	return objs[0], true
}

func (g *graph) isNodeShape(s rdf.Term) bool {
	for _, t := range g.objects(s, ns.RDFType) {
		if t.Kind == rdf.KindIRI && t.Value == ns.SH+"NodeShape" {
			return true
		}
	}
	return len(g.objects(s, ns.SH+"targetClass")) > 0
}

func (g *graph) severity(s rdf.Term) (Severity, error) {
	t, ok := g.one(s, ns.SH+"severity")
	if !ok {
		return "", nil
	}
	switch t.Value {
	case ns.SH + "Violation":
		return Violation, nil
	case ns.SH + "Warning":
		return Warning, nil
	case ns.SH + "Info":
		return Info, nil
	default:
		return "", syntaxError("unknown severity %s on %s", t.Value, s.Value)
	}
}

func (g *graph) integer(s rdf.Term, pred, name string) (*int, error) {
	t, ok := g.one(s, pred)
	if !ok {
		return nil, nil
	}
	n, err := strconv.Atoi(t.Value)
	if t.Kind != rdf.KindLiteral || err != nil || n < 0 {
		return nil, syntaxError("%s of %s must be a non-negative integer, got %q", name, s.Value, t.Value)
	}
	return &n, nil
}

func (g *graph) propertyShape(s rdf.Term) (PropertyShape, error) {
	ps := PropertyShape{ID: s.Value}

	path, ok := g.one(s, ns.SH+"path")
	if !ok || path.Kind != rdf.KindIRI {
		return ps, syntaxError("property shape %s needs an IRI as sh:path", s.Value)
	}
	ps.Path = path.Value

	var err error
	if ps.MinCount, err = g.integer(s, ns.SH+"minCount", "sh:minCount"); err != nil {
		return ps, err
	}
	if ps.MaxCount, err = g.integer(s, ns.SH+"maxCount", "sh:maxCount"); err != nil {
		return ps, err
	}
	if ps.MinLength, err = g.integer(s, ns.SH+"minLength", "sh:minLength"); err != nil {
		return ps, err
	}
	if ps.MaxLength, err = g.integer(s, ns.SH+"maxLength", "sh:maxLength"); err != nil {
		return ps, err
	}

	if t, ok := g.one(s, ns.SH+"datatype"); ok {
		if t.Kind != rdf.KindIRI {
			return ps, syntaxError("sh:datatype of %s must be an IRI", s.Value)
		}
		ps.Datatype = t.Value
	}

	if t, ok := g.one(s, ns.SH+"nodeKind"); ok {
		switch t.Value {
		case KindIRI, KindBlankNode, KindLiteral,
			KindBlankNodeOrIRI, KindBlankNodeOrLiteral, KindIRIOrLiteral:
			ps.NodeKind = t.Value
		default:
			return ps, syntaxError("unknown sh:nodeKind %s on %s", t.Value, s.Value)
		}
	}

	if t, ok := g.one(s, ns.SH+"pattern"); ok {
		var flags string
		if f, ok := g.one(s, ns.SH+"flags"); ok {
			flags = f.Value
		}
		re, err := compilePattern(t.Value, flags)
		if err != nil {
			return ps, &ldforge.Error{
				Kind:    ldforge.ErrSHACLSyntax,
				Message: fmt.Sprintf("invalid sh:pattern on %s", s.Value),
				Err:     err,
			}
		}
		ps.Pattern = re
	}

	if head, ok := g.one(s, ns.SH+"in"); ok {
		values, err := g.list(head)
		if err != nil {
			return ps, err
		}
		ps.In = values
	}

	if t, ok := g.one(s, ns.SH+"message"); ok {
		ps.Message = t.Value
	}

	if ps.Severity, err = g.severity(s); err != nil {
		return ps, err
	}

	return ps, nil
}

// list walks an rdf:first/rdf:rest chain.
func (g *graph) list(head rdf.Term) ([]rdf.Term, error) {
	var res []rdf.Term
	seen := map[rdf.Term]struct{}{}

	for cur := head; !(cur.Kind == rdf.KindIRI && cur.Value == ns.RDFNil); {
		if _, ok := seen[cur]; ok {
			return nil, syntaxError("RDF list starting at %s is cyclic", head.Value)
		}
		seen[cur] = struct{}{}

		first, ok := g.one(cur, ns.RDFFirst)
		if !ok {
			return nil, syntaxError("%s is not a well-formed RDF list", cur.Value)
		}
		res = append(res, first)

		rest, ok := g.one(cur, ns.RDFRest)
		if !ok {
			return nil, syntaxError("%s is not a well-formed RDF list", cur.Value)
		}
		cur = rest
	}

	return res, nil
}

func compilePattern(pattern, flags string) (*regexp.Regexp, error) {
	var mods strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			mods.WriteRune(f)
		}
	}
	if mods.Len() > 0 {
		pattern = "(?" + mods.String() + ")" + pattern
	}
	return regexp.Compile(pattern)
}
