package shacl

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"unicode/utf8"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/ns"
	"sourcery.dny.nu/ldforge/rdf"
)

// Report is the outcome of a validation run.
type Report struct {
	Conforms bool     `json:"conforms"`
	Results  []Result `json:"results"`
}

// Result describes a single failed constraint. Value is nil for
// constraints on the number of values, like sh:minCount.
type Result struct {
	FocusNode  string   `json:"focusNode"`
	Path       string   `json:"path"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Value      *string  `json:"value"`
	Constraint string   `json:"-"`
}

// Validate checks data against every node shape.
//
// Each constraint is evaluated on its own, so a value can fail more than
// one constraint of a shape. The report conforms if none of the results
// is a [Violation].
func Validate(shapes *ShapesGraph, data *rdf.Dataset) Report {
	rep := Report{Conforms: true, Results: []Result{}}
	if shapes == nil {
		return rep
	}

	typeIRI := rdf.NewIRI(ns.RDFType)

	for _, shape := range shapes.Shapes {
		for _, focus := range focusNodes(data, shape.TargetClass, typeIRI) {
			for _, ps := range shape.Properties {
				check := &checker{
					focus: focus,
					shape: ps,
					sev:   severity(ps.Severity, shape.Severity),
				}
				var values []rdf.Term
				for _, q := range data.Match(focus, rdf.NewIRI(ps.Path)) {
					values = append(values, q.Object)
				}
				check.run(values)
				rep.Results = append(rep.Results, check.results...)
			}
		}
	}

	for _, r := range rep.Results {
		if r.Severity == Violation {
			rep.Conforms = false
			break
		}
	}

	return rep
}

func severity(values ...Severity) Severity {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return Violation
}

// focusNodes returns the instances of classes in order of first
// appearance.
func focusNodes(data *rdf.Dataset, classes []string, typeIRI rdf.Term) []rdf.Term {
	var res []rdf.Term
	for _, q := range data.Quads() {
		if q.Predicate != typeIRI || q.Object.Kind != rdf.KindIRI {
			continue
		}
		if !slices.Contains(classes, q.Object.Value) || slices.Contains(res, q.Subject) {
			continue
		}
		res = append(res, q.Subject)
	}
	return res
}

type checker struct {
	focus   rdf.Term
	shape   PropertyShape
	sev     Severity
	results []Result
}

func (c *checker) fail(constraint string, value *rdf.Term, format string, args ...any) {
	msg := c.shape.Message
	if msg == "" {
		msg = fmt.Sprintf(format, args...)
	}

	r := Result{
		FocusNode:  c.focus.Value,
		Path:       c.shape.Path,
		Severity:   c.sev,
		Message:    msg,
		Constraint: constraint,
	}
	if value != nil {
		v := value.Value
		r.Value = &v
	}
	c.results = append(c.results, r)
}

func (c *checker) run(values []rdf.Term) {
	ps := c.shape

	if ps.MinCount != nil && len(values) < *ps.MinCount {
		c.fail("minCount", nil, "expected at least %d value(s), found %d", *ps.MinCount, len(values))
	}
	if ps.MaxCount != nil && len(values) > *ps.MaxCount {
		c.fail("maxCount", nil, "expected at most %d value(s), found %d", *ps.MaxCount, len(values))
	}

	for i := range values {
		v := &values[i]

		if ps.Datatype != "" && (v.Kind != rdf.KindLiteral || v.Datatype != ps.Datatype) {
			c.fail("datatype", v, "value %s does not have datatype %s", v, ps.Datatype)
		}

		if ps.NodeKind != "" && !nodeKindMatches(ps.NodeKind, v.Kind) {
			c.fail("nodeKind", v, "value %s is not of node kind %s", v, ps.NodeKind)
		}

		if ps.Pattern != nil && (v.Kind == rdf.KindBlank || !ps.Pattern.MatchString(v.Value)) {
			c.fail("pattern", v, "value %q does not match pattern %q", v.Value, ps.Pattern.String())
		}

		length := utf8.RuneCountInString(v.Value)
		if ps.MinLength != nil && (v.Kind == rdf.KindBlank || length < *ps.MinLength) {
			c.fail("minLength", v, "value %q is shorter than %d characters", v.Value, *ps.MinLength)
		}
		if ps.MaxLength != nil && (v.Kind == rdf.KindBlank || length > *ps.MaxLength) {
			c.fail("maxLength", v, "value %q is longer than %d characters", v.Value, *ps.MaxLength)
		}

		if ps.In != nil && !slices.Contains(ps.In, *v) {
			c.fail("in", v, "value %s is not one of the allowed values", v)
		}
	}
}

func nodeKindMatches(kind string, k rdf.Kind) bool {
	switch kind {
	case KindIRI:
		return k == rdf.KindIRI
	case KindBlankNode:
		return k == rdf.KindBlank
	case KindLiteral:
		return k == rdf.KindLiteral
	case KindBlankNodeOrIRI:
		return k == rdf.KindBlank || k == rdf.KindIRI
	case KindBlankNodeOrLiteral:
		return k == rdf.KindBlank || k == rdf.KindLiteral
	case KindIRIOrLiteral:
		return k == rdf.KindIRI || k == rdf.KindLiteral
	default:
		return false
	}
}

// Option configures a [Validator].
type Option func(*Validator)

// WithLogger sets the logger of a [Validator].
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = l
	}
}

// Validator validates JSON-LD documents against shapes graphs.
type Validator struct {
	p      *ldforge.Processor
	logger *slog.Logger
}

// NewValidator returns a validator that uses p to expand documents.
func NewValidator(p *ldforge.Processor, opts ...Option) *Validator {
	v := &Validator{
		p:      p,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateDocument parses shapes, converts document to RDF and validates
// it. Shapes are parsed on every call.
func (v *Validator) ValidateDocument(
	ctx context.Context,
	shapes string,
	document json.RawMessage,
	documentURL string,
) (Report, error) {
	sg, err := Parse(shapes)
	if err != nil {
		return Report{}, err
	}

	nodes, err := v.p.Expand(ctx, document, documentURL)
	if err != nil {
		return Report{}, err
	}

	data, err := rdf.FromNodes(nodes)
	if err != nil {
		return Report{}, err
	}

	rep := Validate(sg, data)
	v.logger.Debug("validated document",
		slog.Int("shapes", len(sg.Shapes)),
		slog.Int("quads", data.Len()),
		slog.Int("results", len(rep.Results)),
		slog.Bool("conforms", rep.Conforms),
	)

	return rep, nil
}
