package rdf

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/ns"
)

// FromNodes converts expanded nodes to a dataset.
//
// Anonymous nodes get blank node labels of the form _:b0, _:b1 and so on.
// Lists become rdf:first/rdf:rest chains. Any subject, predicate, object or
// graph name that isn't a valid absolute IRI results in an error wrapping
// [ldforge.ErrRDFConversion]. Blank node predicates are skipped.
func FromNodes(nodes []ldforge.Node) (*Dataset, error) {
	nm := ldforge.BuildNodeMap(nodes)
	c := &converter{nm: nm, out: NewDataset()}

	for _, name := range nm.GraphNames() {
		var graph Term
		if name != ldforge.DefaultGraph {
			t, err := resource(name)
			if err != nil {
				return nil, err
			}
			graph = t
		}

		for _, n := range nm.Nodes(name) {
			if err := c.node(n, graph); err != nil {
				return nil, err
			}
		}
	}

	return c.out, nil
}

type converter struct {
	nm  *ldforge.NodeMap
	out *Dataset
}

func resource(v string) (Term, error) {
	if iri.IsBlank(v) {
		return NewBlank(v), nil
	}
	if hints := ldforge.DiagnoseIRI(v); len(hints) > 0 {
		return Term{}, &ldforge.Error{
			Kind:    ldforge.ErrRDFConversion,
			Ref:     v,
			Message: fmt.Sprintf("%q is not a valid IRI", v),
			Hints:   hints,
		}
	}
	return NewIRI(v), nil
}

func (c *converter) node(n ldforge.Node, graph Term) error {
	subject, err := resource(n.ID)
	if err != nil {
		return err
	}

	for _, t := range n.Type {
		obj, err := resource(t)
		if err != nil {
			return err
		}
		c.out.Add(Quad{Subject: subject, Predicate: NewIRI(ns.RDFType), Object: obj, Graph: graph})
	}

	for _, prop := range sortedKeys(n.Properties) {
		if iri.IsBlank(prop) {
			continue
		}
		pred, err := resource(prop)
		if err != nil {
			return err
		}

		for _, v := range n.Properties[prop] {
			obj, err := c.object(v, graph)
			if err != nil {
				return err
			}
			c.out.Add(Quad{Subject: subject, Predicate: pred, Object: obj, Graph: graph})
		}
	}

	return nil
}

// object converts a value to a term. Lists emit their chain into graph
// and return its head.
func (c *converter) object(v ldforge.Node, graph Term) (Term, error) {
	switch {
	case v.IsList():
		return c.list(v.List, graph)
	case v.IsValue():
		return literal(v)
	default:
		return resource(v.ID)
	}
}

func (c *converter) list(items []ldforge.Node, graph Term) (Term, error) {
	if len(items) == 0 {
		return NewIRI(ns.RDFNil), nil
	}

	heads := make([]Term, len(items))
	for i := range items {
		heads[i] = NewBlank(c.nm.NewBlankNode())
	}

	for i, item := range items {
		obj, err := c.object(item, graph)
		if err != nil {
			return Term{}, err
		}
		rest := NewIRI(ns.RDFNil)
		if i+1 < len(heads) {
			rest = heads[i+1]
		}
		c.out.Add(Quad{Subject: heads[i], Predicate: NewIRI(ns.RDFFirst), Object: obj, Graph: graph})
		c.out.Add(Quad{Subject: heads[i], Predicate: NewIRI(ns.RDFRest), Object: rest, Graph: graph})
	}

	return heads[0], nil
}

func literal(v ldforge.Node) (Term, error) {
	var datatype string
	if len(v.Type) > 0 {
		datatype = v.Type[0]
		if _, err := resource(datatype); err != nil {
			return Term{}, err
		}
	}

	decoded, err := json.Decode(v.Value)
	if err != nil {
		return Term{}, &ldforge.Error{
			Kind:    ldforge.ErrRDFConversion,
			Message: "invalid literal value",
			Err:     err,
		}
	}

	switch val := decoded.(type) {
	case bool:
		if datatype == "" {
			datatype = ns.XSDBoolean
		}
		return NewLiteral(strconv.FormatBool(val), datatype, ""), nil

	case json.Number:
		return number(val, datatype)

	case string:
		return NewLiteral(val, datatype, v.Language), nil

	default:
		return Term{}, &ldforge.Error{
			Kind:    ldforge.ErrRDFConversion,
			Message: "values must be strings, numbers or booleans",
		}
	}
}

// number converts a JSON number. Integral numbers become xsd:integer and
// everything else a canonical xsd:double such as 1.1E0.
func number(n json.Number, datatype string) (Term, error) {
	lex := string(n)
	integral := !strings.ContainsAny(lex, ".eE")

	f, err := strconv.ParseFloat(lex, 64)
	if err != nil {
		return Term{}, &ldforge.Error{
			Kind:    ldforge.ErrRDFConversion,
			Message: fmt.Sprintf("invalid number %s", lex),
			Err:     err,
		}
	}

	if !integral && f == math.Trunc(f) && math.Abs(f) < 1e21 {
		integral = true
		lex = strconv.FormatFloat(f, 'f', -1, 64)
	}

	if integral && datatype != ns.XSDDouble {
		if datatype == "" {
			datatype = ns.XSDInteger
		}
		return NewLiteral(lex, datatype, ""), nil
	}

	if datatype == "" {
		datatype = ns.XSDDouble
	}
	return NewLiteral(canonicalDouble(f), datatype, ""), nil
}

func canonicalDouble(f float64) string {
	s := strconv.FormatFloat(f, 'E', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
