// Package projection derives presentational views from quads: a flat
// triple table and a node/edge graph.
package projection

import (
	"strconv"

	"sourcery.dny.nu/ldforge/ns"
	"sourcery.dny.nu/ldforge/rdf"
)

// Row is a single quad in the table view. Graph is empty for the default
// graph.
type Row struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
	Graph     string `json:"graph,omitempty"`
}

// Table renders quads as rows, in the order given. Objects use their
// N-Quads form so literals keep their datatype or language.
func Table(quads []rdf.Quad) []Row {
	rows := make([]Row, 0, len(quads))
	for _, q := range quads {
		row := Row{
			Subject:   q.Subject.Value,
			Predicate: q.Predicate.Value,
			Object:    q.Object.Value,
		}
		if q.Object.Kind == rdf.KindLiteral {
			row.Object = q.Object.String()
		}
		if !q.Graph.IsZero() {
			row.Graph = q.Graph.Value
		}
		rows = append(rows, row)
	}
	return rows
}

// NodeKind is the kind of a node in the graph view.
type NodeKind string

const (
	NodeIRI     NodeKind = "iri"
	NodeBlank   NodeKind = "blank"
	NodeLiteral NodeKind = "literal"
)

// Node is a node in the graph view.
type Node struct {
	ID    string   `json:"id"`
	Label string   `json:"label"`
	Kind  NodeKind `json:"kind"`
}

// Edge connects two nodes and is labelled with the shortened predicate.
type Edge struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	Label     string `json:"label"`
	Predicate string `json:"predicate"`
}

// Model is the graph view of a set of quads.
type Model struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Graph builds the graph view of quads.
//
// Subjects and IRI or blank node objects become one node each. Every
// literal occurrence gets its own node, keyed by subject, predicate and
// position, so equal literals of unrelated statements aren't merged. A nil
// table uses [ns.Default].
func Graph(quads []rdf.Quad, prefixes *ns.Table) Model {
	if prefixes == nil {
		prefixes = ns.Default()
	}

	m := Model{Nodes: []Node{}, Edges: []Edge{}}
	seen := map[string]struct{}{}
	occurrences := map[string]int{}

	add := func(n Node) {
		if _, ok := seen[n.ID]; ok {
			return
		}
		seen[n.ID] = struct{}{}
		m.Nodes = append(m.Nodes, n)
	}

	for _, q := range quads {
		add(resource(q.Subject, prefixes))

		var target Node
		if q.Object.Kind == rdf.KindLiteral {
			key := q.Subject.Value + " " + q.Predicate.Value
			target = Node{
				ID:    "literal:" + key + " " + strconv.Itoa(occurrences[key]),
				Label: q.Object.Value,
				Kind:  NodeLiteral,
			}
			occurrences[key]++
		} else {
			target = resource(q.Object, prefixes)
		}
		add(target)

		m.Edges = append(m.Edges, Edge{
			Source:    q.Subject.Value,
			Target:    target.ID,
			Label:     shorten(q.Predicate.Value, prefixes),
			Predicate: q.Predicate.Value,
		})
	}

	return m
}

func resource(t rdf.Term, prefixes *ns.Table) Node {
	if t.Kind == rdf.KindBlank {
		return Node{ID: t.Value, Label: t.Value, Kind: NodeBlank}
	}
	return Node{ID: t.Value, Label: shorten(t.Value, prefixes), Kind: NodeIRI}
}

func shorten(iri string, prefixes *ns.Table) string {
	if name, local, ok := prefixes.Shorten(iri); ok {
		return name + ":" + local
	}
	return iri
}
