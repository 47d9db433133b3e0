package ldforge

import (
	"slices"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
)

// DefaultGraph is the name of the default graph in a [NodeMap].
const DefaultGraph = "@default"

// NodeMap holds every node of an expanded document, indexed by graph name
// and subject. Nested node objects are replaced by references and blank
// nodes are relabelled to _:b0, _:b1 and so on in document order.
type NodeMap struct {
	graphs map[string]*nodeGraph
	issuer *Issuer
}

type nodeGraph struct {
	nodes map[string]*mapNode
}

type mapNode struct {
	node Node
	seen map[string]struct{}
}

type mapTask struct {
	node  *Node
	graph string
	id    string
}

// BuildNodeMap flattens expanded nodes into a [NodeMap].
//
// The nodes are walked with an explicit stack. Nodes that are referenced
// more than once are merged rather than revisited.
func BuildNodeMap(nodes []Node) *NodeMap {
	m := &NodeMap{
		graphs: map[string]*nodeGraph{DefaultGraph: newNodeGraph()},
		issuer: NewIssuer("_:b"),
	}

	var pending []mapTask
	for i := range nodes {
		n := &nodes[i]
		if !n.IsNode() {
			continue
		}
		id := m.assign(n)
		m.graph(DefaultGraph).get(id)
		pending = append(pending, mapTask{node: n, graph: DefaultGraph, id: id})
	}

	stack := make([]mapTask, 0, len(pending))
	for i := len(pending) - 1; i >= 0; i-- {
		stack = append(stack, pending[i])
	}

	for len(stack) > 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children := m.process(task)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}

	return m
}

func newNodeGraph() *nodeGraph {
	return &nodeGraph{nodes: make(map[string]*mapNode)}
}

func (g *nodeGraph) get(id string) *mapNode {
	rec, ok := g.nodes[id]
	if !ok {
		rec = &mapNode{node: Node{ID: id}, seen: make(map[string]struct{})}
		g.nodes[id] = rec
	}
	return rec
}

func (m *NodeMap) graph(name string) *nodeGraph {
	g, ok := m.graphs[name]
	if !ok {
		g = newNodeGraph()
		m.graphs[name] = g
	}
	return g
}

func (m *NodeMap) assign(n *Node) string {
	switch {
	case n.ID == "":
		return m.issuer.Issue("")
	case iri.IsBlank(n.ID):
		return m.issuer.Issue(n.ID)
	default:
		return n.ID
	}
}

func (m *NodeMap) relabel(s string) string {
	if iri.IsBlank(s) {
		return m.issuer.Issue(s)
	}
	return s
}

func (m *NodeMap) process(task mapTask) []mapTask {
	var children []mapTask
	g := m.graph(task.graph)
	rec := g.get(task.id)
	n := task.node

	for _, t := range n.Type {
		t = m.relabel(t)
		if !slices.Contains(rec.node.Type, t) {
			rec.node.Type = append(rec.node.Type, t)
		}
	}

	if n.Index != "" && rec.node.Index == "" {
		rec.node.Index = n.Index
	}

	for _, prop := range sortedKeys(n.Reverse) {
		for i := range n.Reverse[prop] {
			v := &n.Reverse[prop][i]
			vid := m.assign(v)
			g.get(vid).add(prop, Node{ID: task.id})
			children = append(children, mapTask{node: v, graph: task.graph, id: vid})
		}
	}

	if n.Graph != nil {
		sub := m.graph(task.id)
		for i := range n.Graph {
			el := &n.Graph[i]
			if !el.IsNode() {
				continue
			}
			eid := m.assign(el)
			sub.get(eid)
			children = append(children, mapTask{node: el, graph: task.id, id: eid})
		}
	}

	for _, prop := range sortedKeys(n.Properties) {
		vals := n.Properties[prop]
		name := m.relabel(prop)

		if _, ok := rec.node.Properties[name]; !ok {
			if rec.node.Properties == nil {
				rec.node.Properties = make(Properties)
			}
			rec.node.Properties[name] = []Node{}
		}

		for i := range vals {
			converted, kids := m.convert(&vals[i], task.graph)
			rec.add(name, converted)
			children = append(children, kids...)
		}
	}

	return children
}

// convert turns a property value into its node map form.
func (m *NodeMap) convert(v *Node, graph string) (Node, []mapTask) {
	switch {
	case v.IsValue():
		return *v, nil
	case v.IsList():
		var kids []mapTask
		out := Node{List: make([]Node, 0, len(v.List)), Index: v.Index}
		for i := range v.List {
			c, k := m.convert(&v.List[i], graph)
			out.List = append(out.List, c)
			kids = append(kids, k...)
		}
		return out, kids
	default:
		id := m.assign(v)
		m.graph(graph).get(id)
		return Node{ID: id}, []mapTask{{node: v, graph: graph, id: id}}
	}
}

// add appends a value, skipping duplicates. Lists are never deduplicated.
func (rec *mapNode) add(prop string, v Node) {
	if !v.IsList() {
		key, err := json.Marshal(&v)
		if err == nil {
			k := prop + "\x00" + string(key)
			if _, ok := rec.seen[k]; ok {
				return
			}
			rec.seen[k] = struct{}{}
		}
	}

	if rec.node.Properties == nil {
		rec.node.Properties = make(Properties)
	}
	rec.node.Properties[prop] = append(rec.node.Properties[prop], v)
}

// GraphNames returns the names of all graphs, with [DefaultGraph] first
// and the named graphs in lexicographical order.
func (m *NodeMap) GraphNames() []string {
	names := make([]string, 0, len(m.graphs))
	for name := range m.graphs {
		if name != DefaultGraph {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return append([]string{DefaultGraph}, names...)
}

// Nodes returns the nodes of a graph ordered by identifier.
func (m *NodeMap) Nodes(graph string) []Node {
	g, ok := m.graphs[graph]
	if !ok {
		return nil
	}

	ids := sortedKeys(g.nodes)
	res := make([]Node, 0, len(ids))
	for _, id := range ids {
		res = append(res, g.nodes[id].node)
	}
	return res
}

// Node returns the node with the given identifier in a graph.
func (m *NodeMap) Node(graph, id string) (Node, bool) {
	g, ok := m.graphs[graph]
	if !ok {
		return Node{}, false
	}
	rec, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return rec.node, true
}

// NewBlankNode issues a fresh blank node identifier that doesn't clash
// with any identifier in the map.
func (m *NodeMap) NewBlankNode() string {
	return m.issuer.Issue("")
}

// Flattened returns the default graph as a flat list of nodes. Named
// graphs are attached to the node carrying their name. Nodes that only
// have an identifier are left out.
func (m *NodeMap) Flattened() []Node {
	def := map[string]Node{}
	for _, n := range m.Nodes(DefaultGraph) {
		def[n.ID] = n
	}

	for _, name := range m.GraphNames()[1:] {
		entry, ok := def[name]
		if !ok {
			entry = Node{ID: name}
		}
		entry.Graph = withoutReferences(m.Nodes(name))
		def[name] = entry
	}

	res := make([]Node, 0, len(def))
	for _, id := range sortedKeys(def) {
		res = append(res, def[id])
	}
	return withoutReferences(res)
}

func withoutReferences(nodes []Node) []Node {
	res := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		if len(n.propsWithout(KeywordID)) == 0 {
			continue
		}
		res = append(res, n)
	}
	return res
}
