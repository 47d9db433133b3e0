package ldforge

import (
	"slices"

	"sourcery.dny.nu/ldforge/internal/json"
)

// Properties is a key-to-array-of-[Node] map.
//
// It's used to hold any property that's not a JSON-LD keyword.
type Properties map[string][]Node

// Node represents a node in an expanded JSON-LD document.
//
// Every supported JSON-LD keyword has a field of its own. All remaining
// properties are tracked on the Properties field, keyed by absolute IRI.
//
// A nil List or Graph means the keyword is absent. An empty, non-nil slice
// is an empty list or graph.
type Node struct {
	Graph    []Node          // @graph / KeywordGraph
	ID       string          // @id / KeywordID
	Index    string          // @index / KeywordIndex
	Language string          // @language / KeywordLanguage
	List     []Node          // @list / KeywordList
	Reverse  Properties      // @reverse / KeywordReverse
	Type     []string        // @type / KeywordType
	Value    json.RawMessage // @value / KeywordValue

	Properties Properties // everything else
}

// PropertySet returns a set with an entry for each property that is set on
// the [Node].
func (n *Node) PropertySet() map[string]struct{} {
	if n == nil {
		return nil
	}

	res := make(map[string]struct{}, len(n.Properties)+2)
	for _, kw := range []string{
		KeywordGraph, KeywordID, KeywordIndex, KeywordLanguage,
		KeywordList, KeywordReverse, KeywordType, KeywordValue,
	} {
		if n.Has(kw) {
			res[kw] = struct{}{}
		}
	}

	for p := range n.Properties {
		res[p] = struct{}{}
	}

	return res
}

func (n *Node) propsWithout(props ...string) map[string]struct{} {
	nprops := n.PropertySet()
	for _, prop := range props {
		delete(nprops, prop)
	}
	return nprops
}

// Has returns if a node has the requested property.
//
// Properties must either be a JSON-LD keyword, or an expanded IRI.
func (n *Node) Has(prop string) bool {
	if n == nil {
		return false
	}

	switch prop {
	case KeywordID:
		return n.ID != ""
	case KeywordValue:
		return n.Value != nil
	case KeywordLanguage:
		return n.Language != ""
	case KeywordType:
		return n.Type != nil
	case KeywordList:
		return n.List != nil
	case KeywordGraph:
		return n.Graph != nil
	case KeywordIndex:
		return n.Index != ""
	case KeywordReverse:
		return n.Reverse != nil
	default:
		_, ok := n.Properties[prop]
		return ok
	}
}

// IsZero returns if this is the zero value of a [Node].
func (n *Node) IsZero() bool {
	if n == nil {
		return true
	}

	return len(n.PropertySet()) == 0
}

// IsNode returns if this is a node object, as opposed to a value or a list.
func (n *Node) IsNode() bool {
	if n == nil {
		return false
	}

	return !n.Has(KeywordList) && !n.Has(KeywordValue)
}

// IsSubjectReference checks if this node is a subject reference.
//
// This means:
//   - It has an @id.
//   - It has no other properties.
func (n *Node) IsSubjectReference() bool {
	if n == nil {
		return false
	}

	if !n.Has(KeywordID) {
		return false
	}

	return len(n.propsWithout(KeywordID)) == 0
}

// IsList checks if this node is a list.
//
// This means:
//   - It has an @list.
//   - It may have an @index.
//   - It has no other properties.
func (n *Node) IsList() bool {
	if n == nil {
		return false
	}

	if !n.Has(KeywordList) {
		return false
	}

	return len(n.propsWithout(KeywordList, KeywordIndex)) == 0
}

// IsValue checks if this is a value node.
//
// This means:
//   - It has an @value.
//   - It may have an @index, @language and @type.
//   - It has no other properties.
func (n *Node) IsValue() bool {
	if n == nil {
		return false
	}

	if !n.Has(KeywordValue) {
		return false
	}

	return len(n.propsWithout(
		KeywordValue,
		KeywordIndex,
		KeywordLanguage,
		KeywordType,
	)) == 0
}

// IsGraph returns if the object is a graph.
//
// This requires:
//   - It must have an @graph.
//   - It may have @id and @index.
//   - It has no other properties.
func (n *Node) IsGraph() bool {
	if n == nil {
		return false
	}

	if !n.Has(KeywordGraph) {
		return false
	}

	return len(n.propsWithout(KeywordID, KeywordIndex, KeywordGraph)) == 0
}

// IsSimpleGraph returns if the object is a simple graph.
//
// This requires:
//   - It must have an @graph.
//   - It may have @index.
//   - It has no other properties.
func (n *Node) IsSimpleGraph() bool {
	if n == nil {
		return false
	}

	if !n.Has(KeywordGraph) {
		return false
	}

	return len(n.propsWithout(KeywordIndex, KeywordGraph)) == 0
}

// MarshalJSON encodes to Expanded Document Form. Keywords come first,
// followed by the properties in lexicographical order.
func (n *Node) MarshalJSON() ([]byte, error) {
	result := json.NewObject()

	if n.Has(KeywordID) {
		result.Set(KeywordID, n.ID)
	}

	if n.Has(KeywordIndex) {
		result.Set(KeywordIndex, n.Index)
	}

	if n.Has(KeywordType) {
		if n.Value != nil && len(n.Type) == 1 {
			result.Set(KeywordType, n.Type[0])
		} else {
			result.Set(KeywordType, n.Type)
		}
	}

	if n.Has(KeywordValue) {
		result.Set(KeywordValue, n.Value)
	}

	if n.Has(KeywordLanguage) {
		result.Set(KeywordLanguage, n.Language)
	}

	if n.Has(KeywordList) {
		result.Set(KeywordList, n.List)
	}

	if n.Has(KeywordGraph) {
		result.Set(KeywordGraph, n.Graph)
	}

	if n.Has(KeywordReverse) {
		rev := json.NewObject()
		for _, k := range sortedKeys(n.Reverse) {
			rev.Set(k, n.Reverse[k])
		}
		result.Set(KeywordReverse, rev)
	}

	for _, k := range sortedKeys(n.Properties) {
		result.Set(k, n.Properties[k])
	}

	return json.Marshal(result)
}

// GetNodes returns the nodes stored in property.
func (n *Node) GetNodes(property string) []Node {
	switch property {
	case KeywordGraph:
		return n.Graph
	case KeywordList:
		return n.List
	default:
		return n.Properties[property]
	}
}

// AddNodes appends the nodes stored in property.
func (n *Node) AddNodes(property string, nodes ...Node) {
	if n.Properties == nil {
		n.Properties = make(Properties)
	}
	n.Properties[property] = append(n.Properties[property], nodes...)
}

// SetNodes overrides the nodes stored in property.
func (n *Node) SetNodes(property string, nodes ...Node) {
	if n.Properties == nil {
		n.Properties = make(Properties)
	}
	n.Properties[property] = nodes
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
