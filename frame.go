package ldforge

import (
	"context"
	"slices"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
)

// frame is the part of a JSON-LD frame that is supported: matching on
// @type and an @embed policy.
type frame struct {
	types    []string
	anyType  bool
	embed    string
	matchAll bool
}

func (f *frame) matches(n *Node) bool {
	if f.matchAll {
		return true
	}
	if f.anyType {
		return len(n.Type) > 0
	}
	for _, t := range n.Type {
		if slices.Contains(f.types, t) {
			return true
		}
	}
	return false
}

// Frame reshapes document into trees rooted at the nodes matching frame.
//
// Only @type matching and @embed are supported. The result is always an
// object with a single @graph entry in expanded form. Documents without
// matching nodes result in an empty @graph.
func (p *Processor) Frame(
	ctx context.Context,
	document json.RawMessage,
	frameDoc json.RawMessage,
	documentURL string,
) (json.RawMessage, error) {
	f, err := p.parseFrame(ctx, frameDoc, documentURL)
	if err != nil {
		return nil, err
	}

	nodes, err := p.Expand(ctx, document, documentURL)
	if err != nil {
		return nil, err
	}

	nm := BuildNodeMap(nodes)
	subjects := map[string]*Node{}
	all := nm.Nodes(DefaultGraph)
	for i := range all {
		subjects[all[i].ID] = &all[i]
	}

	fr := &framer{subjects: subjects, embed: f.embed}

	trees := []any{}
	for i := range all {
		n := &all[i]
		if len(n.propsWithout(KeywordID)) == 0 || !f.matches(n) {
			continue
		}
		fr.embedded = map[string]struct{}{n.ID: {}}
		trees = append(trees, fr.render(n, []string{n.ID}))
	}

	counts := map[string]int{}
	countBlankIDs(trees, counts)
	pruneBlankIDs(trees, counts)

	out := json.NewObject()
	out.Set(KeywordGraph, trees)
	return json.Marshal(out)
}

func (p *Processor) parseFrame(ctx context.Context, raw json.RawMessage, documentURL string) (*frame, error) {
	decoded, err := json.Decode(raw)
	if err != nil {
		return nil, invalidDocument("frame is not valid JSON: %s", err)
	}

	if arr, ok := decoded.([]any); ok {
		if len(arr) != 1 {
			return nil, invalidDocument("a frame must be a single object")
		}
		decoded = arr[0]
	}

	obj, ok := decoded.(*json.Object)
	if !ok {
		return nil, invalidDocument("a frame must be a single object")
	}

	f := &frame{embed: KeywordOnce}

	if v, ok := obj.Get(KeywordEmbed); ok {
		switch e := v.(type) {
		case bool:
			if !e {
				f.embed = KeywordNever
			}
		case string:
			switch e {
			case KeywordAlways, KeywordOnce, KeywordNever:
				f.embed = e
			default:
				return nil, invalidDocument("invalid @embed value %q", e)
			}
		default:
			return nil, invalidDocument("@embed must be a string or a boolean")
		}
	}

	active := p.initialContext(documentURL)
	if local, ok := obj.Get(KeywordContext); ok {
		active, err = p.context(ctx, active, local, active.base, nil)
		if err != nil {
			return nil, err
		}
	}

	var typeKey string
	for _, key := range obj.Keys() {
		if key == KeywordType {
			typeKey = key
			break
		}
		if def, ok := active.defs[key]; ok && def.IRI == KeywordType {
			typeKey = key
		}
	}

	if typeKey == "" {
		f.matchAll = true
		return f, nil
	}

	v, _ := obj.Get(typeKey)
	var types []any
	switch t := v.(type) {
	case string:
		types = []any{t}
	case []any:
		types = t
	case *json.Object:
		if t.Len() != 0 {
			return nil, invalidDocument("@type in a frame must be a string, an array or {}")
		}
		f.anyType = true
		return f, nil
	default:
		return nil, invalidDocument("@type in a frame must be a string, an array or {}")
	}

	if len(types) == 0 {
		f.matchAll = true
		return f, nil
	}

	for _, t := range types {
		s, ok := t.(string)
		if !ok {
			return nil, invalidDocument("@type values must be strings")
		}
		u, err := p.expandIRI(active, s, true, true, nil)
		if err != nil {
			return nil, err
		}
		f.types = append(f.types, u)
	}

	return f, nil
}

type framer struct {
	subjects map[string]*Node
	embed    string
	embedded map[string]struct{}
}

// render produces the output tree for a node. path holds the identifiers
// of the nodes being rendered above this one and is used to break cycles.
func (fr *framer) render(n *Node, path []string) *json.Object {
	out := json.NewObject()
	out.Set(KeywordID, n.ID)

	if len(n.Type) > 0 {
		out.Set(KeywordType, n.Type)
	}

	if n.Index != "" {
		out.Set(KeywordIndex, n.Index)
	}

	for _, prop := range sortedKeys(n.Properties) {
		vals := n.Properties[prop]
		items := make([]any, 0, len(vals))
		for i := range vals {
			items = append(items, fr.value(&vals[i], path))
		}
		if len(items) == 1 {
			out.Set(prop, items[0])
		} else {
			out.Set(prop, items)
		}
	}

	return out
}

func (fr *framer) value(v *Node, path []string) any {
	switch {
	case v.IsList():
		items := make([]any, 0, len(v.List))
		for i := range v.List {
			items = append(items, fr.value(&v.List[i], path))
		}
		obj := json.NewObject()
		obj.Set(KeywordList, items)
		return obj

	case v.IsSubjectReference():
		ref := json.NewObject()
		ref.Set(KeywordID, v.ID)

		target, ok := fr.subjects[v.ID]
		if !ok || len(target.propsWithout(KeywordID)) == 0 {
			return ref
		}

		switch fr.embed {
		case KeywordNever:
			return ref
		case KeywordOnce:
			if _, done := fr.embedded[v.ID]; done {
				return ref
			}
		}
		if slices.Contains(path, v.ID) {
			return ref
		}

		fr.embedded[v.ID] = struct{}{}
		return fr.render(target, append(slices.Clip(path), v.ID))

	default:
		return v
	}
}

func countBlankIDs(v any, counts map[string]int) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			countBlankIDs(e, counts)
		}
	case *json.Object:
		for _, k := range t.Keys() {
			e, _ := t.Get(k)
			if s, ok := e.(string); ok && k == KeywordID && iri.IsBlank(s) {
				counts[s]++
				continue
			}
			countBlankIDs(e, counts)
		}
	}
}

// pruneBlankIDs removes blank node identifiers that are only used once in
// the output, as they carry no information.
func pruneBlankIDs(v any, counts map[string]int) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			pruneBlankIDs(e, counts)
		}
	case *json.Object:
		if s, ok := t.Get(KeywordID); ok {
			if id, ok := s.(string); ok && counts[id] == 1 && t.Len() > 1 {
				t.Delete(KeywordID)
			}
		}
		for _, k := range t.Keys() {
			e, _ := t.Get(k)
			pruneBlankIDs(e, counts)
		}
	}
}
