package ldforge

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
)

// Expand transforms a JSON document into JSON-LD expanded document form.
//
// If the document was retrieved from a URL, pass it as the last argument.
// Otherwise an empty string.
//
// The document is walked with an explicit work list rather than recursion,
// so arbitrarily deep documents are handled without growing the stack.
// Object keys are processed in lexicographical order, which makes the
// output deterministic.
func (p *Processor) Expand(ctx context.Context, document json.RawMessage, url string) ([]Node, error) {
	baseIRI := cmp.Or(p.baseIRI, url)

	active, err := p.expansionContext(ctx, baseIRI)
	if err != nil {
		return nil, err
	}

	input, err := json.Decode(document)
	if err != nil {
		return nil, invalidDocument("document is not valid JSON: %s", err)
	}

	e := &expansion{p: p, ctx: ctx}
	var roots []slotItem
	if err := e.schedule(active, "", "", Term{}, input, &roots); err != nil {
		return nil, err
	}

	// Tasks are opened in discovery order, which may add further tasks to
	// the end of the arena. Children always sit after their parent, so
	// closing in reverse order finalises every child before its parent.
	for i := 0; i < len(e.arena); i++ {
		if err := e.open(e.arena[i]); err != nil {
			return nil, err
		}
	}

	for i := len(e.arena) - 1; i >= 0; i-- {
		if err := e.close(e.arena[i]); err != nil {
			return nil, err
		}
	}

	res := e.gather(roots)

	// 19)
	if len(res) == 1 && res[0].IsSimpleGraph() {
		res = res[0].Graph
	}

	if res == nil {
		return []Node{}, nil
	}

	return res, nil
}

func (p *Processor) expansionContext(ctx context.Context, baseIRI string) (*Context, error) {
	active := newContext(baseIRI)
	if p.expandContext == nil {
		return active, nil
	}

	local, err := json.Decode(p.expandContext)
	if err != nil {
		return nil, invalidContext("expand context is not valid JSON: %s", err)
	}

	if obj, ok := local.(*json.Object); ok {
		if inner, ok := obj.Get(KeywordContext); ok {
			local = inner
		}
	}

	return p.context(ctx, active, local, baseIRI, nil)
}

type slotKind uint8

const (
	slotProperty slotKind = iota
	slotReverse
	slotGraph
	slotList
	slotSet
)

// slotItem is a single value scheduled for a slot. It's either an already
// expanded node, or the index of the task that will produce it.
type slotItem struct {
	node  Node
	task  *expandTask
	index string
}

// slot collects the values of one key of an object.
type slot struct {
	kind   slotKind
	iri    string
	asList bool
	items  []slotItem

	// single is set when the value wasn't an array. If it then expands to
	// nothing it was null, and the key is dropped.
	single bool
}

// expandTask is a JSON object awaiting expansion.
type expandTask struct {
	active *Context
	prop   string
	iri    string
	obj    *json.Object

	node       Node
	slots      []*slot
	hasValue   bool
	valueIsNil bool
	isSet      bool

	out []Node
}

type expansion struct {
	p     *Processor
	ctx   context.Context
	arena []*expandTask
}

// schedule queues value as the value of a key. Nested arrays are flattened
// into items, objects become tasks and scalars are expanded immediately.
func (e *expansion) schedule(
	active *Context,
	prop string,
	activeIRI string,
	def Term,
	value any,
	items *[]slotItem,
) error {
	type cursor struct {
		arr []any
		i   int
	}

	stack := []cursor{{arr: []any{value}}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.i >= len(top.arr) {
			stack = stack[:len(stack)-1]
			continue
		}

		v := top.arr[top.i]
		top.i++

		switch val := v.(type) {
		case nil:
		case []any:
			stack = append(stack, cursor{arr: val})
		case *json.Object:
			t := &expandTask{active: active, prop: prop, iri: activeIRI, obj: val}
			e.arena = append(e.arena, t)
			*items = append(*items, slotItem{task: t})
		default:
			// 4.1) free-floating scalars are dropped
			if activeIRI == "" || activeIRI == KeywordGraph {
				continue
			}
			n, err := e.p.expandValue(active, def, val)
			if err != nil {
				return err
			}
			*items = append(*items, slotItem{node: n})
		}
	}

	return nil
}

type expandedKey struct {
	key string
	iri string
}

// open processes the keys of an object, scheduling nested objects as new
// tasks.
func (e *expansion) open(t *expandTask) error {
	p := e.p

	// 9)
	if raw, ok := t.obj.Get(KeywordContext); ok {
		res, err := p.context(e.ctx, t.active, raw, t.active.base, nil)
		if err != nil {
			return err
		}
		t.active = res
	}

	active := t.active
	keys := slices.Clone(t.obj.Keys())
	slices.Sort(keys)

	expanded := make([]expandedKey, 0, len(keys))
	for _, key := range keys {
		// 13.1)
		if key == KeywordContext {
			continue
		}

		// 13.2)
		u, err := p.expandIRI(active, key, false, true, nil)
		if err != nil {
			return err
		}

		// 13.3)
		if u == "" {
			continue
		}

		if !isKeyword(u) && !strings.Contains(u, ":") {
			return unresolvable(active, key)
		}

		if u == KeywordValue {
			t.hasValue = true
		}

		expanded = append(expanded, expandedKey{key: key, iri: u})
	}

	def := active.defs[t.prop]

	for _, ek := range expanded {
		value, _ := t.obj.Get(ek.key)

		var err error
		if isKeyword(ek.iri) {
			err = e.keyword(t, def, ek.iri, value)
		} else {
			err = e.property(t, ek.key, ek.iri, value)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (e *expansion) keyword(t *expandTask, def Term, kw string, value any) error {
	p := e.p
	active := t.active

	switch kw {
	case KeywordID:
		// 13.4.3)
		s, ok := value.(string)
		if !ok {
			return invalidDocument("@id value must be a string")
		}
		u, err := p.expandIRI(active, s, true, false, nil)
		if err != nil {
			return err
		}
		t.node.ID = u

	case KeywordType:
		// 13.4.4)
		var types []string
		switch v := value.(type) {
		case string:
			types = []string{v}
		case []any:
			for _, elem := range v {
				s, ok := elem.(string)
				if !ok {
					return invalidDocument("@type values must be strings")
				}
				types = append(types, s)
			}
		default:
			return invalidDocument("@type values must be strings")
		}

		res := make([]string, 0, len(types))
		for _, typ := range types {
			var (
				u   string
				err error
			)
			if t.hasValue {
				u, err = p.expandDatatype(active, typ, nil)
			} else {
				u, err = p.expandIRI(active, typ, true, true, nil)
			}
			if err != nil {
				return err
			}
			if u == "" {
				continue
			}
			res = append(res, u)
		}

		t.node.Type = append(t.node.Type, res...)

	case KeywordValue:
		// 13.4.7)
		switch v := value.(type) {
		case nil:
			t.valueIsNil = true
		case *json.Object, []any:
			return invalidDocument("@value must be a scalar")
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return invalidDocument("invalid @value: %s", err)
			}
			t.node.Value = raw
		}

	case KeywordLanguage:
		// 13.4.8)
		s, ok := value.(string)
		if !ok {
			return invalidDocument("@language value must be a string")
		}
		t.node.Language = strings.ToLower(s)

	case KeywordIndex:
		// 13.4.10)
		s, ok := value.(string)
		if !ok {
			return invalidDocument("@index value must be a string")
		}
		t.node.Index = s

	case KeywordList:
		// 13.4.11)
		if t.iri == "" || t.iri == KeywordGraph {
			return nil
		}
		s := &slot{kind: slotList}
		if err := e.schedule(active, t.prop, t.iri, def, value, &s.items); err != nil {
			return err
		}
		t.slots = append(t.slots, s)

	case KeywordSet:
		// 13.4.12)
		s := &slot{kind: slotSet}
		if err := e.schedule(active, t.prop, t.iri, def, value, &s.items); err != nil {
			return err
		}
		t.slots = append(t.slots, s)
		t.isSet = true

	case KeywordGraph:
		// 13.4.9)
		s := &slot{kind: slotGraph}
		if err := e.schedule(active, KeywordGraph, KeywordGraph, Term{}, value, &s.items); err != nil {
			return err
		}
		t.slots = append(t.slots, s)

	case KeywordReverse:
		// 13.4.13)
		obj, ok := value.(*json.Object)
		if !ok {
			return invalidDocument("@reverse value must be an object")
		}

		keys := slices.Clone(obj.Keys())
		slices.Sort(keys)
		for _, key := range keys {
			u, err := p.expandIRI(active, key, false, true, nil)
			if err != nil {
				return err
			}
			if u == "" {
				continue
			}
			if isKeyword(u) {
				return invalidDocument("@reverse cannot contain keyword %s", key)
			}

			rdef := active.defs[key]
			kind := slotReverse
			if rdef.Reverse {
				kind = slotProperty
			}

			v, _ := obj.Get(key)
			s := &slot{kind: kind, iri: u}
			if err := e.schedule(active, key, u, rdef, v, &s.items); err != nil {
				return err
			}
			t.slots = append(t.slots, s)
		}

	default:
		e.p.logger.Warn("unsupported keyword ignored during expansion")
	}

	return nil
}

func (e *expansion) property(t *expandTask, key, u string, value any) error {
	active := t.active
	def := active.defs[key]

	kind := slotProperty
	if def.Reverse {
		kind = slotReverse
	}

	s := &slot{kind: kind, iri: u, asList: def.HasContainer(KeywordList)}

	obj, isObj := value.(*json.Object)

	switch {
	case def.HasContainer(KeywordLanguage) && isObj:
		// 13.7)
		items, err := languageMap(obj)
		if err != nil {
			return err
		}
		s.items = items

	case def.HasContainer(KeywordIndex) && isObj:
		// 13.8)
		keys := slices.Clone(obj.Keys())
		slices.Sort(keys)
		for _, k := range keys {
			v, _ := obj.Get(k)
			mark := len(s.items)
			if err := e.schedule(active, key, u, def, v, &s.items); err != nil {
				return err
			}
			if k == KeywordNone {
				continue
			}
			for i := mark; i < len(s.items); i++ {
				s.items[i].index = k
			}
		}

	default:
		_, isArray := value.([]any)
		s.single = !isArray
		if err := e.schedule(active, key, u, def, value, &s.items); err != nil {
			return err
		}
	}

	t.slots = append(t.slots, s)
	return nil
}

func languageMap(obj *json.Object) ([]slotItem, error) {
	keys := slices.Clone(obj.Keys())
	slices.Sort(keys)

	var items []slotItem
	for _, lang := range keys {
		v, _ := obj.Get(lang)

		values, ok := v.([]any)
		if !ok {
			values = []any{v}
		}

		for _, elem := range values {
			if elem == nil {
				continue
			}
			s, ok := elem.(string)
			if !ok {
				return nil, invalidDocument("language map values must be strings")
			}
			raw, err := json.Marshal(s)
			if err != nil {
				return nil, err
			}
			n := Node{Value: raw}
			if lang != KeywordNone {
				n.Language = strings.ToLower(lang)
			}
			items = append(items, slotItem{node: n})
		}
	}

	return items, nil
}

// gather returns the expanded values of items in order.
func (e *expansion) gather(items []slotItem) []Node {
	var res []Node
	for _, item := range items {
		var nodes []Node
		if item.task != nil {
			nodes = item.task.out
		} else {
			nodes = []Node{item.node}
		}

		for _, n := range nodes {
			if item.index != "" && n.Index == "" {
				n.Index = item.index
			}
			res = append(res, n)
		}
	}
	return res
}

func nonNil(n []Node) []Node {
	if n == nil {
		return []Node{}
	}
	return n
}

// close assembles the result of a task once all its children are done.
func (e *expansion) close(t *expandTask) error {
	n := t.node
	var set []Node

	for _, s := range t.slots {
		nodes := e.gather(s.items)

		switch s.kind {
		case slotProperty:
			// 13.10)
			if s.single && len(nodes) == 0 {
				continue
			}
			if n.Properties == nil {
				n.Properties = make(Properties)
			}
			if s.asList {
				if len(s.items) == 1 && s.items[0].task != nil && len(nodes) == 1 && nodes[0].IsList() {
					n.Properties[s.iri] = append(n.Properties[s.iri], nodes[0])
				} else {
					n.Properties[s.iri] = append(n.Properties[s.iri], Node{List: nonNil(nodes)})
				}
				continue
			}
			n.Properties[s.iri] = append(nonNil(n.Properties[s.iri]), nodes...)

		case slotReverse:
			for _, rn := range nodes {
				if rn.IsValue() || rn.IsList() {
					return invalidDocument("reverse property %s must reference a node", s.iri)
				}
			}
			if len(nodes) == 0 {
				continue
			}
			if n.Reverse == nil {
				n.Reverse = make(Properties)
			}
			n.Reverse[s.iri] = append(n.Reverse[s.iri], nodes...)

		case slotGraph:
			n.Graph = append(nonNil(n.Graph), nodes...)

		case slotList:
			n.List = append(nonNil(n.List), nodes...)

		case slotSet:
			set = append(nonNil(set), nodes...)
		}
	}

	// 15)
	if t.hasValue {
		if n.ID != "" || n.Properties != nil || n.Graph != nil || n.List != nil || n.Reverse != nil {
			return invalidDocument("value objects can only contain @value, @type, @language and @index")
		}
		if t.valueIsNil {
			t.out = nil
			return nil
		}
		if len(n.Type) > 1 {
			return invalidDocument("value objects can only have a single @type")
		}
		if len(n.Type) == 1 && n.Language != "" {
			return invalidDocument("value objects cannot have both @type and @language")
		}
		if n.Language != "" && !json.IsString(n.Value) {
			return invalidDocument("only strings can be language-tagged")
		}
		if len(n.Type) == 1 && !iri.IsAbsolute(n.Type[0]) {
			return unresolvable(t.active, n.Type[0])
		}
		if !t.freeFloating() {
			t.out = []Node{n}
		}
		return nil
	}

	// 17)
	if t.isSet {
		if n.ID != "" || n.Properties != nil || n.Type != nil || n.Graph != nil || n.List != nil {
			return invalidDocument("@set objects can only contain @set and @index")
		}
		t.out = set
		return nil
	}

	if n.List != nil {
		if n.ID != "" || n.Properties != nil || n.Type != nil || n.Graph != nil {
			return invalidDocument("@list objects can only contain @list and @index")
		}
		if !t.freeFloating() {
			t.out = []Node{n}
		}
		return nil
	}

	// 18)
	if n.Language != "" {
		if len(n.propsWithout(KeywordLanguage)) == 0 {
			t.out = nil
			return nil
		}
		n.Language = ""
	}

	// 19)
	if t.freeFloating() {
		if len(n.propsWithout(KeywordID)) == 0 {
			t.out = nil
			return nil
		}
	}

	t.out = []Node{n}
	return nil
}

// freeFloating returns if the task's result sits at the top level of a
// document or graph.
func (t *expandTask) freeFloating() bool {
	return t.iri == "" || t.iri == KeywordGraph
}

// expandValue expands a scalar using the coercion rules of its term.
func (p *Processor) expandValue(active *Context, def Term, value any) (Node, error) {
	s, isString := value.(string)

	// 1) 2)
	switch def.Type {
	case KeywordID, KeywordVocab:
		if isString {
			u, err := p.expandIRI(active, s, true, def.Type == KeywordVocab, nil)
			if err != nil {
				return Node{}, err
			}
			return Node{ID: u}, nil
		}
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return Node{}, invalidDocument("invalid value: %s", err)
	}

	// 3)
	res := Node{Value: raw}

	// 4)
	switch def.Type {
	case "", KeywordID, KeywordVocab, KeywordNone, KeywordJSON:
	default:
		res.Type = []string{def.Type}
		return res, nil
	}

	// 5)
	if isString {
		lang := def.Language
		if lang == "" {
			lang = active.lang
		}
		if lang != KeywordNull {
			res.Language = lang
		}
	}

	return res, nil
}
