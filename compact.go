package ldforge

import (
	"context"
	"slices"
	"strings"

	"sourcery.dny.nu/ldforge/internal/iri"
	"sourcery.dny.nu/ldforge/internal/json"
)

// Compact transforms expanded nodes into compacted document form using
// compactionContext.
//
// The compaction context may be given either as the value of @context or as
// an object wrapping it in @context. It is attached to the result as-is.
func (p *Processor) Compact(
	ctx context.Context,
	compactionContext json.RawMessage,
	nodes []Node,
	documentURL string,
) (json.RawMessage, error) {
	local, err := unwrapContext(compactionContext)
	if err != nil {
		return nil, err
	}

	active := p.initialContext(documentURL)
	if local != nil {
		active, err = p.context(ctx, active, local, active.base, nil)
		if err != nil {
			return nil, err
		}
	}

	c := newCompactor(p, active)

	items := make([]any, 0, len(nodes))
	for i := range nodes {
		items = append(items, c.node(&nodes[i]))
	}

	out := json.NewObject()
	if hasContext(local) {
		out.Set(KeywordContext, local)
	}

	switch len(items) {
	case 0:
	case 1:
		obj := items[0].(*json.Object)
		for _, k := range obj.Keys() {
			v, _ := obj.Get(k)
			out.Set(k, v)
		}
	default:
		out.Set(c.keyword(KeywordGraph), items)
	}

	return json.Marshal(out)
}

// CompactDocument expands document and compacts the result.
func (p *Processor) CompactDocument(
	ctx context.Context,
	document json.RawMessage,
	compactionContext json.RawMessage,
	documentURL string,
) (json.RawMessage, error) {
	nodes, err := p.Expand(ctx, document, documentURL)
	if err != nil {
		return nil, err
	}
	return p.Compact(ctx, compactionContext, nodes, documentURL)
}

func unwrapContext(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || json.IsNull(raw) {
		return nil, nil
	}

	local, err := json.Decode(raw)
	if err != nil {
		return nil, invalidContext("compaction context is not valid JSON: %s", err)
	}

	if obj, ok := local.(*json.Object); ok {
		if inner, ok := obj.Get(KeywordContext); ok {
			return inner, nil
		}
	}

	return local, nil
}

func hasContext(local any) bool {
	switch v := local.(type) {
	case nil:
		return false
	case *json.Object:
		return v.Len() > 0
	case []any:
		return len(v) > 0
	default:
		return true
	}
}

// compactor holds the inverse of a context: for every IRI and keyword the
// terms that map to it, in declaration order.
type compactor struct {
	p       *Processor
	active  *Context
	inverse map[string][]string
	aliases map[string][]string
}

func newCompactor(p *Processor, active *Context) *compactor {
	c := &compactor{
		p:       p,
		active:  active,
		inverse: make(map[string][]string),
		aliases: make(map[string][]string),
	}

	for name, def := range active.Terms() {
		switch {
		case def.IRI == "":
		case isKeyword(def.IRI):
			c.aliases[def.IRI] = append(c.aliases[def.IRI], name)
		default:
			c.inverse[def.IRI] = append(c.inverse[def.IRI], name)
		}
	}

	return c
}

// shorter reports whether a beats b: shorter names win, and candidates are
// visited in declaration order so earlier declarations win ties.
func shorter(a, b string) bool {
	return b == "" || len(a) < len(b)
}

// keyword returns the shortest alias of a keyword.
func (c *compactor) keyword(kw string) string {
	best := ""
	for _, name := range c.aliases[kw] {
		if shorter(name, best) {
			best = name
		}
	}
	if best == "" {
		return kw
	}
	return best
}

// iri compacts an IRI. With vocab set the result may be a term or be
// relative to the vocabulary mapping, otherwise it may be relative to the
// base IRI.
func (c *compactor) iri(value string, vocab bool) string {
	if isKeyword(value) {
		return c.keyword(value)
	}

	if iri.IsBlank(value) || slices.Contains(c.p.excludeIRIsFromCompaction, value) {
		return value
	}

	active := c.active

	if vocab {
		best := ""
		for _, name := range c.inverse[value] {
			if def := active.defs[name]; def.generic() && shorter(name, best) {
				best = name
			}
		}
		if best != "" {
			return best
		}

		if active.vocab != "" && strings.HasPrefix(value, active.vocab) {
			suffix := value[len(active.vocab):]
			if _, isTerm := active.defs[suffix]; suffix != "" && !isTerm && !strings.Contains(suffix, ":") {
				return suffix
			}
		}
	}

	best := ""
	for name, def := range active.Terms() {
		if !def.Prefix || def.IRI == "" || len(value) <= len(def.IRI) || !strings.HasPrefix(value, def.IRI) {
			continue
		}
		suffix := value[len(def.IRI):]
		if strings.HasPrefix(suffix, "//") {
			continue
		}
		candidate := name + ":" + suffix
		if t, ok := active.defs[candidate]; vocab && ok && !(t.IRI == value && t.generic()) {
			continue
		}
		if shorter(candidate, best) || (len(candidate) == len(best) && candidate < best) {
			best = candidate
		}
	}
	if best != "" {
		return best
	}

	if !vocab && c.p.compactToRelative && active.base != "" {
		if rel, err := iri.Relative(active.base, value); err == nil && rel != "" && !iri.IsCompactCandidate(rel) {
			return rel
		}
	}

	return value
}

// selectTerm picks the term to use for a value of property. It returns
// false if no term is compatible with the value.
func (c *compactor) selectTerm(property string, v *Node, reverse bool, single bool) (string, Term, bool) {
	var (
		best      string
		bestDef   Term
		bestScore int
	)

	for _, name := range c.inverse[property] {
		def := c.active.defs[name]
		if def.Reverse != reverse {
			continue
		}

		score := c.score(def, v, single)
		if score == 0 {
			continue
		}

		if score > bestScore || (score == bestScore && shorter(name, best)) {
			best, bestDef, bestScore = name, def, score
		}
	}

	return best, bestDef, bestScore > 0
}

// score rates how well a term fits a value. Zero means the value would not
// expand back to itself when written under the term, higher is better.
func (c *compactor) score(def Term, v *Node, single bool) int {
	if v == nil {
		if def.HasContainer(KeywordList) {
			return 0
		}
		if def.generic() {
			return 2
		}
		return 1
	}

	switch {
	case def.HasContainer(KeywordList):
		if !v.IsList() || !single || v.Index != "" {
			return 0
		}
		for i := range v.List {
			if v.List[i].IsList() || c.valueScore(def, &v.List[i]) == 0 {
				return 0
			}
		}
		return 3

	case v.IsList():
		if def.generic() {
			return 1
		}
		return 0

	case def.HasContainer(KeywordLanguage):
		if v.IsValue() && v.Type == nil && v.Index == "" && json.IsString(v.Value) {
			if v.Language != "" {
				return 3
			}
			return 2
		}
		return 0

	case def.HasContainer(KeywordIndex):
		return 0
	}

	return c.valueScore(def, v)
}

func (c *compactor) valueScore(def Term, v *Node) int {
	switch def.Type {
	case KeywordID, KeywordVocab:
		if v.IsSubjectReference() && v.Index == "" {
			return 3
		}
		return 1

	case "", KeywordNone:
		if def.Language != "" {
			if !v.IsValue() {
				return 1
			}
			if v.Type != nil {
				return 1
			}
			if !json.IsString(v.Value) {
				if v.Language == "" {
					return 2
				}
				return 1
			}
			if v.Language == c.expectedLanguage(def) {
				return 3
			}
			return 0
		}

		if v.IsValue() {
			if c.native(def, v) {
				return 2
			}
			return 1
		}
		if v.IsSubjectReference() {
			return 1
		}
		return 2

	default:
		if v.IsValue() && len(v.Type) == 1 && v.Type[0] == def.Type && v.Index == "" {
			return 3
		}
		return 1
	}
}

func (c *compactor) expectedLanguage(def Term) string {
	lang := def.Language
	if lang == "" {
		lang = c.active.lang
	}
	if lang == KeywordNull {
		return ""
	}
	return lang
}

// native returns if a value object can be written as a bare JSON scalar
// under def and still expand to the same value.
func (c *compactor) native(def Term, v *Node) bool {
	if v.Index != "" {
		return false
	}

	isString := json.IsString(v.Value)

	switch def.Type {
	case "", KeywordNone:
	case KeywordID, KeywordVocab:
		if isString {
			return false
		}
	default:
		return len(v.Type) == 1 && v.Type[0] == def.Type
	}

	if len(v.Type) != 0 {
		return false
	}

	if !isString {
		return v.Language == ""
	}

	return v.Language == c.expectedLanguage(def)
}

type group struct {
	def    Term
	values []any
	list   []any
	isList bool
	langs  *json.Object
}

type groups struct {
	keys []string
	byID map[string]*group
}

func (g *groups) get(key string, def Term) *group {
	if g.byID == nil {
		g.byID = make(map[string]*group)
	}
	gr, ok := g.byID[key]
	if !ok {
		gr = &group{def: def}
		g.byID[key] = gr
		g.keys = append(g.keys, key)
	}
	return gr
}

// add places a value of property into the group of the selected term.
func (c *compactor) add(gs *groups, property string, v *Node, reverse, single bool) bool {
	name, def, ok := c.selectTerm(property, v, reverse, single)
	if !ok {
		if reverse {
			return false
		}
		name, def = c.iri(property, true), Term{}
	}

	gr := gs.get(name, def)

	switch {
	case def.HasContainer(KeywordList):
		gr.isList = true
		gr.list = c.value(def, v).([]any)
	case def.HasContainer(KeywordLanguage):
		if gr.langs == nil {
			gr.langs = json.NewObject()
		}
		lang := v.Language
		if lang == "" {
			lang = KeywordNone
		}
		var vals []any
		if existing, ok := gr.langs.Get(lang); ok {
			vals = existing.([]any)
		}
		gr.langs.Set(lang, append(vals, v.Value))
	default:
		gr.values = append(gr.values, c.value(def, v))
	}

	return true
}

// node compacts a node object. Keys are emitted in lexicographical order.
func (c *compactor) node(n *Node) *json.Object {
	fields := map[string]any{}

	if n.ID != "" {
		fields[c.keyword(KeywordID)] = c.iri(n.ID, false)
	}

	if n.Type != nil {
		key := c.keyword(KeywordType)
		types := make([]any, 0, len(n.Type))
		for _, t := range n.Type {
			types = append(types, c.iri(t, true))
		}
		typeDef := c.active.defs[KeywordType]
		if len(types) == 1 && c.p.compactArrays && !typeDef.HasContainer(KeywordSet) {
			fields[key] = types[0]
		} else {
			fields[key] = types
		}
	}

	if n.Index != "" {
		fields[c.keyword(KeywordIndex)] = n.Index
	}

	if n.Graph != nil {
		items := make([]any, 0, len(n.Graph))
		for i := range n.Graph {
			items = append(items, c.node(&n.Graph[i]))
		}
		fields[c.keyword(KeywordGraph)] = items
	}

	var gs groups

	if n.Reverse != nil {
		reverse := json.NewObject()
		for _, prop := range sortedKeys(n.Reverse) {
			vals := n.Reverse[prop]
			var rest []any
			for i := range vals {
				if !c.add(&gs, prop, &vals[i], true, len(vals) == 1) {
					rest = append(rest, c.value(Term{}, &vals[i]))
				}
			}
			if len(rest) == 0 {
				continue
			}
			if len(rest) == 1 && c.p.compactArrays {
				reverse.Set(c.iri(prop, true), rest[0])
			} else {
				reverse.Set(c.iri(prop, true), rest)
			}
		}
		if reverse.Len() > 0 {
			fields[c.keyword(KeywordReverse)] = reverse
		}
	}

	for _, prop := range sortedKeys(n.Properties) {
		vals := n.Properties[prop]
		if len(vals) == 0 {
			name, _, ok := c.selectTerm(prop, nil, false, false)
			if !ok {
				name = c.iri(prop, true)
			}
			gs.get(name, Term{})
			continue
		}
		for i := range vals {
			c.add(&gs, prop, &vals[i], false, len(vals) == 1)
		}
	}

	for _, key := range gs.keys {
		gr := gs.byID[key]
		switch {
		case gr.isList:
			fields[key] = gr.list
		case gr.langs != nil:
			for _, lang := range gr.langs.Keys() {
				v, _ := gr.langs.Get(lang)
				vals := v.([]any)
				if len(vals) == 1 && c.p.compactArrays {
					gr.langs.Set(lang, vals[0])
				}
			}
			fields[key] = gr.langs
		case len(gr.values) == 1 && c.p.compactArrays && !gr.def.HasContainer(KeywordSet):
			fields[key] = gr.values[0]
		default:
			vals := gr.values
			if vals == nil {
				vals = []any{}
			}
			fields[key] = vals
		}
	}

	out := json.NewObject()
	for _, k := range sortedKeys(fields) {
		out.Set(k, fields[k])
	}
	return out
}

// value compacts a single value using the definition of the term it will be
// written under.
func (c *compactor) value(def Term, v *Node) any {
	switch {
	case v.IsList():
		itemDef := def
		itemDef.Container = nil
		items := make([]any, 0, len(v.List))
		for i := range v.List {
			items = append(items, c.value(itemDef, &v.List[i]))
		}
		if def.HasContainer(KeywordList) {
			return items
		}
		obj := json.NewObject()
		obj.Set(c.keyword(KeywordList), items)
		if v.Index != "" {
			obj.Set(c.keyword(KeywordIndex), v.Index)
		}
		return obj

	case v.IsValue():
		if c.native(def, v) {
			return v.Value
		}
		obj := json.NewObject()
		obj.Set(c.keyword(KeywordValue), v.Value)
		if len(v.Type) == 1 {
			obj.Set(c.keyword(KeywordType), c.iri(v.Type[0], true))
		}
		if v.Language != "" {
			obj.Set(c.keyword(KeywordLanguage), v.Language)
		}
		if v.Index != "" {
			obj.Set(c.keyword(KeywordIndex), v.Index)
		}
		return obj

	case v.IsSubjectReference():
		switch def.Type {
		case KeywordID:
			return c.iri(v.ID, false)
		case KeywordVocab:
			return c.iri(v.ID, true)
		}
		obj := json.NewObject()
		obj.Set(c.keyword(KeywordID), c.iri(v.ID, false))
		return obj

	default:
		return c.node(v)
	}
}
