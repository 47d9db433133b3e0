package ldforge

import (
	"context"

	"sourcery.dny.nu/ldforge/internal/json"
)

// Flatten expands document and collects every node into a single flat list.
// Embedded nodes are replaced by references to them and anonymous nodes get
// a blank node identifier.
//
// Without a compaction context the result is {"@graph": [...]} in expanded
// form. Otherwise it is compacted and the context is attached.
func (p *Processor) Flatten(
	ctx context.Context,
	document json.RawMessage,
	compactionContext json.RawMessage,
	documentURL string,
) (json.RawMessage, error) {
	nodes, err := p.Expand(ctx, document, documentURL)
	if err != nil {
		return nil, err
	}

	flat := BuildNodeMap(nodes).Flattened()

	if len(compactionContext) == 0 || json.IsNull(compactionContext) {
		out := json.NewObject()
		out.Set(KeywordGraph, flat)
		return json.Marshal(out)
	}

	return p.compactFlattened(ctx, compactionContext, flat, documentURL)
}

// compactFlattened compacts each node on its own and always wraps the
// result in @graph, even when there is only a single node.
func (p *Processor) compactFlattened(
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
	out.Set(c.keyword(KeywordGraph), items)

	return json.Marshal(out)
}
