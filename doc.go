// Package ldforge can be used to process JSON-LD.
//
// You can turn incoming JSON into fully expanded JSON-LD using
// [Processor.Expand]. This will transform the document into a list of [Node].
// Each node has dedicated fields for each JSON-LD keyword, and the catch-all
// [Node.Properties] for everything else. If you serialise this document to JSON
// you'll get JSON-LD Expanded Document form.
//
// By calling [Processor.Compact] you can compact a list of [Node] to what looks
// like regular JSON, based on the provided compaction context. The result is
// serialised JSON that you can send out. [Processor.Flatten] collects every
// node into a single @graph, and [Processor.Frame] reshapes a document into
// trees rooted at the nodes matching a frame.
//
// The rdf package converts expanded nodes to quads, N-Quads, Turtle and the
// canonical URDNA2015 form. The shacl package validates documents against a
// shapes graph, and the projection package derives table and graph views.
//
// # Contexts
//
// Remote contexts are resolved by a [Resolver]. It serves a set of
// well-known contexts without network access, keeps contexts registered
// with [Resolver.Register] under urn:context: URNs in a [registry.Store],
// and caches everything it fetched. By default a [Processor] cannot load
// contexts from the network. Install a [LoaderFunc] using [WithLoader] on
// the resolver to allow it. The loader package has one that fetches over
// HTTP with fallback to proxies.
//
// # Errors
//
// Errors wrap one of the Err kinds, like [ErrUnresolvableTerm], so you can
// match them with [errors.Is]. Most of them carry hints on how to fix the
// input, see [Hints]. Use [Run] to turn the outcome of an operation into a
// [Result] envelope that can be serialised as is.
//
// # JSON typing
//
// In order to provide a type-safe implementation, JSON scalars (numbers,
// strings, booleans) are not decoded and stored as [json.RawMessage] instead.
// You can use the optionally specified type to decide how to decode the value.
// When the type is unspecified, the following rules can be used:
//   - Numbers with a zero fraction and smaller than 10^21 are int64.
//   - Numbers with a decimal point or a value greater than 10^21 are float64.
//   - Booleans are booleans.
//   - Anything else is a string.
//
// Certain numbers might be encoded as strings to avoid size or precision issues
// with JSON number representation. They should have an accompanying type
// definition to explain how to interpret them.
//
// # Constraints
//
// For JSON-LD, there are a few extra constraints on top of JSON:
//   - Do not use keys that look like a JSON-LD keyword: @+alpha characters.
//   - Do not use the empty string for a key.
//   - Keys must be unique.
package ldforge
