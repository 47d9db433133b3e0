package ldforge

import (
	"context"

	"sourcery.dny.nu/ldforge/internal/json"
)

// LoaderFunc is called to retrieve a remote context document that is not
// cached, canned or registered.
//
// When building your own loader, please remember that:
//   - [RemoteDocument.URL] is the URL the document was retrieved from after
//     having followed any redirects.
//   - [RemoteDocument.Document] holds the complete document. It does not
//     need to be wrapped in @context, the [Resolver] takes care of that.
//   - Request a context with [ApplicationLDJSON] and profile [ProfileContext].
//   - Have proper timeouts. The [Resolver] handles caching and request
//     deduplication.
type LoaderFunc func(context.Context, string) (RemoteDocument, error)

// RemoteDocument holds a retrieved document.
type RemoteDocument struct {
	URL        string
	ContextURL string
	Document   json.RawMessage
}
