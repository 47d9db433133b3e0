package ldforge

const (
	// BlankNode is the blank node prefix.
	BlankNode = "_:"

	// RegistryPrefix is the URN namespace used for contexts registered at
	// runtime.
	RegistryPrefix = "urn:context:"

	// RemoteContextLimit is the maximum depth of nested remote context
	// references.
	RemoteContextLimit = 10
)

// JSON-LD MIME types and profiles.
const (
	ApplicationLDJSON = "application/ld+json"
	ApplicationJSON   = "application/json"
	ApplicationNQuads = "application/n-quads"
	TextTurtle        = "text/turtle"

	ProfileExpanded  = "http://www.w3.org/ns/json-ld#expanded"
	ProfileCompacted = "http://www.w3.org/ns/json-ld#compacted"
	ProfileContext   = "http://www.w3.org/ns/json-ld#context"
	ProfileFlattened = "http://www.w3.org/ns/json-ld#flattened"
	ProfileFramed    = "http://www.w3.org/ns/json-ld#framed"
)
