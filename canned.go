package ldforge

import (
	"sourcery.dny.nu/ldforge/internal/json"
)

const schemaOrgContext = `{
  "@context": {
    "@vocab": "https://schema.org/",
    "schema": "https://schema.org/",
    "xsd": "http://www.w3.org/2001/XMLSchema#",
    "id": "@id",
    "type": "@type",
    "url": {"@id": "schema:url", "@type": "@id"},
    "sameAs": {"@id": "schema:sameAs", "@type": "@id"},
    "image": {"@id": "schema:image", "@type": "@id"},
    "birthDate": {"@id": "schema:birthDate", "@type": "schema:Date"},
    "dateCreated": {"@id": "schema:dateCreated", "@type": "schema:DateTime"},
    "datePublished": {"@id": "schema:datePublished", "@type": "schema:DateTime"}
  }
}`

const activityStreamsContext = `{
  "@context": {
    "@vocab": "_:",
    "xsd": "http://www.w3.org/2001/XMLSchema#",
    "as": "https://www.w3.org/ns/activitystreams#",
    "ldp": "http://www.w3.org/ns/ldp#",
    "id": "@id",
    "type": "@type",
    "Accept": "as:Accept",
    "Announce": "as:Announce",
    "Collection": "as:Collection",
    "Create": "as:Create",
    "Delete": "as:Delete",
    "Follow": "as:Follow",
    "Like": "as:Like",
    "Note": "as:Note",
    "Object": "as:Object",
    "OrderedCollection": "as:OrderedCollection",
    "Person": "as:Person",
    "Public": "as:Public",
    "Service": "as:Service",
    "actor": {"@id": "as:actor", "@type": "@id"},
    "attributedTo": {"@id": "as:attributedTo", "@type": "@id"},
    "cc": {"@id": "as:cc", "@type": "@id"},
    "content": "as:content",
    "contentMap": {"@id": "as:content", "@container": "@language"},
    "followers": {"@id": "as:followers", "@type": "@id"},
    "following": {"@id": "as:following", "@type": "@id"},
    "inReplyTo": {"@id": "as:inReplyTo", "@type": "@id"},
    "inbox": {"@id": "ldp:inbox", "@type": "@id"},
    "items": {"@id": "as:items", "@type": "@id"},
    "orderedItems": {"@id": "as:items", "@type": "@id", "@container": "@list"},
    "name": "as:name",
    "nameMap": {"@id": "as:name", "@container": "@language"},
    "object": {"@id": "as:object", "@type": "@id"},
    "outbox": {"@id": "as:outbox", "@type": "@id"},
    "preferredUsername": "as:preferredUsername",
    "published": {"@id": "as:published", "@type": "xsd:dateTime"},
    "summary": "as:summary",
    "summaryMap": {"@id": "as:summary", "@container": "@language"},
    "tag": {"@id": "as:tag", "@type": "@id"},
    "to": {"@id": "as:to", "@type": "@id"},
    "updated": {"@id": "as:updated", "@type": "xsd:dateTime"},
    "url": {"@id": "as:url", "@type": "@id"}
  }
}`

const securityV1Context = `{
  "@context": {
    "id": "@id",
    "type": "@type",
    "sec": "https://w3id.org/security#",
    "xsd": "http://www.w3.org/2001/XMLSchema#",
    "CryptographicKey": "sec:Key",
    "created": {"@id": "http://purl.org/dc/terms/created", "@type": "xsd:dateTime"},
    "owner": {"@id": "sec:owner", "@type": "@id"},
    "publicKey": {"@id": "sec:publicKey", "@type": "@id"},
    "publicKeyPem": "sec:publicKeyPem",
    "signature": "sec:signature",
    "signatureValue": "sec:signatureValue"
  }
}`

const foafContext = `{
  "@context": {
    "@vocab": "http://xmlns.com/foaf/0.1/",
    "foaf": "http://xmlns.com/foaf/0.1/",
    "id": "@id",
    "type": "@type",
    "knows": {"@id": "foaf:knows", "@type": "@id"},
    "homepage": {"@id": "foaf:homepage", "@type": "@id"},
    "depiction": {"@id": "foaf:depiction", "@type": "@id"}
  }
}`

const dctermsContext = `{
  "@context": {
    "@vocab": "http://purl.org/dc/terms/",
    "dcterms": "http://purl.org/dc/terms/",
    "xsd": "http://www.w3.org/2001/XMLSchema#",
    "id": "@id",
    "type": "@type",
    "created": {"@id": "dcterms:created", "@type": "xsd:date"},
    "modified": {"@id": "dcterms:modified", "@type": "xsd:date"},
    "license": {"@id": "dcterms:license", "@type": "@id"}
  }
}`

// cannedContexts returns the documents served without network access,
// keyed by every URL they're commonly referenced by.
func cannedContexts() map[string]json.RawMessage {
	schema := json.RawMessage(schemaOrgContext)
	as := json.RawMessage(activityStreamsContext)
	foaf := json.RawMessage(foafContext)
	dcterms := json.RawMessage(dctermsContext)

	return map[string]json.RawMessage{
		"https://schema.org":                          schema,
		"https://schema.org/":                         schema,
		"http://schema.org":                           schema,
		"http://schema.org/":                          schema,
		"https://www.w3.org/ns/activitystreams":       as,
		"http://www.w3.org/ns/activitystreams":        as,
		"https://www.w3.org/ns/activitystreams.jsonld": as,
		"https://w3id.org/security/v1":                json.RawMessage(securityV1Context),
		"http://xmlns.com/foaf/0.1/":                  foaf,
		"http://xmlns.com/foaf/0.1":                   foaf,
		"http://purl.org/dc/terms/":                   dcterms,
		"http://purl.org/dc/terms":                    dcterms,
	}
}
