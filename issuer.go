package ldforge

import (
	"maps"
	"slices"
	"strconv"
)

// Issuer hands out sequential blank node identifiers. Asking for the same
// existing identifier twice returns the same result.
type Issuer struct {
	prefix  string
	counter int
	issued  map[string]string
	order   []string
}

// NewIssuer creates an issuer producing identifiers of the form prefix0,
// prefix1 and so on.
func NewIssuer(prefix string) *Issuer {
	return &Issuer{prefix: prefix, issued: make(map[string]string)}
}

// Issue returns the identifier for existing, issuing a new one if needed.
// An empty existing identifier always results in a fresh identifier.
func (i *Issuer) Issue(existing string) string {
	if existing != "" {
		if id, ok := i.issued[existing]; ok {
			return id
		}
	}

	id := i.prefix + strconv.Itoa(i.counter)
	i.counter++

	if existing != "" {
		i.issued[existing] = id
		i.order = append(i.order, existing)
	}

	return id
}

// Get returns the identifier issued for existing.
func (i *Issuer) Get(existing string) (string, bool) {
	id, ok := i.issued[existing]
	return id, ok
}

// Has returns if an identifier was issued for existing.
func (i *Issuer) Has(existing string) bool {
	_, ok := i.issued[existing]
	return ok
}

// Issued returns the existing identifiers in the order they were first
// issued for.
func (i *Issuer) Issued() []string {
	return slices.Clone(i.order)
}

// Clone returns an independent copy of the issuer.
func (i *Issuer) Clone() *Issuer {
	return &Issuer{
		prefix:  i.prefix,
		counter: i.counter,
		issued:  maps.Clone(i.issued),
		order:   slices.Clone(i.order),
	}
}
