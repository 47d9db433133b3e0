package rdf

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strings"

	"sourcery.dny.nu/ldforge"
)

// CanonicalPrefix is the prefix of canonical blank node labels.
const CanonicalPrefix = "_:c14n"

// Canonicalize relabels the blank nodes of quads using URDNA2015 and
// returns the result as sorted N-Quads.
//
// Isomorphic datasets result in identical output, and canonicalizing
// canonical output doesn't change it.
func Canonicalize(quads []Quad) string {
	return Serialize(CanonicalQuads(quads))
}

// CanonicalQuads relabels the blank nodes of quads using URDNA2015. The
// result is sorted by its N-Quads form and has no duplicates.
func CanonicalQuads(quads []Quad) []Quad {
	c := &canonicalizer{
		byBlank:   map[string][]Quad{},
		canonical: ldforge.NewIssuer(CanonicalPrefix),
		firstHash: map[string]string{},
	}

	// 2)
	for _, q := range NewDataset(quads...).Quads() {
		for _, t := range []Term{q.Subject, q.Object, q.Graph} {
			if t.Kind == KindBlank {
				c.byBlank[t.Value] = append(c.byBlank[t.Value], q)
			}
		}
	}

	// 3, 4)
	byHash := map[string][]string{}
	for _, id := range sortedKeys(c.byBlank) {
		h := c.hashFirstDegree(id)
		byHash[h] = append(byHash[h], id)
	}

	// 5)
	hashes := sortedKeys(byHash)
	var shared []string
	for _, h := range hashes {
		if len(byHash[h]) > 1 {
			shared = append(shared, h)
			continue
		}
		c.canonical.Issue(byHash[h][0])
	}

	// 6)
	for _, h := range shared {
		var results []ndegree
		for _, id := range byHash[h] {
			if c.canonical.Has(id) {
				continue
			}
			tmp := ldforge.NewIssuer("_:b")
			tmp.Issue(id)
			results = append(results, c.hashNDegree(id, tmp))
		}

		slices.SortStableFunc(results, func(a, b ndegree) int {
			return strings.Compare(a.hash, b.hash)
		})
		for _, r := range results {
			for _, existing := range r.issuer.Issued() {
				c.canonical.Issue(existing)
			}
		}
	}

	// 7)
	res := make([]Quad, 0, len(quads))
	seen := map[string]struct{}{}
	for _, q := range quads {
		q.Subject = c.relabel(q.Subject)
		q.Object = c.relabel(q.Object)
		q.Graph = c.relabel(q.Graph)
		key := q.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		res = append(res, q)
	}

	slices.SortFunc(res, func(a, b Quad) int {
		return strings.Compare(a.String(), b.String())
	})
	return res
}

type canonicalizer struct {
	byBlank   map[string][]Quad
	canonical *ldforge.Issuer
	firstHash map[string]string
}

type ndegree struct {
	hash   string
	issuer *ldforge.Issuer
}

func (c *canonicalizer) relabel(t Term) Term {
	if t.Kind != KindBlank {
		return t
	}
	if id, ok := c.canonical.Get(t.Value); ok {
		t.Value = id
	}
	return t
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// hashFirstDegree hashes the quads a blank node appears in, with the node
// itself written as _:a and every other blank node as _:z.
func (c *canonicalizer) hashFirstDegree(id string) string {
	if h, ok := c.firstHash[id]; ok {
		return h
	}

	mask := func(t Term) Term {
		if t.Kind != KindBlank {
			return t
		}
		if t.Value == id {
			t.Value = "_:a"
		} else {
			t.Value = "_:z"
		}
		return t
	}

	lines := make([]string, 0, len(c.byBlank[id]))
	for _, q := range c.byBlank[id] {
		q.Subject = mask(q.Subject)
		q.Object = mask(q.Object)
		q.Graph = mask(q.Graph)
		lines = append(lines, q.String()+"\n")
	}
	slices.Sort(lines)

	h := hash(strings.Join(lines, ""))
	c.firstHash[id] = h
	return h
}

func (c *canonicalizer) hashRelated(related string, q Quad, issuer *ldforge.Issuer, position string) string {
	var b strings.Builder
	b.WriteString(position)
	if position != "g" {
		b.WriteString("<" + q.Predicate.Value + ">")
	}

	if id, ok := c.canonical.Get(related); ok {
		b.WriteString(id)
	} else if id, ok := issuer.Get(related); ok {
		b.WriteString(id)
	} else {
		b.WriteString(c.hashFirstDegree(related))
	}

	return hash(b.String())
}

func (c *canonicalizer) hashNDegree(id string, issuer *ldforge.Issuer) ndegree {
	// 1-3)
	related := map[string][]string{}
	for _, q := range c.byBlank[id] {
		for _, pos := range []struct {
			term Term
			name string
		}{{q.Subject, "s"}, {q.Object, "o"}, {q.Graph, "g"}} {
			if pos.term.Kind != KindBlank || pos.term.Value == id {
				continue
			}
			h := c.hashRelated(pos.term.Value, q, issuer, pos.name)
			related[h] = append(related[h], pos.term.Value)
		}
	}

	// 4, 5)
	var data strings.Builder
	for _, h := range sortedKeys(related) {
		data.WriteString(h)

		var (
			chosenPath   string
			chosenIssuer *ldforge.Issuer
		)

		permute(related[h], func(perm []string) {
			cp := issuer.Clone()
			var (
				path      strings.Builder
				recursion []string
			)

			worse := func() bool {
				return chosenPath != "" && path.Len() >= len(chosenPath) && path.String() > chosenPath
			}

			for _, r := range perm {
				if id, ok := c.canonical.Get(r); ok {
					path.WriteString(id)
				} else {
					if !cp.Has(r) {
						recursion = append(recursion, r)
					}
					path.WriteString(cp.Issue(r))
				}
				if worse() {
					return
				}
			}

			for _, r := range recursion {
				res := c.hashNDegree(r, cp)
				path.WriteString(cp.Issue(r))
				path.WriteString("<" + res.hash + ">")
				cp = res.issuer
				if worse() {
					return
				}
			}

			if chosenPath == "" || path.String() < chosenPath {
				chosenPath = path.String()
				chosenIssuer = cp
			}
		})

		data.WriteString(chosenPath)
		issuer = chosenIssuer
	}

	return ndegree{hash: hash(data.String()), issuer: issuer}
}

// permute calls fn with every permutation of ids.
func permute(ids []string, fn func([]string)) {
	perm := slices.Clone(ids)
	slices.Sort(perm)

	var walk func(k int)
	walk = func(k int) {
		if k == len(perm) {
			fn(perm)
			return
		}
		for i := k; i < len(perm); i++ {
			perm[k], perm[i] = perm[i], perm[k]
			walk(k + 1)
			perm[k], perm[i] = perm[i], perm[k]
		}
	}
	walk(0)
}
