package rdf_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/ns"
	"sourcery.dny.nu/ldforge/rdf"
)

func toRDF(t *testing.T, doc string) (*rdf.Dataset, error) {
	t.Helper()

	p := ldforge.NewProcessor()
	nodes, err := p.Expand(context.Background(), json.RawMessage(doc), "")
	if err != nil {
		t.Fatalf("failed to expand: %s", err)
	}
	return rdf.FromNodes(nodes)
}

func TestFromNodes(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "schema.org with typed literal",
			doc: `{
				"@context": "https://schema.org/",
				"@type": "Person",
				"name": "Alice",
				"age": {"@value": "30", "@type": "xsd:integer"}
			}`,
			want: `_:b0 <http://www.w3.org/1999/02/22-rdf-syntax-ns#type> <https://schema.org/Person> .
_:b0 <https://schema.org/age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .
_:b0 <https://schema.org/name> "Alice" .
`,
		},
		{
			name: "native values",
			doc: `{
				"@id": "http://example.com/a",
				"http://example.com/p": [1, 1.5, true, 5.0]
			}`,
			want: `<http://example.com/a> <http://example.com/p> "1"^^<http://www.w3.org/2001/XMLSchema#integer> .
<http://example.com/a> <http://example.com/p> "1.5E0"^^<http://www.w3.org/2001/XMLSchema#double> .
<http://example.com/a> <http://example.com/p> "true"^^<http://www.w3.org/2001/XMLSchema#boolean> .
<http://example.com/a> <http://example.com/p> "5"^^<http://www.w3.org/2001/XMLSchema#integer> .
`,
		},
		{
			name: "language tagged",
			doc: `{
				"@id": "http://example.com/a",
				"http://example.com/p": {"@value": "hallo", "@language": "NL"}
			}`,
			want: `<http://example.com/a> <http://example.com/p> "hallo"@nl .
`,
		},
		{
			name: "list",
			doc: `{
				"@id": "http://example.com/a",
				"http://example.com/p": {"@list": ["a", "b"]}
			}`,
			want: `_:b0 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> "a" .
_:b0 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> _:b1 .
_:b1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#first> "b" .
_:b1 <http://www.w3.org/1999/02/22-rdf-syntax-ns#rest> <http://www.w3.org/1999/02/22-rdf-syntax-ns#nil> .
<http://example.com/a> <http://example.com/p> _:b0 .
`,
		},
		{
			name: "empty list",
			doc: `{
				"@id": "http://example.com/a",
				"http://example.com/p": {"@list": []}
			}`,
			want: `<http://example.com/a> <http://example.com/p> <http://www.w3.org/1999/02/22-rdf-syntax-ns#nil> .
`,
		},
		{
			name: "named graph",
			doc: `{
				"@id": "http://example.com/g",
				"@graph": [{"@id": "http://example.com/a", "http://example.com/p": "x"}]
			}`,
			want: `<http://example.com/a> <http://example.com/p> "x" <http://example.com/g> .
`,
		},
		{
			name: "embedded node",
			doc: `{
				"@id": "http://example.com/a",
				"http://example.com/knows": {"http://example.com/name": "Bob"}
			}`,
			want: `_:b0 <http://example.com/name> "Bob" .
<http://example.com/a> <http://example.com/knows> _:b0 .
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := toRDF(t, tt.doc)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			if diff := cmp.Diff(tt.want, rdf.Serialize(ds.Quads())); diff != "" {
				t.Errorf("N-Quads mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFromNodesInvalidIRI(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		hint string
	}{
		{
			name: "undefined prefix",
			doc:  `{"@id": "http://example.com/a", "foo:bar": "x"}`,
			hint: `prefix "foo" is not defined in the active context`,
		},
		{
			name: "relative subject",
			doc:  `{"@id": "a", "http://example.com/p": "x"}`,
			hint: `"a" is a relative IRI, set @base or use an absolute IRI`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := toRDF(t, tt.doc)
			if !errors.Is(err, ldforge.ErrRDFConversion) {
				t.Fatalf("expected an RDF conversion error, got: %v", err)
			}
			hints := ldforge.Hints(err)
			if len(hints) == 0 || hints[0] != tt.hint {
				t.Errorf("expected hint %q, got: %q", tt.hint, hints)
			}
		})
	}
}

func TestNQuadsRoundTrip(t *testing.T) {
	quads := []rdf.Quad{
		{
			Subject:   rdf.NewIRI("http://example.com/a"),
			Predicate: rdf.NewIRI("http://example.com/p"),
			Object:    rdf.NewLiteral("say \"hi\"\nnow\\then", "", ""),
		},
		{
			Subject:   rdf.NewBlank("b0"),
			Predicate: rdf.NewIRI("http://example.com/p"),
			Object:    rdf.NewLiteral("hallo", "", "nl"),
			Graph:     rdf.NewIRI("http://example.com/g"),
		},
		{
			Subject:   rdf.NewBlank("b0"),
			Predicate: rdf.NewIRI("http://example.com/q"),
			Object:    rdf.NewLiteral("30", ns.XSDInteger, ""),
			Graph:     rdf.NewIRI("http://example.com/h"),
		},
	}

	text := rdf.Serialize(quads)
	if !strings.Contains(text, `"say \"hi\"\nnow\\then"`) {
		t.Errorf("literal was not escaped: %s", text)
	}

	if diff := cmp.Diff(quads, rdf.Parse(text)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestParseSkipsMalformedLines(t *testing.T) {
	text := `<http://example.com/a> <http://example.com/p> "x" .
this is not a statement
# a comment

<http://example.com/b> <http://example.com/p> "y" .
`

	var skipped []int
	quads := rdf.Parse(text, rdf.WithSkipped(func(line int, _ string, _ error) {
		skipped = append(skipped, line)
	}))

	if len(quads) != 2 {
		t.Fatalf("expected 2 quads, got: %d", len(quads))
	}
	if diff := cmp.Diff([]int{2}, skipped); diff != "" {
		t.Errorf("skipped lines mismatch (-want +got):\n%s", diff)
	}
}

func TestCanonicalize(t *testing.T) {
	t.Run("single blank node", func(t *testing.T) {
		in := rdf.Parse(`_:x <http://example.com/p> "v" .
`)
		want := `_:c14n0 <http://example.com/p> "v" .
`
		if diff := cmp.Diff(want, rdf.Canonicalize(in)); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("isomorphic inputs", func(t *testing.T) {
		a := rdf.Parse(`_:a <http://example.com/knows> _:b .
_:b <http://example.com/name> "Bob" .
_:a <http://example.com/name> "Alice" .
`)
		b := rdf.Parse(`_:z1 <http://example.com/name> "Alice" .
_:z0 <http://example.com/name> "Bob" .
_:z1 <http://example.com/knows> _:z0 .
`)
		if diff := cmp.Diff(rdf.Canonicalize(a), rdf.Canonicalize(b)); diff != "" {
			t.Errorf("mismatch (-a +b):\n%s", diff)
		}
	})

	t.Run("symmetric cycle", func(t *testing.T) {
		a := rdf.Parse(`_:a <http://example.com/p> _:b .
_:b <http://example.com/p> _:a .
`)
		b := rdf.Parse(`_:y <http://example.com/p> _:x .
_:x <http://example.com/p> _:y .
`)
		got := rdf.Canonicalize(a)
		if diff := cmp.Diff(got, rdf.Canonicalize(b)); diff != "" {
			t.Errorf("mismatch (-a +b):\n%s", diff)
		}
		if !strings.Contains(got, "_:c14n0") || !strings.Contains(got, "_:c14n1") {
			t.Errorf("expected canonical labels, got: %s", got)
		}
	})

	t.Run("published vector", func(t *testing.T) {
		want := `<http://example.com/#p> <http://example.com/#q> _:c14n0 .
<http://example.com/#p> <http://example.com/#r> _:c14n1 .
_:c14n0 <http://example.com/#s> <http://example.com/#u> .
_:c14n1 <http://example.com/#t> <http://example.com/#u> .
`
		for name, in := range map[string]string{
			"original labels": `<http://example.com/#p> <http://example.com/#q> _:e0 .
<http://example.com/#p> <http://example.com/#r> _:e1 .
_:e0 <http://example.com/#s> <http://example.com/#u> .
_:e1 <http://example.com/#t> <http://example.com/#u> .
`,
			"swapped labels": `<http://example.com/#p> <http://example.com/#q> _:e1 .
<http://example.com/#p> <http://example.com/#r> _:e0 .
_:e1 <http://example.com/#s> <http://example.com/#u> .
_:e0 <http://example.com/#t> <http://example.com/#u> .
`,
		} {
			if diff := cmp.Diff(want, rdf.Canonicalize(rdf.Parse(in))); diff != "" {
				t.Errorf("%s: mismatch (-want +got):\n%s", name, diff)
			}
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		ds, err := toRDF(t, `{
			"@context": "https://schema.org/",
			"@type": "Person",
			"name": "Alice",
			"knows": [{"name": "Bob"}, {"name": "Carol", "knows": {"name": "Bob"}}]
		}`)
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		once := rdf.Canonicalize(ds.Quads())
		twice := rdf.Canonicalize(rdf.Parse(once))
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Errorf("mismatch (-once +twice):\n%s", diff)
		}
	})
}

func TestCanonicalizeDocuments(t *testing.T) {
	embedded := `{
		"@context": {"@vocab": "http://example.com/"},
		"@id": "http://example.com/ann",
		"knows": {"name": "Bob", "age": 30}
	}`
	labelled := `{
		"@context": {"@vocab": "http://example.com/"},
		"@graph": [
			{"age": 30, "@id": "_:bob", "name": "Bob"},
			{"knows": {"@id": "_:bob"}, "@id": "http://example.com/ann"}
		]
	}`

	want := `<http://example.com/ann> <http://example.com/knows> _:c14n0 .
_:c14n0 <http://example.com/age> "30"^^<http://www.w3.org/2001/XMLSchema#integer> .
_:c14n0 <http://example.com/name> "Bob" .
`

	for name, doc := range map[string]string{"embedded": embedded, "labelled": labelled} {
		ds, err := toRDF(t, doc)
		if err != nil {
			t.Fatalf("%s: unexpected error: %s", name, err)
		}
		if diff := cmp.Diff(want, rdf.Canonicalize(ds.Quads())); diff != "" {
			t.Errorf("%s: mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestTurtle(t *testing.T) {
	ds, err := toRDF(t, `{
		"@context": "https://schema.org/",
		"@id": "http://example.com/alice",
		"@type": "Person",
		"name": ["Alice", "Al"],
		"age": 30,
		"knows": {"@id": "http://example.com/bob"}
	}`)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := `@prefix schema: <https://schema.org/> .

<http://example.com/alice> a schema:Person ;
    schema:age 30 ;
    schema:knows <http://example.com/bob> ;
    schema:name "Alice" , "Al" .
`
	if diff := cmp.Diff(want, rdf.Turtle(ds.Quads(), nil)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTurtleCustomPrefix(t *testing.T) {
	quads := []rdf.Quad{{
		Subject:   rdf.NewIRI("http://example.com/a"),
		Predicate: rdf.NewIRI("http://example.com/p"),
		Object:    rdf.NewLiteral("2024-01-01", ns.XSDDate, ""),
	}}

	want := `@prefix ex: <http://example.com/> .
@prefix xsd: <http://www.w3.org/2001/XMLSchema#> .

ex:a ex:p "2024-01-01"^^xsd:date .
`
	got := rdf.Turtle(quads, ns.Default().With("ex", "http://example.com/"))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
