package ldforge_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	ld "sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		url    string
		output string
	}{
		{
			name:   "empty object",
			input:  `{}`,
			output: `[]`,
		},
		{
			name:   "canned schema.org context",
			input:  `{"@context": "https://schema.org", "@type": "Person", "name": "Ann"}`,
			output: `[{"@type": ["https://schema.org/Person"], "https://schema.org/name": [{"@value": "Ann"}]}]`,
		},
		{
			name: "datatype coercion",
			input: `{
				"@context": {
					"age": {"@id": "ex:age", "@type": "xsd:integer"},
					"ex": "http://example.com/",
					"xsd": "http://www.w3.org/2001/XMLSchema#"
				},
				"@id": "ex:ann",
				"age": "30"
			}`,
			output: `[{"@id": "http://example.com/ann", "http://example.com/age": [{"@type": "http://www.w3.org/2001/XMLSchema#integer", "@value": "30"}]}]`,
		},
		{
			name: "id coercion",
			input: `{
				"@context": {
					"ex": "http://example.com/",
					"knows": {"@id": "ex:knows", "@type": "@id"}
				},
				"@id": "ex:ann",
				"knows": ["ex:bob", "ex:eve"]
			}`,
			output: `[{"@id": "http://example.com/ann", "http://example.com/knows": [{"@id": "http://example.com/bob"}, {"@id": "http://example.com/eve"}]}]`,
		},
		{
			name: "default language",
			input: `{
				"@context": {
					"@language": "EN",
					"name": "http://example.com/name",
					"nick": {"@id": "http://example.com/nick", "@language": null}
				},
				"name": "Ann",
				"nick": "annie"
			}`,
			output: `[{"http://example.com/name": [{"@value": "Ann", "@language": "en"}], "http://example.com/nick": [{"@value": "annie"}]}]`,
		},
		{
			name: "native values",
			input: `{
				"http://example.com/count": 3,
				"http://example.com/ratio": 1.50,
				"http://example.com/done": true
			}`,
			output: `[{"http://example.com/count": [{"@value": 3}], "http://example.com/done": [{"@value": true}], "http://example.com/ratio": [{"@value": 1.50}]}]`,
		},
		{
			name: "language map",
			input: `{
				"@context": {"label": {"@id": "http://example.com/label", "@container": "@language"}},
				"label": {"en": "Hi", "NL": ["Hoi"]}
			}`,
			output: `[{"http://example.com/label": [{"@value": "Hoi", "@language": "nl"}, {"@value": "Hi", "@language": "en"}]}]`,
		},
		{
			name: "list container",
			input: `{
				"@context": {"items": {"@id": "http://example.com/items", "@container": "@list"}},
				"items": ["a", "b"]
			}`,
			output: `[{"http://example.com/items": [{"@list": [{"@value": "a"}, {"@value": "b"}]}]}]`,
		},
		{
			name:   "explicit list",
			input:  `{"http://example.com/p": {"@list": [1, 2]}}`,
			output: `[{"http://example.com/p": [{"@list": [{"@value": 1}, {"@value": 2}]}]}]`,
		},
		{
			name:   "set is flattened",
			input:  `{"http://example.com/p": {"@set": ["a", ["b"]]}}`,
			output: `[{"http://example.com/p": [{"@value": "a"}, {"@value": "b"}]}]`,
		},
		{
			name: "reverse property",
			input: `{
				"@context": {"parent": {"@reverse": "http://example.com/child"}},
				"@id": "http://example.com/bob",
				"parent": {"@id": "http://example.com/alice"}
			}`,
			output: `[{"@id": "http://example.com/bob", "@reverse": {"http://example.com/child": [{"@id": "http://example.com/alice"}]}}]`,
		},
		{
			name: "top-level graph is unwrapped",
			input: `{
				"@context": {"p": "http://example.com/p"},
				"@graph": [
					{"@id": "http://example.com/a", "p": "x"},
					{"@id": "http://example.com/b", "p": "y"}
				]
			}`,
			output: `[
				{"@id": "http://example.com/a", "http://example.com/p": [{"@value": "x"}]},
				{"@id": "http://example.com/b", "http://example.com/p": [{"@value": "y"}]}
			]`,
		},
		{
			name:   "keyword lookalikes are dropped",
			input:  `{"@id": "http://example.com/a", "@foo": "bar", "http://example.com/p": "x"}`,
			output: `[{"@id": "http://example.com/a", "http://example.com/p": [{"@value": "x"}]}]`,
		},
		{
			name:   "free-floating references are dropped",
			input:  `[{"@id": "http://example.com/a"}, {"@id": "http://example.com/b", "http://example.com/p": "x"}]`,
			output: `[{"@id": "http://example.com/b", "http://example.com/p": [{"@value": "x"}]}]`,
		},
		{
			name:   "relative identifiers resolve against the document URL",
			input:  `{"@id": "alice", "http://example.com/knows": {"@id": "../bob"}}`,
			url:    "http://example.com/people/doc.jsonld",
			output: `[{"@id": "http://example.com/people/alice", "http://example.com/knows": [{"@id": "http://example.com/bob"}]}]`,
		},
		{
			name:   "null property is dropped",
			input:  `{"@id": "http://example.com/a", "http://example.com/p": null, "http://example.com/q": "x"}`,
			output: `[{"@id": "http://example.com/a", "http://example.com/q": [{"@value": "x"}]}]`,
		},
		{
			name:   "null value object is dropped",
			input:  `{"@id": "http://example.com/a", "http://example.com/p": {"@value": null}, "http://example.com/q": "x"}`,
			output: `[{"@id": "http://example.com/a", "http://example.com/q": [{"@value": "x"}]}]`,
		},
		{
			name: "null list term is dropped",
			input: `{
				"@context": {"items": {"@id": "http://example.com/items", "@container": "@list"}},
				"@id": "http://example.com/a",
				"items": null,
				"http://example.com/q": "x"
			}`,
			output: `[{"@id": "http://example.com/a", "http://example.com/q": [{"@value": "x"}]}]`,
		},
		{
			name:   "node with only null properties is dropped",
			input:  `{"@id": "http://example.com/a", "http://example.com/p": null}`,
			output: `[]`,
		},
		{
			name:   "array of nulls keeps the key",
			input:  `{"@id": "http://example.com/a", "http://example.com/p": [null]}`,
			output: `[{"@id": "http://example.com/a", "http://example.com/p": []}]`,
		},
		{
			name: "embedded node",
			input: `{
				"@context": {"@vocab": "http://example.com/"},
				"@id": "http://example.com/ann",
				"knows": {"@type": "Person", "name": "Bob"}
			}`,
			output: `[{"@id": "http://example.com/ann", "http://example.com/knows": [{"@type": ["http://example.com/Person"], "http://example.com/name": [{"@value": "Bob"}]}]}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ld.NewProcessor()

			res, err := p.Expand(context.Background(), json.RawMessage(tt.input), tt.url)
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if diff := cmp.Diff(json.RawMessage(tt.output), marshal(t, res), JSONDiff()); diff != "" {
				t.Errorf("expansion mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  error
		hints []string
	}{
		{
			name:  "invalid JSON",
			input: `{"@id": `,
			kind:  ld.ErrInvalidDocument,
		},
		{
			name:  "undefined term without vocab",
			input: `{"name": "Ann"}`,
			kind:  ld.ErrUnresolvableTerm,
			hints: []string{
				"no @vocab is set in the active context",
				`term "name" is not defined in the active context`,
			},
		},
		{
			name:  "term with different case",
			input: `{"@context": {"name": "http://example.com/name"}, "Name": "Ann"}`,
			kind:  ld.ErrUnresolvableTerm,
			hints: []string{
				"no @vocab is set in the active context",
				`term "Name" is not defined in the active context`,
				`did you mean "name"?`,
			},
		},
		{
			name:  "non-string identifier",
			input: `{"@id": 5, "http://example.com/p": "x"}`,
			kind:  ld.ErrInvalidDocument,
		},
		{
			name:  "value object with properties",
			input: `{"http://example.com/p": {"@value": "x", "http://example.com/q": "y"}}`,
			kind:  ld.ErrInvalidDocument,
		},
		{
			name:  "unregistered context",
			input: `{"@context": "urn:context:00000000-0000-0000-0000-000000000000", "name": "Ann"}`,
			kind:  ld.ErrContextNotFound,
		},
		{
			name:  "remote context without loader",
			input: `{"@context": "http://example.com/context.jsonld", "name": "Ann"}`,
			kind:  ld.ErrContextResolution,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ld.NewProcessor().Expand(context.Background(), json.RawMessage(tt.input), "")
			if err == nil {
				t.Fatal("expected an error")
			}

			if !errors.Is(err, tt.kind) {
				t.Fatalf("expected %q, got: %s", tt.kind, err)
			}

			if tt.hints != nil {
				if diff := cmp.Diff(tt.hints, ld.Hints(err)); diff != "" {
					t.Errorf("hints mismatch (-want +got):\n%s", diff)
				}
			}
		})
	}
}

func TestExpandRemoteContext(t *testing.T) {
	var calls atomic.Int64
	loader := StaticLoader(t, map[string]string{
		"http://example.com/context.jsonld": `{"@context": {"@vocab": "http://example.com/vocab#"}}`,
	}, &calls)

	p := NewProcessor(loader)
	doc := json.RawMessage(`{"@context": "http://example.com/context.jsonld", "name": "Ann"}`)
	want := json.RawMessage(`[{"http://example.com/vocab#name": [{"@value": "Ann"}]}]`)

	for range 3 {
		res, err := p.Expand(context.Background(), doc, "")
		if err != nil {
			t.Fatalf("unexpected error: %s", err)
		}

		if diff := cmp.Diff(want, marshal(t, res), JSONDiff()); diff != "" {
			t.Errorf("expansion mismatch (-want +got):\n%s", diff)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("expected the context to be loaded once, got: %d", n)
	}
}

func TestExpandBareRemoteContext(t *testing.T) {
	loader := StaticLoader(t, map[string]string{
		"http://example.com/bare.jsonld": `{"name": "http://example.com/name"}`,
	}, nil)

	res, err := NewProcessor(loader).Expand(context.Background(),
		json.RawMessage(`{"@context": "http://example.com/bare.jsonld", "name": "Ann"}`), "")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := json.RawMessage(`[{"http://example.com/name": [{"@value": "Ann"}]}]`)
	if diff := cmp.Diff(want, marshal(t, res), JSONDiff()); diff != "" {
		t.Errorf("expansion mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandRecursiveContext(t *testing.T) {
	loader := StaticLoader(t, map[string]string{
		"http://example.com/a": `{"@context": "http://example.com/b"}`,
		"http://example.com/b": `{"@context": "http://example.com/a"}`,
	}, nil)

	_, err := NewProcessor(loader).Expand(context.Background(),
		json.RawMessage(`{"@context": "http://example.com/a", "http://example.com/p": "x"}`), "")
	if !errors.Is(err, ld.ErrInvalidContext) {
		t.Fatalf("expected a recursive context error, got: %v", err)
	}
}

func TestExpandWithExpandContext(t *testing.T) {
	p := ld.NewProcessor(
		ld.WithExpandContext(json.RawMessage(`{"@context": {"@vocab": "https://schema.org/"}}`)),
	)

	res, err := p.Expand(context.Background(), json.RawMessage(`{"name": "Ann"}`), "")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := json.RawMessage(`[{"https://schema.org/name": [{"@value": "Ann"}]}]`)
	if diff := cmp.Diff(want, marshal(t, res), JSONDiff()); diff != "" {
		t.Errorf("expansion mismatch (-want +got):\n%s", diff)
	}
}

func TestExpandDeepNesting(t *testing.T) {
	const depth = 2000

	var sb strings.Builder
	for range depth {
		sb.WriteString(`{"http://example.com/p": `)
	}
	sb.WriteString(`{"@id": "http://example.com/leaf"}`)
	sb.WriteString(strings.Repeat("}", depth))

	res, err := ld.NewProcessor().Expand(context.Background(), json.RawMessage(sb.String()), "")
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	if len(res) != 1 {
		t.Fatalf("expected a single root, got: %d", len(res))
	}

	n := res[0]
	for i := range depth {
		values := n.Properties["http://example.com/p"]
		if len(values) != 1 {
			t.Fatalf("expected one value at depth %d, got: %d", i, len(values))
		}
		n = values[0]
	}

	if n.ID != "http://example.com/leaf" {
		t.Errorf("expected leaf node, got: %q", n.ID)
	}
}

func TestExpandDeterministic(t *testing.T) {
	docs := []string{
		`{"@context": {"@vocab": "http://example.com/"}, "b": "2", "a": "1", "@type": ["Y", "X"]}`,
		`{"@type": ["Y", "X"], "a": "1", "@context": {"@vocab": "http://example.com/"}, "b": "2"}`,
	}

	p := ld.NewProcessor()

	var outputs []string
	for _, doc := range docs {
		for range 2 {
			res, err := p.Expand(context.Background(), json.RawMessage(doc), "")
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}
			outputs = append(outputs, string(marshal(t, res)))
		}
	}

	if len(slices.Compact(outputs)) != 1 {
		t.Errorf("expected identical output for every run, got:\n%s", strings.Join(outputs, "\n"))
	}
}
