package ldforge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	ld "sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
)

const library = `{
	"@context": {"@vocab": "http://example.com/"},
	"@graph": [
		{
			"@id": "http://example.com/lib",
			"@type": "Library",
			"contains": {"@id": "http://example.com/book"},
			"featured": {"@id": "http://example.com/book"}
		},
		{
			"@id": "http://example.com/book",
			"@type": "Book",
			"title": "Go"
		}
	]
}`

func TestFrame(t *testing.T) {
	book := `{"@id": "http://example.com/book", "@type": ["http://example.com/Book"], "http://example.com/title": {"@value": "Go"}}`
	bookRef := `{"@id": "http://example.com/book"}`

	tests := []struct {
		name   string
		input  string
		frame  string
		output string
	}{
		{
			name:   "embed once",
			input:  library,
			frame:  `{"@context": {"@vocab": "http://example.com/"}, "@type": "Library"}`,
			output: `{"@graph": [{"@id": "http://example.com/lib", "@type": ["http://example.com/Library"], "http://example.com/contains": ` + book + `, "http://example.com/featured": ` + bookRef + `}]}`,
		},
		{
			name:   "embed always",
			input:  library,
			frame:  `{"@context": {"@vocab": "http://example.com/"}, "@type": "Library", "@embed": "@always"}`,
			output: `{"@graph": [{"@id": "http://example.com/lib", "@type": ["http://example.com/Library"], "http://example.com/contains": ` + book + `, "http://example.com/featured": ` + book + `}]}`,
		},
		{
			name:   "embed never",
			input:  library,
			frame:  `{"@context": {"@vocab": "http://example.com/"}, "@type": "Library", "@embed": false}`,
			output: `{"@graph": [{"@id": "http://example.com/lib", "@type": ["http://example.com/Library"], "http://example.com/contains": ` + bookRef + `, "http://example.com/featured": ` + bookRef + `}]}`,
		},
		{
			name:   "aliased type and absolute IRI",
			input:  library,
			frame:  `{"@context": {"kind": "@type"}, "kind": ["http://example.com/Book"]}`,
			output: `{"@graph": [` + book + `]}`,
		},
		{
			name:   "no match",
			input:  library,
			frame:  `{"@type": "http://example.com/Shelf"}`,
			output: `{"@graph": []}`,
		},
		{
			name:  "any type",
			input: `[{"@id": "http://example.com/a", "@type": "http://example.com/T"}, {"@id": "http://example.com/b", "http://example.com/p": "x"}]`,
			frame: `{"@type": {}}`,
			output: `{"@graph": [{"@id": "http://example.com/a", "@type": ["http://example.com/T"]}]}`,
		},
		{
			name:  "match all",
			input: `[{"@id": "http://example.com/a", "@type": "http://example.com/T"}, {"@id": "http://example.com/b", "http://example.com/p": "x"}]`,
			frame: `[{}]`,
			output: `{"@graph": [
				{"@id": "http://example.com/a", "@type": ["http://example.com/T"]},
				{"@id": "http://example.com/b", "http://example.com/p": {"@value": "x"}}
			]}`,
		},
		{
			name: "cycles are broken",
			input: `{
				"@context": {"@vocab": "http://example.com/", "knows": {"@type": "@id"}},
				"@graph": [
					{"@id": "http://example.com/a", "@type": "Person", "knows": "http://example.com/b"},
					{"@id": "http://example.com/b", "knows": "http://example.com/a"}
				]
			}`,
			frame: `{"@type": "http://example.com/Person", "@embed": "@always"}`,
			output: `{"@graph": [{
				"@id": "http://example.com/a",
				"@type": ["http://example.com/Person"],
				"http://example.com/knows": {
					"@id": "http://example.com/b",
					"http://example.com/knows": {"@id": "http://example.com/a"}
				}
			}]}`,
		},
		{
			name: "blank identifiers used once are pruned",
			input: `{
				"@context": {"@vocab": "http://example.com/"},
				"@id": "http://example.com/lib",
				"@type": "Library",
				"contains": {"@type": "Book", "title": "Go"}
			}`,
			frame: `{"@type": "http://example.com/Library"}`,
			output: `{"@graph": [{
				"@id": "http://example.com/lib",
				"@type": ["http://example.com/Library"],
				"http://example.com/contains": {"@type": ["http://example.com/Book"], "http://example.com/title": {"@value": "Go"}}
			}]}`,
		},
		{
			name: "lists",
			input: `{
				"@id": "http://example.com/a",
				"@type": "http://example.com/T",
				"http://example.com/items": {"@list": [{"@id": "http://example.com/b"}, "x"]}
			}`,
			frame: `{"@type": "http://example.com/T"}`,
			output: `{"@graph": [{
				"@id": "http://example.com/a",
				"@type": ["http://example.com/T"],
				"http://example.com/items": {"@list": [{"@id": "http://example.com/b"}, {"@value": "x"}]}
			}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ld.NewProcessor().Frame(context.Background(), json.RawMessage(tt.input), json.RawMessage(tt.frame), "")
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if diff := cmp.Diff(json.RawMessage(tt.output), res, JSONDiff()); diff != "" {
				t.Errorf("frame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFrameErrors(t *testing.T) {
	tests := map[string]string{
		"invalid JSON":     `{`,
		"scalar frame":     `"@type"`,
		"two frames":       `[{}, {}]`,
		"invalid embed":    `{"@embed": "@sometimes"}`,
		"numeric embed":    `{"@embed": 1}`,
		"non-empty object": `{"@type": {"@id": "http://example.com/T"}}`,
		"numeric type":     `{"@type": [1]}`,
	}

	for name, frame := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ld.NewProcessor().Frame(context.Background(), json.RawMessage(library), json.RawMessage(frame), "")
			if !errors.Is(err, ld.ErrInvalidDocument) {
				t.Fatalf("expected %q, got: %v", ld.ErrInvalidDocument, err)
			}
		})
	}
}
