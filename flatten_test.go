package ldforge_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	ld "sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
)

func TestFlatten(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		context string
		output  string
	}{
		{
			name: "embedded node gets a blank node identifier",
			input: `{
				"@context": {"@vocab": "http://example.com/"},
				"@id": "http://example.com/ann",
				"knows": {"name": "Bob"}
			}`,
			output: `{"@graph": [
				{"@id": "_:b0", "http://example.com/name": [{"@value": "Bob"}]},
				{"@id": "http://example.com/ann", "http://example.com/knows": [{"@id": "_:b0"}]}
			]}`,
		},
		{
			name: "compacted",
			input: `{
				"@context": {"@vocab": "http://example.com/"},
				"@id": "http://example.com/ann",
				"knows": {"name": "Bob"}
			}`,
			context: `{"@vocab": "http://example.com/"}`,
			output: `{"@context": {"@vocab": "http://example.com/"}, "@graph": [
				{"@id": "_:b0", "name": "Bob"},
				{"@id": "http://example.com/ann", "knows": {"@id": "_:b0"}}
			]}`,
		},
		{
			name:    "single node keeps @graph",
			input:   `{"@id": "http://example.com/ann", "http://example.com/name": "Ann"}`,
			context: `{"@context": {"@vocab": "http://example.com/"}}`,
			output:  `{"@context": {"@vocab": "http://example.com/"}, "@graph": [{"@id": "http://example.com/ann", "name": "Ann"}]}`,
		},
		{
			name: "nodes with the same identifier are merged",
			input: `[
				{"@id": "http://example.com/a", "http://example.com/p": "x"},
				{"@id": "http://example.com/a", "http://example.com/p": "x", "http://example.com/q": "y"}
			]`,
			output: `{"@graph": [
				{"@id": "http://example.com/a", "http://example.com/p": [{"@value": "x"}], "http://example.com/q": [{"@value": "y"}]}
			]}`,
		},
		{
			name:   "references are dropped",
			input:  `{"@id": "http://example.com/a", "http://example.com/p": {"@id": "http://example.com/b"}}`,
			output: `{"@graph": [{"@id": "http://example.com/a", "http://example.com/p": [{"@id": "http://example.com/b"}]}]}`,
		},
		{
			name: "nodes with only null properties are dropped",
			input: `[
				{"@id": "http://example.com/a", "http://example.com/p": null},
				{"@id": "http://example.com/b", "http://example.com/p": {"@value": null}, "http://example.com/q": "x"}
			]`,
			output: `{"@graph": [{"@id": "http://example.com/b", "http://example.com/q": [{"@value": "x"}]}]}`,
		},
		{
			name: "blank nodes are relabelled",
			input: `{
				"@id": "_:x",
				"http://example.com/p": {"@id": "_:y", "http://example.com/q": "z"}
			}`,
			output: `{"@graph": [
				{"@id": "_:b0", "http://example.com/p": [{"@id": "_:b1"}]},
				{"@id": "_:b1", "http://example.com/q": [{"@value": "z"}]}
			]}`,
		},
		{
			name: "named graph",
			input: `{
				"@id": "http://example.com/g",
				"@graph": [{"@id": "http://example.com/a", "http://example.com/p": "x"}]
			}`,
			output: `{"@graph": [
				{"@id": "http://example.com/g", "@graph": [{"@id": "http://example.com/a", "http://example.com/p": [{"@value": "x"}]}]}
			]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ld.NewProcessor().Flatten(context.Background(), json.RawMessage(tt.input), json.RawMessage(tt.context), "")
			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if diff := cmp.Diff(json.RawMessage(tt.output), res, JSONDiff()); diff != "" {
				t.Errorf("flatten mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
