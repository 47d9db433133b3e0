package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGoName(t *testing.T) {
	tests := map[string]string{
		"name":         "Name",
		"inReplyTo":    "InReplyTo",
		"url":          "URL",
		"streamUrl":    "StreamURL",
		"id":           "ID",
		"Person":       "TypePerson",
		"IsFollowedBy": "RelationshipIsFollowedBy",
		"as:Public":    "As_Public",
		"dc-title":     "Dc_title",
	}

	for in, want := range tests {
		if got := goName(in); got != want {
			t.Errorf("goName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "context.jsonld")
	err := os.WriteFile(path, []byte(`{"@context": {"ex": "http://example.com/ns#", "name": "ex:name"}}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	err = generate(context.Background(), options{
		contextFile: path,
		namespace:   "http://example.com/ns#",
		packageName: "vocab",
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	want := `// Code generated by vocabgen. DO NOT EDIT.

package vocab

// Namespace is the IRI prefix used for terms defined in this context that don't
// map to a different namespace.
const Namespace = "http://example.com/ns#"

const (
	// Name is a string or an object.
	Name = Namespace + "name"
)
`
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("generated code mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateCanned(t *testing.T) {
	var out bytes.Buffer
	err := generate(context.Background(), options{
		documentIRI: "https://www.w3.org/ns/activitystreams",
		namespace:   "https://www.w3.org/ns/activitystreams#",
		packageName: "as",
	}, &out)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	src := out.String()
	for _, want := range []string{
		`const IRI = "https://www.w3.org/ns/activitystreams"`,
		`const Namespace = IRI + "#"`,
		"TypeNote",
		"InReplyTo",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("expected generated code to contain %q", want)
		}
	}
}
