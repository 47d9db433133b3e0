package ldforge_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	ld "sourcery.dny.nu/ldforge"
	"sourcery.dny.nu/ldforge/internal/json"
	"sourcery.dny.nu/ldforge/registry"
)

// StaticLoader serves documents from memory. Every call is counted in
// calls, when not nil.
func StaticLoader(tb testing.TB, docs map[string]string, calls *atomic.Int64) ld.LoaderFunc {
	tb.Helper()

	return func(_ context.Context, s string) (ld.RemoteDocument, error) {
		if calls != nil {
			calls.Add(1)
		}
		doc, ok := docs[s]
		if !ok {
			return ld.RemoteDocument{}, fmt.Errorf("no document at %s", s)
		}
		return ld.RemoteDocument{URL: s, Document: json.RawMessage(doc)}, nil
	}
}

// NewProcessor returns a processor whose resolver uses loader.
func NewProcessor(loader ld.LoaderFunc, opts ...ld.ProcessorOption) *ld.Processor {
	r := ld.NewResolver(registry.NewMemory(), ld.WithLoader(loader))
	return ld.NewProcessor(append([]ld.ProcessorOption{ld.WithResolver(r)}, opts...)...)
}

// JSONDiff should be used when diffing JSON documents.
func JSONDiff() cmp.Option {
	return cmp.Options{
		cmp.FilterValues(func(x, y json.RawMessage) bool {
			return json.Valid(x) && json.Valid(y)
		}, cmp.Transformer("ParseJSON", func(in json.RawMessage) (out any) {
			if err := json.Unmarshal(in, &out); err != nil {
				panic(err) // should never occur given previous filter to ensure valid JSON
			}
			return out
		})),
	}
}

func marshal(tb testing.TB, v any) json.RawMessage {
	tb.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("failed to marshal: %s", err)
	}
	return data
}
