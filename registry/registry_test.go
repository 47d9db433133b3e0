package registry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sourcery.dny.nu/ldforge/internal/json"
)

var sample = []Entry{
	{URN: "urn:context:1", Document: json.RawMessage(`{"@context":{"name":"https://schema.org/name"}}`)},
	{URN: "urn:context:2", Document: json.RawMessage(`{"@context":{"@vocab":"http://example.org/"}}`)},
}

func TestEntryJSON(t *testing.T) {
	data, err := json.Marshal(sample[0])
	require.NoError(t, err)
	assert.JSONEq(t, `["urn:context:1",{"@context":{"name":"https://schema.org/name"}}]`, string(data))

	var e Entry
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, sample[0].URN, e.URN)
	assert.JSONEq(t, string(sample[0].Document), string(e.Document))

	assert.Error(t, json.Unmarshal([]byte(`["only-one"]`), &e))
}

func TestEntryKeepsKeyOrder(t *testing.T) {
	doc := `{"@context":{"zeta":"http://example.org/zeta","@vocab":"http://example.org/","alpha":"http://example.org/alpha"}}`

	s := NewFile(filepath.Join(t.TempDir(), "registry.json"))
	require.NoError(t, s.Save(context.Background(), []Entry{{URN: "urn:context:1", Document: json.RawMessage(doc)}}))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, doc, string(got[0].Document))
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.Save(ctx, sample))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range sample {
		assert.Equal(t, sample[i].URN, got[i].URN)
		assert.JSONEq(t, string(sample[i].Document), string(got[i].Document))
	}
}

func TestMemory(t *testing.T) {
	testStore(t, NewMemory())
}

func TestFile(t *testing.T) {
	testStore(t, NewFile(filepath.Join(t.TempDir(), "registry.json")))
}

func TestFileCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0o600))

	_, err := NewFile(path).Load(context.Background())
	assert.Error(t, err)
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedis(context.Background(), RedisOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	testStore(t, store)

	raw, err := mr.Get(DefaultRedisKey)
	require.NoError(t, err)
	assert.Contains(t, raw, "urn:context:2")
}

func TestRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedis(context.Background(), RedisOptions{URL: fmt.Sprintf("redis://%s", addr)})
	assert.Error(t, err)
}
