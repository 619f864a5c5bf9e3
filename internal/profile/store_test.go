package profile

import (
	"os"
	"path/filepath"
	"testing"

	internalerrors "github.com/rcourtman/gnews-profiles/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `{
    "ranged": {
        "language": "ko",
        "country": "KR",
        "period": null,
        "start_date": "2024-01-01",
        "end_date": "2024-01-31",
        "max_results": 20,
        "exclude_websites": [
            "cnn.com"
        ],
        "proxy": "http://127.0.0.1:3128",
        "query": "반도체 & <chips>"
    },
    "temp": {
        "language": "en",
        "country": "US",
        "period": "7d",
        "start_date": null,
        "end_date": null,
        "max_results": 50,
        "exclude_websites": [],
        "proxy": null,
        "query": "AI"
    }
}
`

func TestFileStoreLoadMissingIsEmpty(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "search_profiles.json"))

	profiles, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestFileStoreLoadEmptyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o644))

	profiles, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestFileStoreRoundTripIsByteStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_profiles.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDocument), 0o644))
	store := NewFileStore(path)

	profiles, err := store.Load()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, []string{"ranged", "temp"}, profiles.Names())

	require.NoError(t, store.Save(profiles))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleDocument, string(data))
}

func TestFileStoreLoadDecodesRecord(t *testing.T) {
	profiles, err := Decode("sample", []byte(sampleDocument))
	require.NoError(t, err)

	p := profiles["ranged"]
	assert.Equal(t, "ranged", p.Name)
	assert.Equal(t, "반도체 & <chips>", p.Query)
	assert.Equal(t, "http://127.0.0.1:3128", p.Proxy)
	assert.Equal(t, []string{"cnn.com"}, p.ExcludeWebsites)
	r, ok := p.Range()
	require.True(t, ok)
	assert.Equal(t, "2024-01-01..2024-01-31", r.String())
}

func TestDecodeCorruptDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not json", `{"temp": `},
		{"wrong shape", `["temp"]`},
		{"unknown field", `{"temp": {"language": "en", "country": "US", "period": "7d", "max_results": 5, "query": "AI", "colour": "red"}}`},
		{"invalid record", `{"temp": {"language": "en", "country": "US", "max_results": 5, "query": "AI"}}`},
		{"both time groups", `{"temp": {"language": "en", "country": "US", "period": "7d", "start_date": "2024-01-01", "end_date": "2024-01-02", "max_results": 5, "query": "AI"}}`},
		{"wrong type", `{"temp": {"language": "en", "country": "US", "period": "7d", "max_results": "five", "query": "AI"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode("doc", []byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, internalerrors.ErrCorruptStore)
			assert.Equal(t, internalerrors.ExitCorrupt, internalerrors.ExitCode(err))
		})
	}
}

func TestFileStoreCorruptLeavesFileUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "search_profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	_, err := NewFileStore(path).Load()
	assert.ErrorIs(t, err, internalerrors.ErrCorruptStore)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{broken", string(data))
}

func TestEncodeEmpty(t *testing.T) {
	data, err := Encode(Profiles{})
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(data))
}

func TestMemoryStoreSharesEncoding(t *testing.T) {
	store := NewMemoryStoreFrom([]byte(sampleDocument))

	profiles, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(profiles))

	assert.Equal(t, sampleDocument, string(store.Bytes()))
	assert.Equal(t, 1, store.Saves())
}
