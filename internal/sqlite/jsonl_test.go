package sqlite

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type jsonlRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestReadJSONL(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []jsonlRecord
		wantErr string
	}{
		{
			name:    "records",
			content: "{\"id\":1,\"name\":\"News\"}\n{\"id\":2,\"name\":\"Tech\"}\n",
			want:    []jsonlRecord{{1, "News"}, {2, "Tech"}},
		},
		{
			name:    "empty lines skipped",
			content: "{\"id\":1,\"name\":\"News\"}\n\n{\"id\":2,\"name\":\"Tech\"}\n\n",
			want:    []jsonlRecord{{1, "News"}, {2, "Tech"}},
		},
		{
			name:    "empty file",
			content: "",
			want:    []jsonlRecord{},
		},
		{
			name:    "malformed line",
			content: "{\"id\":1,\"name\":\"News\"}\n{not json\n",
			wantErr: "test.jsonl line 2",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "test.jsonl")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			got, err := readJSONL[jsonlRecord](path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadJSONL_MissingFile(t *testing.T) {
	_, err := readJSONL[jsonlRecord](filepath.Join(t.TempDir(), "absent.jsonl"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteJSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("stale\n"), 0o644))

	records := []jsonlRecord{{1, "R&D <lab>"}, {2, "Tech"}}
	require.NoError(t, writeJSONL(path, records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `{"id":1,"name":"R&D <lab>"}`, lines[0])

	got, err := readJSONL[jsonlRecord](path)
	require.NoError(t, err)
	assert.Equal(t, records, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestWriteJSONL_MissingDirLeavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.jsonl")
	assert.Error(t, writeJSONL(path, []jsonlRecord{{1, "News"}}))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
