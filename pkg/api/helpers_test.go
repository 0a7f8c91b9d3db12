package api

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ssargent/shredder/pkg/builder"
	"github.com/ssargent/shredder/pkg/catalog"
	"github.com/ssargent/shredder/pkg/image"
)

// collidesWith42 shares a bucket with key 42.
const collidesWith42 = 1586999

// setupTestServer creates a server over a catalog holding one table, users
func setupTestServer(t *testing.T, config ServerConfig) (*Server, *catalog.Catalog) {
	t.Helper()
	tmpDir := t.TempDir()

	b := builder.New()
	require.NoError(t, b.Put(42, []byte("AB")))
	require.NoError(t, b.Put(collidesWith42, []byte("XYZ")))
	require.NoError(t, b.Put(7, []byte{}))
	img, _, _, err := b.BuildImage()
	require.NoError(t, err)

	path := filepath.Join(tmpDir, "users.img")
	require.NoError(t, image.Write(path, img, image.WriteOptions{}))

	cat, err := catalog.Open(filepath.Join(tmpDir, "catalog"), catalog.Options{
		Image: image.OpenOptions{Mode: image.ModeRead, VerifyChecksum: true},
	})
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })

	_, err = cat.Register("users", path)
	require.NoError(t, err)

	server := NewServer(cat, config, NewMetrics(NewRegistry()), zaptest.NewLogger(t))
	return server, cat
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, data interface{}) APIResponse {
	t.Helper()

	var raw struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.APIResponse
}
