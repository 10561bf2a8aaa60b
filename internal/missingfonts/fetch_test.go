package missingfonts

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/blake3"
)

var fontBytes = []byte("OTTO fake font data")

func b3hex(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newFontServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/fonts/Test-Regular.otf" {
			http.NotFound(w, r)
			return
		}
		w.Write(fontBytes)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, srv *httptest.Server) *FontFetcher {
	return &FontFetcher{
		Dir:    filepath.Join(t.TempDir(), downloadDirName),
		Quiet:  true,
		Client: srv.Client(),
	}
}

func TestFontFetcherDownload(t *testing.T) {
	srv := newFontServer(t)
	f := newTestFetcher(t, srv)

	path, err := f.Download(context.Background(), srv.URL+"/fonts/Test-Regular.otf", Remedy{B3Sum: b3hex(fontBytes)})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.Dir, "Test-Regular.otf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fontBytes, data)

	assert.NoFileExists(t, path+".part")
	assert.FileExists(t, path+".lock")
}

func TestFontFetcherConcurrentDownloadsShareFile(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		w.Write(fontBytes)
	}))
	t.Cleanup(srv.Close)
	f := newTestFetcher(t, srv)

	var wg sync.WaitGroup
	paths := make([]string, 3)
	errs := make([]error, 3)
	for i := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], errs[i] = f.Download(context.Background(), srv.URL+"/fonts/Test-Regular.otf", Remedy{B3Sum: b3hex(fontBytes)})
		}()
	}
	wg.Wait()

	for i := range paths {
		require.NoError(t, errs[i])
		assert.Equal(t, filepath.Join(f.Dir, "Test-Regular.otf"), paths[i])
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, hits)
}

func TestFontFetcherRefetchesCorruptFile(t *testing.T) {
	srv := newFontServer(t)
	f := newTestFetcher(t, srv)
	require.NoError(t, os.MkdirAll(f.Dir, 0o755))
	stale := filepath.Join(f.Dir, "Test-Regular.otf")
	require.NoError(t, os.WriteFile(stale, []byte("truncated"), 0o644))

	path, err := f.Download(context.Background(), srv.URL+"/fonts/Test-Regular.otf", Remedy{B3Sum: b3hex(fontBytes)})
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, fontBytes, data)
}

func TestFontFetcherChecksumMismatch(t *testing.T) {
	srv := newFontServer(t)
	f := newTestFetcher(t, srv)

	_, err := f.Download(context.Background(), srv.URL+"/fonts/Test-Regular.otf", Remedy{B3Sum: b3hex([]byte("other"))})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errChecksumMismatch))

	assert.NoFileExists(t, filepath.Join(f.Dir, "Test-Regular.otf"))
	assert.NoFileExists(t, filepath.Join(f.Dir, "Test-Regular.otf.part"))
}

func TestFontFetcherHTTPError(t *testing.T) {
	srv := newFontServer(t)
	f := newTestFetcher(t, srv)

	_, err := f.Download(context.Background(), srv.URL+"/fonts/Missing.ttf", Remedy{})
	assert.ErrorContains(t, err, "404")
	_, statErr := os.Stat(filepath.Join(f.Dir, "Missing.ttf"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFontFetcherFallbackDir(t *testing.T) {
	srv := newFontServer(t)
	tmp := t.TempDir()
	blocker := filepath.Join(tmp, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	f := &FontFetcher{
		Dir:         filepath.Join(blocker, downloadDirName),
		FallbackDir: tmp,
		Quiet:       true,
		Client:      srv.Client(),
	}
	path, err := f.Download(context.Background(), srv.URL+"/fonts/Test-Regular.otf", Remedy{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "Test-Regular.otf"), path)
}

func TestFileName(t *testing.T) {
	name, err := fileName("https://fonts.example.org/dir/NotoSansHebrew-Regular.ttf?x=1")
	require.NoError(t, err)
	assert.Equal(t, "NotoSansHebrew-Regular.ttf", name)

	_, err = fileName("https://fonts.example.org/")
	assert.Error(t, err)
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := parseS3URL("s3://fonts-bucket/mozilla/latinmodern-math.otf")
	require.NoError(t, err)
	assert.Equal(t, "fonts-bucket", bucket)
	assert.Equal(t, "mozilla/latinmodern-math.otf", key)

	_, _, err = parseS3URL("s3://fonts-bucket/")
	assert.Error(t, err)
	_, _, err = parseS3URL("https://fonts.example.org/x.ttf")
	assert.Error(t, err)
}

func TestVerifyB3Sum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "font.ttf")
	require.NoError(t, os.WriteFile(path, fontBytes, 0o644))

	assert.NoError(t, verifyB3Sum(path, ""))
	assert.NoError(t, verifyB3Sum(path, b3hex(fontBytes)))
	assert.ErrorIs(t, verifyB3Sum(path, b3hex(nil)), errChecksumMismatch)
}
