package worldpop

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breathe-india/aqcover/internal/fetcher"
	"github.com/breathe-india/aqcover/internal/resilience"
)

func TestPlanChunks(t *testing.T) {
	tests := []struct {
		name string
		size int64
		n    int
		want int
	}{
		{"even split", 1600, 16, 16},
		{"remainder to last", 1001, 4, 4},
		{"tiny file", 3, 16, 1},
		{"single chunk", 100, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := planChunks(tt.size, tt.n)
			require.Len(t, chunks, tt.want)

			// Contiguous, in order, covering [0, size-1].
			assert.Equal(t, int64(0), chunks[0].start)
			assert.Equal(t, tt.size-1, chunks[len(chunks)-1].end)
			var covered int64
			for i, c := range chunks {
				assert.Equal(t, i, c.index)
				if i > 0 {
					assert.Equal(t, chunks[i-1].end+1, c.start)
				}
				covered += c.end - c.start + 1
			}
			assert.Equal(t, tt.size, covered)
		})
	}
}

func rangeServer(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "ind.tif", time.Now(), bytes.NewReader(payload))
	}))
}

func testDownloader(chunks int, minChunk int64) *Downloader {
	httpF := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		Timeout: 5 * time.Second,
		Retry: resilience.RetryConfig{
			MaxAttempts:    2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
			Multiplier:     2,
		},
	})
	return New(httpF, nil, Options{Chunks: chunks, MinChunkLen: minChunk, Workers: 4})
}

func TestFetchChunked(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789"), 100) // 1000 bytes
	srv := rangeServer(t, payload)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ind.tif")
	n, err := testDownloader(7, 1).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Part files are cleaned up after the merge.
	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFetchSequentialWhenRangesUnsupported(t *testing.T) {
	payload := []byte("small raster payload without range support")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Accept-Ranges header, no 206 handling.
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ind.tif")
	n, err := testDownloader(8, 1).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetchSmallFileSkipsChunking(t *testing.T) {
	payload := []byte("tiny")
	srv := rangeServer(t, payload)
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "ind.tif")
	// MinChunkLen far above the payload size forces the sequential path.
	n, err := testDownloader(16, 1<<20).Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
}

func TestFetchFTPWithoutFetcher(t *testing.T) {
	_, err := testDownloader(4, 1).Fetch(context.Background(), "ftp://mirror.example/ind.tif", "/tmp/x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no ftp fetcher")
}
