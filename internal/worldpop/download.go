// Package worldpop downloads WorldPop gridded population rasters. Files are
// multi-hundred-megabyte, so the HTTPS path splits the download into parallel
// byte-range chunks when the server allows it.
package worldpop

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/breathe-india/aqcover/internal/fetcher"
)

// Options configures the downloader.
type Options struct {
	Chunks      int   // number of byte-range chunks (default 16)
	MinChunkLen int64 // below this size, download sequentially (default 8 MiB)
	Workers     int   // concurrent range requests (default 8)
}

func (o Options) withDefaults() Options {
	if o.Chunks <= 0 {
		o.Chunks = 16
	}
	if o.MinChunkLen <= 0 {
		o.MinChunkLen = 8 << 20
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	return o
}

// chunk is one byte range of the target file.
type chunk struct {
	index      int
	start, end int64 // inclusive
}

// planChunks splits size bytes into n near-equal ranges. The last chunk
// absorbs the remainder.
func planChunks(size int64, n int) []chunk {
	if n < 1 {
		n = 1
	}
	chunkLen := size / int64(n)
	if chunkLen == 0 {
		return []chunk{{index: 0, start: 0, end: size - 1}}
	}

	chunks := make([]chunk, 0, n)
	for i := 0; i < n; i++ {
		c := chunk{
			index: i,
			start: int64(i) * chunkLen,
			end:   int64(i+1)*chunkLen - 1,
		}
		if i == n-1 {
			c.end = size - 1
		}
		chunks = append(chunks, c)
	}
	return chunks
}

// Downloader fetches rasters over HTTPS or an FTP mirror.
type Downloader struct {
	http *fetcher.HTTPFetcher
	ftp  *fetcher.FTPFetcher
	opts Options
}

// New creates a Downloader.
func New(httpF *fetcher.HTTPFetcher, ftpF *fetcher.FTPFetcher, opts Options) *Downloader {
	return &Downloader{http: httpF, ftp: ftpF, opts: opts.withDefaults()}
}

// Fetch downloads rawURL to dest. ftp:// URLs go through the FTP mirror;
// HTTPS downloads run as parallel byte-range chunks when the server supports
// ranges and the file is large enough, otherwise as one sequential GET.
func (d *Downloader) Fetch(ctx context.Context, rawURL, dest string) (int64, error) {
	if strings.HasPrefix(rawURL, "ftp://") {
		if d.ftp == nil {
			return 0, eris.New("worldpop: ftp url given but no ftp fetcher configured")
		}
		zap.L().Info("worldpop: downloading via ftp", zap.String("url", rawURL))
		return d.ftp.DownloadToFile(ctx, rawURL, dest)
	}

	size, acceptRanges, err := d.http.Head(ctx, rawURL)
	if err != nil {
		return 0, eris.Wrap(err, "worldpop: probe file")
	}

	log := zap.L().With(zap.String("url", rawURL), zap.Int64("size", size))

	if !acceptRanges || size < d.opts.MinChunkLen*2 {
		log.Info("worldpop: sequential download",
			zap.Bool("accept_ranges", acceptRanges))
		return d.http.DownloadToFile(ctx, rawURL, dest)
	}

	n, err := d.fetchChunked(ctx, rawURL, dest, size)
	if err != nil {
		log.Warn("worldpop: chunked download failed, falling back to sequential", zap.Error(err))
		return d.http.DownloadToFile(ctx, rawURL, dest)
	}
	return n, nil
}

func (d *Downloader) fetchChunked(ctx context.Context, rawURL, dest string, size int64) (int64, error) {
	chunks := planChunks(size, d.opts.Chunks)

	zap.L().Info("worldpop: chunked download",
		zap.String("url", rawURL),
		zap.Int("chunks", len(chunks)),
		zap.Int("workers", d.opts.Workers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)

	for _, c := range chunks {
		g.Go(func() error {
			part := partPath(dest, c.index)
			if _, err := d.http.DownloadRange(ctx, rawURL, c.start, c.end, part); err != nil {
				return eris.Wrapf(err, "chunk %d", c.index)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cleanupParts(dest, len(chunks))
		return 0, err
	}

	n, err := mergeParts(dest, len(chunks))
	cleanupParts(dest, len(chunks))
	if err != nil {
		return 0, err
	}
	if n != size {
		return 0, eris.Errorf("worldpop: merged %d bytes, want %d", n, size)
	}
	return n, nil
}

func partPath(dest string, index int) string {
	return fmt.Sprintf("%s.part%d", dest, index)
}

// mergeParts concatenates part files in order into dest.
func mergeParts(dest string, count int) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, eris.Wrap(err, "worldpop: create output dir")
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrap(err, "worldpop: create output file")
	}
	defer out.Close() //nolint:errcheck

	var total int64
	for i := 0; i < count; i++ {
		in, err := os.Open(partPath(dest, i))
		if err != nil {
			return total, eris.Wrapf(err, "worldpop: open part %d", i)
		}
		n, err := io.Copy(out, in)
		_ = in.Close()
		total += n
		if err != nil {
			return total, eris.Wrapf(err, "worldpop: merge part %d", i)
		}
	}
	return total, nil
}

func cleanupParts(dest string, count int) {
	for i := 0; i < count; i++ {
		_ = os.Remove(partPath(dest, i))
	}
}
