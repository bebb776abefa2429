package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"jobpilot/internal/errors"
	"jobpilot/internal/types"

	"golang.org/x/sync/errgroup"
)

// Downloader fetches a generated document by absolute URL
type Downloader interface {
	Download(ctx context.Context, fileURL string, w io.Writer) (int64, error)
}

// SavedFile is one document written to disk
type SavedFile struct {
	Kind  string `json:"kind" yaml:"kind"`
	URL   string `json:"url" yaml:"url"`
	Path  string `json:"path" yaml:"path"`
	Bytes int64  `json:"bytes" yaml:"bytes"`
}

// DownloadArtifacts saves every generated document of jobID into dir.
// Files are named <jobID>-<kind><ext>. Partial files are removed on failure.
func DownloadArtifacts(ctx context.Context, d Downloader, origin, dir, jobID string, files types.GeneratedArtifacts) ([]SavedFile, error) {
	paths := files.Paths()
	if len(paths) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "no generated documents to download", nil)
	}
	// the id comes from the server and becomes part of a local file name
	if jobID == "" || strings.ContainsAny(jobID, `/\`) || jobID != filepath.Base(jobID) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("job id %q cannot be used in a file name", jobID), nil)
	}
	if err := ensureDir(dir); err != nil {
		return nil, err
	}

	var (
		mu    sync.Mutex
		saved []SavedFile
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)
	for kind, rel := range paths {
		g.Go(func() error {
			link, err := types.URL(origin, rel)
			if err != nil {
				return errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), err)
			}
			name := fmt.Sprintf("%s-%s%s", jobID, kind, path.Ext(rel))
			dest := filepath.Join(dir, name)
			n, err := saveTo(gctx, d, link, dest)
			if err != nil {
				return err
			}
			mu.Lock()
			saved = append(saved, SavedFile{Kind: kind, URL: link, Path: dest, Bytes: n})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(saved, func(i, j int) bool { return saved[i].Kind < saved[j].Kind })
	return saved, nil
}

func saveTo(ctx context.Context, d Downloader, link, dest string) (int64, error) {
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", dest), err)
	}
	n, err := d.Download(ctx, link, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", dest), cerr)
	}
	if err != nil {
		_ = os.Remove(dest)
		return 0, err
	}
	return n, nil
}
