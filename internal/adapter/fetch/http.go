package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cwygoda/coursedl/internal/adapter/provider"
	"github.com/cwygoda/coursedl/internal/domain"
	log "github.com/sirupsen/logrus"
)

// HTTPDownloader streams media over the session into <dest>.part and
// renames it on completion. An existing .part file is resumed with a
// Range request.
type HTTPDownloader struct{}

// NewHTTPDownloader creates the native backend.
func NewHTTPDownloader() *HTTPDownloader {
	return &HTTPDownloader{}
}

func (d *HTTPDownloader) Name() string {
	return "native"
}

func (d *HTTPDownloader) Download(ctx context.Context, r domain.Requester, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("create target dir: %w", err)
	}

	part := partPath(dest)
	var offset int64
	if fi, err := os.Stat(part); err == nil {
		offset = fi.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := r.Do(req)
	if err != nil {
		var se *provider.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusRequestedRangeNotSatisfiable {
			// stale partial file, start over on the next attempt
			os.Remove(part)
		}
		return err
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY
	if resp.StatusCode == http.StatusPartialContent {
		flags |= os.O_APPEND
		log.WithField("dest", dest).Debugf("resuming at %d bytes", offset)
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(part, flags, 0644)
	if err != nil {
		return fmt.Errorf("open %s: %w", part, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: copy %s: %w", domain.ErrTransport, url, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(part, dest)
}
