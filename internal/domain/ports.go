package domain

import (
	"context"
	"net/http"
)

// ProgressStore is the driven port for durable progress.
// Load reports found=false with a nil error when nothing was persisted yet.
type ProgressStore interface {
	Load(ctx context.Context) (snap Snapshot, found bool, err error)
	Save(ctx context.Context, snap Snapshot) error
}

// Requester performs an HTTP request within an established session.
type Requester interface {
	Do(req *http.Request) (*http.Response, error)
}

// Downloader is the driven port writing one media URL to a destination file.
type Downloader interface {
	Name() string
	Download(ctx context.Context, r Requester, url, dest string) error
}
