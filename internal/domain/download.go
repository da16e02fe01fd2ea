package domain

import (
	"context"
	"fmt"
	"math/rand/v2"

	log "github.com/sirupsen/logrus"
)

// DownloadManager writes one clip to storage, picking a mirror among the
// offered candidates and retrying transport failures.
type DownloadManager struct {
	downloader Downloader
	policy     RetryPolicy
	pick       func(n int) int
}

// NewDownloadManager creates a manager using downloader and policy.
func NewDownloadManager(downloader Downloader, policy RetryPolicy) *DownloadManager {
	return &DownloadManager{
		downloader: downloader,
		policy:     policy,
		pick:       rand.IntN,
	}
}

// Fetch downloads one of candidates to dest. Every attempt draws a mirror
// uniformly at random, so retries may land on a different CDN.
func (m *DownloadManager) Fetch(ctx context.Context, r Requester, candidates []MediaCandidate, dest string) error {
	usable := make([]MediaCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.URL != "" {
			usable = append(usable, c)
		}
	}
	if len(usable) == 0 {
		return fmt.Errorf("%w: %s", ErrNoCandidates, dest)
	}

	err := m.policy.Do(ctx, func(attempt int) error {
		c := usable[m.pick(len(usable))]
		entry := log.WithFields(log.Fields{"dest": dest, "cdn": c.CDN, "attempt": attempt})
		entry.Debugf("downloading with %s", m.downloader.Name())
		if err := m.downloader.Download(ctx, r, c.URL, dest); err != nil {
			entry.Warnf("download failed: %v", err)
			return err
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %s: %w", ErrTransport, dest, err)
	}
	return nil
}
