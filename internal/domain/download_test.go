package domain

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

// mockDownloader implements Downloader for testing.
type mockDownloader struct {
	failures int
	urls     []string
	dests    []string
}

func (d *mockDownloader) Name() string { return "mock" }

func (d *mockDownloader) Download(ctx context.Context, r Requester, url, dest string) error {
	d.urls = append(d.urls, url)
	d.dests = append(d.dests, dest)
	if d.failures > 0 {
		d.failures--
		return errors.New("connection refused")
	}
	return nil
}

type nopRequester struct{}

func (nopRequester) Do(req *http.Request) (*http.Response, error) { return nil, errors.New("unused") }

func testPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 5,
		Delay:    time.Millisecond,
		Sleep:    func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func TestDownloadManager_Fetch(t *testing.T) {
	d := &mockDownloader{}
	m := NewDownloadManager(d, testPolicy())

	candidates := []MediaCandidate{{URL: "https://cdn1/clip.mp4", CDN: "cdn1"}}
	if err := m.Fetch(context.Background(), nopRequester{}, candidates, "/tmp/x/0 Intro.mp4"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(d.urls) != 1 || d.urls[0] != "https://cdn1/clip.mp4" {
		t.Errorf("downloaded %v", d.urls)
	}
	if d.dests[0] != "/tmp/x/0 Intro.mp4" {
		t.Errorf("dest = %q", d.dests[0])
	}
}

func TestDownloadManager_NoCandidates(t *testing.T) {
	d := &mockDownloader{}
	m := NewDownloadManager(d, testPolicy())

	tests := []struct {
		name       string
		candidates []MediaCandidate
	}{
		{"nil", nil},
		{"empty urls", []MediaCandidate{{CDN: "cdn1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Fetch(context.Background(), nopRequester{}, tt.candidates, "dest")
			if !errors.Is(err, ErrNoCandidates) {
				t.Errorf("Fetch() error = %v, want %v", err, ErrNoCandidates)
			}
		})
	}
	if len(d.urls) != 0 {
		t.Errorf("downloader called %d times, want 0", len(d.urls))
	}
}

func TestDownloadManager_RetryBound(t *testing.T) {
	d := &mockDownloader{failures: 100}
	m := NewDownloadManager(d, testPolicy())

	err := m.Fetch(context.Background(), nopRequester{}, []MediaCandidate{{URL: "u"}}, "dest")
	if !errors.Is(err, ErrTransport) {
		t.Errorf("Fetch() error = %v, want %v", err, ErrTransport)
	}
	if len(d.urls) != 5 {
		t.Errorf("attempts = %d, want 5", len(d.urls))
	}
}

func TestDownloadManager_FailsOverBetweenMirrors(t *testing.T) {
	d := &mockDownloader{failures: 1}
	m := NewDownloadManager(d, testPolicy())
	next := 0
	m.pick = func(n int) int {
		i := next % n
		next++
		return i
	}

	candidates := []MediaCandidate{{URL: "a"}, {URL: "b"}}
	if err := m.Fetch(context.Background(), nopRequester{}, candidates, "dest"); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(d.urls) != 2 || d.urls[0] != "a" || d.urls[1] != "b" {
		t.Errorf("urls = %v, want [a b]", d.urls)
	}
}

func TestDownloadManager_PickStaysInRange(t *testing.T) {
	m := NewDownloadManager(&mockDownloader{}, testPolicy())
	for i := 0; i < 100; i++ {
		if got := m.pick(3); got < 0 || got >= 3 {
			t.Fatalf("pick(3) = %d", got)
		}
	}
}
