package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"unicode"
	"unicode/utf8"

	"github.com/cwygoda/coursedl/internal/domain"
	"github.com/tidwall/gjson"
)

// MediaOptions are the fixed rendition parameters of a media query.
type MediaOptions struct {
	Quality   string
	Locale    string
	MediaType string
}

// DefaultMediaOptions requests 720p mp4 with English locale.
var DefaultMediaOptions = MediaOptions{Quality: "1280x720", Locale: "en", MediaType: "mp4"}

const viewClipQuery = `
query viewClip {
  viewClip(input: {
    author: %s,
    clipIndex: %d,
    courseName: %s,
    includeCaptions: false,
    locale: %s,
    mediaType: %s,
    moduleName: %s,
    quality: %s
  }) {
    urls {
      url
      cdn
      rank
      source
    },
    status
  }
}`

type queryBody struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// BuildViewClipQuery returns the JSON request body for one clip. Each
// string parameter is validated and quoted on its own.
func BuildViewClipQuery(r domain.ClipRequest, opts MediaOptions) ([]byte, error) {
	if r.ClipIndex < 0 {
		return nil, fmt.Errorf("%w: clip index %d", domain.ErrInvalidQuery, r.ClipIndex)
	}

	params := []struct{ name, value string }{
		{"author", r.Author},
		{"courseName", r.CourseID},
		{"locale", opts.Locale},
		{"mediaType", opts.MediaType},
		{"moduleName", r.ModuleName},
		{"quality", opts.Quality},
	}
	quoted := make(map[string]string, len(params))
	for _, p := range params {
		q, err := quoteLiteral(p.name, p.value)
		if err != nil {
			return nil, err
		}
		quoted[p.name] = q
	}

	query := fmt.Sprintf(viewClipQuery,
		quoted["author"],
		r.ClipIndex,
		quoted["courseName"],
		quoted["locale"],
		quoted["mediaType"],
		quoted["moduleName"],
		quoted["quality"],
	)
	return json.Marshal(queryBody{Query: query, Variables: map[string]any{}})
}

// quoteLiteral encodes s as a quoted string literal. JSON string escapes
// are a subset of the query language's.
func quoteLiteral(name, s string) (string, error) {
	if s == "" {
		return "", fmt.Errorf("%w: %s is empty", domain.ErrInvalidQuery, name)
	}
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", domain.ErrInvalidQuery, name)
	}
	for _, r := range s {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("%w: %s contains control characters", domain.ErrInvalidQuery, name)
		}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ClipLocator resolves the media locations of a clip.
type ClipLocator struct {
	queryURL string
	opts     MediaOptions
}

// NewClipLocator creates a locator posting to queryURL.
func NewClipLocator(queryURL string, opts MediaOptions) *ClipLocator {
	return &ClipLocator{queryURL: queryURL, opts: opts}
}

// Locate queries the media candidates of one clip. An answer without a
// candidate list yields an empty slice and no error. Invalid parameters
// are marked permanent so callers do not retry them.
func (l *ClipLocator) Locate(ctx context.Context, s *Session, r domain.ClipRequest) ([]domain.MediaCandidate, error) {
	body, err := BuildViewClipQuery(r, l.opts)
	if err != nil {
		return nil, domain.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.queryURL, bytes.NewReader(body))
	if err != nil {
		return nil, domain.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", domain.ErrTransport, err)
	}
	return ParseCandidates(data)
}

// ParseCandidates extracts data.viewClip.urls from a query response.
func ParseCandidates(data []byte) ([]domain.MediaCandidate, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: response is not JSON", domain.ErrTransport)
	}

	urls := gjson.GetBytes(data, "data.viewClip.urls")
	if !urls.Exists() || !urls.IsArray() {
		return nil, nil
	}

	var candidates []domain.MediaCandidate
	urls.ForEach(func(_, v gjson.Result) bool {
		u := v.Get("url").String()
		if u == "" {
			return true
		}
		candidates = append(candidates, domain.MediaCandidate{
			URL:    u,
			CDN:    v.Get("cdn").String(),
			Rank:   v.Get("rank").Float(),
			Source: v.Get("source").String(),
		})
		return true
	})
	return candidates, nil
}
