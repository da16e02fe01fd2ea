package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bitly/go-simplejson"
	"github.com/cwygoda/coursedl/internal/domain"
)

// MetadataFetcher retrieves the module and clip layout of a course.
type MetadataFetcher struct {
	urlTemplate string
}

// NewMetadataFetcher creates a fetcher. urlTemplate must contain the
// :course_name placeholder.
func NewMetadataFetcher(urlTemplate string) *MetadataFetcher {
	return &MetadataFetcher{urlTemplate: urlTemplate}
}

// URL returns the metadata location for a catalog identifier.
func (f *MetadataFetcher) URL(identifier string) string {
	return strings.ReplaceAll(f.urlTemplate, ":course_name", url.PathEscape(domain.ShortName(identifier)))
}

// Fetch downloads and decodes the metadata of one course. Every failure
// other than cancellation is reported as domain.ErrMetadata.
func (f *MetadataFetcher) Fetch(ctx context.Context, s *Session, identifier string) (*domain.CourseInfo, error) {
	if domain.ShortName(identifier) == "" {
		return nil, fmt.Errorf("%w: no course name in %q", domain.ErrMetadata, identifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(identifier), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMetadata, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMetadata, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrMetadata, err)
	}
	return ParseCourse(body)
}

// ParseCourse decodes a course metadata document. id, audiences and
// modules are required; the author is the second "|" field of the first
// module id and each module name is the last one.
func ParseCourse(data []byte) (*domain.CourseInfo, error) {
	js, err := simplejson.NewJson(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMetadata, err)
	}

	id, err := js.Get("id").String()
	if err != nil || id == "" {
		return nil, fmt.Errorf("%w: missing id", domain.ErrMetadata)
	}

	audJS, ok := js.CheckGet("audiences")
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing audiences", domain.ErrMetadata, id)
	}
	audiences, err := audJS.StringArray()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: audiences: %v", domain.ErrMetadata, id, err)
	}

	modsJS, ok := js.CheckGet("modules")
	if !ok {
		return nil, fmt.Errorf("%w: %s: missing modules", domain.ErrMetadata, id)
	}
	raw, err := modsJS.Array()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: modules: %v", domain.ErrMetadata, id, err)
	}

	info := &domain.CourseInfo{ID: id, Audiences: audiences}
	for i := range raw {
		m := modsJS.GetIndex(i)
		modID, err := m.Get("id").String()
		if err != nil || modID == "" {
			return nil, fmt.Errorf("%w: %s: module %d has no id", domain.ErrMetadata, id, i)
		}
		parts := strings.Split(modID, "|")
		mod := domain.Module{ID: modID, Name: parts[len(parts)-1]}

		clipsJS := m.Get("clips")
		clips, _ := clipsJS.Array()
		for j := range clips {
			mod.Clips = append(mod.Clips, domain.Clip{
				Index: j,
				Title: clipsJS.GetIndex(j).Get("title").MustString(),
			})
		}
		info.Modules = append(info.Modules, mod)
	}

	if len(info.Modules) > 0 {
		parts := strings.Split(info.Modules[0].ID, "|")
		if len(parts) < 2 || parts[1] == "" {
			return nil, fmt.Errorf("%w: %s: no author in module id %q", domain.ErrMetadata, id, info.Modules[0].ID)
		}
		info.Author = parts[1]
	}
	return info, nil
}
