package domain

import (
	"net/url"
	"strings"
)

// CourseInfo is the structured metadata of one catalog entry.
// It is fetched again on every run and never persisted.
type CourseInfo struct {
	ID        string
	Author    string
	Audiences []string
	Modules   []Module
}

// Module is an ordered group of clips inside a course.
type Module struct {
	ID    string
	Name  string
	Clips []Clip
}

// Clip is the smallest downloadable media unit. Index is its position
// inside the module.
type Clip struct {
	Index int
	Title string
}

// MediaCandidate is one mirror offering a clip's content.
type MediaCandidate struct {
	URL    string
	CDN    string
	Rank   float64
	Source string
}

// ClipRequest identifies one clip for a media-location query.
type ClipRequest struct {
	Author     string
	CourseID   string
	ModuleName string
	ClipIndex  int
}

// InDomains reports whether any of the course audiences is accepted.
func (c *CourseInfo) InDomains(accepted []string) bool {
	for _, a := range c.Audiences {
		for _, d := range accepted {
			if a == d {
				return true
			}
		}
	}
	return false
}

// ClipCount returns the number of clips across all modules.
func (c *CourseInfo) ClipCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Clips)
	}
	return n
}

// ShortName returns the last non-empty path segment of a catalog
// identifier, e.g. "go-fundamentals" for
// "https://www.example.com/courses/go-fundamentals/".
func ShortName(identifier string) string {
	p := identifier
	if u, err := url.Parse(identifier); err == nil && u.Path != "" {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		return p[idx+1:]
	}
	return p
}
