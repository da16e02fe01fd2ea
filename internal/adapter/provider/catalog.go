package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/cwygoda/coursedl/internal/domain"
	"github.com/gocolly/colly"
	log "github.com/sirupsen/logrus"
)

// Catalog discovers course identifiers from the provider sitemap.
type Catalog struct {
	sitemapURL string
	coursePath string
}

// NewCatalog creates a catalog reading sitemapURL and keeping every
// location that contains coursePath.
func NewCatalog(sitemapURL, coursePath string) *Catalog {
	return &Catalog{sitemapURL: sitemapURL, coursePath: coursePath}
}

// Discover returns the matching sitemap locations in document order,
// without duplicates.
func (c *Catalog) Discover(ctx context.Context, s *Session) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	col := s.Collector(ctx)
	col.MaxBodySize = 0 // sitemaps routinely exceed the default 10MB

	var ids []string
	seen := make(map[string]bool)
	col.OnXML("//loc", func(e *colly.XMLElement) {
		loc := strings.TrimSpace(e.Text)
		if !strings.Contains(loc, c.coursePath) || seen[loc] {
			return
		}
		seen[loc] = true
		ids = append(ids, loc)
	})

	visitErr := col.Visit(c.sitemapURL)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDiscovery, c.sitemapURL, visitErr)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no %q entries in %s", domain.ErrDiscovery, c.coursePath, c.sitemapURL)
	}

	log.WithField("sitemap", c.sitemapURL).Infof("discovered %d courses", len(ids))
	return ids, nil
}
