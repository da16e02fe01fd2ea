package provider

// Endpoints are the fixed provider URLs.
type Endpoints struct {
	SitemapURL  string
	CoursePath  string
	LoginURL    string
	LoginAction string
	MetadataURL string // contains the :course_name placeholder
	QueryURL    string
}

// DefaultEndpoints targets the public provider.
var DefaultEndpoints = Endpoints{
	SitemapURL:  "https://www.pluralsight.com/sitemap.xml",
	CoursePath:  "/courses/",
	LoginURL:    "https://app.pluralsight.com/id?redirectTo=%2Fid%2Fdashboard",
	LoginAction: "/id/",
	MetadataURL: "https://app.pluralsight.com/learner/content/courses/:course_name",
	QueryURL:    "https://app.pluralsight.com/player/api/graphql",
}

// DefaultUserAgent mimics a desktop Firefox.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:128.0) Gecko/20100101 Firefox/128.0"

// Override returns e with every non-empty field of o applied.
func (e Endpoints) Override(o Endpoints) Endpoints {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&e.SitemapURL, o.SitemapURL)
	set(&e.CoursePath, o.CoursePath)
	set(&e.LoginURL, o.LoginURL)
	set(&e.LoginAction, o.LoginAction)
	set(&e.MetadataURL, o.MetadataURL)
	set(&e.QueryURL, o.QueryURL)
	return e
}
