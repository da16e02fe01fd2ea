package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"

	"github.com/cwygoda/coursedl/internal/domain"
	"github.com/gocolly/colly"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// StatusError is returned for HTTP responses with status >= 400.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap classifies every bad status as a transport failure.
func (e *StatusError) Unwrap() error { return domain.ErrTransport }

// Session is an HTTP context sharing one cookie jar between plain requests
// and markup collectors. Only the SessionManager creates sessions.
type Session struct {
	client        *http.Client
	jar           *cookiejar.Jar
	transport     http.RoundTripper
	userAgent     string
	authenticated bool
}

// Do sends req with the session cookies and user agent.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", s.userAgent)
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %w", domain.ErrTransport, req.Method, req.URL, err)
	}

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: req.URL.String(), Body: string(b)}
	}
	return resp, nil
}

// Collector returns a fresh collector bound to the session cookies. Its
// requests, including the rate limiter wait, are cancelled with ctx.
func (s *Session) Collector(ctx context.Context) *colly.Collector {
	c := colly.NewCollector(colly.UserAgent(s.userAgent))
	c.SetCookieJar(s.jar)
	c.WithTransport(&ctxTransport{ctx: ctx, base: s.transport})
	return c
}

// Authenticated reports whether the session passed the login flow.
func (s *Session) Authenticated() bool {
	return s.authenticated
}

// Manager establishes sessions against the provider.
type Manager struct {
	endpoints Endpoints
	userAgent string
	base      http.RoundTripper
	limit     float64
	transport http.RoundTripper
}

// Option configures a Manager.
type Option func(m *Manager)

// WithUserAgent overrides DefaultUserAgent.
func WithUserAgent(ua string) Option {
	return func(m *Manager) {
		m.userAgent = ua
	}
}

// WithTransport sets the underlying round tripper.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) {
		m.base = rt
	}
}

// WithRateLimit caps requests per second across all sessions of the
// manager. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(m *Manager) {
		m.limit = rps
	}
}

// NewManager creates a session manager for endpoints.
func NewManager(endpoints Endpoints, opts ...Option) *Manager {
	m := &Manager{
		endpoints: endpoints,
		userAgent: DefaultUserAgent,
		base:      http.DefaultTransport,
	}
	for _, fn := range opts {
		fn(m)
	}
	m.transport = m.base
	if m.limit > 0 {
		m.transport = &limitedTransport{
			base:    m.base,
			limiter: rate.NewLimiter(rate.Limit(m.limit), 1),
		}
	}
	return m
}

func (m *Manager) newSession() *Session {
	jar, _ := cookiejar.New(nil)
	return &Session{
		client:    &http.Client{Jar: jar, Transport: m.transport},
		jar:       jar,
		transport: m.transport,
		userAgent: m.userAgent,
	}
}

// Anonymous returns an unauthenticated session.
func (m *Manager) Anonymous() *Session {
	return m.newSession()
}

// Login fetches the login page, submits the credentials into its form and
// follows the redirect. A missing form or a form shown again after
// submission is reported as domain.ErrAuth.
func (m *Manager) Login(ctx context.Context, username, password string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := m.newSession()
	c := s.Collector(ctx)

	var (
		found     bool
		rejected  bool
		submitErr error
	)
	c.OnHTML("form", func(e *colly.HTMLElement) {
		if !m.isLoginForm(e) {
			return
		}
		if e.Request.Method != http.MethodGet {
			rejected = true
			return
		}
		if found {
			return
		}
		found = true

		fields := make(map[string]string)
		e.ForEach("input[name]", func(_ int, in *colly.HTMLElement) {
			fields[in.Attr("name")] = in.Attr("value")
		})
		fields["Username"] = username
		fields["Password"] = password

		action := e.Request.AbsoluteURL(e.Attr("action"))
		log.WithField("action", action).Debug("submitting login form")
		submitErr = e.Request.Post(action, fields)
	})

	visitErr := c.Visit(m.endpoints.LoginURL)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if visitErr != nil {
		return nil, fmt.Errorf("%w: login page: %v", domain.ErrAuth, visitErr)
	}
	switch {
	case !found:
		return nil, fmt.Errorf("%w: login form %q not found", domain.ErrAuth, m.endpoints.LoginAction)
	case submitErr != nil:
		return nil, fmt.Errorf("%w: submit: %v", domain.ErrAuth, submitErr)
	case rejected:
		return nil, fmt.Errorf("%w: credentials rejected", domain.ErrAuth)
	}

	s.authenticated = true
	log.WithField("user", username).Info("logged in")
	return s, nil
}

func (m *Manager) isLoginForm(e *colly.HTMLElement) bool {
	action := e.Attr("action")
	if action == m.endpoints.LoginAction {
		return true
	}
	u, err := url.Parse(e.Request.AbsoluteURL(action))
	if err != nil {
		return false
	}
	return u.Path == m.endpoints.LoginAction
}

// limitedTransport waits on a shared limiter before every request.
type limitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(req)
}

// ctxTransport attaches ctx to requests issued by a collector, which
// itself has no notion of cancellation.
type ctxTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t *ctxTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}
