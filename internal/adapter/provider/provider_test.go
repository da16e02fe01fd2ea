package provider

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

const loginPage = `<html><body>
<form action="/id/" method="post">
  <input type="hidden" name="csrfToken" value="tok-123">
  <input type="text" name="Username">
  <input type="password" name="Password">
  <button type="submit">Sign in</button>
</form>
</body></html>`

// fakeProvider serves the login flow and records what it received.
type fakeProvider struct {
	*httptest.Server
	gotForm map[string]string
}

func newFakeProvider(t *testing.T, extra func(mux *http.ServeMux)) *fakeProvider {
	t.Helper()
	fp := &fakeProvider{}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /id", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(loginPage))
	})
	mux.HandleFunc("POST /id/", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		fp.gotForm = map[string]string{}
		for k := range r.PostForm {
			fp.gotForm[k] = r.PostForm.Get(k)
		}
		if r.PostForm.Get("Username") != "alice" || r.PostForm.Get("Password") != "secret" {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(loginPage))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "ok", Path: "/"})
		http.Redirect(w, r, "/id/dashboard", http.StatusFound)
	})
	mux.HandleFunc("GET /id/dashboard", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body><p>Welcome</p></body></html>`))
	})
	mux.HandleFunc("GET /whoami", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session")
		if err != nil || c.Value != "ok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(r.UserAgent()))
	})
	if extra != nil {
		extra(mux)
	}

	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) endpoints() Endpoints {
	return Endpoints{
		SitemapURL:  fp.URL + "/sitemap.xml",
		CoursePath:  "/courses/",
		LoginURL:    fp.URL + "/id?redirectTo=%2Fid%2Fdashboard",
		LoginAction: "/id/",
		MetadataURL: fp.URL + "/learner/content/courses/:course_name",
		QueryURL:    fp.URL + "/player/api/graphql",
	}
}
