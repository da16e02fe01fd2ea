package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/cwygoda/coursedl/internal/domain"
)

func TestBuildViewClipQuery(t *testing.T) {
	body, err := BuildViewClipQuery(domain.ClipRequest{
		Author:     "nigel-poulton",
		CourseID:   "go-fundamentals",
		ModuleName: "intro",
		ClipIndex:  3,
	}, DefaultMediaOptions)
	if err != nil {
		t.Fatalf("BuildViewClipQuery() error = %v", err)
	}

	var q queryBody
	if err := json.Unmarshal(body, &q); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	for _, want := range []string{
		`author: "nigel-poulton"`,
		`clipIndex: 3`,
		`courseName: "go-fundamentals"`,
		`moduleName: "intro"`,
		`quality: "1280x720"`,
		`mediaType: "mp4"`,
		`locale: "en"`,
	} {
		if !strings.Contains(q.Query, want) {
			t.Errorf("query missing %q:\n%s", want, q.Query)
		}
	}
	if q.Variables == nil {
		t.Error("variables = nil, want empty object")
	}
}

func TestBuildViewClipQuery_EscapesParameters(t *testing.T) {
	body, err := BuildViewClipQuery(domain.ClipRequest{
		Author:     `evil", clipIndex: 99, x: "`,
		CourseID:   "c",
		ModuleName: "m",
	}, DefaultMediaOptions)
	if err != nil {
		t.Fatalf("BuildViewClipQuery() error = %v", err)
	}

	var q queryBody
	json.Unmarshal(body, &q)
	if !strings.Contains(q.Query, `author: "evil\", clipIndex: 99, x: \"",`) {
		t.Errorf("author not escaped:\n%s", q.Query)
	}
	if strings.Count(q.Query, "clipIndex: 0") != 1 {
		t.Errorf("clipIndex altered:\n%s", q.Query)
	}
}

func TestBuildViewClipQuery_Invalid(t *testing.T) {
	valid := domain.ClipRequest{Author: "a", CourseID: "c", ModuleName: "m"}

	tests := []struct {
		name   string
		mutate func(r *domain.ClipRequest)
	}{
		{"negative index", func(r *domain.ClipRequest) { r.ClipIndex = -1 }},
		{"empty author", func(r *domain.ClipRequest) { r.Author = "" }},
		{"empty course", func(r *domain.ClipRequest) { r.CourseID = "" }},
		{"control char", func(r *domain.ClipRequest) { r.ModuleName = "m\nquery" }},
		{"invalid utf8", func(r *domain.ClipRequest) { r.ModuleName = "\xff" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			_, err := BuildViewClipQuery(r, DefaultMediaOptions)
			if !errors.Is(err, domain.ErrInvalidQuery) {
				t.Errorf("BuildViewClipQuery() error = %v, want %v", err, domain.ErrInvalidQuery)
			}
		})
	}
}

func TestParseCandidates(t *testing.T) {
	data := `{"data":{"viewClip":{"urls":[
		{"url":"https://cdn1.example.com/a.mp4","cdn":"cdn1","rank":1,"source":"s3"},
		{"url":"","cdn":"broken","rank":2,"source":"s3"},
		{"url":"https://cdn2.example.com/a.mp4","cdn":"cdn2","rank":2.5,"source":"akamai"}
	],"status":200}}}`

	got, err := ParseCandidates([]byte(data))
	if err != nil {
		t.Fatalf("ParseCandidates() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ParseCandidates() = %d candidates, want 2", len(got))
	}
	if got[1].CDN != "cdn2" || got[1].Rank != 2.5 || got[1].Source != "akamai" {
		t.Errorf("candidate = %+v", got[1])
	}
}

func TestParseCandidates_Absent(t *testing.T) {
	tests := []string{
		`{"data":{"viewClip":null}}`,
		`{"errors":[{"message":"not authorized"}]}`,
		`{"data":{"viewClip":{"urls":null}}}`,
	}
	for _, data := range tests {
		got, err := ParseCandidates([]byte(data))
		if err != nil {
			t.Errorf("ParseCandidates(%s) error = %v, want nil", data, err)
		}
		if len(got) != 0 {
			t.Errorf("ParseCandidates(%s) = %v, want empty", data, got)
		}
	}
}

func TestParseCandidates_NotJSON(t *testing.T) {
	_, err := ParseCandidates([]byte("<html>rate limited</html>"))
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("ParseCandidates() error = %v, want %v", err, domain.ErrTransport)
	}
}

func TestClipLocator_Locate(t *testing.T) {
	var gotType, gotBody string
	fp := newFakeProvider(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /player/api/graphql", func(w http.ResponseWriter, r *http.Request) {
			gotType = r.Header.Get("Content-Type")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"data":{"viewClip":{"urls":[{"url":"https://cdn/x.mp4","cdn":"c","rank":1,"source":"s"}]}}}`))
		})
	})
	endpoints := fp.endpoints()
	s := NewManager(endpoints).Anonymous()
	l := NewClipLocator(endpoints.QueryURL, DefaultMediaOptions)

	got, err := l.Locate(context.Background(), s, domain.ClipRequest{
		Author: "a", CourseID: "c", ModuleName: "m", ClipIndex: 1,
	})
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if len(got) != 1 || got[0].URL != "https://cdn/x.mp4" {
		t.Errorf("Locate() = %+v", got)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotType)
	}
	if !strings.Contains(gotBody, "viewClip") {
		t.Errorf("body = %s", gotBody)
	}
}

func TestClipLocator_Locate_ServerError(t *testing.T) {
	fp := newFakeProvider(t, func(mux *http.ServeMux) {
		mux.HandleFunc("POST /player/api/graphql", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
	})
	endpoints := fp.endpoints()
	s := NewManager(endpoints).Anonymous()
	l := NewClipLocator(endpoints.QueryURL, DefaultMediaOptions)

	_, err := l.Locate(context.Background(), s, domain.ClipRequest{Author: "a", CourseID: "c", ModuleName: "m"})
	if !errors.Is(err, domain.ErrTransport) {
		t.Errorf("Locate() error = %v, want %v", err, domain.ErrTransport)
	}
}
