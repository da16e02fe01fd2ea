package fetch

import (
	"path/filepath"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Introduction", "Introduction"},
		{"What is Go?", "What is Go"},
		{"Client/Server: Basics", "Client-Server- Basics"},
		{`Say "hello" <now>`, "Say 'hello' now"},
		{"a|b\\c*", "a-b-c"},
		{"..", "_"},
		{"", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClipPath(t *testing.T) {
	got := ClipPath("Downloads", "go-fundamentals", "intro", 2, "Why Go?", "mp4")
	want := filepath.Join("Downloads", "go-fundamentals", "intro", "2 Why Go.mp4")
	if got != want {
		t.Errorf("ClipPath() = %q, want %q", got, want)
	}
}
