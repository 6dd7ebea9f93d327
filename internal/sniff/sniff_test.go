package sniff

import (
	"testing"

	"github.com/lfnovo/content-core/internal/ccore"
)

func TestMimeByExtensionKnownTypes(t *testing.T) {
	cases := map[string]ccore.MimeType{
		"report.pdf":    "application/pdf",
		"notes.TXT":     "text/plain",
		"data.csv":      "text/csv",
		"slide.pptx":    "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"clip.mp4":      "video/mp4",
		"episode.mp3":   "audio/mpeg",
		"photo.JPEG":    "image/jpeg",
		"archive.unknownext": "application/octet-stream",
	}
	for path, want := range cases {
		if got := MimeByExtension(path); got != want {
			t.Errorf("MimeByExtension(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestRegisterExtensionOverridesMapping(t *testing.T) {
	RegisterExtension(".customdoc", "application/x-custom-doc")
	if got := MimeByExtension("file.customdoc"); got != "application/x-custom-doc" {
		t.Fatalf("expected registered extension to take effect, got %q", got)
	}
}

func TestIsYouTubeURL(t *testing.T) {
	cases := map[string]bool{
		"https://www.youtube.com/watch?v=abc123": true,
		"https://youtu.be/abc123":                true,
		"https://m.youtube.com/watch?v=abc123":   true,
		"https://example.com/watch?v=abc123":     false,
		"not a url at all":                       false,
	}
	for url, want := range cases {
		if got := IsYouTubeURL(url); got != want {
			t.Errorf("IsYouTubeURL(%q) = %v, want %v", url, got, want)
		}
	}
}

func TestClassifyFileSource(t *testing.T) {
	kind, mimeType, isYouTube := Classify(ccore.Source{FilePath: "/tmp/report.pdf"})
	if kind != "file" || mimeType != "application/pdf" || isYouTube {
		t.Fatalf("got kind=%q mime=%q isYouTube=%v", kind, mimeType, isYouTube)
	}
}

func TestClassifyURLSourceYouTube(t *testing.T) {
	kind, mimeType, isYouTube := Classify(ccore.Source{URL: "https://www.youtube.com/watch?v=abc123"})
	if kind != "url" || mimeType != "text/html" || !isYouTube {
		t.Fatalf("got kind=%q mime=%q isYouTube=%v", kind, mimeType, isYouTube)
	}
}

func TestClassifyURLSourceGenericHTML(t *testing.T) {
	kind, mimeType, isYouTube := Classify(ccore.Source{URL: "https://example.com/article"})
	if kind != "url" || mimeType != "text/html" || isYouTube {
		t.Fatalf("got kind=%q mime=%q isYouTube=%v", kind, mimeType, isYouTube)
	}
}

func TestClassifyDeclaredMimeWins(t *testing.T) {
	_, mimeType, _ := Classify(ccore.Source{FilePath: "/tmp/report.pdf", DeclaredMimeType: "application/x-override"})
	if mimeType != "application/x-override" {
		t.Fatalf("expected declared mime to win, got %q", mimeType)
	}
}

func TestClassifyRawContentDefaultsToPlainText(t *testing.T) {
	kind, mimeType, _ := Classify(ccore.Source{RawContent: "hello world"})
	if kind != "raw" || mimeType != "text/plain" {
		t.Fatalf("got kind=%q mime=%q", kind, mimeType)
	}
}
