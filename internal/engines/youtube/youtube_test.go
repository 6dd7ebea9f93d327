package youtube

import (
	"testing"
)

func TestExtractVideoIDWatchURL(t *testing.T) {
	id, err := ExtractVideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=10s")
	if err != nil {
		t.Fatalf("ExtractVideoID: %v", err)
	}
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractVideoIDShortsURL(t *testing.T) {
	id, err := ExtractVideoID("https://www.youtube.com/shorts/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ExtractVideoID: %v", err)
	}
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractVideoIDShortForm(t *testing.T) {
	id, err := ExtractVideoID("https://youtu.be/dQw4w9WgXcQ?si=abc")
	if err != nil {
		t.Fatalf("ExtractVideoID: %v", err)
	}
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractVideoIDEmbedForm(t *testing.T) {
	id, err := ExtractVideoID("https://www.youtube.com/embed/dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ExtractVideoID: %v", err)
	}
	if id != "dQw4w9WgXcQ" {
		t.Fatalf("got %q", id)
	}
}

func TestExtractVideoIDInvalidURL(t *testing.T) {
	if _, err := ExtractVideoID("https://example.com/not-a-video"); err == nil {
		t.Fatalf("expected an error for a non-youtube url")
	}
}

func TestExtractTitleOGTag(t *testing.T) {
	html := `<html><head><meta property="og:title" content="My Great Video"></head></html>`
	got := extractTitle(html, "abc123")
	if got != "My Great Video" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTitleNameTagFallback(t *testing.T) {
	html := `<html><head><meta name="title" content="Fallback Title"></head></html>`
	got := extractTitle(html, "abc123")
	if got != "Fallback Title" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTitleTagFallback(t *testing.T) {
	html := `<html><head><title>Plain Title - YouTube</title></head></html>`
	got := extractTitle(html, "abc123")
	if got != "Plain Title" {
		t.Fatalf("expected the trailing ' - YouTube' suffix trimmed, got %q", got)
	}
}

func TestExtractTitleSynthesizedFallback(t *testing.T) {
	got := extractTitle("<html><head></head></html>", "abc123")
	if got != "YouTube Video abc123" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractCaptionTracksFromPlayerResponse(t *testing.T) {
	html := `<script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"https://example.com/en","languageCode":"en","kind":"asr"},{"baseUrl":"https://example.com/fr","languageCode":"fr"}]}}};</script>`
	tracks := extractCaptionTracks(html)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}
	if tracks[0].LanguageCode != "en" || tracks[0].Kind != "asr" {
		t.Fatalf("unexpected first track: %+v", tracks[0])
	}
}

func TestExtractCaptionTracksAbsentReturnsNil(t *testing.T) {
	tracks := extractCaptionTracks("<html><body>no player response here</body></html>")
	if tracks != nil {
		t.Fatalf("expected nil tracks when no player response is embedded, got %v", tracks)
	}
}

func TestSelectTrackExactLanguageMatch(t *testing.T) {
	tracks := []captionTrack{{LanguageCode: "fr"}, {LanguageCode: "en"}}
	got, warnings := selectTrack(tracks, []string{"en"})
	if got.LanguageCode != "en" {
		t.Fatalf("expected exact match on en, got %q", got.LanguageCode)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings on exact match, got %v", warnings)
	}
}

func TestSelectTrackPrefixMatchFallback(t *testing.T) {
	tracks := []captionTrack{{LanguageCode: "en-US"}}
	got, warnings := selectTrack(tracks, []string{"en"})
	if got.LanguageCode != "en-US" {
		t.Fatalf("expected prefix match on en-US, got %q", got.LanguageCode)
	}
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings on prefix match, got %v", warnings)
	}
}

func TestSelectTrackNoMatchUsesFirstWithWarning(t *testing.T) {
	tracks := []captionTrack{{LanguageCode: "de"}, {LanguageCode: "es"}}
	got, warnings := selectTrack(tracks, []string{"en"})
	if got.LanguageCode != "de" {
		t.Fatalf("expected first track as fallback, got %q", got.LanguageCode)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected a warning when no language matched, got %v", warnings)
	}
}

func TestParseTimedTextProducesPlainTextAndSegments(t *testing.T) {
	raw := `<?xml version="1.0" encoding="utf-8" ?><transcript><text start="0.5" dur="2.5">Hello &amp; welcome</text><text start="3.0" dur="1.5">to the show</text></transcript>`
	plain, segments, err := parseTimedText(raw)
	if err != nil {
		t.Fatalf("parseTimedText: %v", err)
	}
	if plain != "Hello & welcome to the show" {
		t.Fatalf("got plain text %q", plain)
	}
	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if *segments[0].StartSec != 0.5 || *segments[0].EndSec != 3.0 {
		t.Fatalf("unexpected segment bounds: start=%v end=%v", *segments[0].StartSec, *segments[0].EndSec)
	}
}

func TestParseTimedTextSkipsEmptyEntries(t *testing.T) {
	raw := `<transcript><text start="0" dur="1"></text><text start="1" dur="1">real text</text></transcript>`
	plain, segments, err := parseTimedText(raw)
	if err != nil {
		t.Fatalf("parseTimedText: %v", err)
	}
	if plain != "real text" {
		t.Fatalf("expected empty entries skipped, got %q", plain)
	}
	if len(segments) != 1 {
		t.Fatalf("expected 1 non-empty segment, got %d", len(segments))
	}
}

func TestParseTimedTextMalformedXMLErrors(t *testing.T) {
	if _, _, err := parseTimedText("<transcript><text"); err == nil {
		t.Fatalf("expected an error for malformed xml")
	}
}

func TestContainsBlockSignature(t *testing.T) {
	if !containsBlockSignature([]byte("Our systems have detected unusual traffic from your computer network.")) {
		t.Fatalf("expected the unusual-traffic signature to be detected")
	}
	if containsBlockSignature([]byte("perfectly normal page content")) {
		t.Fatalf("expected normal content to not match any block signature")
	}
}
