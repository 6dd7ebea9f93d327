// Package youtube implements the transcript pipeline from spec §4.7:
// extract the video ID, scrape the watch page for a title and the
// embedded caption track list, select a track by preferred-language
// priority, and fetch both plain-text and time-coded transcript forms
// without downloading the video. Grounded on this module's own
// platform/httpx retry/proxy idiom (the teacher has no YouTube-specific
// code; this package reuses the same HTTP client construction as
// internal/engines/url).
package youtube

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/platform/httpx"
)

var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtube\.com/shorts/|youtube\.com/embed/|youtube\.com/v/)([A-Za-z0-9_-]{11})`),
	regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
}

// ExtractVideoID pulls an 11-character YouTube video ID out of a URL in
// any of its common forms; it never inspects the network.
func ExtractVideoID(rawURL string) (string, error) {
	for _, pat := range videoIDPatterns {
		if m := pat.FindStringSubmatch(rawURL); len(m) == 2 {
			return m[1], nil
		}
	}
	return "", ccerr.Newf(ccerr.ParseError, "could not extract a youtube video id from %q", rawURL)
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" for auto-generated
	Name         struct {
		SimpleText string `json:"simpleText"`
	} `json:"name"`
}

type YouTubeEngine struct {
	httpClient         *http.Client
	backoff            httpx.BackoffConfig
	preferredLanguages []string
}

func NewYouTubeEngine(preferredLanguages []string) *YouTubeEngine {
	if len(preferredLanguages) == 0 {
		preferredLanguages = []string{"en"}
	}
	return &YouTubeEngine{
		httpClient:         httpx.NewClient(20 * time.Second),
		backoff:            httpx.DefaultBackoff(),
		preferredLanguages: preferredLanguages,
	}
}

func (e *YouTubeEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:      "youtube_transcript",
		MimeTypes: []ccore.MimeType{"text/html"},
		Priority:  50,
		Category:  ccore.CategoryYouTube,
	}
}

func (e *YouTubeEngine) IsAvailable(ctx context.Context) bool { return true }

func (e *YouTubeEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.URL == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "youtube_transcript requires a URL source")
	}
	videoID, err := ExtractVideoID(source.URL)
	if err != nil {
		return ccore.ProcessorResult{}, err.(*ccerr.Error).WithEngine("youtube_transcript")
	}

	watchHTML, err := e.fetch(ctx, fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID))
	if err != nil {
		return ccore.ProcessorResult{}, err
	}

	title := extractTitle(watchHTML, videoID)
	tracks := extractCaptionTracks(watchHTML)

	if len(tracks) == 0 {
		return ccore.ProcessorResult{
			Content:  "",
			MimeType: "text/plain",
			Metadata: map[string]any{"video_id": videoID, "title": title, "error": "no_captions", "message": "No captions available"},
			Warnings: []string{"video has no caption tracks"},
		}, nil
	}

	track, warnings := selectTrack(tracks, e.preferredLanguages)

	captionXML, err := e.fetch(ctx, track.BaseURL)
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	plainText, timedSegments, err := parseTimedText(captionXML)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.CaptionGenerationError, "youtube_transcript", err, "parse caption track")
	}
	if strings.TrimSpace(plainText) == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.EmptyCaptions, "caption track produced no text").WithEngine("youtube_transcript")
	}

	return ccore.ProcessorResult{
		Content:  plainText,
		MimeType: "text/plain",
		Metadata: map[string]any{
			"video_id":       videoID,
			"title":          title,
			"language":       track.LanguageCode,
			"auto_generated": track.Kind == "asr",
			"segments":       timedSegments,
		},
		Warnings: warnings,
	}, nil
}

func (e *YouTubeEngine) fetch(ctx context.Context, url string) (string, error) {
	var body string
	err := httpx.Retry(ctx, e.backoff, func(err error) bool { return ccerr.KindOf(err).Retryable() }, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "youtube_transcript", reqErr, "build request")
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")

		resp, doErr := e.httpClient.Do(req)
		if doErr != nil {
			return ccerr.Wrap(ccerr.NetworkError, "youtube_transcript", doErr, "request failed")
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)

		switch {
		case resp.StatusCode == http.StatusForbidden:
			return ccerr.New(ccerr.Blocked, "youtube returned 403").WithEngine("youtube_transcript")
		case resp.StatusCode == http.StatusTooManyRequests:
			return ccerr.New(ccerr.RateLimitError, "youtube returned 429").WithEngine("youtube_transcript")
		case resp.StatusCode >= 500:
			return ccerr.New(ccerr.NetworkError, fmt.Sprintf("youtube returned %d", resp.StatusCode)).WithEngine("youtube_transcript")
		case resp.StatusCode >= 400:
			return ccerr.New(ccerr.ParseError, fmt.Sprintf("youtube returned %d", resp.StatusCode)).WithEngine("youtube_transcript")
		}
		if containsBlockSignature(raw) {
			return ccerr.New(ccerr.Blocked, "response matched a known block signature").WithEngine("youtube_transcript")
		}
		body = string(raw)
		return nil
	})
	return body, err
}

var blockSignatures = []string{"Our systems have detected unusual traffic", "consent.youtube.com"}

func containsBlockSignature(body []byte) bool {
	s := string(body)
	for _, sig := range blockSignatures {
		if strings.Contains(s, sig) {
			return true
		}
	}
	return false
}

var (
	ogTitlePattern   = regexp.MustCompile(`<meta\s+property="og:title"\s+content="([^"]*)"`)
	nameTitlePattern = regexp.MustCompile(`<meta\s+name="title"\s+content="([^"]*)"`)
	titleTagPattern  = regexp.MustCompile(`<title>([^<]*)</title>`)
)

// extractTitle walks the fallback chain from spec §4.7 step 2, always
// returning a usable title even when every meta tag is absent.
func extractTitle(watchHTML, videoID string) string {
	for _, pat := range []*regexp.Regexp{ogTitlePattern, nameTitlePattern, titleTagPattern} {
		if m := pat.FindStringSubmatch(watchHTML); len(m) == 2 {
			t := strings.TrimSpace(html.UnescapeString(m[1]))
			t = strings.TrimSuffix(t, " - YouTube")
			if t != "" {
				return t
			}
		}
	}
	return fmt.Sprintf("YouTube Video %s", videoID)
}

var playerResponsePattern = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*(\{.*?\});`)

// extractCaptionTracks locates the ytInitialPlayerResponse blob embedded
// in the watch page and pulls captionTracks out of its captions renderer;
// it tolerates the field being entirely absent (no captions configured).
func extractCaptionTracks(watchHTML string) []captionTrack {
	m := playerResponsePattern.FindStringSubmatch(watchHTML)
	if len(m) != 2 {
		return nil
	}
	var parsed struct {
		Captions struct {
			PlayerCaptionsTracklistRenderer struct {
				CaptionTracks []captionTrack `json:"captionTracks"`
			} `json:"playerCaptionsTracklistRenderer"`
		} `json:"captions"`
	}
	if err := json.Unmarshal([]byte(m[1]), &parsed); err != nil {
		return nil
	}
	return parsed.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// selectTrack walks preferredLanguages in order looking for an exact
// language match or its auto-generated variant; absent any match it
// falls back to the first available track with a warning, per spec
// §4.7 step 3.
func selectTrack(tracks []captionTrack, preferredLanguages []string) (captionTrack, []string) {
	for _, lang := range preferredLanguages {
		for _, t := range tracks {
			if t.LanguageCode == lang {
				return t, nil
			}
		}
	}
	for _, lang := range preferredLanguages {
		for _, t := range tracks {
			if strings.HasPrefix(t.LanguageCode, lang) {
				return t, nil
			}
		}
	}
	return tracks[0], []string{fmt.Sprintf("no caption track matched preferred languages %v, using %q", preferredLanguages, tracks[0].LanguageCode)}
}

type timedTextDoc struct {
	XMLName xml.Name     `xml:"transcript"`
	Texts   []timedEntry `xml:"text"`
}

type timedEntry struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// parseTimedText decodes the timedtext XML format YouTube's caption
// baseUrl endpoint returns, producing both a plain-text concatenation
// and the time-coded segment list.
func parseTimedText(raw string) (string, []ccore.Segment, error) {
	var doc timedTextDoc
	if err := xml.Unmarshal([]byte(raw), &doc); err != nil {
		return "", nil, err
	}
	var plain strings.Builder
	segments := make([]ccore.Segment, 0, len(doc.Texts))
	for _, entry := range doc.Texts {
		text := strings.TrimSpace(html.UnescapeString(entry.Text))
		if text == "" {
			continue
		}
		if plain.Len() > 0 {
			plain.WriteString(" ")
		}
		plain.WriteString(text)
		start := entry.Start
		end := entry.Start + entry.Duration
		segments = append(segments, ccore.Segment{Text: text, StartSec: &start, EndSec: &end})
	}
	return plain.String(), segments, nil
}
