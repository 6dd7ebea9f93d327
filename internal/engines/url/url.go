// Package url implements the URL engine cascade from spec §4.4:
// Firecrawl (priority 65), Jina Reader (60), a headless-browser fallback
// (55), and a basic HTTP+goquery scraper (40). Firecrawl, Jina and the
// basic scraper retry transient failures on their own budget via
// httpx.Retry; the headless engine makes a single render call. The router's
// fallback attempts are untouched by that retrying. Grounded on the
// teacher's HTTP-backed client idiom (proxy-aware client construction,
// status-code classification) applied across four cascading providers
// instead of one.
package url

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lfnovo/content-core/internal/ccerr"
	"github.com/lfnovo/content-core/internal/ccore"
	"github.com/lfnovo/content-core/internal/markdown"
	"github.com/lfnovo/content-core/internal/platform/httpx"
	"github.com/lfnovo/content-core/internal/platform/logger"

	"github.com/PuerkitoBio/goquery"
)

// httpStatusError lets httpx.IsRetryableError / ClassifyStatus drive
// retry and router-classification decisions off one concrete status
// code attached to an *http.Response read failure.
type httpStatusError struct {
	status int
	body   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http status %d: %s", e.status, e.body)
}
func (e *httpStatusError) HTTPStatusCode() int { return e.status }

func classify(err error) ccerr.Kind {
	if ce, ok := err.(*ccerr.Error); ok && ce.Kind != "" {
		return ce.Kind
	}
	var se *httpStatusError
	if asStatusError(err, &se) {
		if k := httpx.ClassifyStatus(se.status); k != "" {
			return k
		}
	}
	return ccerr.NetworkError
}

func asStatusError(err error, target **httpStatusError) bool {
	for err != nil {
		if se, ok := err.(*httpStatusError); ok {
			*target = se
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// FirecrawlEngine calls the hosted Firecrawl scrape API, which does its
// own JS rendering and readability extraction server-side; it cannot
// route through a client-side proxy (spec §4.4 "proxy discipline"), so
// proxyOnce logs that limitation the first time it runs.
type FirecrawlEngine struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    httpx.BackoffConfig
	log        *logger.Logger
	proxyOnce  sync.Once
}

func NewFirecrawlEngine(apiKey string, log *logger.Logger) *FirecrawlEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &FirecrawlEngine{
		apiKey:     apiKey,
		baseURL:    "https://api.firecrawl.dev/v1/scrape",
		httpClient: httpx.NewClient(30 * time.Second),
		backoff:    httpx.DefaultBackoff(),
		log:        log,
	}
}

func (e *FirecrawlEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:      "html_url_firecrawl",
		MimeTypes: []ccore.MimeType{"text/html"},
		Priority:  65,
		Category:  ccore.CategoryURLs,
	}
}

func (e *FirecrawlEngine) IsAvailable(ctx context.Context) bool { return e.apiKey != "" }

func (e *FirecrawlEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	e.proxyOnce.Do(func() {
		e.log.Warn("firecrawl is a hosted API and cannot be routed through a client-side proxy", "engine", "html_url_firecrawl")
	})
	if source.URL == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "html_url_firecrawl requires a URL source")
	}

	type request struct {
		URL         string   `json:"url"`
		Formats     []string `json:"formats"`
		OnlyContent bool     `json:"onlyMainContent"`
	}
	type response struct {
		Success bool `json:"success"`
		Data    struct {
			Markdown string `json:"markdown"`
			Metadata struct {
				Title string `json:"title"`
				URL   string `json:"sourceURL"`
			} `json:"metadata"`
		} `json:"data"`
	}

	var parsed response
	err := httpx.Retry(ctx, e.backoff, func(err error) bool { return classify(err).Retryable() }, func(ctx context.Context) error {
		body, marshalErr := json.Marshal(request{URL: source.URL, Formats: []string{"markdown"}, OnlyContent: true})
		if marshalErr != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "html_url_firecrawl", marshalErr, "encode request")
		}
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, strings.NewReader(string(body)))
		if reqErr != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "html_url_firecrawl", reqErr, "build request")
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, doErr := e.httpClient.Do(req)
		if doErr != nil {
			return ccerr.Wrap(ccerr.NetworkError, "html_url_firecrawl", doErr, "request failed")
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 {
			se := &httpStatusError{status: resp.StatusCode, body: string(raw)}
			return ccerr.Wrap(classify(se), "html_url_firecrawl", se, "firecrawl returned an error status")
		}
		if jsonErr := json.Unmarshal(raw, &parsed); jsonErr != nil {
			return ccerr.Wrap(ccerr.ParseError, "html_url_firecrawl", jsonErr, "decode firecrawl response")
		}
		if !parsed.Success {
			return ccerr.New(ccerr.ParseError, "firecrawl reported success=false").WithEngine("html_url_firecrawl")
		}
		return nil
	})
	if err != nil {
		return ccore.ProcessorResult{}, err
	}

	return ccore.ProcessorResult{
		Content:  parsed.Data.Markdown,
		MimeType: "text/markdown",
		Metadata: map[string]any{"final_url": parsed.Data.Metadata.URL, "title": parsed.Data.Metadata.Title},
	}, nil
}

// JinaEngine calls the Jina AI Reader proxy (r.jina.ai), which returns
// already-cleaned markdown for a URL passed in the request path.
type JinaEngine struct {
	apiKey     string
	httpClient *http.Client
	backoff    httpx.BackoffConfig
	log        *logger.Logger
}

func NewJinaEngine(apiKey string, log *logger.Logger) *JinaEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &JinaEngine{apiKey: apiKey, httpClient: httpx.NewClient(30 * time.Second), backoff: httpx.DefaultBackoff(), log: log}
}

func (e *JinaEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:      "html_url_jina",
		MimeTypes: []ccore.MimeType{"text/html"},
		Priority:  60,
		Category:  ccore.CategoryURLs,
	}
}

// IsAvailable reports true even with no API key: Jina Reader serves
// unauthenticated requests at a lower rate limit, so the engine only
// becomes unavailable if the caller has explicitly disabled it upstream.
func (e *JinaEngine) IsAvailable(ctx context.Context) bool { return true }

func (e *JinaEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.URL == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "html_url_jina requires a URL source")
	}

	var content string
	err := httpx.Retry(ctx, e.backoff, func(err error) bool { return classify(err).Retryable() }, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, "https://r.jina.ai/"+source.URL, nil)
		if reqErr != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "html_url_jina", reqErr, "build request")
		}
		if e.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+e.apiKey)
		}
		req.Header.Set("Accept", "text/markdown")

		resp, doErr := e.httpClient.Do(req)
		if doErr != nil {
			return ccerr.Wrap(ccerr.NetworkError, "html_url_jina", doErr, "request failed")
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 {
			se := &httpStatusError{status: resp.StatusCode, body: string(raw)}
			return ccerr.Wrap(classify(se), "html_url_jina", se, "jina returned an error status")
		}
		content = string(raw)
		return nil
	})
	if err != nil {
		return ccore.ProcessorResult{}, err
	}
	return ccore.ProcessorResult{
		Content:  content,
		MimeType: "text/markdown",
		Metadata: map[string]any{"final_url": source.URL},
	}, nil
}

// Renderer abstracts the local headless browser dependency (a Chrome
// DevTools Protocol driver, e.g. chromedp) so HeadlessEngine's own code
// stays free of a hard third-party import: whatever renderer the caller
// wires in at construction time is what gets probed for availability.
type Renderer interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Render(ctx context.Context, pageURL string) (html string, finalURL string, err error)
}

type HeadlessEngine struct {
	renderer Renderer
}

func NewHeadlessEngine(renderer Renderer) *HeadlessEngine {
	return &HeadlessEngine{renderer: renderer}
}

func (e *HeadlessEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:         "html_url_headless",
		MimeTypes:    []ccore.MimeType{"text/html"},
		Priority:     55,
		RequiredDeps: []string{"headless_browser"},
		Category:     ccore.CategoryURLs,
	}
}

func (e *HeadlessEngine) IsAvailable(ctx context.Context) bool {
	return e.renderer != nil && e.renderer.IsAvailable(ctx)
}

func (e *HeadlessEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.URL == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "html_url_headless requires a URL source")
	}
	if e.renderer == nil {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.EngineUnavailable, "no headless renderer configured").WithEngine("html_url_headless")
	}
	html, finalURL, err := e.renderer.Render(ctx, source.URL)
	if err != nil {
		return ccore.ProcessorResult{}, ccerr.Wrap(ccerr.NetworkError, "html_url_headless", err, "render page")
	}
	md, title, convErr := convertAndExtractTitle(html)
	if convErr != nil {
		return ccore.ProcessorResult{}, convErr
	}
	return ccore.ProcessorResult{
		Content:  md,
		MimeType: "text/markdown",
		Metadata: map[string]any{"final_url": finalURL, "title": title, "renderer": e.renderer.Name()},
	}, nil
}

// BasicEngine is the last resort of the cascade: a direct HTTP GET
// through the proxy-aware client, parsed with goquery and converted with
// internal/markdown. It has no external dependency besides the network,
// so it is always available.
type BasicEngine struct {
	httpClient *http.Client
	backoff    httpx.BackoffConfig
}

func NewBasicEngine() *BasicEngine {
	return &BasicEngine{httpClient: httpx.NewClient(20 * time.Second), backoff: httpx.DefaultBackoff()}
}

func (e *BasicEngine) Capabilities() ccore.ProcessorCapabilities {
	return ccore.ProcessorCapabilities{
		Name:      "html_url_basic",
		MimeTypes: []ccore.MimeType{"text/html"},
		Priority:  40,
		Category:  ccore.CategoryURLs,
	}
}

func (e *BasicEngine) IsAvailable(ctx context.Context) bool { return true }

func (e *BasicEngine) Extract(ctx context.Context, source ccore.Source, options map[string]any) (ccore.ProcessorResult, error) {
	if source.URL == "" {
		return ccore.ProcessorResult{}, ccerr.New(ccerr.UnsupportedContentError, "html_url_basic requires a URL source")
	}

	var html string
	var finalURL string
	err := httpx.Retry(ctx, e.backoff, func(err error) bool { return classify(err).Retryable() }, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
		if reqErr != nil {
			return ccerr.Wrap(ccerr.FatalInternal, "html_url_basic", reqErr, "build request")
		}
		req.Header.Set("User-Agent", "content-core/1.0 (+https://github.com/lfnovo/content-core)")

		resp, doErr := e.httpClient.Do(req)
		if doErr != nil {
			return ccerr.Wrap(ccerr.NetworkError, "html_url_basic", doErr, "request failed")
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 400 {
			se := &httpStatusError{status: resp.StatusCode, body: string(raw)}
			return ccerr.Wrap(classify(se), "html_url_basic", se, "server returned an error status")
		}
		html = string(raw)
		finalURL = resp.Request.URL.String()
		return nil
	})
	if err != nil {
		return ccore.ProcessorResult{}, err
	}

	md, title, convErr := convertAndExtractTitle(html)
	if convErr != nil {
		return ccore.ProcessorResult{}, convErr
	}
	return ccore.ProcessorResult{
		Content:  md,
		MimeType: "text/markdown",
		Metadata: map[string]any{"final_url": finalURL, "title": title},
	}, nil
}

// convertAndExtractTitle pulls <title> out of raw HTML before handing it
// to markdown.ConvertHTML, since the markdown conversion drops the head
// element entirely.
func convertAndExtractTitle(html string) (md string, title string, err error) {
	doc, perr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if perr == nil {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	md, convErr := markdown.ConvertHTML(html)
	if convErr != nil {
		return "", title, ccerr.Wrap(ccerr.ParseError, "", convErr, "convert html to markdown")
	}
	return md, title, nil
}
