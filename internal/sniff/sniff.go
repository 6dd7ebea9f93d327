// Package sniff classifies an incoming Source (spec §4) into a kind
// (url/file/raw), sniffs its MIME type when the caller hasn't declared
// one, and maps YouTube URLs into their own category ahead of generic
// URL handling. Extension-to-MIME mapping is grounded on the retrieval
// pack's pkg/mime table, trimmed to the document/media families this
// module's engines actually register against.
package sniff

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/lfnovo/content-core/internal/ccore"
)

var extMimeMappings = map[string]string{
	".pdf":  "application/pdf",
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".html": "text/html",
	".htm":  "text/html",
	".json": "application/json",
	".xml":  "application/xml",
	".rtf":  "text/rtf",

	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".odt":  "application/vnd.oasis.opendocument.text",

	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tiff": "image/tiff",

	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".flac": "audio/flac",
	".ogg":  "audio/ogg",
	".opus": "audio/opus",
	".aac":  "audio/aac",

	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
}

var extMu sync.RWMutex

// RegisterExtension adds or overrides an extension-to-MIME mapping. Safe
// for concurrent use; engines can call this during startup registration
// to extend coverage beyond the built-in table.
func RegisterExtension(ext, mimeType string) {
	extMu.Lock()
	extMimeMappings[strings.ToLower(ext)] = mimeType
	extMu.Unlock()
}

// MimeByExtension returns the MIME type for filePath's extension, falling
// back to the standard library's table and finally
// "application/octet-stream".
func MimeByExtension(filePath string) ccore.MimeType {
	ext := strings.ToLower(path.Ext(filePath))

	extMu.RLock()
	m, ok := extMimeMappings[ext]
	extMu.RUnlock()
	if ok {
		return ccore.MimeType(m)
	}

	if m := mime.TypeByExtension(ext); m != "" {
		if idx := strings.IndexByte(m, ';'); idx >= 0 {
			m = m[:idx]
		}
		return ccore.MimeType(strings.TrimSpace(m))
	}
	return "application/octet-stream"
}

var youtubeHostPattern = regexp.MustCompile(`(?i)^(www\.|m\.|music\.)?(youtube\.com|youtu\.be)$`)

// IsYouTubeURL reports whether raw's host is youtube.com or youtu.be
// (optionally with a www., m. or music. prefix); the path is not checked.
func IsYouTubeURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return youtubeHostPattern.MatchString(u.Hostname())
}

// Classify determines source.Kind() plus its effective MIME type: the
// declared type if present, else sniffed from a file extension (for
// file/url kinds), else text/plain for raw content.
func Classify(source ccore.Source) (kind string, mimeType ccore.MimeType, isYouTube bool) {
	kind = source.Kind()
	if source.DeclaredMimeType != "" {
		mimeType = source.DeclaredMimeType
	}

	switch kind {
	case "url":
		isYouTube = IsYouTubeURL(source.URL)
		if mimeType == "" {
			if isYouTube {
				mimeType = "text/html"
			} else if ext := path.Ext(strings.SplitN(source.URL, "?", 2)[0]); ext != "" {
				mimeType = MimeByExtension(source.URL)
			} else {
				mimeType = "text/html"
			}
		}
	case "file":
		if mimeType == "" {
			mimeType = MimeByExtension(source.FilePath)
		}
	default:
		if mimeType == "" {
			mimeType = "text/plain"
		}
	}
	return kind, mimeType, isYouTube
}
