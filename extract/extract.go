// Package extract pulls raw text out of uploaded files. Each supported
// format gets its own extraction path; PDF follows a staged fallback chain.
package extract

import (
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "legal-rag/errors"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// FileMeta carries structural facts about the extracted file.
type FileMeta struct {
	FileName       string    `json:"file_name"`
	FileSize       int64     `json:"file_size"`
	PageCount      int       `json:"page_count,omitempty"`
	ParagraphCount int       `json:"paragraph_count,omitempty"`
	TableCount     int       `json:"table_count,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	ModifiedAt     time.Time `json:"modified_at"`
}

// SupportedExtensions is the upload whitelist.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".pdf":  true,
	".docx": true,
	".doc":  true,
	".html": true,
	".md":   true,
}

var htmlTagPattern = regexp.MustCompile(`(?s)<script.*?</script>|<style.*?</style>|<[^>]+>`)

type Extractor struct {
	ocrBinary string
	logger    *zap.Logger
}

func New(ocrBinary string, logger *zap.Logger) *Extractor {
	return &Extractor{ocrBinary: ocrBinary, logger: logger}
}

// Supported reports whether the extractor handles the file extension.
func Supported(name string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Extract returns the raw UTF-8 text of the file plus a metadata bag.
// fileType overrides extension detection when non-empty (".pdf" etc.).
func (e *Extractor) Extract(path string, fileType string) (string, FileMeta, error) {
	ext := strings.ToLower(fileType)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(path))
	}

	meta := FileMeta{FileName: filepath.Base(path)}
	if info, err := os.Stat(path); err == nil {
		meta.FileSize = info.Size()
		meta.ModifiedAt = info.ModTime()
		meta.CreatedAt = info.ModTime()
	}

	var text string
	var err error
	switch ext {
	case ".pdf":
		text, meta.PageCount, err = e.extractPDF(path)
	case ".docx", ".doc":
		text, meta.ParagraphCount, meta.TableCount, err = extractDOCX(path)
	case ".html":
		text, err = extractHTML(path)
	case ".txt", ".md":
		text, err = extractText(path)
	default:
		return "", meta, apperrors.WrapErrorf(apperrors.ErrUnsupportedType, "extension %q", ext)
	}
	if err != nil {
		return "", meta, err
	}

	if meta.ParagraphCount == 0 {
		meta.ParagraphCount = countParagraphs(text)
	}
	return text, meta, nil
}

// extractText reads a plain-text file, trying UTF-8 first and then a fixed
// list of fallback encodings. Failure to decode is fatal for the file.
func extractText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.WrapError(err, "read text file")
	}
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	for _, cm := range []*charmap.Charmap{charmap.ISO8859_1, charmap.Windows1252, charmap.ISO8859_15} {
		decoded, decErr := cm.NewDecoder().Bytes(raw)
		if decErr == nil && utf8.Valid(decoded) {
			return string(decoded), nil
		}
	}
	return "", apperrors.WrapErrorf(apperrors.ErrDecodeFailed, "file %s", filepath.Base(path))
}

func extractHTML(path string) (string, error) {
	raw, err := extractText(path)
	if err != nil {
		return "", err
	}
	stripped := htmlTagPattern.ReplaceAllString(raw, " ")
	stripped = html.UnescapeString(stripped)
	// Collapse runs of whitespace left behind by removed tags
	lines := strings.Split(stripped, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n"), nil
}

func countParagraphs(text string) int {
	count := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			count++
		}
	}
	return count
}
