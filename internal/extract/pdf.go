// Package extract turns PDF documents into plain text.
//
// Pages that cannot be read do not abort extraction; they are replaced with a
// sentinel line so downstream chunking can discard them.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	pageHeaderRule = "=========="

	// SentinelExtractionFailed prefixes the line emitted for a page whose
	// text could not be decoded.
	SentinelExtractionFailed = "[EXTRACTION ERROR:"
	// SentinelEmptyPage is emitted for a page without any text layer.
	SentinelEmptyPage = "[EMPTY PAGE OR NO TEXT]"
	// SentinelUnreadableSuffix closes the line emitted when a page object is
	// missing from the document.
	SentinelUnreadableSuffix = ": TEXT NOT EXTRACTABLE]"
)

var sentinels = []string{SentinelExtractionFailed, SentinelEmptyPage, SentinelUnreadableSuffix}

// PDFFile extracts the text of the PDF at path.
func PDFFile(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	return readPages(r)
}

// PDFBytes extracts the text of an in-memory PDF.
func PDFBytes(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	return readPages(r)
}

func readPages(r *pdf.Reader) (string, error) {
	total := r.NumPage()
	if total == 0 {
		return "", fmt.Errorf("pdf has no pages")
	}

	var sb strings.Builder
	for i := 1; i <= total; i++ {
		sb.WriteString(pageHeader(i))
		sb.WriteString("\n")
		sb.WriteString(pageText(r, i))
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

func pageHeader(n int) string {
	return fmt.Sprintf("%s\nPAGE %d\n%s", pageHeaderRule, n, pageHeaderRule)
}

// pageText never fails: the pdf library panics on some malformed content
// streams, so each page is read under recover.
func pageText(r *pdf.Reader, n int) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			text = fmt.Sprintf("%s %v]", SentinelExtractionFailed, rec)
		}
	}()

	p := r.Page(n)
	if p.V.IsNull() {
		return fmt.Sprintf("[PAGE %d%s", n, SentinelUnreadableSuffix)
	}

	content, err := p.GetPlainText(nil)
	if err != nil {
		return fmt.Sprintf("%s %v]", SentinelExtractionFailed, err)
	}
	if strings.TrimSpace(content) == "" {
		return SentinelEmptyPage
	}
	return content
}

// HasSentinel reports whether s contains any extraction failure marker.
func HasSentinel(s string) bool {
	for _, m := range sentinels {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// StripSentinels removes every line carrying an extraction failure marker.
func StripSentinels(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if !HasSentinel(l) {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

var (
	pageHeaderPattern = regexp.MustCompile(`={10,}\s*\n\s*PAGE \d+\s*\n\s*={10,}`)
	blankLinesPattern = regexp.MustCompile(`\n\s*\n+`)
	spacesPattern     = regexp.MustCompile(`[ \t\f\v]+`)
)

// Clean strips page headers and collapses blank lines and runs of spaces.
func Clean(text string) string {
	text = pageHeaderPattern.ReplaceAllString(text, "")
	text = blankLinesPattern.ReplaceAllString(text, "\n\n")
	text = spacesPattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
