package annotate

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-shiori/go-readability"
	"github.com/k3a/html2text"
)

// MaxDocumentSize bounds the HTML read by Extract.
const MaxDocumentSize = 10 * 1024 * 1024

var (
	// (?s) allows dot to match newlines
	// (?i) makes it case-insensitive
	reRT = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	reRP = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// SanitizeRuby removes ruby text (<rt>...</rt>) and ruby parentheses
// (<rp>...</rp>) from HTML content, so that "漢字" does not come out as
// "漢字かんじ". It operates on bytes and is safe for Shift_JIS input as
// well, since '<' is never a trailing byte there.
func SanitizeRuby(content []byte) []byte {
	cleaned := reRT.ReplaceAll(content, nil)
	return reRP.ReplaceAll(cleaned, nil)
}

// Document is the readable text of an HTML page.
type Document struct {
	Title    string
	Byline   string
	SiteName string
	Text     string
	// Fallback is set when no article was found and the whole page was
	// converted to text.
	Fallback bool
}

// Extract reads an HTML document, strips ruby annotations and returns its
// main article text. pageURL resolves relative links and may be nil.
func Extract(r io.Reader, pageURL *url.URL) (Document, error) {
	body, err := io.ReadAll(io.LimitReader(r, MaxDocumentSize+1))
	if err != nil {
		return Document{}, err
	}
	if len(body) > MaxDocumentSize {
		return Document{}, fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
	}
	body = SanitizeRuby(body)

	if pageURL == nil {
		pageURL = &url.URL{Scheme: "file", Path: "/"}
	}
	article, err := readability.FromReader(bytes.NewReader(body), pageURL)
	if err == nil && strings.TrimSpace(article.TextContent) != "" {
		return Document{
			Title:    strings.TrimSpace(article.Title),
			Byline:   strings.TrimSpace(article.Byline),
			SiteName: strings.TrimSpace(article.SiteName),
			Text:     article.TextContent,
		}, nil
	}
	return Document{Text: plainText(body), Fallback: true}, nil
}

func plainText(html []byte) string {
	return html2text.HTML2Text(string(html))
}
