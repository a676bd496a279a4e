package bot

import (
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/storebot/bot/contract"
	sessionx "github.com/tanpawarit/storebot/bot/session"
)

// Markers for scraping the store's product pages out of raw search hits.
// The vendor data is malformed-by-assumption, so this stays plain string
// scanning: a marker that is missing yields an empty field, never an
// error.
const (
	hrefMarker     = "/ProductDetail.aspx?pid="
	imageMarker    = `<a class="jqzoom" href="`
	productMarker  = "Product:"
	categoryMarker = "Category:"
	productBaseURL = "http://www.logostore-globalid.us"
	productIDLen   = 6
)

var scalePattern = regexp.MustCompile(`scale\[[0-9]+\]`)

// chatEscape replaces the three characters Slack's message format cares
// about. Empty values pass through untouched.
func chatEscape(text string) string {
	if text == "" {
		return text
	}
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(text)
}

// formatResults turns up to keep raw search hits into ranked product
// records, preserving input order. Ranks are 1-based and contiguous.
func formatResults(results []contractx.RawResult, keep int) []sessionx.SearchResult {
	if len(results) < keep {
		keep = len(results)
	}

	formatted := make([]sessionx.SearchResult, 0, keep)
	for i := 0; i < keep; i++ {
		result := results[i]
		formatted = append(formatted, sessionx.SearchResult{
			Rank:  i + 1,
			Name:  chatEscape(extractName(result.Text)),
			URL:   chatEscape(extractProductURL(result.HTML)),
			Image: chatEscape(extractImageURL(result.HTML)),
		})
	}
	return formatted
}

// extractProductURL reads the six-character product id after the href
// marker and prefixes the store's base URL.
func extractProductURL(html string) string {
	idx := strings.Index(html, hrefMarker)
	if idx <= 0 {
		return ""
	}
	idx += len(hrefMarker)
	end := idx + productIDLen
	if end > len(html) {
		end = len(html)
	}
	return productBaseURL + hrefMarker + html[idx:end]
}

// extractImageURL takes the href between the jqzoom marker and the next
// quote, shrinking any scale[N] thumbnail token to scale[50].
func extractImageURL(html string) string {
	idx := strings.Index(html, imageMarker)
	if idx <= 0 {
		return ""
	}
	idx += len(imageMarker)
	quote := strings.Index(html[idx:], `"`)
	if quote < 0 {
		return ""
	}
	img := html[idx : idx+quote]
	return scalePattern.ReplaceAllString(img, "scale[50]")
}

// extractName truncates the free-text page dump between the Product: and
// Category: markers, dropping the separator character before Category:.
func extractName(text string) string {
	idx := strings.Index(text, productMarker)
	if idx <= 0 {
		return ""
	}
	idx += len(productMarker)
	end := strings.Index(text[idx:], categoryMarker)
	if end <= 0 {
		return ""
	}
	return text[idx : idx+end-1]
}
