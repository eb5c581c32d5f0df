package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagelens/reader/internal/reader"
)

// Phrases a server-rendered shell shows when the real page needs JavaScript.
var jsRequiredPhrases = []string{
	"enable javascript",
	"javascript is required",
	"javascript is disabled",
	"requires javascript",
	"turn on javascript",
	"please enable js",
}

// Selectors for empty single-page-app mount points.
var appRootSelectors = []string{
	"#root",
	"#app",
	"#__next",
	"#___gatsby",
	"[data-reactroot]",
}

// isClientRendered reports whether a page cannot be extracted without a
// browser: either a near-empty body carrying an "enable JavaScript" notice,
// or an application mount point with no children.
func isClientRendered(doc *goquery.Document) bool {
	bodyText := strings.TrimSpace(doc.Find("body").First().Text())
	if reader.TextLength(bodyText) < 100 {
		lower := strings.ToLower(bodyText)
		for _, phrase := range jsRequiredPhrases {
			if strings.Contains(lower, phrase) {
				return true
			}
		}
	}
	for _, sel := range appRootSelectors {
		node := doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if node.Children().Length() == 0 && strings.TrimSpace(node.Text()) == "" {
			return true
		}
	}
	return false
}
