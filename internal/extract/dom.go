package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pagelens/reader/internal/reader"
)

// Elements that never carry article text.
var strippedSelectors = []string{
	"script", "style", "noscript", "template", "iframe",
	"nav", "header", "footer", "aside", "form", "button",
	"[class*='comment']", "[id*='comment']",
	"[class*='advert']", "[class*='promo']", "[id*='advert']",
	".ad", ".ads", ".adsbygoogle",
	".sidebar", ".social", ".share", ".related", ".newsletter",
}

// Likely content containers, most specific first. Common CMS class names
// follow the semantic elements.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".post-content",
	".article-content",
	".entry-content",
	".article-body",
	".story-body",
	".post-body",
	"#content",
	".content",
}

// minContainerChars is the text length a candidate container must exceed
// before it is accepted over <body>.
const minContainerChars = 200

// domHeuristicExtract is the last-resort extractor: strip boilerplate, then
// take the first likely container with enough text, falling back to <body>.
func domHeuristicExtract(doc *goquery.Document, hostname, sourceID string) (*reader.Article, error) {
	doc.Find(strings.Join(strippedSelectors, ", ")).Remove()

	selection := doc.Find("body").First()
	for _, sel := range contentSelectors {
		candidate := doc.Find(sel).First()
		if candidate.Length() == 0 {
			continue
		}
		if reader.TextLength(strings.TrimSpace(candidate.Text())) > minContainerChars {
			selection = candidate
			break
		}
	}
	if selection.Length() == 0 {
		return nil, reader.NewParseError(sourceID, "document has no body")
	}

	content, err := goquery.OuterHtml(selection)
	if err != nil {
		return nil, reader.NewParseError(sourceID, fmt.Sprintf("serialize container: %v", err))
	}
	text := normalizeWhitespace(selection.Text())
	lang, _ := doc.Find("html").First().Attr("lang")

	return buildArticle(articleParts{
		Content:     content,
		TextContent: text,
		Lang:        lang,
		DocTitle:    strings.TrimSpace(doc.Find("title").First().Text()),
		Hostname:    hostname,
		SourceID:    sourceID,
	})
}

// normalizeWhitespace collapses runs of whitespace left behind by stripped
// block elements.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
