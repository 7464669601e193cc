// Package ingest cleans raw article text and splits it into sentence-aligned
// chunks ready for the extractor clients.
package ingest

import (
	"regexp"
	"strings"

	"github.com/amlandas/newsgraph/internal/domain"
)

var (
	htmlTag        = regexp.MustCompile(`<[^>]+>`)
	htmlEntity     = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
	multiSpace     = regexp.MustCompile(`[ \t]+`)
	multiBlankLine = regexp.MustCompile(`\n{3,}`)
)

// boilerplatePatterns catch common wire-service and CMS sentinels that
// precede or trail the article body proper.
var boilerplatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(share this article|read more|subscribe now|advertisement)\s*$`),
	regexp.MustCompile(`(?i)\(AP\)\s*--?\s*`),
	regexp.MustCompile(`(?i)^\s*continue reading below\s*$`),
}

// Clean strips HTML tags and boilerplate sentinels and normalizes
// whitespace, preserving sentence punctuation. Returns domain.ErrEmptyArticleBody
// if nothing but whitespace remains.
func Clean(raw string) (string, error) {
	text := raw
	text = htmlTag.ReplaceAllString(text, " ")
	text = htmlEntity.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		dropped := false
		for _, p := range boilerplatePatterns {
			if p.MatchString(trimmed) {
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, line)
		}
	}
	text = strings.Join(kept, "\n")

	text = strings.ReplaceAll(text, "\t", " ")
	text = multiSpace.ReplaceAllString(text, " ")
	text = multiBlankLine.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)

	if text == "" {
		return "", domain.ErrEmptyArticleBody
	}
	return text, nil
}
