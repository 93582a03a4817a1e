// Package metadata derives structured fields from the raw text of a document.
package metadata

import (
	"path/filepath"
	"regexp"
	"strings"

	"docsearch/internal/domain"
)

// Rules are tried in order and the first match wins.
var (
	dateRules = []*regexp.Regexp{
		regexp.MustCompile(`Date:\s*([^\n]+)`),
		regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{4})`),
		regexp.MustCompile(`(\d{4}-\d{1,2}-\d{1,2})`),
	}
	authorRules = []*regexp.Regexp{
		regexp.MustCompile(`Author:\s*([^\n]+)`),
		regexp.MustCompile(`By:\s*([^\n]+)`),
	}
	locationRules = []*regexp.Regexp{
		regexp.MustCompile(`Location:\s*([^\n]+)`),
		regexp.MustCompile(`([A-Z][a-z]+,\s*[A-Z]{2})`),
	}
)

// Extract returns the metadata found in text. The title is the filename
// without its extension. Fields that no rule matches are left empty.
func Extract(text, filename string) domain.Metadata {
	return domain.Metadata{
		Filename: filename,
		Title:    strings.TrimSuffix(filename, filepath.Ext(filename)),
		Date:     firstMatch(dateRules, text),
		Author:   firstMatch(authorRules, text),
		Location: firstMatch(locationRules, text),
	}
}

func firstMatch(rules []*regexp.Regexp, text string) string {
	for _, re := range rules {
		m := re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return ""
}
