package extract

import (
	"html"
	"regexp"
	"strings"
)

var (
	droppedElements = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
	}
	htmlComments    = regexp.MustCompile(`(?s)<!--.*?-->`)
	paragraphTags   = regexp.MustCompile(`(?i)</?(p|div|h[1-6]|table|section|article|ul|ol|blockquote|pre)[^>]*>`)
	lineTags        = regexp.MustCompile(`(?i)<(br|hr)\s*/?>|</(li|tr)>`)
	allTags         = regexp.MustCompile(`<[^>]+>`)
	multiSpaces     = regexp.MustCompile(`[ \t]+`)
	multiNewlines   = regexp.MustCompile(`\n{3,}`)
)

// stripHTML keeps readable text. Block elements become blank lines so the
// chunker sees them as separate paragraphs.
func stripHTML(content string) string {
	for _, re := range droppedElements {
		content = re.ReplaceAllString(content, "")
	}
	content = htmlComments.ReplaceAllString(content, "")
	content = paragraphTags.ReplaceAllString(content, "\n\n")
	content = lineTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	content = multiNewlines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(content)
}
