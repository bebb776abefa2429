package preview

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockSelector = "h1, h2, h3, h4, h5, h6, p, li, dt, dd, td, th, pre, blockquote, address"

// RenderText turns a rendered document preview into plain text for a
// terminal. Only the innermost block elements contribute lines.
func RenderText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, head, noscript").Remove()

	var lines []string
	doc.Find(blockSelector).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find(blockSelector).Length() == 0
		}).
		Each(func(_ int, s *goquery.Selection) {
			text := cleanText(s.Text())
			if text == "" {
				return
			}
			switch tag := goquery.NodeName(s); tag {
			case "h1", "h2":
				lines = append(lines, "", strings.ToUpper(text), "")
			case "h3", "h4", "h5", "h6":
				lines = append(lines, "", text)
			case "li":
				lines = append(lines, "  - "+text)
			default:
				lines = append(lines, text)
			}
		})

	if len(lines) == 0 {
		return cleanText(doc.Text()), nil
	}
	return strings.Trim(collapseBlank(lines), "\n"), nil
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}

// collapseBlank joins lines, keeping at most one blank line in a row
func collapseBlank(lines []string) string {
	var b strings.Builder
	blank := false
	for _, l := range lines {
		if l == "" {
			if blank {
				continue
			}
			blank = true
		} else {
			blank = false
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
