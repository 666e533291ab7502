// internal/feed/content.go
package feed

import (
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/rs/zerolog/log"
)

// ToMarkdown converts a detail page's content HTML to GitHub-flavored
// markdown. Conversion failure degrades to the raw input with a warning; the
// downstream consumer still gets something usable.
func ToMarkdown(html string) string {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	out, err := converter.ConvertString(html)
	if err != nil {
		log.Warn().Err(err).Msg("Markdown conversion failed, keeping raw HTML")
		return html
	}
	return strings.TrimSpace(out)
}
