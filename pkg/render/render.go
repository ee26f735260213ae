// Package render turns card details into markdown and terminal text. The
// details pane of the board and the show command share it.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// DefaultWidth is used when the terminal width is unknown
const DefaultWidth = 80

// Markdown renders md for the terminal with a glamour style. An empty style
// means "dark"; "notty" yields plain text without escape codes.
func Markdown(md, style string, width int) (string, error) {
	if style == "" {
		style = "dark"
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStylePath(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer (style %q): %w", style, err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

// Details describes everything the card view shows
type Details struct {
	Card        models.CardDetails
	Potential   string
	Industry    string
	SellerEmail string
	Suggestions []string
}

// CardMarkdown builds the markdown document for a card
func CardMarkdown(d Details) string {
	var b strings.Builder
	c := d.Card

	fmt.Fprintf(&b, "# %s\n\n", escape(titleOf(c)))
	if c.URL != "" {
		fmt.Fprintf(&b, "<%s>\n\n", c.URL)
	}

	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Stage | %s |\n", c.Stage.Label())
	if d.Potential != "" {
		fmt.Fprintf(&b, "| Potential | %s |\n", escape(d.Potential))
	}
	if d.Industry != "" {
		fmt.Fprintf(&b, "| Industry | %s |\n", escape(d.Industry))
	}
	switch {
	case d.SellerEmail != "":
		fmt.Fprintf(&b, "| Seller | %s |\n", d.SellerEmail)
	case c.SellerID != nil:
		fmt.Fprintf(&b, "| Seller | #%d |\n", *c.SellerID)
	}
	if !c.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "| Created | %s |\n", c.CreatedAt.Format("2006-01-02"))
	}
	b.WriteString("\n")

	if summary := c.SummaryText(); summary != "" {
		fmt.Fprintf(&b, "## Summary\n\n%s\n\n", summary)
	}
	if len(c.KeyPoints) > 0 {
		b.WriteString("## Key points\n\n")
		for _, p := range c.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}
	if len(d.Suggestions) > 0 {
		b.WriteString("## Next steps\n\n")
		for _, s := range d.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Notes (%d)\n\n", len(c.Notes))
	for _, n := range c.Notes {
		who := n.UserEmail
		if who == "" {
			who = "unknown"
		}
		fmt.Fprintf(&b, "- **#%d** %s, %s: %s\n", n.ID, who, n.CreatedAt.Format("2006-01-02"), n.Content)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "## Attachments (%d)\n\n", len(c.Attachments))
	for _, a := range c.Attachments {
		fmt.Fprintf(&b, "- **#%d** [%s](%s)\n", a.ID, escape(a.Filename), a.FileURL)
	}
	return b.String()
}

// Wrap word-wraps text to width and indents every line by pad spaces
func Wrap(text string, width int, pad uint) string {
	if width <= int(pad)+1 {
		return text
	}
	wrapped := wordwrap.String(text, width-int(pad))
	if pad == 0 {
		return wrapped
	}
	return indent.String(wrapped, pad)
}

// Bullets wraps each item as a bullet with hanging indentation
func Bullets(items []string, width int) string {
	lines := make([]string, 0, len(items))
	for _, item := range items {
		wrapped := Wrap(item, width-2, 0)
		wrapped = strings.ReplaceAll(wrapped, "\n", "\n  ")
		lines = append(lines, "• "+wrapped)
	}
	return strings.Join(lines, "\n")
}

func titleOf(c models.CardDetails) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("Card %d", c.ID)
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`, "#", `\#`)

func escape(s string) string {
	return markdownEscaper.Replace(s)
}
