package memo

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/dealflow/internal/deal"
	"github.com/hpungsan/dealflow/internal/errors"
)

// Markdown renders m as a markdown document with one "## " header per section.
func Markdown(m *deal.InvestmentMemo) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	name := m.CompanyName
	if name == "" {
		name = "Unnamed company"
	}
	fmt.Fprintf(&b, "# Investment Memo: %s\n\n", name)
	fmt.Fprintf(&b, "Generated: %s\n", m.GeneratedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "Recommendation: %s\n", m.Recommendation)
	for _, s := range m.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Title, strings.TrimSpace(s.Body))
	}
	return b.String()
}

// RenderHTML converts the memo's markdown into HTML.
func RenderHTML(m *deal.InvestmentMemo) (string, error) {
	if m == nil {
		return "", errors.NewInvalidInput("", "memo", "memo is required")
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(m)), &buf); err != nil {
		return "", errors.NewInternal(err)
	}
	return buf.String(), nil
}
