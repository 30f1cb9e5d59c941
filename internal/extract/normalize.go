package extract

import (
	"io"
	"mime"
	"net/mail"
	"net/textproto"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// NormalizedText is the cleaned body of a document plus any metadata
// recovered from its mail headers.
type NormalizedText struct {
	Text    string
	Sender  *string
	Subject *string
	SentAt  *time.Time

	// Degraded is set when normalization fell back to the original text
	Degraded bool

	QuotedLinesRemoved int
	SignatureTrimmed   bool
}

// knownHeaders are the header names that mark the start of a mail header block.
var knownHeaders = map[string]bool{
	"From":         true,
	"To":           true,
	"Subject":      true,
	"Date":         true,
	"Cc":           true,
	"Reply-To":     true,
	"Message-Id":   true,
	"Received":     true,
	"Mime-Version": true,
	"Content-Type": true,
	"Return-Path":  true,
	"Delivered-To": true,
	"Sender":       true,
}

var (
	headerLineRegex = regexp.MustCompile(`^([A-Za-z][A-Za-z-]*):(?:[ \t]|$)`)
	wroteRegex      = regexp.MustCompile(`(?i)^on\s.+\swrote:\s*$`)
	originalRegex   = regexp.MustCompile(`(?i)^-{3,}\s*original message\s*-{3,}$`)
	underscoreRegex = regexp.MustCompile(`^_{10,}$`)
)

var signatureDelimiters = map[string]bool{
	"--":                      true,
	"best,":                   true,
	"best regards,":           true,
	"regards,":                true,
	"kind regards,":           true,
	"warm regards,":           true,
	"thanks,":                 true,
	"thank you,":              true,
	"many thanks,":            true,
	"cheers,":                 true,
	"sincerely,":              true,
	"sent from my iphone":     true,
	"sent from my ipad":       true,
	"sent from my android":    true,
	"get outlook for ios":     true,
	"get outlook for android": true,
}

var wordDecoder = new(mime.WordDecoder)

// Normalize strips mail headers, quoted reply chains and signatures from raw
// and collapses blank lines. It never fails: input it cannot clean is
// returned unchanged with Degraded set. Normalizing an already normalized
// text returns the same text.
func Normalize(raw string) NormalizedText {
	if !utf8.ValidString(raw) {
		return NormalizedText{Text: raw, Degraded: true}
	}
	if strings.TrimSpace(raw) == "" {
		return NormalizedText{}
	}

	var n NormalizedText
	body := strings.ReplaceAll(raw, "\r\n", "\n")

	if name, ok := headerName(firstLine(body)); ok && knownHeaders[name] {
		msg, err := mail.ReadMessage(strings.NewReader(body))
		if err != nil {
			return NormalizedText{Text: raw, Degraded: true}
		}
		n.Sender = sender(msg.Header.Get("From"))
		n.Subject = decodeHeader(msg.Header.Get("Subject"))
		if t, err := msg.Header.Date(); err == nil {
			n.SentAt = &t
		}
		b, err := io.ReadAll(msg.Body)
		if err != nil {
			return NormalizedText{Text: raw, Sender: n.Sender, Subject: n.Subject, SentAt: n.SentAt, Degraded: true}
		}
		body = strings.ReplaceAll(string(b), "\r\n", "\n")
	}

	n.Text = n.clean(body)
	if n.Text == "" {
		return NormalizedText{Text: raw, Sender: n.Sender, Subject: n.Subject, SentAt: n.SentAt, Degraded: true}
	}
	return n
}

// clean applies reply-chain, signature and whitespace rules line by line.
func (n *NormalizedText) clean(body string) string {
	var out []string
	content := false
	blank := false

scan:
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, " \t\r")
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, ">") || strings.HasPrefix(trimmed, "|"):
			n.QuotedLinesRemoved++
			continue
		case wroteRegex.MatchString(trimmed), originalRegex.MatchString(trimmed), underscoreRegex.MatchString(trimmed):
			break scan
		case signatureDelimiters[strings.ToLower(trimmed)]:
			n.SignatureTrimmed = true
			break scan
		}

		if name, ok := headerName(trimmed); ok && knownHeaders[name] {
			if content && name == "From" {
				break scan
			}
			if !content {
				// stray header lines ahead of the body, e.g. a pasted message
				n.absorbHeader(name, strings.TrimSpace(trimmed[len(name)+1:]))
				continue
			}
		}

		if trimmed == "" {
			if content {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
		content = true
	}

	return strings.TrimSpace(strings.Join(out, "\n"))
}

func (n *NormalizedText) absorbHeader(name, value string) {
	switch name {
	case "From":
		if n.Sender == nil {
			n.Sender = sender(value)
		}
	case "Subject":
		if n.Subject == nil {
			n.Subject = decodeHeader(value)
		}
	}
}

func headerName(line string) (string, bool) {
	m := headerLineRegex.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return textproto.CanonicalMIMEHeaderKey(m[1]), true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func sender(from string) *string {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil
	}
	if addr, err := mail.ParseAddress(from); err == nil {
		return &addr.Address
	}
	return &from
}

func decodeHeader(v string) *string {
	if decoded, err := wordDecoder.DecodeHeader(v); err == nil {
		v = decoded
	}
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
