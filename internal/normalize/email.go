// Package normalize turns raw inbound content (forwarded emails, attachment
// payloads) into plain text the extraction engine can work with.
package normalize

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// EmailMessage is a forwarded email as received from the ingestion surface.
type EmailMessage struct {
	From        string       `json:"from"`
	Subject     string       `json:"subject"`
	TextBody    string       `json:"text_body,omitempty"`
	HTMLBody    string       `json:"html_body,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is a single attachment payload, base64-encoded on the wire.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        string `json:"data"` // base64
}

// Content is the normalized form of an email: plain text plus decoded
// attachment bytes.
type Content struct {
	Text        string
	Attachments []DecodedAttachment
}

// DecodedAttachment carries decoded bytes alongside the original metadata.
type DecodedAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

var blankLines = regexp.MustCompile(`\n{3,}`)

// Email normalizes a message. The plain-text body wins when present; the HTML
// body is stripped to text otherwise. Attachments that fail to decode are
// skipped, not fatal; a bad attachment should not sink the rest of the email.
func Email(msg EmailMessage) (Content, error) {
	body := strings.TrimSpace(msg.TextBody)
	if body == "" {
		body = StripHTML(msg.HTMLBody)
	}
	if body == "" && len(msg.Attachments) == 0 {
		return Content{}, fmt.Errorf("email has no body and no attachments")
	}

	var b strings.Builder
	if from := strings.TrimSpace(msg.From); from != "" {
		b.WriteString("From: " + from + "\n")
	}
	if subj := strings.TrimSpace(msg.Subject); subj != "" {
		b.WriteString("Subject: " + subj + "\n")
	}
	if body != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}

	out := Content{Text: b.String()}
	for _, att := range msg.Attachments {
		data, err := DecodeAttachment(att)
		if err != nil {
			continue
		}
		out.Attachments = append(out.Attachments, DecodedAttachment{
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Data:        data,
		})
	}
	return out, nil
}

// StripHTML reduces an HTML fragment to its visible text. Script and style
// content is dropped; block boundaries become newlines.
func StripHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	tok := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := tok.Next()
		switch tt {
		case html.ErrorToken:
			return tidy(b.String())
		case html.StartTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "head":
				skipDepth++
			case "br", "p", "div", "tr", "li", "h1", "h2", "h3", "h4", "table":
				b.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := tok.TagName()
			switch string(name) {
			case "script", "style", "head":
				if skipDepth > 0 {
					skipDepth--
				}
			case "p", "div", "tr", "li", "h1", "h2", "h3", "h4":
				b.WriteString("\n")
			case "td", "th":
				b.WriteString(" ")
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.WriteString(string(tok.Text()))
			}
		}
	}
}

// DecodeAttachment decodes a base64 payload, tolerating data: URL prefixes
// and both standard and URL-safe alphabets.
func DecodeAttachment(att Attachment) ([]byte, error) {
	data := strings.TrimSpace(att.Data)
	if data == "" {
		return nil, fmt.Errorf("attachment %q is empty", att.Filename)
	}
	// data:<mime>;base64,<payload>
	if strings.HasPrefix(data, "data:") {
		if i := strings.Index(data, ","); i >= 0 {
			data = data[i+1:]
		}
	}
	if b, err := base64.StdEncoding.DecodeString(data); err == nil {
		return b, nil
	}
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode attachment %q: %w", att.Filename, err)
	}
	return b, nil
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.Join(strings.Fields(l), " ")
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
