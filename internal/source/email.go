package source

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
)

type email struct {
	path string

	once    sync.Once
	subject string
	from    string
	date    string
	body    string
	err     error
}

// Email reads an RFC 5322 message and serves its text body.
func Email(path string) Source {
	return &email{path: path}
}

func (m *email) Title() string {
	m.load()
	if m.subject == "" {
		return filepath.Base(m.path)
	}
	return m.subject
}

func (m *email) Detail() string {
	m.load()
	parts := make([]string, 0, 2)
	if m.from != "" {
		parts = append(parts, m.from)
	}
	if m.date != "" {
		parts = append(parts, m.date)
	}
	if len(parts) == 0 {
		return m.path
	}
	return strings.Join(parts, " · ")
}

func (m *email) Content() (string, error) {
	m.load()
	return m.body, m.err
}

func (m *email) load() {
	m.once.Do(func() {
		f, err := os.Open(m.path)
		if err != nil {
			m.err = fmt.Errorf("failed to open %s: %w", m.path, err)
			return
		}
		defer f.Close()
		msg, err := mail.ReadMessage(f)
		if err != nil {
			m.err = fmt.Errorf("failed to parse %s: %w", m.path, err)
			return
		}
		m.subject = decodeHeader(msg.Header.Get("Subject"))
		m.from = decodeHeader(msg.Header.Get("From"))
		m.date = msg.Header.Get("Date")

		body, err := messageText(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
		if err != nil {
			m.err = fmt.Errorf("failed to read body of %s: %w", m.path, err)
			return
		}
		m.body = body
	})
}

var headerDecoder = &mime.WordDecoder{CharsetReader: charsetReader}

func decodeHeader(value string) string {
	decoded, err := headerDecoder.DecodeHeader(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}

type textPart struct {
	mediaType string
	body      string
}

// messageText prefers the first text/plain part, then any other text part.
func messageText(contentType, transferEncoding string, r io.Reader) (string, error) {
	var parts []textPart
	if err := collectText(contentType, transferEncoding, r, &parts); err != nil {
		return "", err
	}
	for _, p := range parts {
		if p.mediaType == "text/plain" {
			return p.body, nil
		}
	}
	if len(parts) == 0 {
		return "", errors.New("message has no text part")
	}
	if parts[0].mediaType == "text/html" {
		return stripTags(parts[0].body), nil
	}
	return parts[0].body, nil
}

func collectText(contentType, transferEncoding string, r io.Reader, out *[]textPart) error {
	mediaType := "text/plain"
	var params map[string]string
	if contentType != "" {
		parsed, p, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("bad content type %q: %w", contentType, err)
		}
		mediaType, params = parsed, p
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary == "" {
			return fmt.Errorf("multipart message without boundary")
		}
		mr := multipart.NewReader(r, boundary)
		for {
			part, err := mr.NextRawPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := collectText(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part, out); err != nil {
				return err
			}
		}
	}
	if !strings.HasPrefix(mediaType, "text/") {
		return nil
	}
	data, err := io.ReadAll(transferDecoder(transferEncoding, r))
	if err != nil {
		return err
	}
	body, err := decodeCharset(params["charset"], data)
	if err != nil {
		return err
	}
	*out = append(*out, textPart{mediaType: mediaType, body: body})
	return nil
}

// charsetReader converts text in the named charset to UTF-8.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported charset %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// decodeCharset returns data as UTF-8. Undeclared or unknown charsets are
// read as UTF-8 when valid and as Windows-1252 otherwise.
func decodeCharset(label string, data []byte) (string, error) {
	label = strings.TrimSpace(label)
	if label != "" {
		if enc, err := htmlindex.Get(label); err == nil {
			decoded, err := enc.NewDecoder().Bytes(data)
			if err != nil {
				return "", fmt.Errorf("failed to decode %s text: %w", label, err)
			}
			return string(decoded), nil
		}
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(decoded), nil
}

func transferDecoder(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// stripTags keeps the readable text of an HTML document. Head, script and
// style contents are dropped and elements are separated by spaces.
func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			name, _ := z.TagName()
			switch {
			case atom.Lookup(name) == atom.Body:
				skip = 0
			case hiddenElement(name):
				skip++
			}
			b.WriteByte(' ')
		case html.EndTagToken:
			name, _ := z.TagName()
			if hiddenElement(name) && skip > 0 {
				skip--
			}
			b.WriteByte(' ')
		case html.SelfClosingTagToken:
			b.WriteByte(' ')
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func hiddenElement(name []byte) bool {
	switch atom.Lookup(name) {
	case atom.Script, atom.Style, atom.Head:
		return true
	default:
		return false
	}
}
