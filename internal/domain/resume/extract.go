package resume

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

const (
	mimePDF  = "application/pdf"
	mimeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// SupportedMIME reports whether uploads of the given content type are
// accepted.
func SupportedMIME(mime string) bool {
	switch mime {
	case mimePDF, mimeDocx, mimeText:
		return true
	}
	return false
}

// ExtractText pulls plain text out of an uploaded résumé by MIME type.
func ExtractText(mime string, data []byte) (string, error) {
	switch mime {
	case mimeText:
		return string(data), nil
	case mimePDF:
		return extractPDF(data)
	case mimeDocx:
		return extractDocx(data)
	default:
		return "", errors.Wrapf(ErrUnsupportedType, "%s", mime)
	}
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "read pdf")
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// docx content comes back as WordprocessingML; paragraph closers become
// newlines and the remaining tags are stripped.
var (
	docxParaRe = regexp.MustCompile(`</w:p>`)
	docxTagRe  = regexp.MustCompile(`<[^>]+>`)
)

func extractDocx(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "read docx")
	}
	defer doc.Close()

	content := doc.Editable().GetContent()
	content = docxParaRe.ReplaceAllString(content, "\n")
	content = docxTagRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content), nil
}
