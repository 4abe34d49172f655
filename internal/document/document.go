// Package document holds an uploaded or downloaded tender file and turns it
// into something the model can read.
package document

import (
	"bytes"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var ErrNoText = errors.New("document has no extractable text")

type Document struct {
	Name     string
	MIMEType string
	Data     []byte
}

func (d Document) IsPDF() bool {
	return baseType(d.MIMEType) == MimePDF
}

// Text returns the readable text of the document. PDFs return ErrNoText and
// are sent to the model as binary parts instead.
func (d Document) Text() (string, error) {
	mt := baseType(d.MIMEType)
	switch {
	case mt == MimeDOCX:
		return extractDOCX(d.Data)
	case strings.HasPrefix(mt, "text/"), mt == "application/json":
		if !utf8.Valid(d.Data) {
			return strings.ToValidUTF8(string(d.Data), "�"), nil
		}
		return string(d.Data), nil
	}
	return "", ErrNoText
}

// Classify resolves the accepted upload type from the declared content type,
// the file extension and the leading bytes. It returns "" when the file is
// neither a PDF nor a DOCX, or when the bytes contradict the claim.
func Classify(name, declared string, data []byte) string {
	claimed := baseType(declared)
	if claimed != MimePDF && claimed != MimeDOCX {
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			claimed = MimePDF
		case ".docx":
			claimed = MimeDOCX
		default:
			return ""
		}
	}
	switch claimed {
	case MimePDF:
		if !hasPDFHeader(data) {
			return ""
		}
	case MimeDOCX:
		if http.DetectContentType(data) != "application/zip" {
			return ""
		}
	}
	return claimed
}

// pdfHeaderWindow is how far into the file readers accept the %PDF- marker.
const pdfHeaderWindow = 1024

func hasPDFHeader(data []byte) bool {
	if len(data) > pdfHeaderWindow {
		data = data[:pdfHeaderWindow]
	}
	return bytes.Contains(data, []byte("%PDF-"))
}

func baseType(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return mt
}
