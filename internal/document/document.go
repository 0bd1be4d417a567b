// Package document holds the pieces shared by both container formats:
// input kind sniffing and the sliding text context window.
package document

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

type Kind string

const (
	KindPDF  Kind = "pdf"
	KindPPTX Kind = "pptx"
)

var pdfMagic = []byte("%PDF-")

// DetectKind sniffs the document kind from its binary content.
func DetectKind(data []byte) (Kind, error) {
	if bytes.HasPrefix(data, pdfMagic) {
		return KindPDF, nil
	}

	if bytes.HasPrefix(data, []byte("PK")) {
		zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("unrecognized zip container: %w", err)
		}
		for _, f := range zr.File {
			if strings.HasPrefix(f.Name, "ppt/") {
				return KindPPTX, nil
			}
		}
		return "", fmt.Errorf("zip container holds no presentation parts")
	}

	return "", fmt.Errorf("unrecognized document format")
}

// NormalizeText collapses runs of whitespace to single spaces and
// trims the ends.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
