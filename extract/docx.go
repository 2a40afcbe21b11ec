package extract

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"strings"

	apperrors "legal-rag/errors"
)

// extractDOCX reads word/document.xml from the package and concatenates
// paragraph text first, then table-cell text, in document order.
func extractDOCX(path string) (string, int, int, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", 0, 0, apperrors.WrapError(err, "open docx")
	}
	defer zr.Close()

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", 0, 0, apperrors.WrapError(err, "open document.xml")
			}
			break
		}
	}
	if doc == nil {
		return "", 0, 0, apperrors.WrapError(apperrors.ErrDecodeFailed, "docx missing document.xml")
	}
	defer doc.Close()

	var paragraphs []string
	var tableCells []string
	tableDepth := 0
	var current strings.Builder

	decoder := xml.NewDecoder(doc)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", 0, 0, apperrors.WrapError(err, "parse document.xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				current.Reset()
			case "t":
				var text string
				if err := decoder.DecodeElement(&text, &t); err == nil {
					current.WriteString(text)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "p":
				text := strings.TrimSpace(current.String())
				if text == "" {
					continue
				}
				if tableDepth > 0 {
					tableCells = append(tableCells, text)
				} else {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}

	var sb strings.Builder
	for _, p := range paragraphs {
		sb.WriteString(p)
		sb.WriteString("\n")
	}
	for _, c := range tableCells {
		sb.WriteString(c)
		sb.WriteString("\n")
	}
	return sb.String(), len(paragraphs), len(tableCells), nil
}
