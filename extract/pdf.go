package extract

import (
	"bytes"
	"os/exec"
	"strings"

	apperrors "legal-rag/errors"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// extractPDF runs the staged PDF fallback chain: layout-aware extraction,
// then per-page structural extraction, then OCR. Each stage runs only when
// the previous one produced no text.
func (e *Extractor) extractPDF(path string) (string, int, error) {
	text, pages, err := pdfLayoutText(path)
	if err != nil {
		e.logger.Warn("Layout PDF extraction failed, trying structural pass",
			zap.String("file", path), zap.Error(err))
	}
	if strings.TrimSpace(text) != "" {
		return text, pages, nil
	}

	text, pages, err = pdfStructuralText(path)
	if err != nil {
		e.logger.Warn("Structural PDF extraction failed, trying OCR",
			zap.String("file", path), zap.Error(err))
	}
	if strings.TrimSpace(text) != "" {
		return text, pages, nil
	}

	text, err = e.pdfOCRText(path)
	if err != nil {
		return "", pages, err
	}
	return text, pages, nil
}

// pdfLayoutText pulls the whole document's text stream in one pass.
func pdfLayoutText(path string) (string, int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, apperrors.WrapError(err, "open pdf")
	}
	defer f.Close()

	pages := reader.NumPage()
	buf, err := reader.GetPlainText()
	if err != nil {
		return "", pages, apperrors.WrapError(err, "read pdf text")
	}
	var sb bytes.Buffer
	if _, err := sb.ReadFrom(buf); err != nil {
		return "", pages, apperrors.WrapError(err, "read pdf stream")
	}
	return sb.String(), pages, nil
}

// pdfStructuralText walks pages individually; documents with broken
// cross-reference tables sometimes yield text this way when the single-pass
// reader does not.
func pdfStructuralText(path string) (string, int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", 0, apperrors.WrapError(err, "open pdf")
	}
	defer f.Close()

	pages := reader.NumPage()
	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if strings.TrimSpace(content) == "" {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}
	return sb.String(), pages, nil
}

// pdfOCRText shells out to the configured OCR binary. A missing binary is a
// capability gap, not an extraction failure.
func (e *Extractor) pdfOCRText(path string) (string, error) {
	if e.ocrBinary == "" {
		return "", apperrors.WrapError(apperrors.ErrExtractorUnavailable, "no OCR binary configured")
	}
	if _, err := exec.LookPath(e.ocrBinary); err != nil {
		return "", apperrors.WrapErrorf(apperrors.ErrExtractorUnavailable, "OCR binary %q not found", e.ocrBinary)
	}

	cmd := exec.Command(e.ocrBinary, path, "stdout")
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", apperrors.WrapError(err, "run OCR")
	}
	return out.String(), nil
}
