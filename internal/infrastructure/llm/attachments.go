package llm

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/constants"
	"github.com/turtacn/advisorhub/pkg/errors"
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeXLSX = constants.XLSXContentType
)

// maxAttachmentText caps the text extracted from one office document.
const maxAttachmentText = 2 << 20

// inlineAttachment converts a document into a part the model accepts inline.
// PDF passes through; office formats become plain text; text formats are relabelled text/plain.
func inlineAttachment(d service.Attachment) (service.Attachment, error) {
	switch d.MIMEType {
	case "application/pdf":
		return d, nil
	case mimeXLSX:
		text, err := spreadsheetText(d.Data)
		if err != nil {
			return service.Attachment{}, errors.ErrInvalidRequest("cannot read spreadsheet " + d.Name).WithCause(err)
		}
		return textAttachment(d.Name, text), nil
	case mimeDOCX:
		text, err := wordText(d.Data)
		if err != nil {
			return service.Attachment{}, errors.ErrInvalidRequest("cannot read document " + d.Name).WithCause(err)
		}
		return textAttachment(d.Name, text), nil
	default:
		return service.Attachment{Name: d.Name, MIMEType: "text/plain", Data: d.Data}, nil
	}
}

func textAttachment(name, text string) service.Attachment {
	if len(text) > maxAttachmentText {
		text = text[:maxAttachmentText]
	}
	return service.Attachment{Name: name, MIMEType: "text/plain", Data: []byte(text)}
}

// spreadsheetText renders every sheet as a titled CSV block.
func spreadsheetText(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %s: %w", sheet, err)
		}
		if len(rows) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## Sheet: %s\n", sheet)
		w := csv.NewWriter(&b)
		if err := w.WriteAll(rows); err != nil {
			return "", err
		}
		b.WriteByte('\n')
		if b.Len() > maxAttachmentText {
			break
		}
	}
	return b.String(), nil
}

// wordText pulls paragraph text out of word/document.xml.
func wordText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var body io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			if body, err = f.Open(); err != nil {
				return "", err
			}
			break
		}
	}
	if body == nil {
		return "", fmt.Errorf("word/document.xml not found")
	}
	defer body.Close()

	var (
		b      strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(io.LimitReader(body, 8*maxAttachmentText))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
		if b.Len() > maxAttachmentText {
			break
		}
	}
	return strings.TrimSpace(b.String()), nil
}

//Personal.AI order the ending
