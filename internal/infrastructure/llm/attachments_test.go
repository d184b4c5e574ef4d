package llm

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/turtacn/advisorhub/internal/domain/service"
	"github.com/turtacn/advisorhub/pkg/errors"
)

func buildXLSX(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Initiative", "Owner", "Hours"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Open site, north", "Ana", 120}))
	_, err := f.NewSheet("Empty")
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func buildDOCX(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestInlineAttachment_Spreadsheet(t *testing.T) {
	got, err := inlineAttachment(service.Attachment{Name: "plan.xlsx", MIMEType: mimeXLSX, Data: buildXLSX(t)})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", got.MIMEType)
	text := string(got.Data)
	assert.Contains(t, text, "## Sheet: Sheet1")
	assert.Contains(t, text, "Initiative,Owner,Hours")
	assert.Contains(t, text, `"Open site, north",Ana,120`)
	assert.NotContains(t, text, "## Sheet: Empty")
}

func TestInlineAttachment_Word(t *testing.T) {
	doc := buildDOCX(t, `<w:p><w:r><w:t>Vision:</w:t></w:r><w:r><w:tab/><w:t>Lead the region</w:t></w:r></w:p><w:p><w:r><w:t>Mission</w:t></w:r></w:p>`)
	got, err := inlineAttachment(service.Attachment{Name: "strategy.docx", MIMEType: mimeDOCX, Data: doc})
	require.NoError(t, err)
	assert.Equal(t, "Vision:\tLead the region\nMission", string(got.Data))
}

func TestInlineAttachment_PassThroughAndText(t *testing.T) {
	pdf := service.Attachment{Name: "a.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}
	got, err := inlineAttachment(pdf)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	md, err := inlineAttachment(service.Attachment{Name: "a.md", MIMEType: "text/markdown", Data: []byte("# hi")})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", md.MIMEType)
}

func TestInlineAttachment_CorruptOfficeFile(t *testing.T) {
	_, err := inlineAttachment(service.Attachment{Name: "broken.docx", MIMEType: mimeDOCX, Data: []byte("not a zip")})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))

	_, err = inlineAttachment(service.Attachment{Name: "broken.xlsx", MIMEType: mimeXLSX, Data: []byte("not a zip")})
	assert.True(t, errors.HasCode(err, errors.CodeInvalidRequest))
}

func TestExtractWorkbook_ConvertsOfficeDocuments(t *testing.T) {
	a, gen, _ := newTestAdvisor(t, reply{text: `{"vision":"Lead the region"}`})
	docs := []service.Attachment{{Name: "plan.xlsx", MIMEType: mimeXLSX, Data: buildXLSX(t)}}

	_, _, err := a.ExtractWorkbook(context.Background(), docs)
	require.NoError(t, err)
	parts := gen.requests[0][0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "text/plain", parts[1].InlineData.MIMEType)
	assert.Contains(t, string(parts[1].InlineData.Data), "Initiative,Owner,Hours")
}

//Personal.AI order the ending
