package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePDFSource struct {
	text string
	err  error
}

func (f fakePDFSource) ExtractText(context.Context, []byte, string) (string, error) {
	return f.text, f.err
}

type fakeOCR struct {
	available bool
	text      string
	err       error
	calls     int
}

func (f *fakeOCR) IsAvailable() bool { return f.available }

func (f *fakeOCR) RecognizeText(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}

// buildDocx 生成只包含正文的最小 DOCX
func buildDocx(t *testing.T, body string) []byte {
	t.Helper()
	files := map[string]string{
		"[Content_Types].xml":          `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
	}

	buf := &bytes.Buffer{}
	zw := zip.NewWriter(buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDocxText(t *testing.T) {
	data := buildDocx(t,
		`<w:p><w:r><w:t>John Doe</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t xml:space="preserve">B.Tech </w:t></w:r><w:r><w:t>in CS</w:t></w:r></w:p>`+
			`<w:p><w:r><w:t>2020</w:t><w:tab/><w:t>Engineer</w:t></w:r></w:p>`)

	text, err := ExtractDocxText(data)
	require.NoError(t, err)
	assert.Equal(t, "John Doe\nB.Tech in CS\n2020\tEngineer", text)
}

func TestExtractDocxTextInvalid(t *testing.T) {
	_, err := ExtractDocxText([]byte("not a zip"))
	assert.Error(t, err)
}

func TestDocxParagraphsNesting(t *testing.T) {
	const ns = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "textbox inside paragraph keeps outer text",
			body: `<w:p><w:r><w:t xml:space="preserve">Jane Roe </w:t></w:r>` +
				`<w:r><w:pict><w:txbxContent><w:p><w:r><w:t>Sidebar</w:t></w:r></w:p></w:txbxContent></w:pict></w:r>` +
				`<w:r><w:t>Engineer</w:t></w:r></w:p>`,
			want: []string{"Jane Roe Engineer"},
		},
		{
			name: "table cell paragraphs skipped",
			body: `<w:p><w:r><w:t>Experience</w:t></w:r></w:p>` +
				`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Cell</w:t></w:r></w:p></w:tc></w:tr></w:tbl>` +
				`<w:p><w:r><w:t>Education</w:t></w:r></w:p>`,
			want: []string{"Experience", "Education"},
		},
		{
			name: "empty paragraph kept",
			body: `<w:p/><w:p><w:r><w:t>Skills</w:t></w:r></w:p>`,
			want: []string{"", "Skills"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := docxParagraphs(`<w:document ` + ns + `><w:body>` + tt.body + `</w:body></w:document>`)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTextExtractorDispatch(t *testing.T) {
	ctx := context.Background()

	t.Run("plain text passthrough", func(t *testing.T) {
		e := NewTextExtractor()
		assert.Equal(t, "hello", e.Extract(ctx, "cv.txt", []byte("hello")))
		assert.Equal(t, "ab", e.Extract(ctx, "cv", []byte("a\xffb")), "非法 UTF-8 被丢弃")
	})

	t.Run("pdf uses source", func(t *testing.T) {
		e := NewTextExtractor(WithPDFSource(fakePDFSource{text: "pdf text"}))
		assert.Equal(t, "pdf text", e.Extract(ctx, "CV.PDF", []byte("%PDF")))
	})

	t.Run("pdf failure yields empty", func(t *testing.T) {
		e := NewTextExtractor(WithPDFSource(fakePDFSource{err: errors.New("broken")}))
		assert.Equal(t, "", e.Extract(ctx, "cv.pdf", []byte("%PDF")))
	})

	t.Run("scanned pdf falls back to ocr", func(t *testing.T) {
		ocr := &fakeOCR{available: true, text: "ocr text"}
		e := NewTextExtractor(WithPDFSource(fakePDFSource{text: "  \n"}), WithOCR(ocr))
		assert.Equal(t, "ocr text", e.Extract(ctx, "scan.pdf", []byte("%PDF")))
		assert.Equal(t, 1, ocr.calls)
	})

	t.Run("image without ocr", func(t *testing.T) {
		e := NewTextExtractor(WithOCR(&fakeOCR{available: false}))
		assert.Equal(t, "", e.Extract(ctx, "photo.png", []byte{0x89}))
	})

	t.Run("image with ocr error", func(t *testing.T) {
		e := NewTextExtractor(WithOCR(&fakeOCR{available: true, err: errors.New("tika down")}))
		assert.Equal(t, "", e.Extract(ctx, "photo.jpg", []byte{0xff}))
	})

	t.Run("docx", func(t *testing.T) {
		e := NewTextExtractor()
		data := buildDocx(t, `<w:p><w:r><w:t>Skills: python</w:t></w:r></w:p>`)
		assert.Equal(t, "Skills: python", e.Extract(ctx, "cv.docx", data))
		assert.Equal(t, "", e.Extract(ctx, "cv.docx", []byte("corrupt")))
	})

	t.Run("invalid pdf without source", func(t *testing.T) {
		e := NewTextExtractor()
		assert.Equal(t, "", e.Extract(ctx, "cv.pdf", []byte("not a pdf")))
	})
}

func TestTikaOCR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/tika", r.URL.Path)
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		assert.Equal(t, "eng+chi_sim", r.Header.Get("X-Tika-OCRLanguage"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{1, 2, 3}, body)
		_, _ = w.Write([]byte("recognized text"))
	}))
	defer srv.Close()

	ocr := NewTikaOCR(srv.URL+"/", WithOCRLanguage("eng+chi_sim"))
	require.True(t, ocr.IsAvailable())
	text, err := ocr.RecognizeText(context.Background(), []byte{1, 2, 3}, "dir/scan.png")
	require.NoError(t, err)
	assert.Equal(t, "recognized text", text)
}

func TestTikaOCRScannedPDFStrategy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ocr_only", r.Header.Get("X-Tika-PDFOcrStrategy"))
		assert.Equal(t, "scan.pdf", r.Header.Get("X-Tika-Resource-Name"))
		_, _ = w.Write([]byte("pdf ocr"))
	}))
	defer srv.Close()

	text, err := NewTikaOCR(srv.URL).RecognizeText(context.Background(), []byte("%PDF"), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, "pdf ocr", text)
}

func TestTikaOCRErrors(t *testing.T) {
	assert.False(t, NewTikaOCR("").IsAvailable())
	_, err := NewTikaOCR("").RecognizeText(context.Background(), nil, "a.png")
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()
	_, err = NewTikaOCR(srv.URL).RecognizeText(context.Background(), []byte{1}, "a.png")
	assert.Error(t, err)
}

func TestPDFTextExtractorInvalidInput(t *testing.T) {
	e, err := NewPDFTextExtractor(context.Background())
	require.NoError(t, err)
	_, err = e.ExtractText(context.Background(), []byte("definitely not a pdf"), "bad.pdf")
	assert.Error(t, err)
}
