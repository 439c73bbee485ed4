package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, path string, entries map[string][]byte) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeTestEpub(t *testing.T, path string) {
	t.Helper()

	opf := `<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Novel</dc:title>
    <dc:identifier id="bookid">urn:uuid:test</dc:identifier>
  </metadata>
  <manifest>
    <item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch2" href="ch2.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-image" href="cover.png" media-type="image/png" properties="cover-image"/>
  </manifest>
  <spine>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`
	container := `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

	writeZip(t, path, map[string][]byte{
		"mimetype":               []byte("application/epub+zip"),
		"META-INF/container.xml": []byte(container),
		"OEBPS/content.opf":      []byte(opf),
		"OEBPS/ch1.xhtml":        []byte("<html><body><h1>One</h1><p>First &amp; foremost.</p></body></html>"),
		"OEBPS/ch2.xhtml":        []byte("<html><body><p>Second chapter.</p></body></html>"),
		"OEBPS/cover.png":        []byte("png-bytes"),
	})
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("/lib/comic/ch1.cbz"))
	assert.True(t, IsSupported("/lib/comic/ch1.CBR"))
	assert.True(t, IsSupported("/lib/novel/vol1.epub"))
	assert.True(t, IsSupported("/lib/comic/ch1.pdf"))
	assert.False(t, IsSupported("/lib/comic/notes.txt"))
	assert.False(t, IsSupported("/lib/comic/ch1"))
}

func TestListPagesZipNaturalOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch1.cbz")
	writeZip(t, path, map[string][]byte{
		"page10.jpg":    []byte("j"),
		"page2.jpg":     []byte("j"),
		"page1.jpg":     []byte("j"),
		"ComicInfo.xml": []byte("<ComicInfo/>"),
		"thumbs/":       nil,
	})

	pages, err := ListPages(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"page1.jpg", "page2.jpg", "page10.jpg"}, pages)
}

func TestExtractZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch1.zip")
	writeZip(t, path, map[string][]byte{
		"001.png": []byte("first"),
		"002.png": []byte("second"),
	})

	data, err := Extract(path, "002.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data)

	_, err = Extract(path, "003.png")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestListPagesUnsupportedFormat(t *testing.T) {
	_, err := ListPages("/lib/comic/notes.txt")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))

	_, err = Extract("/lib/comic/notes.txt", "001.png")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestListPagesMissingArchive(t *testing.T) {
	_, err := ListPages(filepath.Join(t.TempDir(), "missing.cbz"))
	assert.True(t, errors.Is(err, ErrArchiveOpen))
}

func TestEpubSpineAndText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol1.epub")
	writeTestEpub(t, path)

	pages, err := ListPages(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ch1", "ch2"}, pages)

	text, err := ExtractText(path, "ch1")
	require.NoError(t, err)
	assert.Contains(t, text, "One")
	assert.Contains(t, text, "First & foremost.")
	assert.NotContains(t, text, "<p>")

	_, err = ExtractText(path, "nope")
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	_, err = ExtractText(filepath.Join(dir, "vol1.cbz"), "ch1")
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestFirstPageBytesPrefersEpubCover(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vol1.epub")
	writeTestEpub(t, path)

	data, err := FirstPageBytes(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
}

func TestFirstPageBytesComic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch1.cbz")
	writeZip(t, path, map[string][]byte{
		"002.jpg": []byte("second"),
		"001.jpg": []byte("first"),
	})

	data, err := FirstPageBytes(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestFirstPageBytesEmptyArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.cbz")
	writeZip(t, path, map[string][]byte{
		"notes.txt": []byte("no images here"),
	})

	_, err := FirstPageBytes(path)
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ch1.cbz")
	writeZip(t, path, map[string][]byte{
		"001.jpg": []byte("a"),
		"002.jpg": []byte("b"),
		"003.jpg": []byte("c"),
	})

	count, err := PageCount(path)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestPdfPageIDs(t *testing.T) {
	assert.Equal(t, "page_001", PdfPageID(1))
	assert.Equal(t, "page_042", PdfPageID(42))
	assert.Equal(t, "page_1000", PdfPageID(1000))

	n, err := parsePdfPageID("page_042")
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, err = parsePdfPageID("page_zero")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
	_, err = parsePdfPageID("page_000")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
	_, err = parsePdfPageID("cover.jpg")
	assert.True(t, errors.Is(err, ErrEntryNotFound))
}
