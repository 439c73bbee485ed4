package scanner

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/yomu/pkg/chapters"
	"github.com/shishobooks/yomu/pkg/contents"
	"github.com/shishobooks/yomu/pkg/libraries"
	"github.com/shishobooks/yomu/pkg/metadata"
	"github.com/shishobooks/yomu/pkg/migrations"
	"github.com/shishobooks/yomu/pkg/models"
	"github.com/shishobooks/yomu/pkg/scanqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type testContext struct {
	t              *testing.T
	ctx            context.Context
	db             *bun.DB
	pipeline       *Pipeline
	libraryService *libraries.Service
	contentService *contents.Service
	chapterService *chapters.Service
}

func newTestContext(t *testing.T, metadataClient *metadata.Client) *testContext {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	libraryService := libraries.NewService(db)
	contentService := contents.NewService(db)
	chapterService := chapters.NewService(db)

	return &testContext{
		t:              t,
		ctx:            logger.New().WithContext(context.Background()),
		db:             db,
		pipeline:       New(libraryService, contentService, chapterService, metadataClient),
		libraryService: libraryService,
		contentService: contentService,
		chapterService: chapterService,
	}
}

func (tc *testContext) createLibrary(paths ...string) *models.Library {
	tc.t.Helper()

	library := &models.Library{Name: "Test Library"}
	for _, path := range paths {
		library.ScanPaths = append(library.ScanPaths, &models.ScanPath{Path: path})
	}
	require.NoError(tc.t, tc.libraryService.CreateLibrary(tc.ctx, library))
	return library
}

func pngPage(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 40, 60))
	for x := 0; x < 40; x++ {
		for y := 0; y < 60; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: uint8(y * 4), B: uint8(x * 6), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeCBZ(t *testing.T, path string, pages int) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	page := pngPage(t)
	for i := 1; i <= pages; i++ {
		w, err := zw.Create(filepath.Base(path) + "-" + string(rune('0'+i)) + ".png")
		require.NoError(t, err)
		_, err = w.Write(page)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func writeEPUB(t *testing.T, path string, withCover bool) {
	t.Helper()

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	write := func(name string, data []byte) {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}

	write("mimetype", []byte("application/epub+zip"))
	write("META-INF/container.xml", []byte(`<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`))

	manifest := `<item id="ch1" href="ch1.xhtml" media-type="application/xhtml+xml"/>`
	if withCover {
		manifest += `
    <item id="cover-image" href="cover.png" media-type="image/png" properties="cover-image"/>`
		write("OEBPS/cover.png", pngPage(t))
	}
	write("OEBPS/content.opf", []byte(`<?xml version="1.0" encoding="UTF-8"?>
<package version="3.0" xmlns="http://www.idpf.org/2007/opf" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>Test Novel</dc:title>
    <dc:identifier id="bookid">urn:uuid:test</dc:identifier>
  </metadata>
  <manifest>
    `+manifest+`
  </manifest>
  <spine>
    <itemref idref="ch1"/>
  </spine>
</package>`))
	write("OEBPS/ch1.xhtml", []byte("<html><body><p>Hello.</p></body></html>"))

	require.NoError(t, zw.Close())
}

func TestScanImportsChaptersInNaturalOrder(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	folder := filepath.Join(root, "One Piece")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 2)
	writeCBZ(t, filepath.Join(folder, "ch2.cbz"), 2)
	writeCBZ(t, filepath.Join(folder, "ch10.cbz"), 2)

	library := tc.createLibrary(root)

	result, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Empty(t, result.Removed)

	content := result.Added[0]
	assert.Equal(t, models.ContentTypeComic, content.Type)
	assert.Equal(t, "One Piece", content.Title)
	assert.Equal(t, 3, content.ChapterCount)

	chs, err := tc.chapterService.ListByContent(tc.ctx, content.ID)
	require.NoError(t, err)
	require.Len(t, chs, 3)
	for i, expected := range []string{"ch1", "ch2", "ch10"} {
		assert.Equal(t, expected, chs[i].Title)
		assert.Equal(t, i, chs[i].SortOrder)
		require.NotNil(t, chs[i].PageCount)
		assert.Equal(t, 2, *chs[i].PageCount)
		assert.Positive(t, chs[i].FilesizeBytes)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	folder := filepath.Join(root, "Series A")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 1)

	library := tc.createLibrary(root)

	first, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	assert.Len(t, first.Added, 1)

	second, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Empty(t, second.Removed)
}

func TestScanRemovesDeletedFolders(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	folder := filepath.Join(root, "Ephemeral")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 1)

	library := tc.createLibrary(root)

	first, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	require.Len(t, first.Added, 1)
	contentID := first.Added[0].ID

	require.NoError(t, os.RemoveAll(folder))

	second, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	assert.Empty(t, second.Added)
	assert.Equal(t, []int{contentID}, second.Removed)

	// Chapters cascade with the content.
	chs, err := tc.chapterService.ListByContent(tc.ctx, contentID)
	require.NoError(t, err)
	assert.Empty(t, chs)
}

func TestScanClassifiesMixedFolders(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	mixed := filepath.Join(root, "Mostly Comic")
	require.NoError(t, os.Mkdir(mixed, 0o755))
	writeCBZ(t, filepath.Join(mixed, "ch1.cbz"), 1)
	writeCBZ(t, filepath.Join(mixed, "ch2.cbz"), 1)
	writeEPUB(t, filepath.Join(mixed, "extra.epub"), false)

	novel := filepath.Join(root, "Novel Only")
	require.NoError(t, os.Mkdir(novel, 0o755))
	writeEPUB(t, filepath.Join(novel, "vol1.epub"), false)

	ignored := filepath.Join(root, "No Archives")
	require.NoError(t, os.Mkdir(ignored, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(ignored, "notes.txt"), []byte("x"), 0o644))

	library := tc.createLibrary(root)

	result, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	require.Len(t, result.Added, 2)

	byTitle := map[string]*models.Content{}
	for _, content := range result.Added {
		byTitle[content.Title] = content
	}
	require.Contains(t, byTitle, "Mostly Comic")
	require.Contains(t, byTitle, "Novel Only")
	assert.Equal(t, models.ContentTypeComic, byTitle["Mostly Comic"].Type)
	// Only the comic family's files become chapters.
	assert.Equal(t, 2, byTitle["Mostly Comic"].ChapterCount)
	assert.Equal(t, models.ContentTypeNovel, byTitle["Novel Only"].Type)
}

func TestScanThumbnailFromEmbeddedEpubCover(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	withCover := filepath.Join(root, "Covered")
	require.NoError(t, os.Mkdir(withCover, 0o755))
	writeEPUB(t, filepath.Join(withCover, "book.epub"), true)

	bare := filepath.Join(root, "Bare")
	require.NoError(t, os.Mkdir(bare, 0o755))
	writeEPUB(t, filepath.Join(bare, "book.epub"), false)

	library := tc.createLibrary(root)

	result, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	require.Len(t, result.Added, 2)

	for _, added := range result.Added {
		content, err := tc.contentService.RetrieveContent(tc.ctx, contents.RetrieveContentOptions{ID: &added.ID})
		require.NoError(t, err)
		switch content.Title {
		case "Covered":
			require.True(t, content.HasThumbnail())
			_, err := jpeg.Decode(bytes.NewReader(content.Thumbnail))
			assert.NoError(t, err, "thumbnail should be JPEG-encoded")
		case "Bare":
			assert.False(t, content.HasThumbnail())
		}
	}
}

func TestScanSkipsMissingScanPath(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	folder := filepath.Join(root, "Kept")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 1)

	library := tc.createLibrary(filepath.Join(root, "does-not-exist"), root)

	result, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	assert.Len(t, result.Added, 1)
}

func TestScanRecordsScrapeFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer server.Close()

	tc := newTestContext(t, metadata.NewClient(server.URL, ""))
	root := t.TempDir()

	folder := filepath.Join(root, "Obscure Series")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 1)

	library := tc.createLibrary(root)

	result, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	require.Len(t, result.FailedScrape, 1)
	assert.Contains(t, result.FailedScrape[0].Reason, "no results")

	// The content is persisted despite the scrape failure.
	content, err := tc.contentService.RetrieveContent(tc.ctx, contents.RetrieveContentOptions{ID: &result.Added[0].ID})
	require.NoError(t, err)
	assert.Empty(t, content.Metadata)
}

func TestScanAttachesMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/search" {
			_, _ = w.Write([]byte(`{"results":[{"id":"7","title":"Known Series"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"7","title":"Known Series","year":2008}`))
	}))
	defer server.Close()

	tc := newTestContext(t, metadata.NewClient(server.URL, ""))
	root := t.TempDir()

	folder := filepath.Join(root, "Known Series")
	require.NoError(t, os.Mkdir(folder, 0o755))
	writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 1)

	library := tc.createLibrary(root)

	result, err := tc.pipeline.Scan(tc.ctx, library.ID, scanqueue.Checkpoint{})
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Empty(t, result.FailedScrape)

	content, err := tc.contentService.RetrieveContent(tc.ctx, contents.RetrieveContentOptions{ID: &result.Added[0].ID})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"7","title":"Known Series","year":2008}`, string(content.Metadata))
}

func TestScanCancelsBetweenCheckpoints(t *testing.T) {
	tc := newTestContext(t, nil)
	root := t.TempDir()

	for _, name := range []string{"A", "B"} {
		folder := filepath.Join(root, name)
		require.NoError(t, os.Mkdir(folder, 0o755))
		writeCBZ(t, filepath.Join(folder, "ch1.cbz"), 1)
	}

	library := tc.createLibrary(root)

	checkpoint := scanqueue.Checkpoint{Cancelled: func() bool { return true }}
	result, err := tc.pipeline.Scan(tc.ctx, library.ID, checkpoint)
	assert.ErrorIs(t, err, scanqueue.ErrCancelled)
	require.NotNil(t, result)
	assert.Empty(t, result.Added)
}
