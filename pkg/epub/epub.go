// Package epub reads EPUB containers: the OPF package document, the spine
// (reading order), and the embedded cover. It is deliberately lenient; real
// EPUBs in the wild bend the format rules constantly.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Package is the parsed OPF package document.
type Package struct {
	XMLName  xml.Name `xml:"package"`
	Version  string   `xml:"version,attr"`
	Metadata struct {
		Title []struct {
			Text string `xml:",chardata"`
		} `xml:"title"`
		Creator []struct {
			Text string `xml:",chardata"`
		} `xml:"creator"`
		Meta []struct {
			Name     string `xml:"name,attr"`
			Content  string `xml:"content,attr"`
			Property string `xml:"property,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Item []ManifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Itemref []struct {
			Idref  string `xml:"idref,attr"`
			Linear string `xml:"linear,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

// ManifestItem is one entry in the OPF manifest.
type ManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type container struct {
	XMLName   xml.Name `xml:"container"`
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// Book is an open EPUB. It is not safe for concurrent use.
type Book struct {
	zr           *zip.ReadCloser
	opfDir       string
	pkg          *Package
	manifestByID map[string]ManifestItem
	files        map[string]*zip.File
}

// Open opens the EPUB at path. The caller must Close the returned Book.
func Open(path string) (*Book, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	b := &Book{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		b.files[f.Name] = f
	}

	opfPath, err := b.findOPFPath()
	if err != nil {
		zr.Close()
		return nil, err
	}

	data, err := b.readEntry(opfPath)
	if err != nil {
		zr.Close()
		return nil, err
	}

	pkg := &Package{}
	if err := xml.Unmarshal(data, pkg); err != nil {
		zr.Close()
		return nil, errors.WithStack(err)
	}

	b.opfDir = path2Dir(opfPath)
	b.pkg = pkg
	b.manifestByID = make(map[string]ManifestItem, len(pkg.Manifest.Item))
	for _, item := range pkg.Manifest.Item {
		b.manifestByID[item.ID] = item
	}

	return b, nil
}

// Close releases the underlying zip reader.
func (b *Book) Close() error {
	return b.zr.Close()
}

// Title returns the first dc:title, or "".
func (b *Book) Title() string {
	if len(b.pkg.Metadata.Title) == 0 {
		return ""
	}
	return strings.TrimSpace(b.pkg.Metadata.Title[0].Text)
}

// SpineIDs returns the idrefs of the spine in reading order. Items marked
// linear="no" are still included; skipping them is a presentation concern.
func (b *Book) SpineIDs() []string {
	ids := make([]string, 0, len(b.pkg.Spine.Itemref))
	for _, ref := range b.pkg.Spine.Itemref {
		if ref.Idref != "" {
			ids = append(ids, ref.Idref)
		}
	}
	return ids
}

// ManifestItem resolves a manifest id.
func (b *Book) ManifestItem(id string) (ManifestItem, bool) {
	item, ok := b.manifestByID[id]
	return item, ok
}

// ReadItem reads the resource a manifest id points to.
func (b *Book) ReadItem(id string) ([]byte, error) {
	item, ok := b.manifestByID[id]
	if !ok {
		return nil, errors.Errorf("no manifest item with id %q", id)
	}
	return b.readEntry(b.resolve(item.Href))
}

// Cover returns the embedded cover image bytes and media type. EPUB 3 marks
// the cover with properties="cover-image"; EPUB 2 uses a
// <meta name="cover" content="id"> pointing at a manifest item. Returns
// (nil, "", nil) when no cover is declared.
func (b *Book) Cover() ([]byte, string, error) {
	for _, item := range b.pkg.Manifest.Item {
		if strings.Contains(item.Properties, "cover-image") {
			data, err := b.readEntry(b.resolve(item.Href))
			return data, item.MediaType, err
		}
	}

	for _, meta := range b.pkg.Metadata.Meta {
		if strings.EqualFold(meta.Name, "cover") && meta.Content != "" {
			item, ok := b.manifestByID[meta.Content]
			if !ok {
				continue
			}
			data, err := b.readEntry(b.resolve(item.Href))
			return data, item.MediaType, err
		}
	}

	return nil, "", nil
}

// findOPFPath locates the package document via META-INF/container.xml,
// falling back to scanning for any .opf entry when the container is missing
// or broken.
func (b *Book) findOPFPath() (string, error) {
	if data, err := b.readEntry("META-INF/container.xml"); err == nil {
		c := &container{}
		if err := xml.Unmarshal(data, c); err == nil {
			for _, rf := range c.Rootfiles.Rootfile {
				if rf.FullPath != "" {
					return rf.FullPath, nil
				}
			}
		}
	}

	for _, f := range b.zr.File {
		if strings.EqualFold(filepath.Ext(f.Name), ".opf") {
			return f.Name, nil
		}
	}

	return "", errors.New("no OPF package document found")
}

func (b *Book) readEntry(name string) ([]byte, error) {
	f, ok := b.files[name]
	if !ok {
		// Hrefs are sometimes percent-encoded or differ in case.
		for candidate, zf := range b.files {
			if strings.EqualFold(candidate, name) {
				f = zf
				ok = true
				break
			}
		}
	}
	if !ok {
		return nil, errors.Errorf("entry %q not found in archive", name)
	}

	r, err := f.Open()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// resolve joins a manifest href onto the OPF directory. Entry names inside
// the zip always use forward slashes.
func (b *Book) resolve(href string) string {
	if b.opfDir == "." || b.opfDir == "" {
		return href
	}
	return path.Join(b.opfDir, href)
}

func path2Dir(p string) string {
	d := path.Dir(p)
	if d == "/" {
		return "."
	}
	return d
}
