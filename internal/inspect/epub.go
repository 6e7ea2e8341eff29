package inspect

import (
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/yeka/zip"
)

// EPUB is a zip container. Opened as a comic, its pages are the image
// resources declared in the OPF manifest, in spine order where possible;
// books without a parseable package document fall back to natural entry
// order of the image files in the container.

type opfPackage struct {
	Manifest struct {
		Items []struct {
			ID        string `xml:"id,attr"`
			Href      string `xml:"href,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
}

// ListEpubImages lists the image entries of an EPUB opened as a comic.
func ListEpubImages(epubPath string) Result {
	r, err := zip.OpenReader(epubPath)
	if err != nil {
		return errResult(fmt.Errorf("inspect: open epub %s: %w", epubPath, err))
	}
	defer r.Close()

	if entries := epubManifestImages(r); len(entries) > 0 {
		SortNatural(entries)
		return Result{Outcome: OutcomeOK, Entries: entries}
	}

	// No usable manifest: treat it like a plain zip of images.
	var entries []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || isJunkEntry(f.Name) || !IsImageEntry(f.Name) {
			continue
		}
		entries = append(entries, f.Name)
	}
	return okResult(entries)
}

func epubManifestImages(r *zip.ReadCloser) []string {
	var opfFile *zip.File
	for _, f := range r.File {
		if strings.HasSuffix(strings.ToLower(f.Name), ".opf") {
			opfFile = f
			break
		}
	}
	if opfFile == nil {
		return nil
	}

	rc, err := opfFile.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil
	}

	base := path.Dir(opfFile.Name)
	var entries []string
	for _, item := range pkg.Manifest.Items {
		if !strings.HasPrefix(item.MediaType, "image/") {
			continue
		}
		href := item.Href
		if base != "." {
			href = path.Join(base, href)
		}
		if IsImageEntry(href) {
			entries = append(entries, href)
		}
	}
	return entries
}
