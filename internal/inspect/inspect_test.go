package inspect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/yeka/zip"
)

// writeZip builds a real zip file with the given entry names, each holding a
// few placeholder bytes.
func writeZip(t *testing.T, path string, names ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte("data")); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeEncryptedZip(t *testing.T, path, password string, names ...string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for _, name := range names {
		entry, err := w.Encrypt(name, password, zip.AES256Encryption)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte("data")); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestListZipFiltersAndSorts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.cbz")
	writeZip(t, path,
		"page10.jpg",
		"page2.jpg",
		"Page1.JPG",
		"info.txt",
		"__MACOSX/page1.jpg",
		"pages/._page3.jpg",
		"cover.png",
	)

	res := ListZip(path, "")
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %v (%v), want OK", res.Outcome, res.Err)
	}
	want := []string{"cover.png", "Page1.JPG", "page2.jpg", "page10.jpg"}
	if len(res.Entries) != len(want) {
		t.Fatalf("entries = %v, want %v", res.Entries, want)
	}
	for i, name := range want {
		if res.Entries[i] != name {
			t.Errorf("entry %d = %s, want %s", i, res.Entries[i], name)
		}
	}
}

func TestListZipNoImages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	writeZip(t, path, "readme.txt", "notes/changelog.md")

	res := ListZip(path, "")
	if res.Outcome != OutcomeError {
		t.Fatalf("outcome = %v, want error", res.Outcome)
	}
	if res.Err != ErrNoImages {
		t.Errorf("err = %v, want ErrNoImages", res.Err)
	}
}

func TestListZipMissingFile(t *testing.T) {
	res := ListZip(filepath.Join(t.TempDir(), "nope.zip"), "")
	if res.Outcome != OutcomeError || res.Err == nil {
		t.Fatalf("result = %+v, want error outcome", res)
	}
}

func TestListZipEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locked.cbz")
	writeEncryptedZip(t, path, "sesame", "page1.jpg", "page2.jpg")

	t.Run("no password", func(t *testing.T) {
		res := ListZip(path, "")
		if res.Outcome != OutcomePasswordRequired {
			t.Errorf("outcome = %v, want password required", res.Outcome)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		res := ListZip(path, "nope")
		if res.Outcome != OutcomePasswordRequired {
			t.Errorf("outcome = %v, want password required", res.Outcome)
		}
	})

	t.Run("correct password", func(t *testing.T) {
		res := ListZip(path, "sesame")
		if res.Outcome != OutcomeOK {
			t.Fatalf("outcome = %v (%v), want OK", res.Outcome, res.Err)
		}
		if len(res.Entries) != 2 || res.Entries[0] != "page1.jpg" {
			t.Errorf("entries = %v", res.Entries)
		}
	})
}

func TestListImageFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/comics/book"
	for _, name := range []string{"page10.png", "page2.png", "page1.png", "cover.txt", ".hidden.png"} {
		if err := afero.WriteFile(fs, dir+"/"+name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll(dir+"/extras", 0755); err != nil {
		t.Fatal(err)
	}

	res := ListImageFolder(fs, dir)
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %v (%v), want OK", res.Outcome, res.Err)
	}
	want := []string{"page1.png", "page2.png", "page10.png"}
	if len(res.Entries) != len(want) {
		t.Fatalf("entries = %v, want %v", res.Entries, want)
	}
	for i, name := range want {
		if res.Entries[i] != name {
			t.Errorf("entry %d = %s, want %s", i, res.Entries[i], name)
		}
	}
}

func TestListImageFolderEmpty(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("/empty", 0755); err != nil {
		t.Fatal(err)
	}
	res := ListImageFolder(fs, "/empty")
	if res.Outcome != OutcomeError || res.Err != ErrNoImages {
		t.Fatalf("result = %+v, want ErrNoImages", res)
	}
}

func TestListEpubImagesFromManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := zip.NewWriter(f)
	writeEntry := func(name, content string) {
		t.Helper()
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	writeEntry("mimetype", "application/epub+zip")
	writeEntry("OEBPS/content.opf", `<?xml version="1.0"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <manifest>
    <item id="p2" href="images/page2.jpg" media-type="image/jpeg"/>
    <item id="p10" href="images/page10.jpg" media-type="image/jpeg"/>
    <item id="p1" href="images/page1.jpg" media-type="image/jpeg"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
</package>`)
	writeEntry("OEBPS/images/page1.jpg", "img")
	writeEntry("OEBPS/images/page2.jpg", "img")
	writeEntry("OEBPS/images/page10.jpg", "img")
	writeEntry("OEBPS/nav.xhtml", "<html/>")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	res := ListEpubImages(path)
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %v (%v), want OK", res.Outcome, res.Err)
	}
	want := []string{
		"OEBPS/images/page1.jpg",
		"OEBPS/images/page2.jpg",
		"OEBPS/images/page10.jpg",
	}
	if len(res.Entries) != len(want) {
		t.Fatalf("entries = %v, want %v", res.Entries, want)
	}
	for i, name := range want {
		if res.Entries[i] != name {
			t.Errorf("entry %d = %s, want %s", i, res.Entries[i], name)
		}
	}
}

func TestListEpubImagesFallback(t *testing.T) {
	// No OPF at all: fall back to a plain scan of the container.
	path := filepath.Join(t.TempDir(), "plain.epub")
	writeZip(t, path, "b.png", "a.png", "meta.txt")

	res := ListEpubImages(path)
	if res.Outcome != OutcomeOK {
		t.Fatalf("outcome = %v (%v), want OK", res.Outcome, res.Err)
	}
	if len(res.Entries) != 2 || res.Entries[0] != "a.png" || res.Entries[1] != "b.png" {
		t.Errorf("entries = %v, want [a.png b.png]", res.Entries)
	}
}

func TestSiblingComic(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/comics"
	for _, name := range []string{"vol2.cbz", "vol10.cbz", "Vol1.cbz", "notes.txt", "cover.jpg"} {
		if err := afero.WriteFile(fs, dir+"/"+name, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		from string
		dir  Direction
		want string
	}{
		{"next from first", "/comics/Vol1.cbz", Next, "/comics/vol2.cbz"},
		{"next skips non-comics", "/comics/vol2.cbz", Next, "/comics/vol10.cbz"},
		{"next at end", "/comics/vol10.cbz", Next, ""},
		{"previous", "/comics/vol10.cbz", Previous, "/comics/vol2.cbz"},
		{"previous at start", "/comics/Vol1.cbz", Previous, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SiblingComic(fs, tt.from, tt.dir)
			if err != nil {
				t.Fatalf("SiblingComic error: %v", err)
			}
			if got != tt.want {
				t.Errorf("SiblingComic(%s, %v) = %q, want %q", tt.from, tt.dir, got, tt.want)
			}
		})
	}
}

func TestIsImageEntry(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"page.jpg", true},
		{"PAGE.JPEG", true},
		{"a/b/c.png", true},
		{"x.webp", true},
		{"x.bmp", true},
		{"x.gif", true},
		{"x.avif", false},
		{"x.txt", false},
		{"x.jpg.bak", false},
		{"jpg", false},
	}
	for _, tt := range tests {
		if got := IsImageEntry(tt.name); got != tt.want {
			t.Errorf("IsImageEntry(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsComicFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.cbz", true},
		{"a.CBR", true},
		{"a.zip", true},
		{"a.7z", true},
		{"a.cb7", true},
		{"a.epub", true},
		{"a.pdf", true},
		{"a.jpg", false},
		{"a", false},
	}
	for _, tt := range tests {
		if got := IsComicFile(tt.path); got != tt.want {
			t.Errorf("IsComicFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsJunkEntry(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"__MACOSX/page1.jpg", true},
		{"book/__MACOSX/page1.jpg", true},
		{"._page1.jpg", true},
		{"pages/._page1.jpg", true},
		{"page1.jpg", false},
		{"pages/page1.jpg", false},
	}
	for _, tt := range tests {
		if got := isJunkEntry(tt.name); got != tt.want {
			t.Errorf("isJunkEntry(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSortNatural(t *testing.T) {
	entries := []string{"Page10.jpg", "page2.jpg", "page1.jpg", "appendix.png"}
	SortNatural(entries)
	want := []string{"appendix.png", "page1.jpg", "page2.jpg", "Page10.jpg"}
	for i, name := range want {
		if entries[i] != name {
			t.Errorf("entry %d = %s, want %s", i, entries[i], name)
		}
	}
}
