package worker

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yeka/zip"

	"comet/internal/comic"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writePageZip(t *testing.T, path string, pages map[string][]byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for name, data := range pages {
		entry, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := entry.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

func startTestWorker(t *testing.T) (*Worker, chan Response) {
	t.Helper()
	responses := make(chan Response, 4)
	w := Start(Config{Timeout: 10 * time.Second, CacheSize: 8}, func(r Response) {
		responses <- r
	})
	t.Cleanup(w.Kill)
	return w, responses
}

func awaitResponse(t *testing.T, responses chan Response) Response {
	t.Helper()
	select {
	case r := <-responses:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no worker response")
		return nil
	}
}

func TestExtractZipPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.cbz")
	writePageZip(t, path, map[string][]byte{
		"page1.png": encodePNG(t, 40, 60),
		"page2.png": encodePNG(t, 40, 60),
	})

	w, responses := startTestWorker(t)
	ok := w.Submit(ExtractRequest{
		Kind:    comic.KindZip,
		Path:    path,
		Entries: []string{"page1.png", "page2.png"},
	})
	if !ok {
		t.Fatal("Submit returned false on an idle worker")
	}

	resp := awaitResponse(t, responses)
	pages, ok := resp.(PagesResponse)
	if !ok {
		t.Fatalf("response = %#v, want PagesResponse", resp)
	}
	if len(pages.Images) != 2 {
		t.Fatalf("images = %d, want 2", len(pages.Images))
	}
	if pages.Width != 40 || pages.Height != 60 {
		t.Errorf("dimensions = %dx%d, want 40x60", pages.Width, pages.Height)
	}
	if pages.MIME != "image/png" {
		t.Errorf("mime = %s, want image/png", pages.MIME)
	}

	// Second request for the same entry is served from cache and must
	// produce identical bytes.
	w.Submit(ExtractRequest{Kind: comic.KindZip, Path: path, Entries: []string{"page1.png"}})
	resp = awaitResponse(t, responses)
	cached, ok := resp.(PagesResponse)
	if !ok {
		t.Fatalf("response = %#v, want PagesResponse", resp)
	}
	if !bytes.Equal(cached.Images[0], pages.Images[0]) {
		t.Error("cached page bytes differ from the first extraction")
	}
}

func TestExtractMissingEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.cbz")
	writePageZip(t, path, map[string][]byte{"page1.png": encodePNG(t, 10, 10)})

	w, responses := startTestWorker(t)
	w.Submit(ExtractRequest{Kind: comic.KindZip, Path: path, Entries: []string{"nope.png"}})

	resp := awaitResponse(t, responses)
	failure, ok := resp.(FailureResponse)
	if !ok {
		t.Fatalf("response = %#v, want FailureResponse", resp)
	}
	if failure.Reason != FailureGeneric {
		t.Errorf("reason = %v, want generic", failure.Reason)
	}
}

func TestExtractFolderFiles(t *testing.T) {
	dir := t.TempDir()
	data := encodePNG(t, 20, 30)
	if err := os.WriteFile(filepath.Join(dir, "a.png"), data, 0644); err != nil {
		t.Fatal(err)
	}

	w, responses := startTestWorker(t)
	w.Submit(ExtractRequest{Kind: comic.KindImageFolder, Path: dir, Entries: []string{"a.png"}})

	resp := awaitResponse(t, responses)
	pages, ok := resp.(PagesResponse)
	if !ok {
		t.Fatalf("response = %#v, want PagesResponse", resp)
	}
	if pages.Width != 20 || pages.Height != 30 {
		t.Errorf("dimensions = %dx%d, want 20x30", pages.Width, pages.Height)
	}
}

func TestSubmitAfterKill(t *testing.T) {
	w, _ := startTestWorker(t)
	w.Kill()
	if w.Alive() {
		t.Error("Alive() true after Kill")
	}
	if w.Submit(ExtractRequest{Kind: comic.KindZip, Path: "/x.zip"}) {
		t.Error("Submit accepted a request after Kill")
	}
}

func TestTimeoutProducesGenericFailure(t *testing.T) {
	// With a nanosecond budget the watchdog fires before the handler; the
	// handler path also fails on the missing archive, and both surface the
	// same generic failure.
	responses := make(chan Response, 1)
	w := Start(Config{Timeout: time.Nanosecond, CacheSize: 4}, func(r Response) {
		responses <- r
	})
	defer w.Kill()

	w.Submit(ExtractRequest{Kind: comic.KindZip, Path: filepath.Join(t.TempDir(), "missing.zip"), Entries: []string{"a.png"}})
	resp := awaitResponse(t, responses)
	failure, ok := resp.(FailureResponse)
	if !ok {
		t.Fatalf("response = %#v, want FailureResponse", resp)
	}
	if failure.Reason != FailureGeneric {
		t.Errorf("reason = %v, want generic", failure.Reason)
	}
}

func TestDecodeDimensions(t *testing.T) {
	data := encodePNG(t, 123, 45)
	width, height, err := DecodeDimensions(data)
	if err != nil {
		t.Fatalf("DecodeDimensions error: %v", err)
	}
	if width != 123 || height != 45 {
		t.Errorf("dimensions = %dx%d, want 123x45", width, height)
	}

	if _, _, err := DecodeDimensions([]byte("not an image")); err == nil {
		t.Error("DecodeDimensions accepted garbage")
	}
}

func TestRotate(t *testing.T) {
	data := encodePNG(t, 30, 10)

	t.Run("90 swaps dimensions", func(t *testing.T) {
		rotated, err := Rotate(data, 90)
		if err != nil {
			t.Fatalf("Rotate error: %v", err)
		}
		w, h, err := DecodeDimensions(rotated)
		if err != nil {
			t.Fatal(err)
		}
		if w != 10 || h != 30 {
			t.Errorf("rotated = %dx%d, want 10x30", w, h)
		}
	})

	t.Run("180 keeps dimensions", func(t *testing.T) {
		rotated, err := Rotate(data, 180)
		if err != nil {
			t.Fatalf("Rotate error: %v", err)
		}
		w, h, err := DecodeDimensions(rotated)
		if err != nil {
			t.Fatal(err)
		}
		if w != 30 || h != 10 {
			t.Errorf("rotated = %dx%d, want 30x10", w, h)
		}
	})

	t.Run("0 is a no-op", func(t *testing.T) {
		rotated, err := Rotate(data, 0)
		if err != nil {
			t.Fatalf("Rotate error: %v", err)
		}
		if !bytes.Equal(rotated, data) {
			t.Error("zero rotation re-encoded the image")
		}
	})
}

func TestMimeForRequest(t *testing.T) {
	tests := []struct {
		name string
		req  ExtractRequest
		want string
	}{
		{"pdf", ExtractRequest{Kind: comic.KindPDF}, "image/png"},
		{"png", ExtractRequest{Kind: comic.KindZip, Entries: []string{"a.PNG"}}, "image/png"},
		{"jpeg", ExtractRequest{Kind: comic.KindZip, Entries: []string{"a.jpg"}}, "image/jpeg"},
		{"webp", ExtractRequest{Kind: comic.KindZip, Entries: []string{"a.webp"}}, "image/webp"},
		{"gif", ExtractRequest{Kind: comic.KindRar, Entries: []string{"a.gif"}}, "image/gif"},
		{"unknown", ExtractRequest{Kind: comic.KindZip, Entries: []string{"a.xyz"}}, "application/octet-stream"},
		{"empty", ExtractRequest{Kind: comic.KindZip}, "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mimeForRequest(tt.req); got != tt.want {
				t.Errorf("mimeForRequest = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFailureFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureReason
	}{
		{"password", errors.New("archive/zip: invalid password"), FailurePassword},
		{"encrypted", errors.New("file is encrypted"), FailurePassword},
		{"plain", errors.New("boom"), FailureGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureFor(tt.err); got.Reason != tt.want {
				t.Errorf("failureFor(%v).Reason = %v, want %v", tt.err, got.Reason, tt.want)
			}
		})
	}
}
