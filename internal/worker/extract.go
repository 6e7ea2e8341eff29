package worker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode"
	"github.com/yeka/zip"

	"comet/internal/comic"
	"comet/internal/inspect"
)

func (w *Worker) extract(req ExtractRequest) Response {
	var images [][]byte
	var err error

	switch req.Kind {
	case comic.KindZip, comic.KindEpubComic:
		images, err = w.extractZipEntries(req.Path, req.Entries, req.Password)
	case comic.KindRar:
		images, err = w.extractRarEntries(req.Path, req.Entries, req.Password)
	case comic.Kind7z:
		images, err = w.extract7zEntries(req.Path, req.Entries, req.Password)
	case comic.KindImageFolder:
		images, err = w.extractFolderFiles(req.Path, req.Entries)
	case comic.KindPDF:
		images, err = w.renderPDFPages(req.Path, req.Indices, req.DPI)
	default:
		err = fmt.Errorf("worker: unsupported kind %s", req.Kind)
	}
	if err != nil {
		return failureFor(err)
	}
	if len(images) == 0 {
		return FailureResponse{Reason: FailureGeneric, Err: fmt.Errorf("worker: no pages extracted from %s", req.Path)}
	}

	mime := mimeForRequest(req)
	width, height, derr := DecodeDimensions(images[0])
	if derr != nil {
		return FailureResponse{Reason: FailureGeneric, Err: fmt.Errorf("worker: decode %s: %w", req.Path, derr)}
	}
	return PagesResponse{Images: images, MIME: mime, Width: width, Height: height, Anchor: req.Anchor}
}

func failureFor(err error) FailureResponse {
	switch {
	case isPasswordErr(err):
		return FailureResponse{Reason: FailurePassword, Err: err}
	case err == inspect.ErrTooLarge:
		return FailureResponse{Reason: FailureTooLarge, Err: err}
	default:
		return FailureResponse{Reason: FailureGeneric, Err: err}
	}
}

func isPasswordErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") ||
		strings.Contains(msg, "encrypt") ||
		strings.Contains(msg, "decrypt")
}

func mimeForRequest(req ExtractRequest) string {
	if req.Kind == comic.KindPDF {
		return "image/png"
	}
	if len(req.Entries) == 0 {
		return "application/octet-stream"
	}
	switch strings.ToLower(filepath.Ext(req.Entries[0])) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".bmp":
		return "image/bmp"
	case ".gif":
		return "image/gif"
	default:
		return "application/octet-stream"
	}
}

func (w *Worker) cacheKey(path, entry string) string {
	return path + ":" + entry
}

func (w *Worker) extractZipEntries(path string, entries []string, password string) ([][]byte, error) {
	images := make([][]byte, 0, len(entries))
	var r *zip.ReadCloser
	defer func() {
		if r != nil {
			r.Close()
		}
	}()

	for _, entry := range entries {
		if data, ok := w.cache.Get(w.cacheKey(path, entry)); ok {
			debugLog("cache HIT: %s:%s", path, entry)
			images = append(images, data)
			continue
		}
		if r == nil {
			var err error
			r, err = zip.OpenReader(path)
			if err != nil {
				return nil, err
			}
		}
		data, err := readZipEntry(r, entry, password)
		if err != nil {
			return nil, err
		}
		w.cache.Add(w.cacheKey(path, entry), data)
		images = append(images, data)
	}
	return images, nil
}

func readZipEntry(r *zip.ReadCloser, entry, password string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != entry {
			continue
		}
		if f.IsEncrypted() {
			if password == "" {
				return nil, fmt.Errorf("worker: entry %s: password required", entry)
			}
			f.SetPassword(password)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("worker: entry %s not found", entry)
}

func (w *Worker) extractRarEntries(path string, entries []string, password string) ([][]byte, error) {
	wanted := make(map[string]int, len(entries))
	images := make([][]byte, len(entries))
	remaining := 0
	for i, entry := range entries {
		if data, ok := w.cache.Get(w.cacheKey(path, entry)); ok {
			images[i] = data
			continue
		}
		wanted[entry] = i
		remaining++
	}
	if remaining == 0 {
		return images, nil
	}

	r, err := rardecode.OpenReader(path, password)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	// rar is stream-oriented: walk headers until every wanted entry is read.
	for remaining > 0 {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		i, ok := wanted[header.Name]
		if !ok {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, err
		}
		w.cache.Add(w.cacheKey(path, header.Name), data)
		images[i] = data
		delete(wanted, header.Name)
		remaining--
	}
	for entry := range wanted {
		return nil, fmt.Errorf("worker: entry %s not found in %s", entry, path)
	}
	return images, nil
}

func (w *Worker) extract7zEntries(path string, entries []string, password string) ([][]byte, error) {
	images := make([][]byte, 0, len(entries))
	var r *sevenzip.ReadCloser
	defer func() {
		if r != nil {
			r.Close()
		}
	}()

	for _, entry := range entries {
		if data, ok := w.cache.Get(w.cacheKey(path, entry)); ok {
			images = append(images, data)
			continue
		}
		if r == nil {
			var err error
			r, err = sevenzip.OpenReaderWithPassword(path, password)
			if err != nil {
				return nil, err
			}
		}
		data, err := read7zEntry(r, entry)
		if err != nil {
			return nil, err
		}
		w.cache.Add(w.cacheKey(path, entry), data)
		images = append(images, data)
	}
	return images, nil
}

func read7zEntry(r *sevenzip.ReadCloser, entry string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("worker: entry %s not found", entry)
}

func (w *Worker) extractFolderFiles(dir string, entries []string) ([][]byte, error) {
	images := make([][]byte, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(dir, filepath.Clean(entry))
		if data, ok := w.cache.Get(full); ok {
			images = append(images, data)
			continue
		}
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, err
		}
		w.cache.Add(full, data)
		images = append(images, data)
	}
	return images, nil
}
