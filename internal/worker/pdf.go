package worker

import (
	"bytes"
	"fmt"
	"image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"comet/internal/comic"
	"comet/internal/inspect"
)

const DefaultPDFReadingDPI = 150

// openPDF validates the document and reports its page count. Encryption is
// probed by reading without a password first; only if that fails is the
// supplied password tried, so a wrong password is caught here and not
// somewhere in the middle of rendering.
func openPDF(req OpenRequest) Response {
	info, err := os.Stat(req.Path)
	if err != nil {
		return FailureResponse{Reason: FailureGeneric, Err: err}
	}
	if info.Size() > inspect.MaxArchiveSize {
		return FailureResponse{Reason: FailureTooLarge, Err: inspect.ErrTooLarge}
	}

	ctx, encrypted, err := readPDFContext(req.Path, req.Password)
	if err != nil {
		if isPasswordErr(err) {
			return FailureResponse{Reason: FailurePassword, Err: err}
		}
		return FailureResponse{Reason: FailureGeneric, Err: fmt.Errorf("worker: open pdf %s: %w", req.Path, err)}
	}
	if err := api.ValidateContext(ctx); err != nil {
		return FailureResponse{Reason: FailureGeneric, Err: fmt.Errorf("worker: validate pdf %s: %w", req.Path, err)}
	}
	if ctx.PageCount < 1 {
		return FailureResponse{Reason: FailureGeneric, Err: fmt.Errorf("worker: pdf %s has no pages", req.Path)}
	}
	return OpenedResponse{
		PageCount: ctx.PageCount,
		Meta:      comic.Metadata{Encrypted: encrypted},
	}
}

func readPDFContext(path, password string) (*model.Context, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, model.NewDefaultConfiguration())
	if err == nil {
		return ctx, false, nil
	}
	if !isPasswordErr(err) || password == "" {
		return nil, true, err
	}

	if _, serr := f.Seek(0, 0); serr != nil {
		return nil, true, serr
	}
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password
	ctx, err = api.ReadContext(f, conf)
	if err != nil {
		return nil, true, err
	}
	return ctx, true, nil
}

// renderPDFPages rasterizes the requested pages (0-based) at the given DPI.
func (w *Worker) renderPDFPages(path string, indices []int, dpi int) ([][]byte, error) {
	if dpi <= 0 {
		dpi = DefaultPDFReadingDPI
	}

	images := make([][]byte, 0, len(indices))
	var doc *fitz.Document
	defer func() {
		if doc != nil {
			doc.Close()
		}
	}()

	for _, idx := range indices {
		key := fmt.Sprintf("%s:#%d@%d", path, idx, dpi)
		if data, ok := w.cache.Get(key); ok {
			debugLog("cache HIT: %s", key)
			images = append(images, data)
			continue
		}
		if doc == nil {
			var err error
			doc, err = fitz.New(path)
			if err != nil {
				return nil, err
			}
		}
		if idx < 0 || idx >= doc.NumPage() {
			return nil, fmt.Errorf("worker: pdf page %d out of range", idx)
		}
		img, err := doc.ImageDPI(idx, float64(dpi))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		data := buf.Bytes()
		w.cache.Add(key, data)
		images = append(images, data)
	}
	return images, nil
}
