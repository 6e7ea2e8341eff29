// Package inspect lists the page entries inside comic containers: zip/cbz,
// rar/cbr, 7z/cb7 archives, EPUB files opened as comics, and plain image
// folders. Listing is password-aware and reports a tagged outcome instead of
// raw library errors, so the session layer can pattern-match on it.
package inspect

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/maruel/natural"
	"github.com/nwaples/rardecode"
	"github.com/yeka/zip"
)

// Archives larger than this are rejected before listing; the underlying
// rar/zip decoders misbehave past 2 GB.
const MaxArchiveSize = 2 << 30

// Outcome tags the result of a listing attempt.
type Outcome int

const (
	OutcomeOK Outcome = iota
	OutcomePasswordRequired
	OutcomeError
)

// Result is the inspector's answer: either a sorted entry list, a password
// request, or an error.
type Result struct {
	Outcome Outcome
	Entries []string
	Err     error
}

var (
	ErrTooLarge = errors.New("inspect: archive exceeds 2GB limit")
	ErrNoImages = errors.New("inspect: no image entries found")
)

func errResult(err error) Result {
	return Result{Outcome: OutcomeError, Err: err}
}

func okResult(entries []string) Result {
	if len(entries) == 0 {
		return errResult(ErrNoImages)
	}
	SortNatural(entries)
	return Result{Outcome: OutcomeOK, Entries: entries}
}

// SortNatural sorts entry names in place, case-insensitively and
// number-aware, so "page2" sorts before "page10".
func SortNatural(entries []string) {
	sort.SliceStable(entries, func(i, j int) bool {
		return natural.Less(strings.ToLower(entries[i]), strings.ToLower(entries[j]))
	})
}

// IsImageEntry reports whether an entry name looks like a page image.
func IsImageEntry(name string) bool {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".png"),
		strings.HasSuffix(lower, ".jpg"),
		strings.HasSuffix(lower, ".jpeg"),
		strings.HasSuffix(lower, ".webp"),
		strings.HasSuffix(lower, ".bmp"),
		strings.HasSuffix(lower, ".gif"):
		return true
	}
	return false
}

// isJunkEntry filters macOS resource-fork pseudo entries and hidden files.
func isJunkEntry(name string) bool {
	if strings.HasPrefix(name, "__MACOSX") || strings.Contains(name, "/__MACOSX") {
		return true
	}
	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}
	return strings.HasPrefix(base, "._")
}

func checkSize(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > MaxArchiveSize {
		return ErrTooLarge
	}
	return nil
}

// isPasswordErr decides whether a decoder error means "wrong or missing
// password". Neither rardecode nor sevenzip export a typed error for it.
func isPasswordErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") ||
		strings.Contains(msg, "encrypt") ||
		strings.Contains(msg, "decrypt")
}

// ListZip lists the image entries of a zip/cbz archive. Entry names in zip
// central directories are readable without a password, but encrypted entry
// data cannot be; a supplied password is verified against the first
// encrypted entry so a wrong password surfaces here rather than mid-read.
func ListZip(path, password string) Result {
	if err := checkSize(path); err != nil {
		return errResult(err)
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return errResult(fmt.Errorf("inspect: open zip %s: %w", path, err))
	}
	defer r.Close()

	var entries []string
	var firstEncrypted *zip.File
	for _, f := range r.File {
		if f.FileInfo().IsDir() || isJunkEntry(f.Name) || !IsImageEntry(f.Name) {
			continue
		}
		if f.IsEncrypted() && firstEncrypted == nil {
			firstEncrypted = f
		}
		entries = append(entries, f.Name)
	}
	if firstEncrypted != nil {
		if password == "" {
			return Result{Outcome: OutcomePasswordRequired}
		}
		if !zipPasswordValid(firstEncrypted, password) {
			return Result{Outcome: OutcomePasswordRequired}
		}
	}
	return okResult(entries)
}

func zipPasswordValid(f *zip.File, password string) bool {
	f.SetPassword(password)
	rc, err := f.Open()
	if err != nil {
		return false
	}
	defer rc.Close()
	buf := make([]byte, 512)
	_, err = rc.Read(buf)
	return err == nil || err == io.EOF
}

// ListRar lists the image entries of a rar/cbr archive.
func ListRar(path, password string) Result {
	if err := checkSize(path); err != nil {
		return errResult(err)
	}
	r, err := rardecode.OpenReader(path, password)
	if err != nil {
		if isPasswordErr(err) {
			return Result{Outcome: OutcomePasswordRequired}
		}
		return errResult(fmt.Errorf("inspect: open rar %s: %w", path, err))
	}
	defer r.Close()

	var entries []string
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isPasswordErr(err) {
				return Result{Outcome: OutcomePasswordRequired}
			}
			return errResult(fmt.Errorf("inspect: read rar %s: %w", path, err))
		}
		if header.IsDir || isJunkEntry(header.Name) || !IsImageEntry(header.Name) {
			continue
		}
		entries = append(entries, header.Name)
	}
	return okResult(entries)
}

// List7z lists the image entries of a 7z/cb7 archive. Header-encrypted
// archives fail to open at all without the password.
func List7z(path, password string) Result {
	if err := checkSize(path); err != nil {
		return errResult(err)
	}
	r, err := sevenzip.OpenReaderWithPassword(path, password)
	if err != nil {
		if isPasswordErr(err) || password == "" && looksEncrypted7z(path) {
			return Result{Outcome: OutcomePasswordRequired}
		}
		return errResult(fmt.Errorf("inspect: open 7z %s: %w", path, err))
	}
	defer r.Close()

	var entries []string
	for _, f := range r.File {
		if f.FileInfo().IsDir() || isJunkEntry(f.Name) || !IsImageEntry(f.Name) {
			continue
		}
		entries = append(entries, f.Name)
	}
	return okResult(entries)
}

// looksEncrypted7z retries an open with a dummy password: if that changes
// the error, the archive wanted a password in the first place.
func looksEncrypted7z(path string) bool {
	r, err := sevenzip.OpenReaderWithPassword(path, "\x00probe")
	if err != nil {
		return isPasswordErr(err)
	}
	r.Close()
	return true
}
