package comic

import (
	"context"
	"path/filepath"
	"strings"
)

// DocumentKind identifies the storage backend of an open document.
type DocumentKind int

const (
	KindNotSet DocumentKind = iota
	KindZip
	KindRar
	Kind7z
	KindEpubComic
	KindEpubEbook
	KindImageFolder
	KindPDF
	KindRemote
)

func (k DocumentKind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindRar:
		return "rar"
	case Kind7z:
		return "7z"
	case KindEpubComic:
		return "epub-comic"
	case KindEpubEbook:
		return "epub-ebook"
	case KindImageFolder:
		return "folder"
	case KindPDF:
		return "pdf"
	case KindRemote:
		return "remote"
	default:
		return "not-set"
	}
}

// SessionState is the lifecycle stage of the document session.
type SessionState int

const (
	StateNotSet SessionState = iota
	StateLoading
	StateLoaded
)

func (s SessionState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	default:
		return "not-set"
	}
}

// PageMode governs how many and which pages are requested per navigation step.
type PageMode int

const (
	PageModeSingle PageMode = iota
	PageModeDouble
	PageModeDoubleCenterFirst
)

// ScrollAnchor tells the renderer where to land after a page change.
type ScrollAnchor int

const (
	AnchorTop    ScrollAnchor = 0
	AnchorBottom ScrollAnchor = 1
)

// ViewSettings is the per-session zoom/fit snapshot, resolved once at open
// time and mutated by user input afterward.
type ViewSettings struct {
	FitMode   int
	ZoomScale int
	PageMode  PageMode
}

// RemotePage is the result of a remote page fetch.
type RemotePage struct {
	ImageURL string
	Data     []byte
	TempPath string
}

// RemoteFetcher fetches one page of a remote document. pageNumber is 1-based.
type RemoteFetcher func(ctx context.Context, pageNumber int, s *DocumentSession) (RemotePage, error)

// RemoteSource describes a remote document supplied by a catalog tool.
type RemoteSource struct {
	Key         string
	DisplayName string
	PageCount   int
	Fetch       RemoteFetcher
}

// Metadata is format-specific document metadata, lazily populated.
type Metadata struct {
	Title     string
	Author    string
	Encrypted bool
}

// DocumentSession is the single record of the currently open document.
// Exactly one instance exists; Controller owns it and mutates it in place.
type DocumentSession struct {
	State            SessionState
	Kind             DocumentKind
	Path             string
	DisplayName      string
	PageEntries      []string
	PageCount        int
	CurrentPageIndex int // 0..PageCount-1, or 0..100 for e-book percentage
	RotationDegrees  int // 0, 90, 180, 270
	PageWidth        int
	PageHeight       int
	Password         string
	Remote           *RemoteSource
	Meta             Metadata
	View             ViewSettings

	// Password-prompt sub-state: kind/path/page survive the modal round trip.
	awaitingPassword bool
}

// Reset clears the record back to NOT_SET. The session is a single shared
// record mutated in place, never reallocated.
func (s *DocumentSession) Reset() {
	*s = DocumentSession{}
}

// AwaitingPassword reports whether the session is parked on a password
// prompt.
func (s *DocumentSession) AwaitingPassword() bool {
	return s.awaitingPassword
}

// SetAwaitingPassword enters or leaves the password-prompt sub-state.
func (s *DocumentSession) SetAwaitingPassword(v bool) {
	s.awaitingPassword = v
}

// IsPercentBased reports whether CurrentPageIndex is a 0-100 percentage
// instead of a page index.
func (s *DocumentSession) IsPercentBased() bool {
	return s.Kind == KindEpubEbook
}

// UiCapabilities is a view over DocumentKind for the presentation layer, so
// toolbar-style decisions never branch on kind directly.
type UiCapabilities struct {
	CanRotate             bool
	CanExtractPages       bool
	UsesPercentNavigation bool
	NeedsWorker           bool
}

// CapabilitiesFor derives the UI capabilities of a document kind.
func CapabilitiesFor(kind DocumentKind) UiCapabilities {
	switch kind {
	case KindZip, KindRar, Kind7z, KindEpubComic, KindImageFolder:
		return UiCapabilities{CanRotate: true, CanExtractPages: true, NeedsWorker: true}
	case KindPDF:
		return UiCapabilities{CanRotate: true, CanExtractPages: true, NeedsWorker: true}
	case KindEpubEbook:
		return UiCapabilities{UsesPercentNavigation: true}
	case KindRemote:
		return UiCapabilities{CanRotate: true}
	default:
		return UiCapabilities{}
	}
}

// KindForPath resolves the document kind from the file extension. EPUB is
// ambiguous (comic vs e-book) and must be disambiguated by the caller.
func KindForPath(path string) (kind DocumentKind, ambiguous bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip", ".cbz":
		return KindZip, false
	case ".rar", ".cbr":
		return KindRar, false
	case ".7z", ".cb7":
		return Kind7z, false
	case ".pdf":
		return KindPDF, false
	case ".epub":
		return KindEpubComic, true
	default:
		return KindNotSet, false
	}
}

// NormalizeRotation maps an arbitrary degree value into [0,360).
func NormalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
