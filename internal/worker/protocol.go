// Package worker performs page decode/extract/render work off the session
// thread. It is a single-slot sequential channel: one outstanding request at
// a time, no correlation ids, killed outright on document close. Any
// response is the answer to the most recently submitted request.
package worker

import (
	"errors"

	"comet/internal/comic"
)

// Request is the closed set of worker commands. The marker method keeps the
// union sealed so every variant is handled at compile time.
type Request interface {
	isRequest()
}

// OpenRequest validates a PDF and reports its page count, or a tagged
// failure (password required, over size limit, generic).
type OpenRequest struct {
	Path     string
	Password string
}

// ExtractRequest decodes one or two target pages of a document.
// Entries addresses archive/folder/EPUB pages by name; Indices addresses
// PDF pages positionally. DPI applies to PDF rasterization only.
type ExtractRequest struct {
	Kind     comic.DocumentKind
	Path     string
	Entries  []string
	Indices  []int
	Password string
	TempDir  string
	DPI      int
	Anchor   comic.ScrollAnchor
}

func (OpenRequest) isRequest()    {}
func (ExtractRequest) isRequest() {}

// Response is the closed set of worker answers.
type Response interface {
	isResponse()
}

// OpenedResponse confirms a PDF open.
type OpenedResponse struct {
	PageCount int
	Meta      comic.Metadata
}

// PagesResponse carries the decoded page images of an ExtractRequest, in
// request order.
type PagesResponse struct {
	Images [][]byte
	MIME   string
	Width  int
	Height int
	Anchor comic.ScrollAnchor
}

// FailureReason is the closed error taxonomy crossing the worker boundary.
type FailureReason int

const (
	FailureGeneric FailureReason = iota
	FailurePassword
	FailureTooLarge
)

func (r FailureReason) String() string {
	switch r {
	case FailurePassword:
		return "password required"
	case FailureTooLarge:
		return "over size limit"
	default:
		return "decode error"
	}
}

// FailureResponse reports a failed request with its tagged reason.
type FailureResponse struct {
	Reason FailureReason
	Err    error
}

func (OpenedResponse) isResponse()  {}
func (PagesResponse) isResponse()   {}
func (FailureResponse) isResponse() {}

var (
	ErrTimeout = errors.New("worker: request timed out")
	ErrKilled  = errors.New("worker: killed")
)
