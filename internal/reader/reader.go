// Package reader owns the document session state machine: the open/close
// lifecycle, password round trips, page navigation, and the reconciliation
// of page-worker responses into presentation commands.
package reader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"comet/internal/comic"
	"comet/internal/history"
	"comet/internal/inspect"
	"comet/internal/tempdir"
	"comet/internal/worker"
)

// Initial page placeholders for OpenOptions.
const (
	PageFromHistory = -1
	PageLast        = -2
)

// OpenOptions tunes a single Open call.
type OpenOptions struct {
	// KindHint skips extension-based kind resolution, used to re-enter an
	// open after the EPUB comic/e-book disambiguation round trip.
	KindHint comic.DocumentKind
	// Password to try first; the prompt loop fills this in on retries.
	Password string
	// Remote supplies a catalog-backed document instead of a local path.
	Remote *comic.RemoteSource
	// InitialPage is a page index, PageFromHistory, or PageLast.
	InitialPage int
}

// PageWorker is the slice of the worker the controller drives. Tests swap in
// a fake; production uses worker.Start.
type PageWorker interface {
	Submit(worker.Request) bool
	Kill()
	Alive() bool
}

// WorkerFactory builds a page worker delivering responses to respond.
type WorkerFactory func(cfg worker.Config, respond func(worker.Response)) PageWorker

func defaultWorkerFactory(cfg worker.Config, respond func(worker.Response)) PageWorker {
	return worker.Start(cfg, respond)
}

// Config assembles a Controller.
type Config struct {
	Fs        afero.Fs
	Presenter comic.Presenter
	History   *history.Store
	Settings  history.Settings
	TempRoot  string
	// NewWorker overrides worker construction, mainly for tests.
	NewWorker WorkerFactory
}

// Controller is the single owner of the one DocumentSession. All state
// mutation happens under its mutex; collaborator callbacks re-enter through
// it, never around it.
type Controller struct {
	mu        sync.Mutex
	session   comic.DocumentSession
	presenter comic.Presenter
	history   *history.Store
	settings  history.Settings
	fs        afero.Fs
	temp      *tempdir.Manager
	newWorker WorkerFactory

	worker PageWorker
	// generation discards results whose request context is gone: bumped on
	// every open, compared when a worker response or remote fetch lands.
	generation uint64

	lastView comic.ViewSettings
	// initialPage/pendingPageIndex survive the modal password round trip.
	initialPage      int
	pendingPageIndex int
	pendingAnchor    comic.ScrollAnchor
	pendingCleanup   func()
	opening          bool
}

// New builds the controller. It is constructed once at startup; there are
// no package-level session globals.
func New(cfg Config) *Controller {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.NewWorker == nil {
		cfg.NewWorker = defaultWorkerFactory
	}
	if cfg.TempRoot == "" {
		cfg.TempRoot = filepath.Join(os.TempDir(), "comet")
	}
	settings := cfg.Settings
	if settings == (history.Settings{}) {
		settings = history.DefaultSettings()
	}
	return &Controller{
		presenter: cfg.Presenter,
		history:   cfg.History,
		settings:  settings,
		fs:        cfg.Fs,
		temp:      tempdir.NewManager(cfg.Fs, cfg.TempRoot),
		newWorker: cfg.NewWorker,
		lastView: comic.ViewSettings{
			FitMode:   settings.DefaultFitMode,
			ZoomScale: settings.DefaultZoomScale,
			PageMode:  comic.PageMode(settings.DefaultPageMode),
		},
	}
}

// Session returns a snapshot of the current session.
func (c *Controller) Session() comic.DocumentSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Open opens a document, closing whatever is currently open first.
// Last-requester-wins: there is no queueing and no cancellation of in-flight
// work beyond killing the worker.
func (c *Controller) Open(path string, opts OpenOptions) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(path, opts)
}

// Close closes the current document, committing it to history.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// BookTypeEntered resumes an EPUB open after the comic/e-book prompt.
func (c *Controller) BookTypeEntered(path string, kind comic.DocumentKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openLocked(path, OpenOptions{KindHint: kind, InitialPage: PageFromHistory})
}

// PasswordEntered resumes a password-gated open or extraction with the
// supplied password. Kind, path, and the pending page index survived the
// prompt untouched.
func (c *Controller) PasswordEntered(password string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.session
	if !s.AwaitingPassword() {
		return
	}
	s.SetAwaitingPassword(false)
	s.Password = password
	debugLog("retrying %s with password", s.Path)

	if c.opening {
		c.dispatchOpenLocked()
		return
	}
	// Password demanded mid-navigation: retry the pending page request.
	c.requestPagesLocked(c.pendingPageIndex, c.pendingAnchor)
}

// PasswordCanceled abandons a password-gated open.
func (c *Controller) PasswordCanceled() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.AwaitingPassword() {
		return
	}
	c.presenter.UpdateLoading(false)
	if c.opening {
		c.resetLocked()
		return
	}
	// Mid-navigation cancel keeps the document open on the previous page.
	c.session.SetAwaitingPassword(false)
	c.session.State = comic.StateLoaded
}

// openLocked is the tryOpen contract: resolve the kind, dispatch to the
// kind-specific opener, and let finishOpenLocked take it from there.
func (c *Controller) openLocked(path string, opts OpenOptions) {
	c.closeLocked()
	c.generation++
	c.opening = true
	c.initialPage = opts.InitialPage

	s := &c.session
	if opts.Remote != nil {
		s.Kind = comic.KindRemote
		s.Path = opts.Remote.Key
		s.DisplayName = opts.Remote.DisplayName
		s.PageCount = opts.Remote.PageCount
		s.Remote = opts.Remote
		s.State = comic.StateLoading
		c.finishOpenLocked(nil, opts.Remote.PageCount)
		return
	}

	kind := opts.KindHint
	if kind == comic.KindNotSet {
		var ambiguous bool
		kind, ambiguous = comic.KindForPath(path)
		if ambiguous {
			// Modal round trip: the answer re-enters via BookTypeEntered.
			c.presenter.AskBookType(comic.BookTypePrompt{Path: path})
			c.opening = false
			return
		}
	}

	info, err := c.fs.Stat(path)
	if err != nil {
		c.failOpenLocked(fmt.Errorf("reader: %s: %w", path, err))
		return
	}
	if info.IsDir() {
		kind = comic.KindImageFolder
	} else if kind == comic.KindNotSet {
		c.failOpenLocked(fmt.Errorf("reader: unsupported file type: %s", path))
		return
	}

	s.Kind = kind
	s.Path = path
	s.DisplayName = filepath.Base(path)
	s.Password = opts.Password
	s.State = comic.StateLoading
	c.presenter.UpdateLoading(true)
	c.dispatchOpenLocked()
}

// dispatchOpenLocked runs the kind-specific opener for the session already
// staged in openLocked (or preserved across a password prompt).
func (c *Controller) dispatchOpenLocked() {
	s := &c.session
	switch s.Kind {
	case comic.KindImageFolder:
		c.applyListLocked(inspect.ListImageFolder(c.fs, s.Path))
	case comic.KindEpubComic:
		c.applyListLocked(inspect.ListEpubImages(s.Path))
	case comic.KindEpubEbook:
		// Reflow pagination lives in the e-book view; the session only
		// tracks a percentage.
		c.finishOpenLocked(nil, 0)
	case comic.KindZip, comic.KindRar, comic.Kind7z:
		gen := c.generation
		path, password, kind := s.Path, s.Password, s.Kind
		go func() {
			var res inspect.Result
			switch kind {
			case comic.KindZip:
				res = inspect.ListZip(path, password)
			case comic.KindRar:
				res = inspect.ListRar(path, password)
			default:
				res = inspect.List7z(path, password)
			}
			c.onListResult(gen, res)
		}()
	case comic.KindPDF:
		c.ensureWorkerLocked()
		c.worker.Submit(worker.OpenRequest{Path: s.Path, Password: s.Password})
	default:
		c.failOpenLocked(fmt.Errorf("reader: cannot open kind %s", s.Kind))
	}
}

func (c *Controller) onListResult(gen uint64, res inspect.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		debugLog("discarding stale entry list (gen %d != %d)", gen, c.generation)
		return
	}
	c.applyListLocked(res)
}

func (c *Controller) applyListLocked(res inspect.Result) {
	switch res.Outcome {
	case inspect.OutcomeOK:
		c.finishOpenLocked(res.Entries, len(res.Entries))
	case inspect.OutcomePasswordRequired:
		c.promptPasswordLocked()
	default:
		c.failOpenLocked(res.Err)
	}
}

func (c *Controller) promptPasswordLocked() {
	s := &c.session
	retry := s.Password != ""
	s.SetAwaitingPassword(true)
	c.presenter.UpdateLoading(false)
	c.presenter.PromptPassword(comic.PasswordPrompt{Path: s.Path, Retry: retry})
}

// finishOpenLocked is the shared success branch: the session becomes LOADED,
// rotation resets, zoom/page-mode resolve from history or defaults, the
// entry is committed to history, and the first page request goes out.
func (c *Controller) finishOpenLocked(entries []string, pageCount int) {
	s := &c.session
	s.PageEntries = entries
	s.PageCount = pageCount
	s.State = comic.StateLoaded
	s.RotationDegrees = 0
	s.SetAwaitingPassword(false)
	c.opening = false

	var hist *history.Entry
	if c.history != nil {
		if e, ok := c.history.Lookup(s.Path); ok {
			hist = &e
		}
	}
	s.View = c.resolveViewLocked(hist)

	initial := c.initialPage
	switch {
	case initial == PageFromHistory && hist != nil:
		initial = hist.PageIndex
	case initial == PageFromHistory:
		initial = 0
	case initial == PageLast:
		initial = s.PageCount - 1
	}
	if s.IsPercentBased() {
		if initial < 0 {
			initial = 0
		} else if initial > 100 {
			initial = 100
		}
	} else {
		if initial < 0 {
			initial = 0
		} else if initial >= s.PageCount {
			initial = s.PageCount - 1
		}
	}
	s.CurrentPageIndex = initial

	c.commitHistoryLocked()
	debugLog("opened %s (%s, %d pages)", s.Path, s.Kind, s.PageCount)
	c.goToPageLocked(initial, comic.AnchorTop)
}

func (c *Controller) failOpenLocked(err error) {
	c.presenter.UpdateLoading(false)
	c.presenter.ShowMessage(comic.Message{Title: "Cannot open file", Text: openErrorText(err)})
	c.resetLocked()
}

func openErrorText(err error) string {
	switch {
	case err == nil:
		return "Unknown error."
	case errors.Is(err, inspect.ErrTooLarge):
		return "The file is larger than 2GB and cannot be opened."
	case errors.Is(err, inspect.ErrNoImages):
		return "No page images were found inside."
	case errors.Is(err, fs.ErrNotExist):
		return "The file or folder no longer exists."
	default:
		return err.Error()
	}
}

// closeLocked flushes the open document to history and tears everything
// down. Safe to call with nothing open.
func (c *Controller) closeLocked() {
	if c.session.State != comic.StateNotSet {
		c.commitHistoryLocked()
	}
	c.resetLocked()
}

// resetLocked clears session state without a history commit. Bumping the
// generation here invalidates every in-flight callback, including listing
// goroutines that have no worker to kill.
func (c *Controller) resetLocked() {
	c.generation++
	if c.worker != nil {
		// No graceful shutdown: killing the worker is the cancellation
		// mechanism for anything still in flight.
		c.worker.Kill()
		c.worker = nil
	}
	if c.pendingCleanup != nil {
		c.pendingCleanup()
		c.pendingCleanup = nil
	}
	c.temp.Sweep()
	c.session.Reset()
	c.opening = false
	c.presenter.UpdateLoading(false)
}

func (c *Controller) commitHistoryLocked() {
	if c.history == nil || c.session.State != comic.StateLoaded {
		return
	}
	s := &c.session
	entry := history.Entry{
		PageIndex: s.CurrentPageIndex,
		PageCount: s.PageCount,
		FitMode:   s.View.FitMode,
		ZoomScale: s.View.ZoomScale,
		PageMode:  int(s.View.PageMode),
	}
	if s.Kind == comic.KindRemote {
		entry.DataKey = s.Path
	} else {
		entry.Path = s.Path
	}
	c.history.Commit(entry)
	if err := c.history.Save(); err != nil {
		debugLog("history save failed: %v", err)
	}
}

// resolveViewLocked applies the zoom/page-mode loading policy once per open.
func (c *Controller) resolveViewLocked(hist *history.Entry) comic.ViewSettings {
	defaults := comic.ViewSettings{
		FitMode:   c.settings.DefaultFitMode,
		ZoomScale: c.settings.DefaultZoomScale,
		PageMode:  comic.PageMode(c.settings.DefaultPageMode),
	}
	switch c.settings.ZoomFileLoading {
	case history.ZoomLoadHistory:
		if hist != nil {
			return comic.ViewSettings{
				FitMode:   hist.FitMode,
				ZoomScale: hist.ZoomScale,
				PageMode:  comic.PageMode(hist.PageMode),
			}
		}
		return defaults
	case history.ZoomLoadLastUsed:
		return c.lastView
	default:
		return defaults
	}
}

func (c *Controller) ensureWorkerLocked() {
	if c.worker != nil && c.worker.Alive() {
		return
	}
	gen := c.generation
	cfg := worker.Config{
		Timeout:   time.Duration(c.settings.WorkerTimeoutSeconds) * time.Second,
		CacheSize: c.settings.CacheSize,
	}
	c.worker = c.newWorker(cfg, func(resp worker.Response) {
		c.reconcile(gen, resp)
	})
}
