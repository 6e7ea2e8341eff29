package reader

import (
	"context"

	"comet/internal/comic"
	"comet/internal/inspect"
	"comet/internal/worker"
)

// GoToPage navigates to an absolute page index. Out-of-range requests are
// no-ops; percent-based documents treat n as a 0-100 percentage.
func (c *Controller) GoToPage(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	anchor := comic.AnchorTop
	if n < c.session.CurrentPageIndex {
		anchor = comic.AnchorBottom
	}
	c.goToPageLocked(n, anchor)
}

// GoToPercentage navigates a percent-based document, clamping to [0,100].
func (c *Controller) GoToPercentage(p int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.session.IsPercentBased() || c.session.State != comic.StateLoaded {
		return
	}
	c.goToPageLocked(p, comic.AnchorTop)
}

// NextPage advances by one display step under the current page mode. At the
// last page, and with auto-open enabled, the next comic file in the same
// folder is opened instead.
func (c *Controller) NextPage() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.session
	if s.State != comic.StateLoaded {
		return
	}
	if s.IsPercentBased() {
		c.presenter.RenderEbookPercent(comic.RenderEbookPercent{Percent: s.CurrentPageIndex, Forward: true})
		return
	}

	shown := comic.ResolveDisplayPages(s.View.PageMode, s.CurrentPageIndex, s.PageCount)
	if len(shown) == 0 {
		return
	}
	target := shown[len(shown)-1] + 1
	if target >= s.PageCount {
		c.autoOpenSiblingLocked(inspect.Next)
		return
	}
	c.goToPageLocked(target, comic.AnchorTop)
}

// PreviousPage steps back by one display step; at the first page it may
// auto-open the previous comic file, landing on its last page.
func (c *Controller) PreviousPage() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := &c.session
	if s.State != comic.StateLoaded {
		return
	}
	if s.IsPercentBased() {
		c.presenter.RenderEbookPercent(comic.RenderEbookPercent{Percent: s.CurrentPageIndex, Forward: false})
		return
	}

	shown := comic.ResolveDisplayPages(s.View.PageMode, s.CurrentPageIndex, s.PageCount)
	if len(shown) == 0 {
		return
	}
	target := shown[0] - 1
	if target < 0 {
		c.autoOpenSiblingLocked(inspect.Previous)
		return
	}
	// Backward navigation lands at the bottom of the new page.
	c.goToPageLocked(target, comic.AnchorBottom)
}

func (c *Controller) autoOpenSiblingLocked(dir inspect.Direction) {
	s := &c.session
	if !c.settings.AutoOpenNextFile {
		return
	}
	switch s.Kind {
	case comic.KindRemote, comic.KindImageFolder, comic.KindNotSet:
		return
	}
	sibling, err := inspect.SiblingComic(c.fs, s.Path, dir)
	if err != nil || sibling == "" {
		return
	}
	initial := 0
	if dir == inspect.Previous {
		initial = PageLast
	}
	debugLog("auto-opening adjacent file %s", sibling)
	c.openLocked(sibling, OpenOptions{InitialPage: initial})
}

// goToPageLocked resolves what "page target" means under the current page
// mode and issues the extraction or render command.
func (c *Controller) goToPageLocked(target int, anchor comic.ScrollAnchor) {
	s := &c.session
	if s.State != comic.StateLoaded {
		return
	}

	if s.IsPercentBased() {
		if target < 0 {
			target = 0
		} else if target > 100 {
			target = 100
		}
		forward := target >= s.CurrentPageIndex
		s.CurrentPageIndex = target
		c.presenter.RenderEbookPercent(comic.RenderEbookPercent{Percent: target, Forward: forward})
		c.presenter.RenderPageInfo(c.pageInfoLocked())
		return
	}

	if target < 0 || target >= s.PageCount {
		return
	}
	c.requestPagesLocked(target, anchor)
}

// requestPagesLocked issues the page request for target; also the retry path
// after a mid-navigation password prompt.
func (c *Controller) requestPagesLocked(target int, anchor comic.ScrollAnchor) {
	s := &c.session
	pages := comic.ResolveDisplayPages(s.View.PageMode, target, s.PageCount)
	if len(pages) == 0 {
		return
	}
	c.pendingPageIndex = pages[0]
	c.pendingAnchor = anchor

	if s.Kind == comic.KindRemote {
		c.fetchRemotePageLocked(pages[0], anchor)
		return
	}

	req := worker.ExtractRequest{
		Kind:     s.Kind,
		Path:     s.Path,
		Password: s.Password,
		Anchor:   anchor,
	}
	switch s.Kind {
	case comic.KindPDF:
		req.Indices = pages
		req.DPI = c.settings.PDFReadingDPI
	default:
		entries := make([]string, 0, len(pages))
		for _, p := range pages {
			entries = append(entries, s.PageEntries[p])
		}
		req.Entries = entries
	}

	if dir, cleanup, err := c.temp.New(); err == nil {
		req.TempDir = dir
		c.pendingCleanup = cleanup
	}

	s.State = comic.StateLoading
	c.presenter.UpdateLoading(true)
	c.ensureWorkerLocked()
	if !c.worker.Submit(req) {
		// Single-slot queue: a busy worker drops the request rather than
		// queueing behind an unknown amount of work.
		debugLog("worker busy, page request for %d dropped", target)
		s.State = comic.StateLoaded
		c.presenter.UpdateLoading(false)
		if c.pendingCleanup != nil {
			c.pendingCleanup()
			c.pendingCleanup = nil
		}
	}
}

// fetchRemotePageLocked requests a page from the remote catalog callback.
// Cancellation is by generation: a result landing after the session moved
// on is discarded, never surfaced.
func (c *Controller) fetchRemotePageLocked(target int, anchor comic.ScrollAnchor) {
	s := &c.session
	if s.Remote == nil || s.Remote.Fetch == nil {
		return
	}
	gen := c.generation
	fetch := s.Remote.Fetch
	snapshot := *s

	s.State = comic.StateLoading
	c.presenter.UpdateLoading(true)

	go func() {
		page, err := fetch(context.Background(), target+1, &snapshot)
		c.onRemotePage(gen, target, anchor, page, err)
	}()
}

func (c *Controller) onRemotePage(gen uint64, target int, anchor comic.ScrollAnchor, page comic.RemotePage, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		debugLog("discarding stale remote page %d (gen %d != %d)", target, gen, c.generation)
		return
	}

	s := &c.session
	s.State = comic.StateLoaded
	c.presenter.UpdateLoading(false)
	if err != nil {
		c.presenter.ShowMessage(comic.Message{Title: "Page load failed", Text: err.Error()})
		return
	}

	s.CurrentPageIndex = target
	cmd := comic.RenderPage{
		RotationDegrees: s.RotationDegrees,
		Anchor:          anchor,
	}
	if len(page.Data) > 0 {
		cmd.Images = [][]byte{page.Data}
	}
	if page.ImageURL != "" {
		cmd.ImageURLs = []string{page.ImageURL}
	}
	c.presenter.RenderPage(cmd)
	c.presenter.RenderPageInfo(c.pageInfoLocked())
	if page.TempPath != "" {
		if rerr := c.fs.RemoveAll(page.TempPath); rerr != nil {
			debugLog("remote temp cleanup failed: %v", rerr)
		}
	}
}

func (c *Controller) pageInfoLocked() comic.PageInfo {
	s := &c.session
	return comic.PageInfo{
		Index:     s.CurrentPageIndex,
		Total:     s.PageCount,
		IsPercent: s.IsPercentBased(),
	}
}

// SetPageMode switches the page layout mode and re-renders the current
// page set under the new pairing.
func (c *Controller) SetPageMode(mode comic.PageMode) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.View.PageMode = mode
	c.lastView.PageMode = mode
	if c.session.State == comic.StateLoaded && !c.session.IsPercentBased() {
		c.requestPagesLocked(c.session.CurrentPageIndex, comic.AnchorTop)
	}
}

// SetScaleMode updates the fit-mode/zoom snapshot.
func (c *Controller) SetScaleMode(fitMode, zoomScale int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session.View.FitMode = fitMode
	c.session.View.ZoomScale = zoomScale
	c.lastView.FitMode = fitMode
	c.lastView.ZoomScale = zoomScale
}

// SetRotation sets the page rotation, normalized into [0,360).
func (c *Controller) SetRotation(deg int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setRotationLocked(deg)
}

// RotateRight rotates the page 90 degrees clockwise.
func (c *Controller) RotateRight() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setRotationLocked(c.session.RotationDegrees + 90)
}

// RotateLeft rotates the page 90 degrees counter-clockwise.
func (c *Controller) RotateLeft() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setRotationLocked(c.session.RotationDegrees - 90)
}

func (c *Controller) setRotationLocked(deg int) {
	s := &c.session
	s.RotationDegrees = comic.NormalizeRotation(deg)
	if s.State == comic.StateLoaded && !s.IsPercentBased() && s.Kind != comic.KindNotSet {
		// Re-request so the renderer sees the new rotation; the worker's
		// page cache makes this cheap.
		c.requestPagesLocked(s.CurrentPageIndex, comic.AnchorTop)
	}
}
