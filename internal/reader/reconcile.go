package reader

import (
	"comet/internal/comic"
	"comet/internal/worker"
)

// reconcile folds a worker response back into the session. There are no
// correlation ids: the worker processes one command at a time in submission
// order, so any response answers the most recent command of its generation.
// Responses from a killed worker carry a stale generation and are dropped.
func (c *Controller) reconcile(gen uint64, resp worker.Response) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		debugLog("discarding stale worker response (gen %d != %d)", gen, c.generation)
		return
	}

	switch r := resp.(type) {
	case worker.OpenedResponse:
		c.session.Meta = r.Meta
		c.finishOpenLocked(nil, r.PageCount)
	case worker.PagesResponse:
		c.applyPagesLocked(r)
	case worker.FailureResponse:
		c.applyFailureLocked(r)
	}
}

func (c *Controller) applyPagesLocked(r worker.PagesResponse) {
	s := &c.session
	s.State = comic.StateLoaded
	s.CurrentPageIndex = c.pendingPageIndex
	s.PageWidth = r.Width
	s.PageHeight = r.Height
	if c.pendingCleanup != nil {
		c.pendingCleanup()
		c.pendingCleanup = nil
	}

	c.presenter.UpdateLoading(false)
	c.presenter.RenderPage(comic.RenderPage{
		Images:          r.Images,
		MIME:            r.MIME,
		RotationDegrees: s.RotationDegrees,
		Anchor:          r.Anchor,
	})
	c.presenter.RenderPageInfo(c.pageInfoLocked())
}

func (c *Controller) applyFailureLocked(r worker.FailureResponse) {
	if c.pendingCleanup != nil {
		c.pendingCleanup()
		c.pendingCleanup = nil
	}

	switch r.Reason {
	case worker.FailurePassword:
		// The single retry path in the subsystem: re-prompt with kind,
		// path, and pending page index preserved.
		c.promptPasswordLocked()
	default:
		if c.opening {
			c.failOpenLocked(failureError(r))
			return
		}
		// Terminal for this navigation attempt: clear the loading UI and
		// stay on the previously displayed page. No automatic retry.
		debugLog("page extraction failed: %v", failureError(r))
		c.session.State = comic.StateLoaded
		c.presenter.UpdateLoading(false)
		c.presenter.ShowMessage(comic.Message{Title: "Page load failed", Text: failureText(r)})
	}
}

func failureError(r worker.FailureResponse) error {
	if r.Err != nil {
		return r.Err
	}
	return worker.ErrKilled
}

func failureText(r worker.FailureResponse) string {
	switch r.Reason {
	case worker.FailureTooLarge:
		return "The file is larger than 2GB and cannot be read."
	default:
		if r.Err != nil {
			return r.Err.Error()
		}
		return "The page could not be decoded."
	}
}
