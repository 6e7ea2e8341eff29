package cmd

import (
	"comet/internal/comic"
)

// consolePresenter adapts the controller's outbound commands to channels the
// command loop selects on. Commands arrive on the controller's goroutines,
// so channels are buffered and best-effort signals never block.
type consolePresenter struct {
	pages     chan comic.RenderPage
	ebook     chan comic.RenderEbookPercent
	infos     chan comic.PageInfo
	passwords chan comic.PasswordPrompt
	bookTypes chan comic.BookTypePrompt
	messages  chan comic.Message
}

func newConsolePresenter() *consolePresenter {
	return &consolePresenter{
		pages:     make(chan comic.RenderPage, 4),
		ebook:     make(chan comic.RenderEbookPercent, 4),
		infos:     make(chan comic.PageInfo, 4),
		passwords: make(chan comic.PasswordPrompt, 1),
		bookTypes: make(chan comic.BookTypePrompt, 1),
		messages:  make(chan comic.Message, 4),
	}
}

func (p *consolePresenter) UpdateLoading(bool) {}

func (p *consolePresenter) RenderPage(cmd comic.RenderPage) {
	p.pages <- cmd
}

func (p *consolePresenter) RenderEbookPercent(cmd comic.RenderEbookPercent) {
	select {
	case p.ebook <- cmd:
	default:
	}
}

func (p *consolePresenter) RenderPageInfo(cmd comic.PageInfo) {
	select {
	case p.infos <- cmd:
	default:
	}
}

func (p *consolePresenter) PromptPassword(cmd comic.PasswordPrompt) {
	p.passwords <- cmd
}

func (p *consolePresenter) AskBookType(cmd comic.BookTypePrompt) {
	p.bookTypes <- cmd
}

func (p *consolePresenter) ShowMessage(cmd comic.Message) {
	p.messages <- cmd
}
