package comic

// Outbound commands to the presentation layer. The set is closed: the
// Presenter interface has one method per command, so a renderer that misses
// one fails to compile instead of silently dropping a string-tagged message.

// RenderPage carries decoded page images for display. Remote documents may
// deliver URLs instead of raw bytes.
type RenderPage struct {
	Images          [][]byte
	MIME            string
	ImageURLs       []string
	RotationDegrees int
	Anchor          ScrollAnchor
}

// RenderEbookPercent asks the e-book view to move to a reflow percentage.
type RenderEbookPercent struct {
	Percent int
	Forward bool
}

// PageInfo updates the "page N of M" indicator.
type PageInfo struct {
	Index     int
	Total     int
	IsPercent bool
}

// PasswordPrompt asks the user for an archive/PDF password. Retry is set
// when a previously supplied password was rejected.
type PasswordPrompt struct {
	Path  string
	Retry bool
}

// BookTypePrompt asks whether an EPUB should open as a comic or an e-book.
type BookTypePrompt struct {
	Path string
}

// Message is a modal info/error dialog.
type Message struct {
	Title string
	Text  string
}

// Presenter receives one-way display commands from the controller. It must
// not call back into the controller from within a command; user responses
// re-enter through the controller's event methods (PasswordEntered etc.).
type Presenter interface {
	UpdateLoading(active bool)
	RenderPage(cmd RenderPage)
	RenderEbookPercent(cmd RenderEbookPercent)
	RenderPageInfo(cmd PageInfo)
	PromptPassword(cmd PasswordPrompt)
	AskBookType(cmd BookTypePrompt)
	ShowMessage(cmd Message)
}
