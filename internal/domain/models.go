package domain

// LessonDocument is one guided learning unit. Pages play in slice order.
type LessonDocument struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Pages []Page `json:"pages"`
}

// Page is one screen of a lesson.
type Page struct {
	ID      string      `json:"id"`
	Content PageContent `json:"content"`
}

// PageContent is what a page shows. Interaction is nil on informational pages.
type PageContent struct {
	Title       string      `json:"title"`
	Body        string      `json:"body,omitempty"`
	Image       string      `json:"image,omitempty"`
	SideBySide  bool        `json:"sideBySide,omitempty"`
	Interaction Interaction `json:"interaction,omitempty"`
}

// LastPageIndex returns the index of the final page, or -1 for an empty lesson.
func (d LessonDocument) LastPageIndex() int {
	return len(d.Pages) - 1
}

// Summary is the listing view of a lesson.
type Summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	PageCount int    `json:"pageCount"`
}

func (d LessonDocument) Summary() Summary {
	return Summary{ID: d.ID, Title: d.Title, PageCount: len(d.Pages)}
}
