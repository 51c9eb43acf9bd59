package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/content"
	"github.com/mrlokans/learncard/internal/events"
	"github.com/mrlokans/learncard/internal/progress"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/study"
)

// LearnController drives the study navigator for HTTP clients. Navigators
// live for one request; the position is carried by the client's progress.
type LearnController struct {
	provider *content.Provider
	clients  *Clients
	events   *events.Service
}

func NewLearnController(provider *content.Provider, clients *Clients, events *events.Service) *LearnController {
	return &LearnController{provider: provider, clients: clients, events: events}
}

// LearnResponse is the position within a book and the word at it.
type LearnResponse struct {
	BookID   string                 `json:"bookId"`
	Index    int                    `json:"index"`
	Total    int                    `json:"total"`
	AtStart  bool                   `json:"atStart"`
	AtEnd    bool                   `json:"atEnd"`
	Word     content.WordDetail     `json:"word"`
	Progress *progress.BookProgress `json:"progress,omitempty"`
}

type positionRequest struct {
	Index *int   `json:"index"`
	Move  string `json:"move"` // "next" or "prev"
}

// Open handles GET /api/learn/:bookId. The book resumes at the saved
// position, which is recorded again for logged in users.
func (lc *LearnController) Open(c *gin.Context) {
	nav, m, ok := lc.navigator(c)
	if !ok {
		return
	}

	if err := nav.Start(savedEntry(m, nav.BookID())); err != nil {
		lc.logTrackerError(nav.BookID(), err)
	}
	lc.respond(c, nav)
}

// Position handles POST /api/learn/:bookId/position.
func (lc *LearnController) Position(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.Index == nil && req.Move != "next" && req.Move != "prev" {
		respondBadRequest(c, "index or move is required")
		return
	}

	nav, m, ok := lc.navigator(c)
	if !ok {
		return
	}
	if err := nav.Restore(savedEntry(m, nav.BookID())); err != nil {
		respondInternalError(c, err, "restore position")
		return
	}

	var err error
	switch {
	case req.Index != nil:
		err = nav.GoTo(*req.Index)
	case req.Move == "next":
		err = nav.Next()
	default:
		err = nav.Prev()
	}
	if err != nil {
		lc.logTrackerError(nav.BookID(), err)
	}
	lc.respond(c, nav)
}

func (lc *LearnController) navigator(c *gin.Context) (*study.Navigator, *session.Manager, bool) {
	bookID := c.Param("bookId")
	words, err := lc.provider.ListWords(c.Request.Context(), bookID)
	if err != nil {
		respondInternalError(c, err, "list words")
		return nil, nil, false
	}
	if len(words) == 0 {
		respondNotFound(c, "book")
		return nil, nil, false
	}

	m := lc.clients.ManagerFor(c)
	return study.NewNavigator(bookID, words, trackerFor(m)), m, true
}

func (lc *LearnController) respond(c *gin.Context, nav *study.Navigator) {
	word, _ := nav.Current()
	resp := LearnResponse{
		BookID:  nav.BookID(),
		Index:   nav.Index(),
		Total:   nav.Total(),
		AtStart: nav.AtStart(),
		AtEnd:   nav.AtEnd(),
		Word:    word,
	}
	if saved, ok := nav.Saved(); ok {
		resp.Progress = &saved
	}

	if userID := auth.GetUserID(c); userID != auth.DefaultUserID && lc.events != nil {
		lc.events.LogWordViewed(userID, nav.BookID(), word.WordRank)
	}
	c.JSON(http.StatusOK, resp)
}

// logTrackerError records a failed progress write. The move itself
// stands; a logout racing the request is the usual cause.
func (lc *LearnController) logTrackerError(bookID string, err error) {
	if errors.Is(err, session.ErrNotAuthenticated) {
		return
	}
	log.Printf("Failed to record progress for %s: %v", bookID, err)
}

func savedEntry(m *session.Manager, bookID string) *progress.BookProgress {
	if m == nil {
		return nil
	}
	entry, ok := m.Entry(bookID)
	if !ok {
		return nil
	}
	return &entry
}
