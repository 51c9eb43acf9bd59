package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/events"
	"github.com/mrlokans/learncard/internal/progress"
)

// UserController exposes the client state and what it knows about the user.
type UserController struct {
	clients *Clients
	events  *events.Service
}

func NewUserController(clients *Clients, events *events.Service) *UserController {
	return &UserController{clients: clients, events: events}
}

// Summary handles GET /api/user/summary. Anonymous clients get their
// state too.
func (uc *UserController) Summary(c *gin.Context) {
	c.JSON(http.StatusOK, clientState(uc.clients.ManagerFor(c)))
}

// Progress handles GET /api/user/progress, newest book first.
func (uc *UserController) Progress(c *gin.Context) {
	m := uc.clients.ManagerFor(c)
	if m == nil || !m.Authenticated() {
		respondError(c, http.StatusUnauthorized, "authentication required", "unauthenticated")
		return
	}
	respondData(c, progress.SortByRecency(m.Progress()))
}

// Events handles GET /api/user/events.
func (uc *UserController) Events(c *gin.Context) {
	if uc.events == nil {
		respondNotFound(c, "event log")
		return
	}

	limit, offset := parsePagination(c, 50, 200)
	items, total, err := uc.events.Recent(auth.GetUserID(c), limit, offset)
	if err != nil {
		respondInternalError(c, err, "list events")
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:    items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(items)) < total,
	})
}
