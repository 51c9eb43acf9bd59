package http

import (
	"errors"
	"log"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/session"
	"github.com/mrlokans/learncard/internal/study"
)

// Clients maps HTTP clients to their session managers. A client is
// whoever holds one session cookie.
type Clients struct {
	sessions *auth.SessionManager
	registry *session.Registry
}

func NewClients(sessions *auth.SessionManager, registry *session.Registry) *Clients {
	if sessions == nil || registry == nil {
		return nil
	}
	return &Clients{sessions: sessions, registry: registry}
}

// ManagerFor returns the manager of the requesting client, or nil when
// sessions are off. The manager is brought in line with the cookie first:
// a cookie user the manager does not hold is resumed, and a manager whose
// cookie no longer names a user is expired.
func (cl *Clients) ManagerFor(c *gin.Context) *session.Manager {
	if cl == nil {
		return nil
	}

	m := cl.registry.Get(cl.sessions.ClientID(c.Request))
	ctx := c.Request.Context()
	current, authenticated := m.Identity()

	if userID := auth.GetUserID(c); userID != auth.DefaultUserID {
		want := session.Identity{ID: strconv.FormatUint(uint64(userID), 10), Email: auth.GetEmail(c)}
		if !authenticated || current.ID != want.ID {
			if err := m.Resume(ctx, want); err != nil && !errors.Is(err, session.ErrTransitionInFlight) {
				log.Printf("Failed to restore session for user %s: %v", want.ID, err)
			}
		}
		return m
	}

	if authenticated {
		m.Expire(ctx)
	}
	return m
}

// trackerFor returns m as a study.Tracker, keeping a nil manager nil.
func trackerFor(m *session.Manager) study.Tracker {
	if m == nil {
		return nil
	}
	return m
}
