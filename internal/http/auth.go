package http

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/database/userprogress"
	"github.com/mrlokans/learncard/internal/entities"
	"github.com/mrlokans/learncard/internal/session"
)

// AuthController handles register, login and logout for browser clients.
// Each client's session manager does the work; the cookie session only
// remembers which user the client belongs to.
type AuthController struct {
	clients  *Clients
	sessions *auth.SessionManager
	limiter  *auth.RateLimiter
}

func NewAuthController(clients *Clients, sessions *auth.SessionManager, limiter *auth.RateLimiter) *AuthController {
	return &AuthController{clients: clients, sessions: sessions, limiter: limiter}
}

type credentialsRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ClientState is what a client sees of its session.
type ClientState struct {
	State      session.State        `json:"state"`
	Submitting bool                 `json:"submitting"`
	Message    session.Message      `json:"message,omitempty"`
	User       *session.UserSummary `json:"user"`
}

func clientState(m *session.Manager) ClientState {
	if m == nil {
		return ClientState{State: session.Anonymous}
	}
	snap := m.Snapshot()
	return ClientState{
		State:      snap.State,
		Submitting: snap.Submitting,
		Message:    snap.Message,
		User:       snap.Summary,
	}
}

// Register handles POST /api/auth/register. A new account is logged in
// straight away.
func (ac *AuthController) Register(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	m := ac.clients.ManagerFor(c)
	if err := m.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		ac.dropStaleUser(c, m, err)
		ac.respondSessionError(c, err)
		return
	}
	ac.finishLogin(c, m)
}

// Login handles POST /api/auth/login.
func (ac *AuthController) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	ip := c.ClientIP()
	if allowed, retryAfter := ac.limiter.Allow(ip, req.Email); !allowed {
		ac.respondThrottled(c, retryAfter)
		return
	}

	m := ac.clients.ManagerFor(c)
	err := m.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		ac.dropStaleUser(c, m, err)
	}
	if errors.Is(err, session.ErrInvalidCredentials) {
		if locked, retryAfter := ac.limiter.RecordFailure(ip, req.Email); locked {
			ac.respondThrottled(c, retryAfter)
			return
		}
	}
	if err != nil {
		ac.respondSessionError(c, err)
		return
	}

	ac.limiter.RecordSuccess(ip, req.Email)
	ac.finishLogin(c, m)
}

// Logout handles POST /api/auth/logout. Logging out an anonymous client
// succeeds.
func (ac *AuthController) Logout(c *gin.Context) {
	m := ac.clients.ManagerFor(c)
	m.Logout(c.Request.Context())

	if err := ac.sessions.EndSession(c.Request); err != nil {
		respondInternalError(c, err, "end session")
		return
	}
	c.JSON(http.StatusOK, clientState(m))
}

// CSRFToken handles GET /api/auth/csrf.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"token": auth.GetCSRFToken(c)})
}

// finishLogin ties the cookie to the user the manager just logged in.
func (ac *AuthController) finishLogin(c *gin.Context, m *session.Manager) {
	identity, ok := m.Identity()
	if !ok {
		// A logout overtook the login.
		c.JSON(http.StatusConflict, ErrorResponse{Error: "login was superseded", Code: "superseded"})
		return
	}

	userID, err := userprogress.ParseUserID(identity.ID)
	if err != nil {
		respondInternalError(c, err, "parse user id")
		return
	}
	user := &entities.User{ID: userID, Email: identity.Email}
	if err := ac.sessions.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, err, "create session")
		return
	}
	c.JSON(http.StatusOK, clientState(m))
}

// dropStaleUser ends the cookie session when a failed attempt left the
// client without a user. Otherwise the next request would resume the user
// the client was logged in as before.
func (ac *AuthController) dropStaleUser(c *gin.Context, m *session.Manager, cause error) {
	if errors.Is(cause, session.ErrTransitionInFlight) || m.Authenticated() || !ac.sessions.IsAuthenticated(c.Request) {
		return
	}
	if err := ac.sessions.EndSession(c.Request); err != nil {
		log.Printf("Failed to end session after failed login: %v", err)
	}
}

func (ac *AuthController) respondThrottled(c *gin.Context, retryAfter time.Duration) {
	seconds := int64(math.Ceil(retryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	c.Header("Retry-After", strconv.FormatInt(seconds, 10))
	respondError(c, http.StatusTooManyRequests, "too many login attempts, try again later", "rate_limited")
}

func (ac *AuthController) respondSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrMissingCredentials), errors.Is(err, session.ErrMissingFields):
		respondError(c, http.StatusBadRequest, "email and password are required", string(session.MessageMissingCredentials))
	case errors.Is(err, session.ErrInvalidInput):
		respondError(c, http.StatusBadRequest, "email or password is not acceptable", string(session.MessageInvalidInput))
	case errors.Is(err, session.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid email or password", string(session.MessageInvalidCredentials))
	case errors.Is(err, session.ErrAccountLocked):
		respondError(c, http.StatusLocked, "account is locked, try again later", string(session.MessageAccountLocked))
	case errors.Is(err, session.ErrAlreadyRegistered):
		respondError(c, http.StatusConflict, "email is already registered", string(session.MessageAlreadyRegistered))
	case errors.Is(err, session.ErrTransitionInFlight):
		respondError(c, http.StatusConflict, "a login is already in progress", "in_flight")
	case errors.Is(err, session.ErrSuperseded):
		respondError(c, http.StatusConflict, "login was superseded", "superseded")
	default:
		respondInternalError(c, err, "authenticate")
	}
}
