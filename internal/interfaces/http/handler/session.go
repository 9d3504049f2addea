package handler

import (
	"github.com/gin-gonic/gin"
	appcheckout "github.com/storefront/backend/internal/application/checkout"
)

// SessionHandler starts anonymous shopping sessions
type SessionHandler struct {
	BaseHandler
	sessionService *appcheckout.SessionService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessionService *appcheckout.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// Start godoc
//
//	@Summary		Start a shopping session
//	@Description	Create an anonymous shopping session and return its bearer token
//	@Tags			sessions
//	@Produce		json
//	@Success		201	{object}	dto.Response{data=appcheckout.SessionResponse}
//	@Failure		500	{object}	dto.Response
//	@Router			/api/v1/sessions [post]
func (h *SessionHandler) Start(c *gin.Context) {
	resp, err := h.sessionService.Start(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
