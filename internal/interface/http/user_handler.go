package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/manuelcattigobetti/provaANPI/internal/application"
	"github.com/manuelcattigobetti/provaANPI/internal/audit"
	"github.com/manuelcattigobetti/provaANPI/pkg/response"
	"github.com/manuelcattigobetti/provaANPI/pkg/validation"
)

// UserHandler serves the admin-only user management endpoints.
type UserHandler struct {
	Users  *application.UserService
	Audit  *audit.Logger
	Logger *logrus.Logger
}

func NewUserHandler(users *application.UserService, auditLog *audit.Logger, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Users: users, Audit: auditLog, Logger: logger}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error[any](c, http.StatusBadRequest, "invalid user id", nil)
		return 0, false
	}
	return id, true
}

// writeUserError maps service errors onto HTTP statuses. Anything that is not
// a validation, conflict or not-found outcome is a backend failure and goes to
// the error audit log.
func writeUserError(c *gin.Context, auditLog *audit.Logger, err error) {
	if ve, ok := application.AsValidation(err); ok {
		response.Error[any](c, http.StatusBadRequest, ve.Reason, gin.H{"field": ve.Field})
		return
	}
	switch err {
	case application.ErrEmailTaken:
		response.Error[any](c, http.StatusConflict, "email already in use", nil)
	case application.ErrNotFound:
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
	default:
		if auditLog != nil {
			auditLog.Error("store", "backend failure on "+c.Request.Method+" "+c.FullPath())
		}
		response.Error[any](c, http.StatusInternalServerError, "operation failed", nil)
	}
}

// List GET /api/users
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.Users.List(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("user list failed")
		writeUserError(c, h.Audit, err)
		return
	}
	response.Success(c, http.StatusOK, toUserViews(users), "ok", gin.H{"count": len(users)})
}

// Get GET /api/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := h.Users.GetByID(c.Request.Context(), id)
	if err != nil {
		writeUserError(c, h.Audit, err)
		return
	}
	response.Success(c, http.StatusOK, toUserView(u), "ok", nil)
}

type updateUserRequest struct {
	Surname     string `json:"surname" binding:"required,persname"`
	GivenName   string `json:"given_name" binding:"required,persname"`
	DateOfBirth string `json:"date_of_birth" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Level       int    `json:"level" binding:"required,userlevel"`
}

// Update PUT /api/users/:id
// Every field is re-validated and the row is replaced whole.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid request body", validation.ToDetails(err))
		return
	}

	u, err := h.Users.Update(c.Request.Context(), id, application.UserInput{
		Surname:     req.Surname,
		GivenName:   req.GivenName,
		DateOfBirth: req.DateOfBirth,
		Email:       req.Email,
		Level:       req.Level,
	})
	if err != nil {
		writeUserError(c, h.Audit, err)
		return
	}
	response.Success(c, http.StatusOK, toUserView(u), "user updated", nil)
}

// Delete DELETE /api/users/:id
// Removal is final; there is no soft delete.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), id); err != nil {
		writeUserError(c, h.Audit, err)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "user deleted", nil)
}

// Search GET /api/users/search?q=
func (h *UserHandler) Search(c *gin.Context) {
	users, err := h.Users.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, toUserViews(users), "ok", gin.H{"count": len(users)})
}
