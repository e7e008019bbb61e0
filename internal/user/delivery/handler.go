package delivery

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	authdomain "taskhub-backend/internal/auth/domain"
	"taskhub-backend/internal/apperr"
	"taskhub-backend/internal/user/usecase"
	"taskhub-backend/pkg/response"
)

// UserHandler exposes profile and account management endpoints.
type UserHandler struct {
	userUsecase usecase.UserUsecase
	logger      *zap.Logger
}

func NewUserHandler(userUsecase usecase.UserUsecase, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{userUsecase: userUsecase, logger: logger}
}

// ChangePasswordRequest is the POST /users/change-password body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func bindStrict(c *gin.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}

func currentUser(c *gin.Context) *authdomain.User {
	return c.MustGet("user").(*authdomain.User)
}

// GetProfile handles GET /api/users/profile.
func (h *UserHandler) GetProfile(c *gin.Context) {
	response.OK(c, http.StatusOK, "", gin.H{"user": currentUser(c)})
}

// UpdateProfile handles PUT /api/users/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req usecase.UpdateProfileRequest
	if err := bindStrict(c, &req); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	user, err := h.userUsecase.UpdateProfile(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "profile updated successfully", gin.H{"user": user})
}

// ChangePassword handles POST /api/users/change-password.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := bindStrict(c, &req); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	if err := h.userUsecase.ChangePassword(c.Request.Context(), c.GetString("userID"), req.CurrentPassword, req.NewPassword); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "password changed successfully", nil)
}

// SearchUsers handles GET /api/users/search.
func (h *UserHandler) SearchUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	profiles, err := h.userUsecase.Search(c.Request.Context(), c.GetString("userID"), c.Query("q"), limit)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "", gin.H{"users": profiles})
}

// UserStats handles GET /api/users/stats.
func (h *UserHandler) UserStats(c *gin.Context) {
	stats, err := h.userUsecase.Stats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "", stats)
}

// Deactivate handles POST /api/users/deactivate.
func (h *UserHandler) Deactivate(c *gin.Context) {
	if err := h.userUsecase.Deactivate(c.Request.Context(), c.GetString("userID")); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "account deactivated successfully", nil)
}

// Reactivate handles POST /api/users/reactivate. The auth middleware on this
// route accepts tokens of deactivated accounts.
func (h *UserHandler) Reactivate(c *gin.Context) {
	if err := h.userUsecase.Reactivate(c.Request.Context(), c.GetString("userID")); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "account reactivated successfully", nil)
}

// Export handles GET /api/users/export.
func (h *UserHandler) Export(c *gin.Context) {
	data, err := h.userUsecase.Export(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="account-export.json"`)
	response.OK(c, http.StatusOK, "", data)
}

// DeleteAccount handles DELETE /api/users/account.
func (h *UserHandler) DeleteAccount(c *gin.Context) {
	if err := h.userUsecase.DeleteAccount(c.Request.Context(), c.GetString("userID")); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "account deleted successfully", nil)
}
