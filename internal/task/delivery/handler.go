package delivery

import (
	"encoding/json"
	"net/http"
	"strconv"

	authdomain "taskhub-backend/internal/auth/domain"
	"taskhub-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub-backend/internal/apperr"
	"taskhub-backend/pkg/response"
)

// TaskHandler exposes the task REST surface.
type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
	logger      *zap.Logger
}

func NewTaskHandler(taskUsecase usecase.TaskUsecase, logger *zap.Logger) *TaskHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskHandler{taskUsecase: taskUsecase, logger: logger}
}

// CreateTaskRequest is the POST /tasks body.
type CreateTaskRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     *string  `json:"due_date"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"is_public"`
}

// ShareTaskRequest is the POST /tasks/:id/share body.
type ShareTaskRequest struct {
	Email      string `json:"email"`
	Permission string `json:"permission"`
}

// bindStrict decodes a JSON body rejecting unknown fields.
func bindStrict(c *gin.Context, v interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(apperr.CodeInvalidArgument, "invalid request body", err)
	}
	return nil
}

func actorFrom(c *gin.Context) usecase.Actor {
	user := c.MustGet("user").(*authdomain.User)
	return usecase.Actor{ID: user.ID, Name: user.Name}
}

// ListTasks handles GET /api/tasks.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	opts := usecase.ListOptions{
		Status:    c.Query("status"),
		Priority:  c.Query("priority"),
		Search:    c.Query("search"),
		Overdue:   c.Query("overdue") == "true",
		SortBy:    c.DefaultQuery("sortBy", "created_at"),
		SortOrder: c.DefaultQuery("sortOrder", "desc"),
		Page:      page,
		PageSize:  pageSize,
	}

	result, err := h.taskUsecase.List(c.Request.Context(), c.GetString("userID"), opts)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "", result)
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := bindStrict(c, &req); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	task, err := h.taskUsecase.Create(c.Request.Context(), actorFrom(c), usecase.CreateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusCreated, "task created successfully", task)
}

// GetTask handles GET /api/tasks/:id.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.taskUsecase.GetByID(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "", task)
}

// UpdateTask handles PUT /api/tasks/:id.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req usecase.UpdateTaskRequest
	if err := bindStrict(c, &req); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	task, err := h.taskUsecase.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "task updated successfully", task)
}

// DeleteTask handles DELETE /api/tasks/:id.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskUsecase.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "task deleted successfully", nil)
}

// ShareTask handles POST /api/tasks/:id/share.
func (h *TaskHandler) ShareTask(c *gin.Context) {
	var req ShareTaskRequest
	if err := bindStrict(c, &req); err != nil {
		response.Fail(c, h.logger, err)
		return
	}
	if req.Email == "" {
		response.Fail(c, h.logger, apperr.InvalidArgument("email is required"))
		return
	}

	task, err := h.taskUsecase.Share(c.Request.Context(), actorFrom(c), c.Param("id"), req.Email, req.Permission)
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "task shared successfully", task)
}

// RemoveShare handles DELETE /api/tasks/:id/share/:userId.
func (h *TaskHandler) RemoveShare(c *gin.Context) {
	task, err := h.taskUsecase.Unshare(c.Request.Context(), actorFrom(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "task sharing removed successfully", task)
}

// TaskStats handles GET /api/tasks/stats.
func (h *TaskHandler) TaskStats(c *gin.Context) {
	stats, err := h.taskUsecase.Stats(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Fail(c, h.logger, err)
		return
	}

	response.OK(c, http.StatusOK, "", stats)
}
