package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
	"taskkeeper/internal/service"
	"taskkeeper/internal/storage"
)

type createTaskRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description"`
	Priority    int                `json:"priority"`
	Status      *domain.TaskStatus `json:"status"`
}

// updateTaskRequest uses pointers so absent or null fields stay untouched.
type updateTaskRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Priority    *int               `json:"priority"`
	Status      *domain.TaskStatus `json:"status"`
}

type TaskResponse struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status"`
	Priority    int               `json:"priority"`
	CreatedAt   string            `json:"created_at"`
	OwnerID     int64             `json:"owner_id"`
}

type ExportResponse struct {
	Key       string `json:"key"`
	Location  string `json:"location"`
	URL       string `json:"url,omitempty"`
	Count     int    `json:"count"`
	CreatedAt string `json:"created_at"`
}

type ExportObjectResponse struct {
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified,omitempty"`
}

func (h *Handler) createTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	input := service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	}
	if req.Status != nil {
		input.Status = *req.Status
	}

	task, err := h.tasks.CreateTask(c.Request.Context(), currentUser(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}

func (h *Handler) getTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(c.Request.Context(), currentUser(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}

func (h *Handler) updateTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := repository.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Status:      req.Status,
	}
	task, err := h.tasks.UpdateTask(c.Request.Context(), currentUser(c), id, patch)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, taskToResponse(task))
}

func (h *Handler) deleteTask(c *gin.Context) {
	id, ok := taskIDParam(c)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(c.Request.Context(), currentUser(c), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

func (h *Handler) listTasks(c *gin.Context) {
	filter, err := parseTaskFilter(c)
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, err.Error())
		return
	}

	tasks, err := h.tasks.ListTasks(c.Request.Context(), currentUser(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) searchTasks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		abortWithDetail(c, http.StatusBadRequest, "query parameter q is required")
		return
	}

	tasks, err := h.tasks.SearchTasks(c.Request.Context(), currentUser(c), query)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, tasksToResponse(tasks))
}

func (h *Handler) exportTasks(c *gin.Context) {
	user := currentUser(c)
	export, err := h.exports.Export(c.Request.Context(), user)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).WithField("key", export.Key).Info("tasks exported")
	c.JSON(http.StatusOK, ExportResponse{
		Key:       export.Key,
		Location:  export.Location,
		URL:       export.URL,
		Count:     export.Count,
		CreatedAt: export.CreatedAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) listExports(c *gin.Context) {
	objects, err := h.exports.ListExports(c.Request.Context(), currentUser(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, objectsToResponse(objects))
}

func (h *Handler) deleteExports(c *gin.Context) {
	if err := h.exports.DeleteExports(c.Request.Context(), currentUser(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func taskIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("task_id"), 10, 64)
	if err != nil {
		abortWithDetail(c, http.StatusBadRequest, "task_id must be an integer")
		return 0, false
	}
	return id, true
}

func parseTaskFilter(c *gin.Context) (repository.TaskFilter, error) {
	var filter repository.TaskFilter

	if raw, ok := c.GetQuery("status"); ok {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}
	if raw, ok := c.GetQuery("priority"); ok {
		priority, err := strconv.Atoi(raw)
		if err != nil {
			return filter, errors.New("priority must be an integer")
		}
		filter.Priority = &priority
	}
	if raw, ok := c.GetQuery("created_from"); ok {
		from, err := parseQueryTime(raw)
		if err != nil {
			return filter, errors.New("created_from must be an ISO 8601 datetime or YYYY-MM-DD")
		}
		filter.CreatedFrom = &from
	}
	if raw, ok := c.GetQuery("created_to"); ok {
		to, err := parseQueryTime(raw)
		if err != nil {
			return filter, errors.New("created_to must be an ISO 8601 datetime or YYYY-MM-DD")
		}
		filter.CreatedTo = &to
	}

	return filter, nil
}

// queryTimeLayouts are tried in order. Layouts without an offset are read as
// UTC, which is how created_at is stored.
var queryTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.DateOnly,
}

func parseQueryTime(raw string) (time.Time, error) {
	var err error
	for _, layout := range queryTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func taskToResponse(task *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		CreatedAt:   task.CreatedAt.UTC().Format(time.RFC3339Nano),
		OwnerID:     task.OwnerID,
	}
}

func tasksToResponse(tasks []domain.Task) []TaskResponse {
	resp := make([]TaskResponse, 0, len(tasks))
	for i := range tasks {
		resp = append(resp, taskToResponse(&tasks[i]))
	}
	return resp
}

func objectsToResponse(objects []storage.ObjectInfo) []ExportObjectResponse {
	resp := make([]ExportObjectResponse, 0, len(objects))
	for _, obj := range objects {
		item := ExportObjectResponse{Key: obj.Key, Size: obj.Size}
		if obj.LastModified != nil {
			item.LastModified = obj.LastModified.UTC().Format(time.RFC3339)
		}
		resp = append(resp, item)
	}
	return resp
}
