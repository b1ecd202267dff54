package handlers

import (
	"errors"
	"log"
	"net/http"

	"task-tracker/server/internal/middleware"
	"task-tracker/server/internal/models"
	"task-tracker/server/internal/services"
	"task-tracker/server/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type TaskHandler struct {
	db          *gorm.DB
	taskService services.TaskService
	jobs        *worker.JobQueue
}

func NewTaskHandler(db *gorm.DB, taskService services.TaskService, jobs *worker.JobQueue) *TaskHandler {
	return &TaskHandler{db: db, taskService: taskService, jobs: jobs}
}

type createTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

type updateTaskRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	Status      *string `json:"status" binding:"omitempty,oneof=pending in-progress completed"`
	Priority    *string `json:"priority" binding:"omitempty,oneof=low medium high"`
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	task := models.Task{
		ID:          uuid.Must(uuid.NewV4()),
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	created, err := h.taskService.CreateTask(h.db, task)
	if err != nil {
		log.Printf("create task failed: %v", err)
		respondInternal(c)
		return
	}

	if h.jobs != nil && created.Priority == models.PriorityHigh {
		h.jobs.Enqueue("notifications", worker.JobTypeTaskReminder, map[string]interface{}{
			"task_id": created.ID.String(),
			"user_id": userID.String(),
			"title":   created.Title,
		})
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "task": created})
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Not authenticated")
		return
	}

	filter := services.TaskFilter{
		Status: c.Query("status"),
		Search: c.Query("search"),
	}

	tasks, err := h.taskService.ListTasks(h.db, userID, filter)
	if err != nil {
		log.Printf("list tasks failed: %v", err)
		respondInternal(c)
		return
	}

	if tasks == nil {
		tasks = []models.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"result": "success",
		"count":  len(tasks),
		"tasks":  tasks,
	})
}

// resolveOwnedTask looks up the task and enforces ownership: a missing
// record is 404, someone else's record is 403. It writes the response
// on failure.
func (h *TaskHandler) resolveOwnedTask(c *gin.Context) (models.Task, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "Not authenticated")
		return models.Task{}, false
	}

	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		respondFail(c, http.StatusNotFound, "Task not found")
		return models.Task{}, false
	}

	task, err := h.taskService.GetTaskByID(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondFail(c, http.StatusNotFound, "Task not found")
			return models.Task{}, false
		}
		log.Printf("get task failed: %v", err)
		respondInternal(c)
		return models.Task{}, false
	}

	if task.UserID != userID {
		respondFail(c, http.StatusForbidden, "Not authorized")
		return models.Task{}, false
	}

	return task, true
}

func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, ok := h.resolveOwnedTask(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "task": task})
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := h.resolveOwnedTask(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindingError(c, err)
		return
	}

	patch := services.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
	}

	updated, err := h.taskService.UpdateTask(h.db, task.ID, patch)
	if err != nil {
		log.Printf("update task failed: %v", err)
		respondInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "task": updated})
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := h.resolveOwnedTask(c)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(h.db, task.ID); err != nil {
		log.Printf("delete task failed: %v", err)
		respondInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "success", "msg": "Task removed"})
}
