package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/learncard/internal/auth"
	"github.com/mrlokans/learncard/internal/tasks"
)

// TasksController lets users push their progress on demand and follow
// the task.
type TasksController struct {
	client *tasks.Client
}

func NewTasksController(client *tasks.Client) *TasksController {
	return &TasksController{client: client}
}

// TaskTypeInfo describes a task users may trigger.
type TaskTypeInfo struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

var runnableTasks = []TaskTypeInfo{
	{
		Type:        tasks.PushProgressTask{}.Config().Name,
		Description: "Save this device's progress to the server",
	},
}

// ListTaskTypes handles GET /api/tasks/types.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": runnableTasks})
}

// GetTaskStatus handles GET /api/tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

type runTaskRequest struct {
	Type string `json:"type" form:"type"`
}

// RunTask handles POST /api/tasks for the current user.
func (tc *TasksController) RunTask(c *gin.Context) {
	var req runTaskRequest
	if err := c.ShouldBind(&req); err != nil || req.Type == "" {
		respondBadRequest(c, "task type is required")
		return
	}
	taskType := req.Type

	var task backlite.Task
	switch taskType {
	case tasks.PushProgressTask{}.Config().Name:
		task = tasks.PushProgressTask{UserID: strconv.FormatUint(uint64(auth.GetUserID(c)), 10)}
	default:
		respondBadRequest(c, fmt.Sprintf("unknown task type: %s", taskType))
		return
	}

	ids, err := tc.client.Add(task).Ctx(c.Request.Context()).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue task")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"task_id": ids[0],
		"type":    taskType,
		"message": "task enqueued",
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
