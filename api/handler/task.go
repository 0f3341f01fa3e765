package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/fyerfyer/claim-check-system/api/middleware"
	"github.com/fyerfyer/claim-check-system/api/model"
	"github.com/fyerfyer/claim-check-system/internal/services"
	"github.com/fyerfyer/claim-check-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// TaskHandler 处理校验任务相关的API请求
type TaskHandler struct {
	verifyService *services.VerifyService // 校验服务
	logger        *logrus.Logger          // 日志记录器
}

// NewTaskHandler 创建新的任务处理器
func NewTaskHandler(verifyService *services.VerifyService) *TaskHandler {
	return &TaskHandler{
		verifyService: verifyService,
		logger:        middleware.GetLogger(),
	}
}

// GetTask 查询校验任务状态
// GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	var req model.TaskStatusRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的任务ID"))
		return
	}

	task, err := h.verifyService.GetTask(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "未找到任务"))
			return
		}

		h.logger.WithFields(logrus.Fields{
			"error":   err.Error(),
			"task_id": req.ID,
		}).Error("Failed to get task")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取任务状态失败",
		))
		return
	}

	resp := model.TaskStatusResponse{
		TaskID:    task.ID,
		Status:    string(task.Status),
		Error:     task.Error,
		Result:    task.Result,
		CreatedAt: task.CreatedAt.Format(time.RFC3339),
	}
	if task.StartedAt != nil {
		resp.StartedAt = task.StartedAt.Format(time.RFC3339)
	}
	if task.CompletedAt != nil {
		resp.CompletedAt = task.CompletedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}
