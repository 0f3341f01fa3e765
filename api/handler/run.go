package handler

import (
	"errors"
	"net/http"

	"github.com/fyerfyer/claim-check-system/api/middleware"
	"github.com/fyerfyer/claim-check-system/api/model"
	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/fyerfyer/claim-check-system/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RunHandler 处理校验运行记录相关的API请求
type RunHandler struct {
	verifyService *services.VerifyService // 校验服务
	logger        *logrus.Logger          // 日志记录器
}

// NewRunHandler 创建新的运行记录处理器
func NewRunHandler(verifyService *services.VerifyService) *RunHandler {
	return &RunHandler{
		verifyService: verifyService,
		logger:        middleware.GetLogger(),
	}
}

// GetRun 查询校验运行记录
// GET /api/runs/:id
func (h *RunHandler) GetRun(c *gin.Context) {
	var req model.RunStatusRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的运行ID"))
		return
	}

	run, err := h.verifyService.GetRun(c.Request.Context(), req.ID)
	if err != nil {
		if errors.Is(err, models.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, model.NewErrorResponse(http.StatusNotFound, "未找到运行记录"))
			return
		}

		h.logger.WithFields(logrus.Fields{
			"error":  err.Error(),
			"run_id": req.ID,
		}).Error("Failed to get run")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取运行记录失败",
		))
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.ConvertToRunInfo(run)))
}

// ListRuns 分页列出校验运行记录
// GET /api/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	var req model.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(http.StatusBadRequest, "无效的查询参数"))
		return
	}

	page := req.GetPage()
	pageSize := req.GetPageSize()
	offset := (page - 1) * pageSize

	runs, total, err := h.verifyService.ListRuns(c.Request.Context(), offset, pageSize)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to list runs")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"获取运行列表失败",
		))
		return
	}

	resp := model.RunListResponse{
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Runs:     make([]model.RunInfo, 0, len(runs)),
	}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, model.ConvertToRunInfo(run))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(resp))
}
