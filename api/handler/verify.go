package handler

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/fyerfyer/claim-check-system/api/middleware"
	"github.com/fyerfyer/claim-check-system/api/model"
	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/fyerfyer/claim-check-system/internal/services"
	"github.com/fyerfyer/claim-check-system/pkg/storage"
	"github.com/fyerfyer/claim-check-system/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// VerifyHandler 处理文档校验相关的API请求
type VerifyHandler struct {
	verifyService *services.VerifyService // 校验服务
	fileStorage   storage.Storage         // 文件存储服务
	outputBaseURL string                  // 产物下载基址
	logger        *logrus.Logger          // 日志记录器
}

// NewVerifyHandler 创建新的校验处理器
func NewVerifyHandler(verifyService *services.VerifyService, fileStorage storage.Storage, outputBaseURL string) *VerifyHandler {
	if outputBaseURL == "" {
		outputBaseURL = "/outputs"
	}
	return &VerifyHandler{
		verifyService: verifyService,
		fileStorage:   fileStorage,
		outputBaseURL: strings.TrimSuffix(outputBaseURL, "/"),
		logger:        middleware.GetLogger(),
	}
}

// Verify 处理文档校验请求
// POST /api/verify
func (h *VerifyHandler) Verify(c *gin.Context) {
	var req model.VerifyRequest
	if err := c.ShouldBind(&req); err != nil {
		h.logger.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("Invalid verify request")

		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"无效的请求参数",
		))
		return
	}

	if req.File == nil {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"未提供文件",
		))
		return
	}

	// 检查文件类型
	filename := req.File.Filename
	ext := strings.ToLower(filepath.Ext(filename))
	if !isValidFileType(ext) {
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的文件类型，仅支持 .pptx, .docx",
		))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to open uploaded file")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"无法打开上传的文件",
		))
		return
	}
	defer file.Close()

	// 保存文件到存储
	fileInfo, err := h.fileStorage.Save(file, filename)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":    err.Error(),
			"filename": filename,
		}).Error("Failed to save file")

		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"保存文件失败",
		))
		return
	}

	h.logger.WithFields(logrus.Fields{
		"file_id":  fileInfo.ID,
		"filename": fileInfo.Name,
		"path":     fileInfo.Path,
		"size":     fileInfo.Size,
	}).Info("File uploaded successfully")

	// 异步模式：任务入队后立即返回任务ID
	if req.Async {
		taskID, err := h.verifyService.ValidateAsync(c.Request.Context(), fileInfo.Path, filename)
		if err != nil {
			h.logger.WithFields(logrus.Fields{
				"error":    err.Error(),
				"filename": filename,
			}).Error("Failed to enqueue validation task")

			c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
				http.StatusInternalServerError,
				"创建校验任务失败",
			))
			return
		}

		resp := model.AsyncVerifyResponse{
			TaskID:   taskID,
			FileName: filename,
			Status:   string(taskqueue.StatusPending),
		}
		c.JSON(http.StatusAccepted, model.NewSuccessResponse(resp))
		return
	}

	// 同步模式：直接执行校验并返回汇总结果
	summary, err := h.verifyService.Validate(c.Request.Context(), fileInfo.Path, filename)
	if err != nil {
		h.handleValidateError(c, filename, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(h.buildVerifyResponse(summary)))
}

// handleValidateError 将校验错误映射为对应的HTTP响应
func (h *VerifyHandler) handleValidateError(c *gin.Context, filename string, err error) {
	h.logger.WithFields(logrus.Fields{
		"error":    err.Error(),
		"filename": filename,
	}).Error("Document validation failed")

	switch {
	case errors.Is(err, models.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, model.NewErrorResponse(
			http.StatusBadRequest,
			"不支持的文件类型，仅支持 .pptx, .docx",
		))
	default:
		c.JSON(http.StatusInternalServerError, model.NewErrorResponse(
			http.StatusInternalServerError,
			"文档校验失败",
		))
	}
}

// buildVerifyResponse 根据校验汇总构建响应
// 产物路径转换为可下载的URL
func (h *VerifyHandler) buildVerifyResponse(summary *models.Summary) model.VerifyResponse {
	return model.VerifyResponse{
		RunID:         summary.RunID,
		FileName:      summary.FileName,
		TotalFindings: summary.TotalFindings,
		GreenCount:    summary.GreenCount,
		YellowCount:   summary.YellowCount,
		RedCount:      summary.RedCount,
		ReportURL:     h.artifactURL(summary.RunID, summary.ReportPath),
		AnnotatedURL:  h.artifactURL(summary.RunID, summary.AnnotatedPath),
		SnippetURL:    h.artifactURL(summary.RunID, summary.SnippetPath),
	}
}

// artifactURL 拼接产物的下载地址
func (h *VerifyHandler) artifactURL(runID, path string) string {
	return h.outputBaseURL + "/" + runID + "/" + filepath.Base(path)
}

// isValidFileType 检查文件类型是否有效
func isValidFileType(ext string) bool {
	validTypes := map[string]bool{
		".pptx": true,
		".docx": true,
	}
	return validTypes[ext]
}
