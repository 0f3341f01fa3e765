package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/claim-check-system/pkg/taskqueue"
	"github.com/sirupsen/logrus"
)

// ValidateAsync 异步校验文档
// 将校验任务加入队列并立即返回任务ID，结果通过任务状态查询获取
func (s *VerifyService) ValidateAsync(ctx context.Context, filePath string, fileName string) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	if !s.asyncEnabled || s.taskQueue == nil {
		return "", errors.New("async processing not enabled")
	}
	if filePath == "" {
		return "", errors.New("filePath cannot be empty")
	}

	payload := taskqueue.ValidatePayload{
		FilePath: filePath,
		FileName: fileName,
	}

	taskID, err := s.taskQueue.Enqueue(ctx, taskqueue.TaskValidateDocument, "", payload)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue validation task: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"task_id":   taskID,
		"file_name": fileName,
	}).Info("Validation task enqueued")

	return taskID, nil
}

// GetTask 获取校验任务信息
func (s *VerifyService) GetTask(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	if !s.asyncEnabled || s.taskQueue == nil {
		return nil, errors.New("async processing not enabled")
	}
	return s.taskQueue.GetTask(ctx, taskID)
}

// WaitForValidation 等待校验任务完成
func (s *VerifyService) WaitForValidation(ctx context.Context, taskID string, timeout time.Duration) (*taskqueue.Task, error) {
	if !s.asyncEnabled || s.taskQueue == nil {
		return nil, errors.New("async processing not enabled")
	}
	return s.taskQueue.WaitForTask(ctx, taskID, timeout)
}

// ValidateTaskHandler 文档校验任务处理器
// 由工作者进程调用，执行实际的校验流程
type ValidateTaskHandler struct {
	service *VerifyService
	logger  *logrus.Logger
}

// NewValidateTaskHandler 创建文档校验任务处理器
func NewValidateTaskHandler(service *VerifyService, logger *logrus.Logger) *ValidateTaskHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &ValidateTaskHandler{
		service: service,
		logger:  logger,
	}
}

// GetTaskTypes 返回此处理器支持的任务类型
func (h *ValidateTaskHandler) GetTaskTypes() []taskqueue.TaskType {
	return []taskqueue.TaskType{taskqueue.TaskValidateDocument}
}

// ProcessTask 处理校验任务
func (h *ValidateTaskHandler) ProcessTask(ctx context.Context, task *taskqueue.Task) error {
	var payload taskqueue.ValidatePayload
	if err := taskqueue.UnmarshalPayload(task.Payload, &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	h.logger.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"file_name": payload.FileName,
	}).Info("Processing validation task")

	summary, err := h.service.Validate(ctx, payload.FilePath, payload.FileName)
	if err != nil {
		return err
	}

	// 将校验结果写回任务记录
	result := taskqueue.ValidateResult{
		RunID:         summary.RunID,
		TotalFindings: summary.TotalFindings,
		GreenCount:    summary.GreenCount,
		YellowCount:   summary.YellowCount,
		RedCount:      summary.RedCount,
		ReportPath:    summary.ReportPath,
		AnnotatedPath: summary.AnnotatedPath,
		SnippetPath:   summary.SnippetPath,
	}
	if queue := h.service.GetTaskQueue(); queue != nil {
		if err := queue.UpdateTaskStatus(ctx, task.ID, taskqueue.StatusProcessing, result, ""); err != nil {
			h.logger.WithError(err).WithField("task_id", task.ID).Warn("Failed to attach result to task")
		}
	}

	return nil
}
