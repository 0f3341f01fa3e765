package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fyerfyer/claim-check-system/internal/annotate"
	"github.com/fyerfyer/claim-check-system/internal/document"
	"github.com/fyerfyer/claim-check-system/internal/evidence"
	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/fyerfyer/claim-check-system/internal/pipeline"
	"github.com/fyerfyer/claim-check-system/internal/report"
	"github.com/fyerfyer/claim-check-system/internal/repository"
	"github.com/fyerfyer/claim-check-system/pkg/storage"
	"github.com/fyerfyer/claim-check-system/pkg/taskqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// VerifyService 文档校验服务
// 负责协调文本提取、引用检测、证据比对和产物生成
type VerifyService struct {
	storage        storage.Storage          // 文件存储服务
	retriever      evidence.Retriever       // 证据检索器
	repo           repository.RunRepository // 运行记录仓储
	taskQueue      taskqueue.Queue          // 任务队列
	asyncEnabled   bool                     // 是否启用异步处理
	outputDir      string                   // 产物输出目录
	snippetBaseURL string                   // 摘录页的外部访问基址
	workers        int                      // 检索并发数
	excerptLimit   int                      // 证据摘录字符上限
	timeout        time.Duration            // 处理超时时间
	logger         *logrus.Logger           // 日志记录器
}

// VerifyOption 校验服务配置选项
type VerifyOption func(*VerifyService)

// NewVerifyService 创建文档校验服务
func NewVerifyService(store storage.Storage, retriever evidence.Retriever, opts ...VerifyOption) *VerifyService {
	srv := &VerifyService{
		storage:      store,
		retriever:    retriever,
		outputDir:    "outputs",
		workers:      4,
		excerptLimit: pipeline.DefaultExcerptLimit,
		timeout:      time.Minute * 5,
		logger:       logrus.New(),
		asyncEnabled: false,
	}

	for _, opt := range opts {
		opt(srv)
	}

	return srv
}

// WithOutputDir 设置产物输出目录
func WithOutputDir(dir string) VerifyOption {
	return func(s *VerifyService) {
		if dir != "" {
			s.outputDir = dir
		}
	}
}

// WithSnippetBaseURL 设置摘录页的外部访问基址
// 批注副本中的超链接将指向该地址下的锚点
func WithSnippetBaseURL(baseURL string) VerifyOption {
	return func(s *VerifyService) {
		s.snippetBaseURL = baseURL
	}
}

// WithWorkers 设置检索并发数
func WithWorkers(n int) VerifyOption {
	return func(s *VerifyService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithExcerptLimit 设置证据摘录字符上限
func WithExcerptLimit(limit int) VerifyOption {
	return func(s *VerifyService) {
		if limit > 0 {
			s.excerptLimit = limit
		}
	}
}

// WithTimeout 设置处理超时时间
func WithTimeout(timeout time.Duration) VerifyOption {
	return func(s *VerifyService) {
		s.timeout = timeout
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) VerifyOption {
	return func(s *VerifyService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunRepository 设置运行记录仓储
func WithRunRepository(repo repository.RunRepository) VerifyOption {
	return func(s *VerifyService) {
		s.repo = repo
	}
}

// WithTaskQueue 设置任务队列
func WithTaskQueue(queue taskqueue.Queue) VerifyOption {
	return func(s *VerifyService) {
		s.taskQueue = queue
		s.asyncEnabled = queue != nil
	}
}

// Init 初始化校验服务，确保必要的依赖都已设置
func (s *VerifyService) Init() error {
	if s.repo == nil {
		s.repo = repository.NewRunRepository()
	}
	return nil
}

// Validate 校验文档(提取、检测、比对、产出批注副本/摘录页/报告)
// filePath是存储层中的文件路径，fileName是原始文件名
func (s *VerifyService) Validate(ctx context.Context, filePath string, fileName string) (*models.Summary, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}

	if filePath == "" {
		return nil, errors.New("filePath cannot be empty")
	}
	if fileName == "" {
		fileName = filepath.Base(filePath)
	}

	// 提前做格式检查，不支持的格式直接拒绝
	format := document.DetectFormat(fileName)
	if format == document.FormatUnknown {
		return nil, models.ErrUnsupportedFormat
	}

	runID := uuid.New().String()
	run := &models.ValidationRun{
		ID:       runID,
		FileName: fileName,
		FileType: string(format),
		Status:   models.RunStatusProcessing,
	}
	if err := s.repo.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"file_name": fileName,
		"file_path": filePath,
	}).Info("Starting document validation")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.validate(ctx, runID, filePath, fileName, format)
	if err != nil {
		s.failRun(runID, err)
		return nil, err
	}

	if err := s.repo.MarkCompleted(runID, summary); err != nil {
		s.logger.WithError(err).WithField("run_id", runID).Error("Failed to mark run as completed")
		// 产物已生成，状态更新失败不影响返回结果
	}

	s.logger.WithFields(logrus.Fields{
		"run_id":         runID,
		"total_findings": summary.TotalFindings,
		"green":          summary.GreenCount,
		"yellow":         summary.YellowCount,
		"red":            summary.RedCount,
	}).Info("Document validation completed")

	return summary, nil
}

// validate 执行实际的校验流程
func (s *VerifyService) validate(ctx context.Context, runID, filePath, fileName string, format document.Format) (*models.Summary, error) {
	// 将存储中的文件落地为本地临时文件，OOXML适配器需要按路径读取
	localPath, cleanup, err := s.materialize(filePath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to load document from storage: %w", err)
	}
	defer cleanup()

	adapter, err := document.AdapterFactory(fileName, s.logger)
	if err != nil {
		return nil, err
	}

	blocks, err := adapter.ExtractBlocks(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text blocks: %w", err)
	}

	// 运行检测与比对流水线；没有文本的文档产出零条结果，但三个产物照常生成
	p := pipeline.New(s.retriever,
		pipeline.WithWorkers(s.workers),
		pipeline.WithExcerptLimit(s.excerptLimit),
		pipeline.WithLogger(s.logger),
	)
	findings := p.Run(ctx, blocks)

	// 生成产物目录
	outDir := filepath.Join(s.outputDir, runID)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// 摘录页，批注副本中的超链接指向页内锚点
	snippetPath := filepath.Join(outDir, "snippets.html")
	snippetRef := s.snippetBaseURL
	if snippetRef == "" {
		snippetRef = "snippets.html"
	} else {
		snippetRef = strings.TrimSuffix(snippetRef, "/") + "/" + runID + "/snippets.html"
	}
	pipeline.AssignSnippetURLs(findings, func(position int) string {
		return annotate.SnippetAnchorURL(snippetRef, position)
	})
	if err := annotate.WriteSnippetPage(snippetPath, findings); err != nil {
		return nil, fmt.Errorf("failed to write snippet page: %w", err)
	}

	// 批注副本
	annotatedPath := filepath.Join(outDir, "annotated"+filepath.Ext(fileName))
	if err := adapter.RenderAnnotated(localPath, annotatedPath, findings); err != nil {
		return nil, fmt.Errorf("failed to render annotated copy: %w", err)
	}

	// PDF报告
	reportPath := filepath.Join(outDir, "report.pdf")
	if err := report.Write(reportPath, fileName, findings); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}

	green, yellow, red := models.CountByClass(findings)
	return &models.Summary{
		RunID:         runID,
		FileName:      fileName,
		TotalFindings: len(findings),
		GreenCount:    green,
		YellowCount:   yellow,
		RedCount:      red,
		ReportPath:    reportPath,
		AnnotatedPath: annotatedPath,
		SnippetPath:   snippetPath,
	}, nil
}

// GetRun 获取校验运行记录
func (s *VerifyService) GetRun(ctx context.Context, runID string) (*models.ValidationRun, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s.repo.GetByID(runID)
}

// ListRuns 分页列出校验运行记录
func (s *VerifyService) ListRuns(ctx context.Context, offset, limit int) ([]*models.ValidationRun, int64, error) {
	if err := s.Init(); err != nil {
		return nil, 0, err
	}
	return s.repo.List(offset, limit)
}

// materialize 将存储中的文件复制为本地临时文件
// 返回本地路径和清理函数
func (s *VerifyService) materialize(filePath, fileName string) (string, func(), error) {
	reader, err := s.storage.Get(filePath)
	if err != nil {
		return "", nil, err
	}
	defer reader.Close()

	tmp, err := os.CreateTemp("", "claimcheck-*"+filepath.Ext(fileName))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}

	path := tmp.Name()
	return path, func() { os.Remove(path) }, nil
}

// failRun 将运行记录标记为失败状态
func (s *VerifyService) failRun(runID string, cause error) {
	if err := s.repo.MarkFailed(runID, cause.Error()); err != nil {
		s.logger.WithFields(logrus.Fields{
			"run_id": runID,
			"error":  err,
		}).Error("Failed to mark run as failed")
	}
}

// GetTaskQueue 返回任务队列实例
func (s *VerifyService) GetTaskQueue() taskqueue.Queue {
	return s.taskQueue
}
