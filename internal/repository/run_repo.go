package repository

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/fyerfyer/claim-check-system/internal/database"
	"github.com/fyerfyer/claim-check-system/internal/models"
	"gorm.io/gorm"
)

// RunRepository 校验运行仓储接口
type RunRepository interface {
	// Create 创建运行记录
	Create(run *models.ValidationRun) error

	// Update 更新运行记录
	Update(run *models.ValidationRun) error

	// GetByID 按ID获取运行记录
	GetByID(id string) (*models.ValidationRun, error)

	// List 按创建时间倒序分页列出运行记录
	List(offset, limit int) ([]*models.ValidationRun, int64, error)

	// MarkCompleted 记录运行完成及其汇总结果
	MarkCompleted(id string, summary *models.Summary) error

	// MarkFailed 记录运行失败及错误信息
	MarkFailed(id string, errMsg string) error
}

// runRepository 校验运行仓储实现
type runRepository struct {
	db *gorm.DB // 数据库连接
}

// NewRunRepository 创建校验运行仓储实例
func NewRunRepository() RunRepository {
	return &runRepository{db: database.MustDB()}
}

// NewRunRepositoryWithDB 使用指定的数据库连接创建仓储实例
func NewRunRepositoryWithDB(db *gorm.DB) RunRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &runRepository{db: db}
}

// Create 创建运行记录
func (r *runRepository) Create(run *models.ValidationRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	return r.db.Create(run).Error
}

// Update 更新运行记录
func (r *runRepository) Update(run *models.ValidationRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	return r.db.Save(run).Error
}

// GetByID 按ID获取运行记录
func (r *runRepository) GetByID(id string) (*models.ValidationRun, error) {
	var run models.ValidationRun
	err := r.db.Where("id = ?", id).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrRunNotFound
		}
		return nil, err
	}
	return &run, nil
}

// List 按创建时间倒序分页列出运行记录
func (r *runRepository) List(offset, limit int) ([]*models.ValidationRun, int64, error) {
	var runs []*models.ValidationRun
	var total int64

	if err := r.db.Model(&models.ValidationRun{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, 0, err
	}
	return runs, total, nil
}

// MarkCompleted 记录运行完成及其汇总结果
func (r *runRepository) MarkCompleted(id string, summary *models.Summary) error {
	counts, err := json.Marshal(map[string]int{
		"green":  summary.GreenCount,
		"yellow": summary.YellowCount,
		"red":    summary.RedCount,
	})
	if err != nil {
		return err
	}

	now := time.Now()
	return r.db.Model(&models.ValidationRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":         models.RunStatusCompleted,
			"total_findings": summary.TotalFindings,
			"counts":         counts,
			"report_path":    summary.ReportPath,
			"annotated_path": summary.AnnotatedPath,
			"snippet_path":   summary.SnippetPath,
			"completed_at":   &now,
			"updated_at":     now,
		}).Error
}

// MarkFailed 记录运行失败及错误信息
func (r *runRepository) MarkFailed(id string, errMsg string) error {
	now := time.Now()
	return r.db.Model(&models.ValidationRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     models.RunStatusFailed,
			"error":      errMsg,
			"updated_at": now,
		}).Error
}
