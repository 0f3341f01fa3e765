package pipeline

import (
	"context"
	"strings"

	"github.com/fyerfyer/claim-check-system/internal/citation"
	"github.com/fyerfyer/claim-check-system/internal/evidence"
	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/fyerfyer/claim-check-system/internal/similarity"
	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
)

// DefaultExcerptLimit 证据摘录的默认字符预算
const DefaultExcerptLimit = 800

// Pipeline 证据校验流水线
// 驱动检测器、获取器和评分器，把文本块变成有序的校验结果列表
type Pipeline struct {
	detector     *citation.Detector
	retriever    evidence.Retriever
	workers      int
	excerptLimit int
	logger       *logrus.Logger
}

// Option 流水线配置选项
type Option func(*Pipeline)

// WithWorkers 设置证据获取的并行度
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithExcerptLimit 设置证据摘录的字符预算
func WithExcerptLimit(limit int) Option {
	return func(p *Pipeline) {
		if limit > 0 {
			p.excerptLimit = limit
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New 创建校验流水线
func New(retriever evidence.Retriever, opts ...Option) *Pipeline {
	p := &Pipeline{
		detector:     citation.NewDetector(),
		retriever:    retriever,
		workers:      4,
		excerptLimit: DefaultExcerptLimit,
		logger:       logrus.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// retrievalJob 一次证据获取任务
// 位置由(块, 块内检测序号)决定，发布顺序与完成顺序无关
type retrievalJob struct {
	block models.TextBlock
	ref   models.Citation
}

// Run 对文本块序列执行校验
// 跳过空白块，对每个(块, 引用)组合获取证据并评分；
// 证据获取并行执行，但结果严格按块序-检测序的规范顺序发布。
// 单条引用的获取失败降级为无证据（得分0，红色），不中断其余处理
func (p *Pipeline) Run(ctx context.Context, blocks []models.TextBlock) []models.Finding {
	// 先按规范顺序铺开所有任务
	var jobs []retrievalJob
	for _, block := range blocks {
		if strings.TrimSpace(block.Text) == "" {
			continue
		}
		for _, ref := range p.detector.Detect(block.Text) {
			jobs = append(jobs, retrievalJob{block: block, ref: ref})
		}
	}
	if len(jobs) == 0 {
		return []models.Finding{}
	}

	// 并行获取证据，结果按任务下标落位，发布顺序不受完成顺序影响
	results := make([]evidence.Result, len(jobs))
	wp := workerpool.New(p.workers)
	for i, job := range jobs {
		i, job := i, job
		wp.Submit(func() {
			res, err := p.retriever.Fetch(ctx, job.ref)
			if err != nil {
				p.logger.WithFields(logrus.Fields{
					"block":    job.block.Index,
					"citation": job.ref.Raw,
					"error":    err.Error(),
				}).Debug("Evidence absent for citation")
				return
			}
			results[i] = res
		})
	}
	wp.StopWait()

	findings := make([]models.Finding, 0, len(jobs))
	for i, job := range jobs {
		res := results[i]
		score, class := similarity.ScoreAndClassify(job.block.Text, res.Text)
		findings = append(findings, models.Finding{
			BlockIndex:      job.block.Index,
			ClaimText:       job.block.Text,
			CitationRaw:     job.ref.Raw,
			Score:           score,
			Classification:  class,
			EvidenceExcerpt: truncate(res.Text, p.excerptLimit),
			EvidenceURL:     evidence.EvidenceURL(job.ref, res.ResolvedDOI),
		})
	}
	return findings
}

// AssignSnippetURLs 在摘录页路径确定后填充每条结果的锚点链接
// 锚点编号等于结果在规范顺序中的1-based位置
func AssignSnippetURLs(findings []models.Finding, snippetURL func(position int) string) {
	for i := range findings {
		findings[i].SnippetURL = snippetURL(i + 1)
	}
}

// truncate 按字符预算截断文本
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
