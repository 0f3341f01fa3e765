package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fyerfyer/claim-check-system/internal/models"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Result 证据获取结果
// Text为空表示没有获取到证据
type Result struct {
	Text        string // 证据文本（标题+摘要），可能包含标记残留
	ResolvedDOI string // 作者-年份检索解析出的DOI（如果有）
}

// Retriever 证据获取器接口
// 根据引用类型从外部文献服务获取证据文本
type Retriever interface {
	// Fetch 获取一条引用的证据文本
	// 网络错误、超时、非2xx响应和空载荷都视为"无证据"，返回空Result
	Fetch(ctx context.Context, ref models.Citation) (Result, error)
}

// Config 证据获取器配置
type Config struct {
	PubMedEndpoint   string        // PubMed efetch端点
	CrossrefEndpoint string        // Crossref works端点
	SearchEndpoint   string        // Crossref检索端点
	Timeout          time.Duration // 单次请求超时时间
	CacheTTL         time.Duration // 响应缓存过期时间
	RatePerSecond    float64       // 每个服务主机的请求速率上限
	UserAgent        string        // 请求User-Agent
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		PubMedEndpoint:   "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi",
		CrossrefEndpoint: "https://api.crossref.org/works/",
		SearchEndpoint:   "https://api.crossref.org/works",
		Timeout:          15 * time.Second,
		CacheTTL:         time.Hour,
		RatePerSecond:    2,
		UserAgent:        "claim-check-system/1.0",
	}
}

// Option 配置选项函数类型
type Option func(*Config)

// WithTimeout 设置单次请求超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		if timeout > 0 {
			c.Timeout = timeout
		}
	}
}

// WithPubMedEndpoint 设置PubMed端点
func WithPubMedEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.PubMedEndpoint = endpoint
	}
}

// WithCrossrefEndpoint 设置Crossref works端点
func WithCrossrefEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.CrossrefEndpoint = endpoint
	}
}

// WithSearchEndpoint 设置Crossref检索端点
func WithSearchEndpoint(endpoint string) Option {
	return func(c *Config) {
		c.SearchEndpoint = endpoint
	}
}

// WithCacheTTL 设置响应缓存过期时间
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// WithRateLimit 设置每个服务主机的请求速率上限
func WithRateLimit(perSecond float64) Option {
	return func(c *Config) {
		if perSecond > 0 {
			c.RatePerSecond = perSecond
		}
	}
}

// HTTPRetriever 基于HTTP的证据获取器实现
type HTTPRetriever struct {
	cfg     *Config
	client  *http.Client
	cache   *gocache.Cache
	limiter *hostLimiter
	logger  *logrus.Logger
}

// NewHTTPRetriever 创建HTTP证据获取器
func NewHTTPRetriever(logger *logrus.Logger, opts ...Option) *HTTPRetriever {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &HTTPRetriever{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		cache:   gocache.New(cfg.CacheTTL, 10*time.Minute),
		limiter: newHostLimiter(cfg.RatePerSecond),
		logger:  logger,
	}
}

// Fetch 按引用类型分派到对应的文献服务
func (r *HTTPRetriever) Fetch(ctx context.Context, ref models.Citation) (Result, error) {
	cacheKey := string(ref.Kind) + ":" + strings.ToLower(ref.ID)
	if cached, found := r.cache.Get(cacheKey); found {
		if res, ok := cached.(Result); ok {
			return res, nil
		}
	}

	var res Result
	var err error
	switch ref.Kind {
	case models.KindPMID:
		res.Text, err = r.fetchPubMed(ctx, ref.ID)
	case models.KindDOI:
		res.Text, err = r.fetchCrossrefDOI(ctx, ref.ID)
	case models.KindAuthorYear:
		res, err = r.searchCrossref(ctx, ref.ID)
	default:
		return Result{}, nil
	}

	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"kind":  ref.Kind,
			"id":    ref.ID,
			"error": err.Error(),
		}).Debug("Evidence retrieval failed, treating as absent")
		return Result{}, err
	}

	r.cache.Set(cacheKey, res, gocache.DefaultExpiration)
	return res, nil
}

// fetchPubMed 通过efetch获取PMID对应文献的纯文本摘要
func (r *HTTPRetriever) fetchPubMed(ctx context.Context, pmid string) (string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("retmode", "text")
	params.Set("rettype", "abstract")

	body, err := r.get(ctx, r.cfg.PubMedEndpoint+"?"+params.Encode())
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return "", fmt.Errorf("empty abstract for pmid %s", pmid)
	}
	return text, nil
}

// crossrefWork Crossref works响应中的message字段
type crossrefWork struct {
	Title    []string `json:"title"`
	Abstract string   `json:"abstract"`
	DOI      string   `json:"DOI"`
}

// fetchCrossrefDOI 通过Crossref获取DOI对应文献的标题和摘要
// DOI作为单个路径段拼在works端点后，端点带不带尾部斜杠都能拼出正确路径
func (r *HTTPRetriever) fetchCrossrefDOI(ctx context.Context, doi string) (string, error) {
	body, err := r.get(ctx, strings.TrimSuffix(r.cfg.CrossrefEndpoint, "/")+"/"+url.PathEscape(doi))
	if err != nil {
		return "", err
	}

	var resp struct {
		Message crossrefWork `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to parse crossref response: %w", err)
	}

	text := strings.TrimSpace(strings.Join(resp.Message.Title, " ") + "\n" + resp.Message.Abstract)
	if text == "" {
		return "", fmt.Errorf("crossref work %s has no title or abstract", doi)
	}
	return text, nil
}

// searchCrossref 作者-年份引用的尽力解析
// 用原始引用文本做相关性检索，取首条结果的标题和摘要
func (r *HTTPRetriever) searchCrossref(ctx context.Context, query string) (Result, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("rows", "1")

	body, err := r.get(ctx, r.cfg.SearchEndpoint+"?"+params.Encode())
	if err != nil {
		return Result{}, err
	}

	var resp struct {
		Message struct {
			Items []crossrefWork `json:"items"`
		} `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{}, fmt.Errorf("failed to parse crossref search response: %w", err)
	}
	if len(resp.Message.Items) == 0 {
		return Result{}, fmt.Errorf("no search results for %q", query)
	}

	item := resp.Message.Items[0]
	text := strings.TrimSpace(strings.Join(item.Title, " ") + "\n" + item.Abstract)
	if text == "" {
		return Result{}, fmt.Errorf("top search result for %q has no text", query)
	}
	return Result{Text: text, ResolvedDOI: item.DOI}, nil
}

// get 发起GET请求并读取响应体
// 请求前按目标主机限速，带超时上下文
func (r *HTTPRetriever) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	if u, err := url.Parse(rawURL); err == nil {
		if err := r.limiter.Wait(ctx, u.Host); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return io.ReadAll(resp.Body)
}

// EvidenceURL 推导引用对应的证据来源链接
// DOI指向doi解析器，PMID指向PubMed文章页；
// 作者-年份只有在检索解析出DOI时才有链接
func EvidenceURL(ref models.Citation, resolvedDOI string) string {
	switch ref.Kind {
	case models.KindDOI:
		return "https://doi.org/" + ref.ID
	case models.KindPMID:
		return "https://pubmed.ncbi.nlm.nih.gov/" + ref.ID + "/"
	case models.KindAuthorYear:
		if resolvedDOI != "" {
			return "https://doi.org/" + resolvedDOI
		}
	}
	return ""
}
