package evidence

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRetriever 创建指向测试服务器的获取器
func newTestRetriever(t *testing.T, handler http.Handler, opts ...Option) (*HTTPRetriever, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	base := []Option{
		WithPubMedEndpoint(server.URL + "/efetch"),
		WithCrossrefEndpoint(server.URL + "/works/"),
		WithSearchEndpoint(server.URL + "/works"),
		WithRateLimit(1000),
	}
	return NewHTTPRetriever(logger, append(base, opts...)...), server
}

// TestFetchPubMed 测试PMID摘要获取
func TestFetchPubMed(t *testing.T) {
	t.Run("successful fetch", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/efetch", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
			assert.Equal(t, "26422723", r.URL.Query().Get("id"))
			_, _ = w.Write([]byte("Adalimumab treatment resulted in significantly higher HiSCR rates."))
		})
		retriever, _ := newTestRetriever(t, mux)

		res, err := retriever.Fetch(context.Background(), models.Citation{
			Raw: "PMID:26422723", Kind: models.KindPMID, ID: "26422723",
		})
		require.NoError(t, err)
		assert.Contains(t, res.Text, "HiSCR rates")
	})

	t.Run("empty body is absent evidence", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/efetch", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("   \n"))
		})
		retriever, _ := newTestRetriever(t, mux)

		res, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindPMID, ID: "26422723",
		})
		assert.Error(t, err)
		assert.Empty(t, res.Text)
	})

	t.Run("server error is absent evidence", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/efetch", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		retriever, _ := newTestRetriever(t, mux)

		res, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindPMID, ID: "26422723",
		})
		assert.Error(t, err)
		assert.Empty(t, res.Text)
	})
}

// TestFetchCrossrefDOI 测试DOI元数据获取
func TestFetchCrossrefDOI(t *testing.T) {
	t.Run("title and abstract concatenated", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/works/", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"title":["Adalimumab for Hidradenitis Suppurativa"],"abstract":"<jats:p>Two phase 3 trials.</jats:p>","DOI":"10.1056/NEJMoa1504370"}}`))
		})
		retriever, _ := newTestRetriever(t, mux)

		res, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindDOI, ID: "10.1056/NEJMoa1504370",
		})
		require.NoError(t, err)
		assert.Contains(t, res.Text, "Adalimumab for Hidradenitis Suppurativa")
		assert.Contains(t, res.Text, "Two phase 3 trials", "摘要中的标记残留原样保留，由下游容忍")
	})

	t.Run("doi appended as single path segment", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.EscapedPath()
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"message":{"title":["Adalimumab for Hidradenitis Suppurativa"]}}`))
		}))
		t.Cleanup(server.Close)

		logger := logrus.New()
		logger.SetLevel(logrus.ErrorLevel)

		// 端点不带尾部斜杠时也必须拼出路径分隔符
		retriever := NewHTTPRetriever(logger,
			WithCrossrefEndpoint(server.URL+"/works"),
			WithRateLimit(1000),
		)

		_, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindDOI, ID: "10.1056/NEJMoa1504370",
		})
		require.NoError(t, err)
		assert.Equal(t, "/works/10.1056%2FNEJMoa1504370", gotPath,
			"DOI should be escaped into one path segment after the works endpoint")
	})

	t.Run("missing title and abstract is absent", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/works/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":{}}`))
		})
		retriever, _ := newTestRetriever(t, mux)

		_, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindDOI, ID: "10.1000/missing",
		})
		assert.Error(t, err)
	})
}

// TestSearchCrossref 测试作者-年份的尽力检索
func TestSearchCrossref(t *testing.T) {
	t.Run("top result with resolved doi", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/works", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Kimball et al. 2016", r.URL.Query().Get("query"))
			assert.Equal(t, "1", r.URL.Query().Get("rows"))
			_, _ = w.Write([]byte(`{"message":{"items":[{"title":["Two Phase 3 Trials of Adalimumab"],"abstract":"Background text.","DOI":"10.1056/NEJMoa1504370"}]}}`))
		})
		retriever, _ := newTestRetriever(t, mux)

		res, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindAuthorYear, ID: "Kimball et al. 2016",
		})
		require.NoError(t, err)
		assert.Contains(t, res.Text, "Two Phase 3 Trials")
		assert.Equal(t, "10.1056/NEJMoa1504370", res.ResolvedDOI)
	})

	t.Run("no results is absent", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/works", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"message":{"items":[]}}`))
		})
		retriever, _ := newTestRetriever(t, mux)

		_, err := retriever.Fetch(context.Background(), models.Citation{
			Kind: models.KindAuthorYear, ID: "Nobody 1999",
		})
		assert.Error(t, err)
	})
}

// TestFetchTimeout 测试请求超时降级为无证据
func TestFetchTimeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/efetch", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("too late"))
	})
	retriever, _ := newTestRetriever(t, mux, WithTimeout(50*time.Millisecond))

	res, err := retriever.Fetch(context.Background(), models.Citation{
		Kind: models.KindPMID, ID: "26422723",
	})
	assert.Error(t, err, "超时应该返回错误，由调用方降级为无证据")
	assert.Empty(t, res.Text)
}

// TestFetchCached 测试同一引用的响应缓存
func TestFetchCached(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/efetch", func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte("cached abstract text"))
	})
	retriever, _ := newTestRetriever(t, mux)

	ref := models.Citation{Kind: models.KindPMID, ID: "26422723"}
	for i := 0; i < 3; i++ {
		res, err := retriever.Fetch(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, "cached abstract text", res.Text)
	}
	assert.Equal(t, 1, calls, "重复引用应该命中缓存，只请求一次")
}

// TestEvidenceURL 测试证据来源链接推导
func TestEvidenceURL(t *testing.T) {
	assert.Equal(t, "https://doi.org/10.1056/NEJMoa1504370",
		EvidenceURL(models.Citation{Kind: models.KindDOI, ID: "10.1056/NEJMoa1504370"}, ""))
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/26422723/",
		EvidenceURL(models.Citation{Kind: models.KindPMID, ID: "26422723"}, ""))
	assert.Equal(t, "",
		EvidenceURL(models.Citation{Kind: models.KindAuthorYear, ID: "Kimball 2016"}, ""),
		"未解析的作者-年份引用没有证据链接")
	assert.Equal(t, "https://doi.org/10.1056/NEJMoa1504370",
		EvidenceURL(models.Citation{Kind: models.KindAuthorYear, ID: "Kimball 2016"}, "10.1056/NEJMoa1504370"))
}
