package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fyerfyer/claim-check-system/api/handler"
	"github.com/fyerfyer/claim-check-system/internal/evidence"
	"github.com/fyerfyer/claim-check-system/internal/models"
	"github.com/fyerfyer/claim-check-system/internal/repository"
	"github.com/fyerfyer/claim-check-system/internal/services"
	"github.com/fyerfyer/claim-check-system/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// mockRetriever 返回预设证据文本的检索器
type mockRetriever struct {
	responses map[string]string
}

func (m *mockRetriever) Fetch(_ context.Context, ref models.Citation) (evidence.Result, error) {
	text, ok := m.responses[ref.ID]
	if !ok {
		return evidence.Result{}, fmt.Errorf("no evidence for %s", ref.ID)
	}
	return evidence.Result{Text: text}, nil
}

// setupTestRouter 构建带全部依赖的测试路由
func setupTestRouter(t *testing.T, retriever evidence.Retriever) (*gin.Engine, *services.VerifyService) {
	gin.SetMode(gin.TestMode)

	dbName := fmt.Sprintf("file:memdb_api_%d?mode=memory", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ValidationRun{}))

	store, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	outputDir := t.TempDir()
	svc := services.NewVerifyService(store, retriever,
		services.WithRunRepository(repository.NewRunRepositoryWithDB(db)),
		services.WithOutputDir(outputDir),
	)

	router := SetupRouter(
		handler.NewVerifyHandler(svc, store, "/outputs"),
		handler.NewTaskHandler(svc),
		handler.NewRunHandler(svc),
		outputDir,
	)
	return router, svc
}

// buildTestPPTX 生成只含一张幻灯片的最小pptx内容
func buildTestPPTX(t *testing.T, text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	slideXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main">` +
		`<p:cSld><p:spTree><p:sp><p:txBody>` +
		`<a:p><a:r><a:rPr lang="en-US"/><a:t>` + text + `</a:t></a:r></a:p>` +
		`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	relsXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`</Relationships>`

	for name, content := range map[string]string{
		"ppt/slides/slide1.xml":            slideXML,
		"ppt/slides/_rels/slide1.xml.rels": relsXML,
	} {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// uploadRequest 构造multipart文件上传请求
func uploadRequest(t *testing.T, filename string, content []byte, async bool) *http.Request {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)

	if async {
		require.NoError(t, writer.WriteField("async", "true"))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/verify", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// TestVerifyEndpoint 测试同步校验端点
func TestVerifyEndpoint(t *testing.T) {
	claim := "The treatment reduced mortality by twenty percent in the trial (10.1056/NEJMoa1504370)."
	retriever := &mockRetriever{responses: map[string]string{
		"10.1056/NEJMoa1504370": "The treatment reduced mortality by twenty percent in the randomized trial.",
	}}
	router, _ := setupTestRouter(t, retriever)

	req := uploadRequest(t, "deck.pptx", buildTestPPTX(t, claim), false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "Response body: %s", rec.Body.String())

	var resp struct {
		Code int `json:"code"`
		Data struct {
			RunID         string `json:"run_id"`
			TotalFindings int    `json:"total_findings"`
			ReportURL     string `json:"report_url"`
			AnnotatedURL  string `json:"annotated_url"`
			SnippetURL    string `json:"snippet_url"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.NotEmpty(t, resp.Data.RunID)
	assert.Equal(t, 1, resp.Data.TotalFindings)
	assert.Contains(t, resp.Data.ReportURL, "/outputs/"+resp.Data.RunID+"/report.pdf")
	assert.Contains(t, resp.Data.AnnotatedURL, "annotated.pptx")
	assert.Contains(t, resp.Data.SnippetURL, "snippets.html")
}

// TestVerifyEndpointInvalidFileType 测试不支持的文件类型
func TestVerifyEndpointInvalidFileType(t *testing.T) {
	router, _ := setupTestRouter(t, &mockRetriever{})

	req := uploadRequest(t, "notes.txt", []byte("plain text"), false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestVerifyEndpointMissingFile 测试缺少文件的请求
func TestVerifyEndpointMissingFile(t *testing.T) {
	router, _ := setupTestRouter(t, &mockRetriever{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/verify", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestVerifyEndpointAsyncWithoutQueue 测试未配置队列时的异步请求
func TestVerifyEndpointAsyncWithoutQueue(t *testing.T) {
	router, _ := setupTestRouter(t, &mockRetriever{})

	req := uploadRequest(t, "deck.pptx", buildTestPPTX(t, "some text"), true)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

// TestRunEndpoints 测试运行记录查询端点
func TestRunEndpoints(t *testing.T) {
	claim := "Mortality dropped sharply in the cohort (10.1000/example.1)."
	retriever := &mockRetriever{responses: map[string]string{
		"10.1000/example.1": "Mortality dropped sharply in the cohort study population.",
	}}
	router, _ := setupTestRouter(t, retriever)

	// 先完成一次校验
	req := uploadRequest(t, "deck.pptx", buildTestPPTX(t, claim), false)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var verifyResp struct {
		Data struct {
			RunID string `json:"run_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &verifyResp))

	// 查询单条运行记录
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+verifyResp.Data.RunID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var runResp struct {
		Data struct {
			RunID  string `json:"run_id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runResp))
	assert.Equal(t, verifyResp.Data.RunID, runResp.Data.RunID)
	assert.Equal(t, string(models.RunStatusCompleted), runResp.Data.Status)

	// 运行记录列表
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs?page=1&page_size=10", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Data struct {
			Total int64 `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	assert.Equal(t, int64(1), listResp.Data.Total)

	// 不存在的运行记录返回404
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/non-existing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestHealthEndpoint 测试健康检查端点
func TestHealthEndpoint(t *testing.T) {
	router, _ := setupTestRouter(t, &mockRetriever{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
