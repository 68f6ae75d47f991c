package webserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/application/editor"
	"github.com/tastyfood/web/internal/application/generation"
	"github.com/tastyfood/web/internal/infrastructure/api"
	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/infrastructure/monitoring"
	"github.com/tastyfood/web/internal/infrastructure/persistence/memory"
	"github.com/tastyfood/web/internal/infrastructure/render"
	"github.com/tastyfood/web/internal/infrastructure/staging"
	"github.com/tastyfood/web/internal/ports/inbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
	"github.com/tastyfood/web/pkg/healthcheck"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// WebServerTestSuite drives the frontend end to end against a fake backend
type WebServerTestSuite struct {
	suite.Suite
	backend     *httptest.Server
	frontend    *httptest.Server
	web         *WebServer
	client      *http.Client
	checkStatus atomic.Value
	submitted   atomic.Int32
}

func (suite *WebServerTestSuite) SetupTest() {
	suite.checkStatus.Store("Safe")
	suite.submitted.Store(0)
	suite.backend = httptest.NewServer(suite.fakeBackend())

	cfg := config.Default()
	cfg.Backend.BaseURL = suite.backend.URL
	cfg.Session.CleanupInterval = 0
	suite.start(cfg)
}

func (suite *WebServerTestSuite) TearDownTest() {
	suite.frontend.Close()
	suite.backend.Close()
	suite.web.sessions.Close()
}

func (suite *WebServerTestSuite) start(cfg *config.Config) {
	logger := zap.NewNop()
	metrics := monitoring.NewMetrics()
	client := api.NewClient(cfg, logger)
	provider := staging.NewProvider(memory.NewStagingRepository(0), cfg.Staging.TTL, logger)

	generator := generation.NewService(client, metrics, generation.DefaultConfig(), logger)
	editorService := editor.NewService(client, render.NewHTMLRenderer(), metrics, editor.DefaultConfig(), logger)
	sessions := NewSessionStore(cfg, provider, generator, client, logger)

	suite.web = NewWebServer(cfg, logger, sessions, editorService, metrics, healthcheck.New("test", logger))
	suite.frontend = httptest.NewServer(suite.web.Handler())
	suite.client = suite.newClient()
}

func (suite *WebServerTestSuite) newClient() *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(suite.T(), err)
	return &http.Client{Jar: jar}
}

func (suite *WebServerTestSuite) fakeBackend() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, body interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("/gemini/generate", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"response": "Spicy Basil Chicken recipe", "is_safe": true})
	})
	mux.HandleFunc("/gemini/parse", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"menuName":        "Spicy Basil Chicken",
			"ingredients":     []string{"**chicken**", "basil"},
			"instructions":    []string{"stir fry"},
			"category":        "Main Dish",
			"tags":            []string{"AI generate", "Thai"},
			"characteristics": "spicy",
			"flavors":         "savory",
			"danger_check":    map[string]string{"status": "Safe"},
		})
	})
	mux.HandleFunc("/youtube/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"videos": []map[string]string{{"id": "abc", "title": "How to"}}})
	})
	mux.HandleFunc("/gemini/check", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": suite.checkStatus.Load().(string), "unsafe_parts": "raw egg", "reason": "**raw** egg"})
	})
	mux.HandleFunc("/api/recipes/submit", func(w http.ResponseWriter, r *http.Request) {
		suite.submitted.Add(1)
		writeJSON(w, map[string]string{"id": "r1"})
	})
	mux.HandleFunc("/api/imgur/upload", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"link": "https://i.imgur.com/cover.png"})
	})
	mux.HandleFunc("/auth/check", func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("session_id"); err != nil || cookie.Value != "backend-session" {
			w.WriteHeader(http.StatusUnauthorized)
			writeJSON(w, map[string]interface{}{"valid": false})
			return
		}
		writeJSON(w, map[string]interface{}{"valid": true, "user": map[string]string{"id": "u1", "name": "Somchai"}})
	})
	return mux
}

func (suite *WebServerTestSuite) do(client *http.Client, method, path string, body interface{}) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, suite.frontend.URL+path, reader)
	require.NoError(suite.T(), err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	require.NoError(suite.T(), err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(suite.T(), err)
	return resp, data
}

func (suite *WebServerTestSuite) generate() inbound.GenerationResult {
	resp, body := suite.do(suite.client, http.MethodPost, "/generate", map[string]string{"prompt": "Spicy Basil Chicken"})
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode, string(body))

	var result inbound.GenerationResult
	require.NoError(suite.T(), json.Unmarshal(body, &result))
	return result
}

func (suite *WebServerTestSuite) loadDraft(client *http.Client) inbound.EditorOutcome {
	resp, body := suite.do(client, http.MethodGet, "/draft", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var outcome inbound.EditorOutcome
	require.NoError(suite.T(), json.Unmarshal(body, &outcome))
	return outcome
}

func decodeError(t *testing.T, body []byte) apperrors.ErrorDetails {
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error
}

// TestGenerate_StagesDraft tests the prompt-to-editor flow
func (suite *WebServerTestSuite) TestGenerate_StagesDraft() {
	// Act
	result := suite.generate()

	// Assert
	assert.Equal(suite.T(), inbound.StateComplete, result.State)
	assert.Equal(suite.T(), "/food_generated?menuName=Spicy+Basil+Chicken", result.RedirectURL)

	outcome := suite.loadDraft(suite.client)
	require.NotNil(suite.T(), outcome.Draft)
	assert.Equal(suite.T(), "Spicy Basil Chicken", outcome.Draft.MenuName)
	assert.Equal(suite.T(), []string{"chicken", "basil"}, outcome.Draft.Ingredients)
	assert.Len(suite.T(), outcome.Draft.Videos, 1)
}

// TestGenerate_EmptyPrompt tests input validation
func (suite *WebServerTestSuite) TestGenerate_EmptyPrompt() {
	resp, body := suite.do(suite.client, http.MethodPost, "/generate", map[string]string{"prompt": "  "})

	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), apperrors.CodeValidationFailed, decodeError(suite.T(), body).Code)
}

// TestSessionsAreIsolated tests that drafts belong to one browser
func (suite *WebServerTestSuite) TestSessionsAreIsolated() {
	suite.generate()

	other := suite.loadDraft(suite.newClient())

	assert.Empty(suite.T(), other.Draft.MenuName)
	assert.Equal(suite.T(), "Spicy Basil Chicken", suite.loadDraft(suite.client).Draft.MenuName)
}

// TestEditor_Operations tests the editing routes
func (suite *WebServerTestSuite) TestEditor_Operations() {
	suite.generate()

	suite.Run("AddTag", func() {
		resp, body := suite.do(suite.client, http.MethodPost, "/draft/tags", map[string]string{"text": "quick"})
		require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		var outcome inbound.EditorOutcome
		require.NoError(suite.T(), json.Unmarshal(body, &outcome))
		assert.Equal(suite.T(), []string{"AI generate", "Thai", "quick"}, outcome.Draft.Tags)
	})

	suite.Run("DeleteProtectedTag", func() {
		resp, body := suite.do(suite.client, http.MethodDelete, "/draft/tags/0", nil)
		require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		var outcome inbound.EditorOutcome
		require.NoError(suite.T(), json.Unmarshal(body, &outcome))
		assert.Equal(suite.T(), editor.MsgProtectedTag, outcome.Warning)
		assert.Contains(suite.T(), outcome.Draft.Tags, "AI generate")
	})

	suite.Run("EditOutOfRange", func() {
		resp, body := suite.do(suite.client, http.MethodPut, "/draft/ingredient/9", map[string]string{"text": "x"})
		assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
		assert.Equal(suite.T(), apperrors.CodeValidationFailed, decodeError(suite.T(), body).Code)
	})

	suite.Run("UnknownKind", func() {
		resp, _ := suite.do(suite.client, http.MethodPut, "/draft/garnish/0", map[string]string{"text": "x"})
		assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	})

	suite.Run("EditInstruction", func() {
		resp, body := suite.do(suite.client, http.MethodPut, "/draft/instructions/0", map[string]string{"text": "stir fry hot"})
		require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		assert.Contains(suite.T(), string(body), "stir fry hot")
	})

	suite.Run("AddIngredient", func() {
		resp, _ := suite.do(suite.client, http.MethodPost, "/draft/ingredients", map[string]string{"text": "garlic"})
		require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		assert.Contains(suite.T(), suite.loadDraft(suite.client).Draft.Ingredients, "garlic")
	})
}

// TestUploadCover tests the multipart upload route
// TestEditor_ConcurrentRequests tests that parallel requests of one browser
// all reach the staged draft
func (suite *WebServerTestSuite) TestEditor_ConcurrentRequests() {
	suite.generate()

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, _ := suite.do(suite.client, http.MethodPost, "/draft/ingredients",
				map[string]string{"text": fmt.Sprintf("extra %d", i)})
			assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		}(i)
	}
	wg.Wait()

	assert.Len(suite.T(), suite.loadDraft(suite.client).Draft.Ingredients, 2+n)
}

func (suite *WebServerTestSuite) TestUploadCover() {
	suite.generate()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", "cover.png")
	require.NoError(suite.T(), err)
	_, err = part.Write(pngHeader)
	require.NoError(suite.T(), err)
	require.NoError(suite.T(), form.Close())

	req, err := http.NewRequest(http.MethodPost, suite.frontend.URL+"/draft/cover", &buf)
	require.NoError(suite.T(), err)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := suite.client.Do(req)
	require.NoError(suite.T(), err)
	resp.Body.Close()

	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Equal(suite.T(), "https://i.imgur.com/cover.png", suite.loadDraft(suite.client).Draft.CoverImageURL)
}

// TestSubmit_Safe tests that a successful submission clears the draft
func (suite *WebServerTestSuite) TestSubmit_Safe() {
	suite.generate()

	resp, body := suite.do(suite.client, http.MethodPost, "/draft/submit", nil)

	require.Equal(suite.T(), http.StatusOK, resp.StatusCode, string(body))
	var outcome inbound.EditorOutcome
	require.NoError(suite.T(), json.Unmarshal(body, &outcome))
	assert.True(suite.T(), outcome.Submitted)
	assert.Equal(suite.T(), "/foodview/available", outcome.RedirectURL)
	assert.Equal(suite.T(), int32(1), suite.submitted.Load())
	assert.Empty(suite.T(), suite.loadDraft(suite.client).Draft.MenuName)
}

// TestSubmit_NotSafe tests that a rejected draft stays staged
func (suite *WebServerTestSuite) TestSubmit_NotSafe() {
	suite.generate()
	suite.checkStatus.Store("Not Safe")

	resp, body := suite.do(suite.client, http.MethodPost, "/draft/submit", nil)

	assert.Equal(suite.T(), http.StatusUnprocessableEntity, resp.StatusCode)
	var outcome inbound.EditorOutcome
	require.NoError(suite.T(), json.Unmarshal(body, &outcome))
	assert.Equal(suite.T(), "Recipe validation failed: raw egg", outcome.Message)
	assert.Contains(suite.T(), outcome.RenderedNote, "<strong>raw</strong>")
	assert.Equal(suite.T(), int32(0), suite.submitted.Load())
	assert.Equal(suite.T(), "Spicy Basil Chicken", suite.loadDraft(suite.client).Draft.MenuName)
}

// TestReset tests the explicit reset route
func (suite *WebServerTestSuite) TestReset() {
	suite.generate()

	resp, _ := suite.do(suite.client, http.MethodDelete, "/draft", nil)

	assert.Equal(suite.T(), http.StatusNoContent, resp.StatusCode)
	assert.Empty(suite.T(), suite.loadDraft(suite.client).Draft.MenuName)
}

// TestMe tests the current-user route
func (suite *WebServerTestSuite) TestMe() {
	resp, body := suite.do(suite.client, http.MethodGet, "/me", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(suite.T(), apperrors.CodeUnauthorized, decodeError(suite.T(), body).Code)

	frontendURL, err := url.Parse(suite.frontend.URL)
	require.NoError(suite.T(), err)
	suite.client.Jar.SetCookies(frontendURL, []*http.Cookie{{Name: "session_id", Value: "backend-session"}})

	resp, body = suite.do(suite.client, http.MethodGet, "/me", nil)
	require.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.Contains(suite.T(), string(body), "Somchai")
}

// TestRateLimit tests the per-session generation limit
func (suite *WebServerTestSuite) TestRateLimit() {
	suite.frontend.Close()
	suite.web.sessions.Close()

	cfg := config.Default()
	cfg.Backend.BaseURL = suite.backend.URL
	cfg.Session.CleanupInterval = 0
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerMin = 1
	cfg.RateLimit.BurstSize = 1
	suite.start(cfg)

	suite.generate()
	resp, body := suite.do(suite.client, http.MethodPost, "/generate", map[string]string{"prompt": "again"})

	assert.Equal(suite.T(), http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(suite.T(), apperrors.CodeTooManyRequests, decodeError(suite.T(), body).Code)
	assert.Equal(suite.T(), "60", resp.Header.Get("Retry-After"))

	// a different browser has its own budget
	resp, _ = suite.do(suite.newClient(), http.MethodPost, "/generate", map[string]string{"prompt": "other"})
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
}

// TestHealthAndMetrics tests the operational routes
func (suite *WebServerTestSuite) TestHealthAndMetrics() {
	suite.generate()

	resp, _ := suite.do(suite.client, http.MethodGet, "/health", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	resp, body := suite.do(suite.client, http.MethodGet, "/metrics", nil)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
	assert.True(suite.T(), strings.Contains(string(body), "recipe_generation_outcomes_total"))
}

func TestWebServerTestSuite(t *testing.T) {
	suite.Run(t, new(WebServerTestSuite))
}
