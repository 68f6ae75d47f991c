// Package api provides the HTTP client for the recipe backend
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/tastyfood/web/internal/domain/draft"
	"github.com/tastyfood/web/internal/infrastructure/config"
	"github.com/tastyfood/web/internal/ports/outbound"
	apperrors "github.com/tastyfood/web/pkg/errors"
)

const serviceName = "recipe-api"

// Backend endpoints
const (
	pathGenerate     = "/gemini/generate"
	pathParse        = "/gemini/parse"
	pathCheck        = "/gemini/check"
	pathVideoSearch  = "/youtube/search"
	pathImageUpload  = "/api/imgur/upload"
	pathSubmitRecipe = "/api/recipes/submit"
	pathAuthCheck    = "/auth/check"
)

// Client handles communication with the recipe backend
type Client struct {
	baseURL    string
	cookieName string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ outbound.RecipeBackend = (*Client)(nil)

// NewClient creates a new backend client instance
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.Backend.BaseURL, "/"),
		cookieName: cfg.Session.BackendCookieName,
		httpClient: &http.Client{
			Timeout:   cfg.Backend.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger.Named("api"),
	}
}

// Request payloads

type generateRequest struct {
	Contents []generateContent `json:"contents"`
}

type generateContent struct {
	Parts []generatePart `json:"parts"`
}

type generatePart struct {
	Text string `json:"text"`
}

type parseRequest struct {
	Response string `json:"response"`
}

type videoSearchRequest struct {
	Keyword string `json:"keyword"`
}

type videoSearchResponse struct {
	Videos []draft.Video `json:"videos"`
}

type uploadResponse struct {
	Link string `json:"link"`
}

type authCheckResponse struct {
	Valid bool                 `json:"valid"`
	User  outbound.SessionUser `json:"user"`
}

// Generate asks the backend to write recipe text for a prompt
func (c *Client) Generate(ctx context.Context, prompt string) (*outbound.GenerateResponse, error) {
	req := generateRequest{
		Contents: []generateContent{{Parts: []generatePart{{Text: prompt}}}},
	}

	var resp outbound.GenerateResponse
	if err := c.post(ctx, pathGenerate, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Parse extracts a structured recipe and a safety verdict from generated text
func (c *Client) Parse(ctx context.Context, rawText string) (*outbound.ParseResponse, error) {
	var resp outbound.ParseResponse
	if err := c.post(ctx, pathParse, parseRequest{Response: rawText}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CheckRecipe runs the pre-submission safety check
func (c *Client) CheckRecipe(ctx context.Context, submission draft.Submission) (*outbound.CheckResponse, error) {
	var resp outbound.CheckResponse
	if err := c.post(ctx, pathCheck, submission, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchVideos finds how-to videos for a keyword
func (c *Client) SearchVideos(ctx context.Context, keyword string) ([]draft.Video, error) {
	var resp videoSearchResponse
	if err := c.post(ctx, pathVideoSearch, videoSearchRequest{Keyword: keyword}, &resp); err != nil {
		return nil, err
	}
	return resp.Videos, nil
}

// UploadImage sends an image as multipart field "image" and returns its public URL
func (c *Client) UploadImage(ctx context.Context, filename string, image io.Reader) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, image); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, pathImageUpload, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp uploadResponse
	if err := c.doRequest(req, &resp); err != nil {
		return "", err
	}
	if resp.Link == "" {
		return "", apperrors.NewExternalServiceError(serviceName, 0, fmt.Errorf("upload response has no link"))
	}
	return resp.Link, nil
}

// SubmitRecipe creates the recipe. The created record is not needed.
func (c *Client) SubmitRecipe(ctx context.Context, submission draft.Submission) error {
	return c.post(ctx, pathSubmitRecipe, submission, nil)
}

// CheckSession returns the user behind the forwarded backend session
func (c *Client) CheckSession(ctx context.Context) (*outbound.SessionUser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, pathAuthCheck, nil)
	if err != nil {
		return nil, err
	}

	var resp authCheckResponse
	if err := c.doRequest(req, &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, apperrors.NewUnauthorizedError("Session is not valid")
	}
	return &resp.User, nil
}

// Helper methods

func (c *Client) post(ctx context.Context, path string, body interface{}, response interface{}) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, bytes.NewReader(jsonBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, response)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if sessionID, ok := outbound.BackendSession(ctx); ok {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: sessionID})
	}
	return req, nil
}

func (c *Client) doRequest(req *http.Request, response interface{}) error {
	c.logger.Debug("API request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.NewExternalServiceError(serviceName, 0, fmt.Errorf("request failed: %w", err)).
			WithMetadata("endpoint", req.URL.Path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewExternalServiceError(serviceName, resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return apperrors.NewUnauthorizedError("").
			WithMetadata("endpoint", req.URL.Path).
			WithMetadata("status", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("API error",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		appErr := apperrors.NewExternalServiceError(serviceName, resp.StatusCode, fmt.Errorf("API error: status %d", resp.StatusCode)).
			WithMetadata("endpoint", req.URL.Path)
		var errBody struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &errBody) == nil && errBody.Error != "" {
			appErr.WithMetadata(apperrors.MetaBackendMessage, errBody.Error)
		}
		return appErr
	}

	if response == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, response); err != nil {
		return apperrors.NewExternalServiceError(serviceName, resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)).
			WithMetadata("endpoint", req.URL.Path)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
