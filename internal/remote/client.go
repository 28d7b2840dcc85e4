package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shaiso/metamigrate/internal/domain"
)

const defaultTimeout = 30 * time.Second

// --- Wire types ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type descriptorsRequest struct {
	Types []string `json:"types"`
}

type deploymentRequest struct {
	SelectionMap domain.SelectionSet `json:"selectionMap"`
	SourceEnv    string              `json:"sourceEnv"`
	TargetEnv    string              `json:"targetEnv"`
}

// --- Client ---

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес удалённого API (обязательно).
	BaseURL string

	// Token — bearer token (опционально).
	Token string

	// Timeout — таймаут одного запроса (default: 30s).
	Timeout time.Duration

	// HTTPClient — переопределение http.Client (для тестов).
	HTTPClient *http.Client
}

// Client — HTTP-реализация Gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient создаёт клиент удалённого API.
func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: httpClient,
	}
}

// ListEnvironments возвращает подключённые окружения.
func (c *Client) ListEnvironments(ctx context.Context) ([]domain.Environment, error) {
	var envs []domain.Environment
	if err := c.do(ctx, http.MethodGet, "/environments", nil, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

// Authenticate выполняет обмен токена и разбирает ответ в TokenState.
func (c *Client) Authenticate(ctx context.Context, environmentID string) (domain.TokenState, error) {
	var raw string
	if err := c.do(ctx, http.MethodPost, "/environments/"+url.PathEscape(environmentID)+"/token", nil, &raw); err != nil {
		return domain.TokenState{}, err
	}

	state, err := domain.ParseTokenState(raw)
	if err != nil {
		return domain.TokenState{}, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	return state, nil
}

// ListMetadataTypes возвращает имена типов метаданных.
func (c *Client) ListMetadataTypes(ctx context.Context, environmentID string) ([]string, error) {
	var types []string
	if err := c.do(ctx, http.MethodGet, "/environments/"+url.PathEscape(environmentID)+"/metadata-types", nil, &types); err != nil {
		return nil, err
	}
	return types, nil
}

// FetchDescriptors возвращает компоненты выбранных типов.
func (c *Client) FetchDescriptors(ctx context.Context, types []string, environmentID string) ([]domain.MetadataDescriptor, error) {
	var rows []domain.MetadataDescriptor
	path := "/environments/" + url.PathEscape(environmentID) + "/descriptors"
	if err := c.do(ctx, http.MethodPost, path, descriptorsRequest{Types: types}, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// SubmitDeployment отправляет перенос и возвращает id задачи.
func (c *Client) SubmitDeployment(ctx context.Context, selection domain.SelectionSet, sourceEnv, targetEnv string) (string, error) {
	req := deploymentRequest{
		SelectionMap: selection,
		SourceEnv:    sourceEnv,
		TargetEnv:    targetEnv,
	}

	var jobID string
	if err := c.do(ctx, http.MethodPost, "/deployments", req, &jobID); err != nil {
		return "", err
	}
	if jobID == "" {
		return "", fmt.Errorf("%w: empty job id", domain.ErrFetch)
	}
	return jobID, nil
}

// GetStatus возвращает статус удалённой задачи.
func (c *Client) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	var status domain.JobStatus
	if err := c.do(ctx, http.MethodGet, "/deployments/"+url.PathEscape(jobID)+"/status", nil, &status); err != nil {
		return domain.JobStatus{}, err
	}
	return status, nil
}

// RegisterEnvironment регистрирует окружение и возвращает id задачи.
func (c *Client) RegisterEnvironment(ctx context.Context, creds domain.EnvironmentCredentials) (string, error) {
	var jobID string
	if err := c.do(ctx, http.MethodPost, "/environments", creds, &jobID); err != nil {
		return "", err
	}
	if jobID == "" {
		return "", fmt.Errorf("%w: empty job id", domain.ErrFetch)
	}
	return jobID, nil
}

// --- HTTP helpers ---

// do выполняет запрос и распаковывает {"data": ...} в result.
func (c *Client) do(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("%w: create request: %w", domain.ErrFetch, err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", domain.ErrFetch, method, path, err)
	}
	defer resp.Body.Close()

	if err := checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("%w: decode response: %w", domain.ErrFetch, err)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(dr.Data, result); err != nil {
		return fmt.Errorf("%w: decode data: %w", domain.ErrFetch, err)
	}
	return nil
}

// checkError превращает HTTP >= 400 в ErrFetch с сообщением удалённой стороны.
func checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var er errorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error.Message == "" {
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrFetch, resp.StatusCode, truncate(string(body), 200))
	}

	return fmt.Errorf("%w: %s: %s", domain.ErrFetch, er.Error.Code, er.Error.Message)
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
