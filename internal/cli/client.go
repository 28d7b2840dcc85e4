package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shaiso/metamigrate/internal/domain"
)

// --- Response types (дублируются из api/dto.go, CLI не импортирует internal/api) ---

// OperationResponse — фоновая операция сессии.
type OperationResponse struct {
	Name       string     `json:"name"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Running сообщает, выполняется ли операция.
func (o *OperationResponse) Running() bool {
	return o != nil && o.FinishedAt == nil
}

// StateResponse — состояние визарда.
type StateResponse struct {
	Step             int                         `json:"step"`
	StepName         string                      `json:"step_name"`
	Environments     []domain.Environment        `json:"environments"`
	AvailableTargets []domain.Environment        `json:"available_targets"`
	Source           string                      `json:"source,omitempty"`
	Target           string                      `json:"target,omitempty"`
	TypeOptions      []string                    `json:"type_options"`
	SelectedTypes    []string                    `json:"selected_types"`
	Descriptors      []domain.MetadataDescriptor `json:"descriptors"`
	Selection        domain.SelectionSet         `json:"selection"`
	LastDeployment   *domain.DeploymentRecord    `json:"last_deployment,omitempty"`
	CanAdvance       bool                        `json:"can_advance"`
	Loading          bool                        `json:"loading"`
	Closed           bool                        `json:"closed"`
}

// SessionResponse — сессия визарда из API.
type SessionResponse struct {
	ID            string                `json:"id"`
	CreatedAt     time.Time             `json:"created_at"`
	State         StateResponse         `json:"state"`
	Operation     *OperationResponse    `json:"operation,omitempty"`
	Notifications []domain.Notification `json:"notifications"`
}

// RegisterEnvironmentResponse — принятая регистрация окружения.
type RegisterEnvironmentResponse struct {
	JobID string `json:"job_id"`
	Label string `json:"label"`
}

// DeploymentResponse — запись журнала деплоев.
type DeploymentResponse struct {
	ID         string              `json:"id"`
	SessionID  string              `json:"session_id,omitempty"`
	JobID      string              `json:"job_id,omitempty"`
	Source     string              `json:"source"`
	Target     string              `json:"target"`
	Selection  domain.SelectionSet `json:"selection"`
	Components int                 `json:"components"`
	Success    bool                `json:"success"`
	Status     string              `json:"status,omitempty"`
	Error      string              `json:"error,omitempty"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	DurationMs int64               `json:"duration_ms"`
}

type descriptorsResponse struct {
	Rows []domain.MetadataDescriptor `json:"rows"`
}

// --- Request types ---

type selectOrgsRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type selectTypesRequest struct {
	Types []string `json:"types"`
}

type rowRef struct {
	Type     string `json:"type"`
	FullName string `json:"fullName"`
}

type selectRowsRequest struct {
	Rows []rowRef `json:"rows"`
}

// ListDeploymentsOpts — параметры фильтрации журнала.
type ListDeploymentsOpts struct {
	SessionID string
	Target    string
	Limit     int
	Offset    int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type listResponse struct {
	Data  json.RawMessage `json:"data"`
	Total int             `json:"total"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	} `json:"error"`
}

// APIError — ошибка, возвращённая API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// --- Client ---

// Client — HTTP-клиент для metamigrate API.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// pollInterval — период опроса сессии в WaitSession.
	pollInterval time.Duration
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pollInterval: 500 * time.Millisecond,
	}
}

// --- Environments ---

// ListEnvironments возвращает подключённые окружения.
func (c *Client) ListEnvironments(ctx context.Context) ([]domain.Environment, error) {
	var envs []domain.Environment
	err := c.list(ctx, "/api/v1/environments", nil, &envs)
	return envs, err
}

// RegisterEnvironment отправляет регистрацию окружения.
// Результат регистрации приходит уведомлением.
func (c *Client) RegisterEnvironment(ctx context.Context, creds domain.EnvironmentCredentials) (*RegisterEnvironmentResponse, error) {
	var resp RegisterEnvironmentResponse
	err := c.post(ctx, "/api/v1/environments", creds, &resp)
	return &resp, err
}

// --- Sessions ---

// CreateSession открывает сессию визарда.
func (c *Client) CreateSession(ctx context.Context) (*SessionResponse, error) {
	var s SessionResponse
	err := c.post(ctx, "/api/v1/sessions", nil, &s)
	return &s, err
}

// GetSession возвращает состояние сессии (и забирает новые уведомления).
func (c *Client) GetSession(ctx context.Context, id string) (*SessionResponse, error) {
	var s SessionResponse
	err := c.get(ctx, sessionPath(id, ""), &s)
	return &s, err
}

// CloseSession закрывает сессию.
func (c *Client) CloseSession(ctx context.Context, id string) error {
	return c.delete(ctx, sessionPath(id, ""))
}

// SelectOrgs выбирает source и target.
func (c *Client) SelectOrgs(ctx context.Context, id, source, target string) (*SessionResponse, error) {
	var s SessionResponse
	err := c.put(ctx, sessionPath(id, "/orgs"), selectOrgsRequest{Source: source, Target: target}, &s)
	return &s, err
}

// Next переходит на следующий шаг. С первого шага переход фоновый.
func (c *Client) Next(ctx context.Context, id string) (*SessionResponse, error) {
	var s SessionResponse
	err := c.post(ctx, sessionPath(id, "/next"), nil, &s)
	return &s, err
}

// Previous возвращает на предыдущий шаг.
func (c *Client) Previous(ctx context.Context, id string) (*SessionResponse, error) {
	var s SessionResponse
	err := c.post(ctx, sessionPath(id, "/previous"), nil, &s)
	return &s, err
}

// SelectTypes выбирает типы метаданных.
func (c *Client) SelectTypes(ctx context.Context, id string, types []string) (*SessionResponse, error) {
	var s SessionResponse
	err := c.put(ctx, sessionPath(id, "/types"), selectTypesRequest{Types: types}, &s)
	return &s, err
}

// FetchDescriptors загружает компоненты выбранных типов.
func (c *Client) FetchDescriptors(ctx context.Context, id string) ([]domain.MetadataDescriptor, error) {
	var resp descriptorsResponse
	err := c.post(ctx, sessionPath(id, "/descriptors"), nil, &resp)
	return resp.Rows, err
}

// SelectRows выбирает компоненты.
func (c *Client) SelectRows(ctx context.Context, id string, rows []domain.MetadataDescriptor) (*SessionResponse, error) {
	req := selectRowsRequest{Rows: make([]rowRef, len(rows))}
	for i, r := range rows {
		req.Rows[i] = rowRef{Type: r.Type, FullName: r.FullName}
	}

	var s SessionResponse
	err := c.put(ctx, sessionPath(id, "/rows"), req, &s)
	return &s, err
}

// Deploy запускает деплой в фоне.
func (c *Client) Deploy(ctx context.Context, id string) (*SessionResponse, error) {
	var s SessionResponse
	err := c.post(ctx, sessionPath(id, "/deploy"), nil, &s)
	return &s, err
}

// WaitSession опрашивает сессию, пока фоновая операция не завершится.
//
// Уведомления, полученные за время ожидания, передаются в onNotify
// (может быть nil).
func (c *Client) WaitSession(ctx context.Context, id string, onNotify func(domain.Notification)) (*SessionResponse, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		s, err := c.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		if onNotify != nil {
			for _, n := range s.Notifications {
				onNotify(n)
			}
		}
		if !s.Operation.Running() && !s.State.Loading {
			return s, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func sessionPath(id, suffix string) string {
	return "/api/v1/sessions/" + url.PathEscape(id) + suffix
}

// --- Deployments ---

// ListDeployments возвращает журнал деплоев.
func (c *Client) ListDeployments(ctx context.Context, opts ListDeploymentsOpts) ([]DeploymentResponse, error) {
	params := url.Values{}
	if opts.SessionID != "" {
		params.Set("session_id", opts.SessionID)
	}
	if opts.Target != "" {
		params.Set("target", opts.Target)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var records []DeploymentResponse
	err := c.list(ctx, "/api/v1/deployments", params, &records)
	return records, err
}

// GetDeployment возвращает запись журнала по ID.
func (c *Client) GetDeployment(ctx context.Context, id string) (*DeploymentResponse, error) {
	var rec DeploymentResponse
	err := c.get(ctx, "/api/v1/deployments/"+url.PathEscape(id), &rec)
	return &rec, err
}

// --- HTTP helpers ---

func (c *Client) get(ctx context.Context, path string, result any) error {
	return c.doData(ctx, http.MethodGet, path, nil, result)
}

func (c *Client) post(ctx context.Context, path string, body any, result any) error {
	return c.doData(ctx, http.MethodPost, path, body, result)
}

func (c *Client) put(ctx context.Context, path string, body any, result any) error {
	return c.doData(ctx, http.MethodPut, path, body, result)
}

func (c *Client) delete(ctx context.Context, path string) error {
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return c.checkError(resp)
}

func (c *Client) list(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var lr listResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return json.Unmarshal(lr.Data, result)
}

func (c *Client) doData(ctx context.Context, method, path string, body any, result any) error {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	// 204 No Content
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if result != nil {
		return json.Unmarshal(dr.Data, result)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return &APIError{
		Status:  resp.StatusCode,
		Code:    er.Error.Code,
		Message: er.Error.Message,
		Field:   er.Error.Field,
	}
}
