package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is the HTTP client for the Pages API. The API is a single POST
// endpoint discriminated by an Action field in the request body.
type Client struct {
	token      string
	baseURL    string
	installID  string
	httpClient *http.Client
	debug      bool
}

// NewClient creates a Pages API client bound to a resolved base URL.
func NewClient(token, baseURL, installID string, debug bool) *Client {
	return &Client{
		token:     token,
		baseURL:   baseURL,
		installID: installID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		debug: debug,
	}
}

// APIError is a non-success response envelope, or an application-level error
// embedded in an otherwise successful response.
type APIError struct {
	Action    string
	Code      int
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: code %d: %s (request %s)", e.Action, e.Code, e.Message, e.RequestID)
}

// doAction performs one authenticated API call and decodes Data into out
// when out is non-nil.
func (c *Client) doAction(ctx context.Context, action string, params map[string]interface{}, out interface{}) error {
	body := map[string]interface{}{
		"Action": action,
	}
	for k, v := range params {
		body[k] = v
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Token", c.token)
	if c.installID != "" {
		req.Header.Set("X-Install-Id", c.installID)
	}

	if c.debug {
		fmt.Printf("[pages] POST %s %s\n", c.baseURL, action)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env Envelope
		if err := json.Unmarshal(respBody, &env); err == nil && env.Message != "" {
			return &APIError{Action: action, Code: env.Code, Message: env.Message, RequestID: env.RequestID}
		}
		return &APIError{Action: action, Code: resp.StatusCode, Message: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", action, err)
	}

	if env.Code != 0 {
		return &APIError{Action: action, Code: env.Code, Message: env.Message, RequestID: env.RequestID}
	}

	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to parse %s data: %w", action, err)
		}
	}

	return nil
}

// DescribeProjects lists projects, optionally filtered by exact name.
func (c *Client) DescribeProjects(ctx context.Context, name string) ([]Project, error) {
	params := map[string]interface{}{}
	if name != "" {
		params["Name"] = name
	}

	var data struct {
		Projects []Project `json:"Projects"`
	}
	if err := c.doAction(ctx, "DescribePagesProjects", params, &data); err != nil {
		return nil, err
	}

	return data.Projects, nil
}

// CreateProject creates a project with upload-mode defaults and returns the
// new project id. The create response is not canonical; callers re-fetch the
// project for status and domain fields.
func (c *Client) CreateProject(ctx context.Context, name string) (string, error) {
	params := map[string]interface{}{
		"Name":     name,
		"Provider": "upload",
		"Channel":  "upload",
		"Area":     "global",
	}

	var data struct {
		ProjectID string `json:"ProjectId"`
	}
	if err := c.doAction(ctx, "CreatePagesProject", params, &data); err != nil {
		return "", err
	}

	if data.ProjectID == "" {
		return "", fmt.Errorf("CreatePagesProject returned no project id")
	}

	return data.ProjectID, nil
}

// TempTokenScope selects the project temporary credentials are issued for.
// Exactly one field is set: ProjectID for an existing project, ProjectName
// for a scratch project the remote service provisions implicitly.
type TempTokenScope struct {
	ProjectID   string
	ProjectName string
}

// DescribeCosTempToken obtains short-lived object storage credentials scoped
// to the given project.
func (c *Client) DescribeCosTempToken(ctx context.Context, scope TempTokenScope) (*TempCredentials, error) {
	params := map[string]interface{}{}
	if scope.ProjectID != "" {
		params["ProjectId"] = scope.ProjectID
	} else {
		params["ProjectName"] = scope.ProjectName
	}

	var creds TempCredentials
	if err := c.doAction(ctx, "DescribePagesCosTempToken", params, &creds); err != nil {
		return nil, err
	}

	return &creds, nil
}

// CreateDeploymentOptions describe one deployment submission.
type CreateDeploymentOptions struct {
	ProjectID   string
	RemotePath  string
	DistType    string
	Environment string
}

// CreateDeployment submits a deployment referencing an uploaded artifact and
// returns the deployment id. The service may embed an application-level error
// inside a 2xx response; that is surfaced as an APIError.
func (c *Client) CreateDeployment(ctx context.Context, opts CreateDeploymentOptions) (string, error) {
	params := map[string]interface{}{
		"ProjectId":   opts.ProjectID,
		"RemotePath":  opts.RemotePath,
		"DistType":    opts.DistType,
		"Environment": opts.Environment,
	}

	var data struct {
		DeploymentID string `json:"DeploymentId"`
		Error        *struct {
			Code    int    `json:"Code"`
			Message string `json:"Message"`
		} `json:"Error,omitempty"`
	}
	if err := c.doAction(ctx, "CreatePagesDeployment", params, &data); err != nil {
		return "", err
	}

	if data.Error != nil {
		return "", &APIError{Action: "CreatePagesDeployment", Code: data.Error.Code, Message: data.Error.Message}
	}

	if data.DeploymentID == "" {
		return "", fmt.Errorf("CreatePagesDeployment returned no deployment id")
	}

	return data.DeploymentID, nil
}

// DescribeDeployments lists deployments for a project.
func (c *Client) DescribeDeployments(ctx context.Context, projectID string) ([]Deployment, error) {
	params := map[string]interface{}{
		"ProjectId": projectID,
	}

	var data struct {
		Deployments []Deployment `json:"Deployments"`
	}
	if err := c.doAction(ctx, "DescribePagesDeployments", params, &data); err != nil {
		return nil, err
	}

	return data.Deployments, nil
}

// DescribeEncipherToken fetches a short-lived access token for a preview
// domain not yet bound to a custom domain.
func (c *Client) DescribeEncipherToken(ctx context.Context, domain string) (*EncipherToken, error) {
	params := map[string]interface{}{
		"Domain": domain,
	}

	var token EncipherToken
	if err := c.doAction(ctx, "DescribePagesEncipherToken", params, &token); err != nil {
		return nil, err
	}

	if token.Token == "" {
		return nil, fmt.Errorf("DescribePagesEncipherToken returned no token")
	}

	return &token, nil
}
