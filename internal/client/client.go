package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dataforge/dataset-pipeline/api/v1alpha1"
)

// Client is a small client of the /api/v1 endpoints.
type Client struct {
	server     *url.URL
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func New(serverURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parsing server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", serverURL)
	}

	c := &Client{server: u, httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// APIError is returned for non 2xx responses.
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("%d: %s (request id %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

func (c *Client) GetJob(ctx context.Context, id int64) (*v1alpha1.Job, error) {
	var job v1alpha1.Job
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs/"+strconv.FormatInt(id, 10), nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) ListJobs(ctx context.Context, projectID string) (v1alpha1.JobList, error) {
	var jobs v1alpha1.JobList
	if err := c.do(ctx, http.MethodGet, "/api/v1/jobs", url.Values{"projectId": {projectID}}, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) CancelJob(ctx context.Context, id int64) (*v1alpha1.Job, error) {
	var job v1alpha1.Job
	if err := c.do(ctx, http.MethodPost, "/api/v1/jobs/"+strconv.FormatInt(id, 10)+"/cancel", nil, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) GetDataset(ctx context.Context, id string) (*v1alpha1.Dataset, error) {
	var dataset v1alpha1.Dataset
	if err := c.do(ctx, http.MethodGet, "/api/v1/datasets/"+url.PathEscape(id), nil, &dataset); err != nil {
		return nil, err
	}
	return &dataset, nil
}

func (c *Client) ListDatasets(ctx context.Context, projectID string) (v1alpha1.DatasetList, error) {
	var datasets v1alpha1.DatasetList
	if err := c.do(ctx, http.MethodGet, "/api/v1/datasets", url.Values{"projectId": {projectID}}, &datasets); err != nil {
		return nil, err
	}
	return datasets, nil
}

func (c *Client) DeleteDataset(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/datasets/"+url.PathEscape(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, into any) error {
	u := c.server.JoinPath(path)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e v1alpha1.Error
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			apiErr.Message = e.Message
			if e.RequestId != nil {
				apiErr.RequestID = *e.RequestId
			}
		}
		return apiErr
	}

	if into == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, into)
}
