// Package provider fetches dashboard data from the managed HTTP endpoints and
// the static coverage location.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dsablic/weathertop/internal/awsops"
	"github.com/dsablic/weathertop/internal/config"
	"github.com/dsablic/weathertop/internal/model"
	"github.com/dsablic/weathertop/internal/normalize"
)

// DefaultSubscribeMessage is shown when the subscribe endpoint answers with
// an empty body.
const DefaultSubscribeMessage = "Subscription request sent! Check your email to confirm."

// ErrUnknownTask is returned for a task name outside Tasks.
var ErrUnknownTask = errors.New("unknown task")

// Tasks are the ECS tasks the management endpoint describes.
var Tasks = []string{"import", "lookup", "summary"}

// Client reads every dashboard backend.
type Client struct {
	endpoints config.Endpoints
	client    *http.Client
	coverage  Fetcher
	now       func() time.Time
}

// New creates a client. s3c is only needed when the coverage location is an
// s3:// URL.
func New(endpoints config.Endpoints, client *http.Client, s3c awsops.S3Client) (*Client, error) {
	if client == nil {
		client = &http.Client{}
	}
	coverage, err := NewFetcher(endpoints.Coverage, client, s3c)
	if err != nil {
		return nil, err
	}
	return &Client{endpoints: endpoints, client: client, coverage: coverage, now: time.Now}, nil
}

// SDKStats returns one unit per SDK language.
func (c *Client) SDKStats(ctx context.Context) ([]model.UnitRecord, error) {
	body, err := get(ctx, c.client, c.endpoints.Stats)
	if err != nil {
		return nil, fmt.Errorf("fetch SDK stats: %w", err)
	}
	return normalize.SDKStats(body)
}

// NoTests returns the services lacking tests, per language.
func (c *Client) NoTests(ctx context.Context) ([]model.LanguageGap, error) {
	body, err := get(ctx, c.client, c.endpoints.NoTests)
	if err != nil {
		return nil, fmt.Errorf("fetch no-tests report: %w", err)
	}
	return normalize.NoTests(body)
}

// CoverageSummary returns one unit per service, where passed counts
// operations with a code example.
func (c *Client) CoverageSummary(ctx context.Context) ([]model.UnitRecord, error) {
	body, err := c.coverage.Fetch(ctx, "summary.json", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch coverage summary: %w", err)
	}
	return normalize.CoverageSummary(body)
}

// ServiceCoverage returns the operations of one service.
func (c *Client) ServiceCoverage(ctx context.Context, serviceCode string) ([]model.DetailRecord, error) {
	if serviceCode == "" || strings.ContainsAny(serviceCode, "/\\") {
		return nil, fmt.Errorf("service %q: %w", serviceCode, ErrNotFound)
	}
	body, err := c.coverage.Fetch(ctx, serviceCode+".coverage.json", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch coverage for %s: %w", serviceCode, err)
	}
	return normalize.ServiceCoverage(body)
}

func (c *Client) modelDocument(ctx context.Context) ([]byte, error) {
	query := url.Values{"_": {strconv.FormatInt(c.now().UnixMilli(), 10)}}
	body, err := c.coverage.Fetch(ctx, "kotlinref.json", query)
	if err != nil {
		return nil, fmt.Errorf("fetch model coverage: %w", err)
	}
	return body, nil
}

// ModelCoverage returns one unit per service of the Kotlin model coverage
// document.
func (c *Client) ModelCoverage(ctx context.Context) ([]model.UnitRecord, error) {
	body, err := c.modelDocument(ctx)
	if err != nil {
		return nil, err
	}
	return normalize.ModelCoverage(body)
}

// ModelOperations returns the documented operations of one service.
func (c *Client) ModelOperations(ctx context.Context, service string) ([]model.DetailRecord, error) {
	body, err := c.modelDocument(ctx)
	if err != nil {
		return nil, err
	}
	details, ok, err := normalize.ModelOperations(body, service)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("model service %q: %w", service, ErrNotFound)
	}
	return details, nil
}

// TaskInfo returns the management endpoint's description of an ECS task as
// decoded JSON.
func (c *Client) TaskInfo(ctx context.Context, task string) (any, error) {
	if !isTask(task) {
		return nil, fmt.Errorf("%q: %w", task, ErrUnknownTask)
	}
	body, err := get(ctx, c.client, withQuery(c.endpoints.TaskInfo, url.Values{"language": {task}}))
	if err != nil {
		return nil, fmt.Errorf("fetch task info: %w", err)
	}

	var info any
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode task info: %w", err)
	}
	return info, nil
}

// Subscribe asks the subscribe endpoint to add email to the results topic
// and returns the endpoint's message.
func (c *Client) Subscribe(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("email is required")
	}
	body, err := get(ctx, c.client, c.endpoints.Subscribe+"?email="+url.QueryEscape(email))
	if err != nil {
		return "", fmt.Errorf("subscribe: %w", err)
	}
	return message(body, DefaultSubscribeMessage), nil
}

// ScheduleTask asks the schedule endpoint to create an EventBridge rule for
// the task and returns the endpoint's message.
func (c *Client) ScheduleTask(ctx context.Context, req model.ScheduleRequest) (string, error) {
	if req.TaskDefinitionArn == "" || req.ClusterName == "" || req.Cron == "" {
		return "", fmt.Errorf("task definition, cluster and schedule are required")
	}
	query := url.Values{
		"taskDefinitionArnVal": {req.TaskDefinitionArn},
		"clusterName":          {req.ClusterName},
		"cron":                 {req.Cron},
	}
	body, err := get(ctx, c.client, withQuery(c.endpoints.Schedule, query))
	if err != nil {
		return "", fmt.Errorf("schedule task: %w", err)
	}
	return message(body, "Task scheduled."), nil
}

func isTask(task string) bool {
	for _, t := range Tasks {
		if t == task {
			return true
		}
	}
	return false
}

func withQuery(base string, query url.Values) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + query.Encode()
}

func message(body []byte, fallback string) string {
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fallback
}
