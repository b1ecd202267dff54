package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"task-tracker/server/internal/models"
	"task-tracker/server/internal/services"
)

// ErrUnauthenticated is returned on any 401. The session is cleared
// before it is returned, so a UI can treat it as "go to login".
var ErrUnauthenticated = errors.New("not authenticated")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		session: NewSession(),
	}
}

func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Result string            `json:"result"`
	Msg    string            `json:"msg"`
	Token  string            `json:"token"`
	User   *models.PublicUser `json:"user"`
	Task   *models.Task      `json:"task"`
	Tasks  []models.Task     `json:"tasks"`
	Count  int               `json:"count"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (*envelope, error) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.session.attach(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Clear()
		return nil, ErrUnauthenticated
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Msg}
	}

	return &env, nil
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (*models.PublicUser, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/auth/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	c.session.Set(env.Token)
	return env.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.PublicUser, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	c.session.Set(env.Token)
	return env.User, nil
}

func (c *Client) Logout() {
	c.session.Clear()
}

func (c *Client) CurrentUser(ctx context.Context) (*models.PublicUser, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/auth/user", nil)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) ListTasks(ctx context.Context, status, search string) ([]models.Task, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if search != "" {
		query.Set("search", search)
	}

	path := "/api/v1/tasks"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	env, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return env.Tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*models.Task, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/tasks/"+id, nil)
	if err != nil {
		return nil, err
	}
	return env.Task, nil
}

func (c *Client) CreateTask(ctx context.Context, title, description, status, priority string) (*models.Task, error) {
	env, err := c.do(ctx, http.MethodPost, "/api/v1/tasks", map[string]string{
		"title":       title,
		"description": description,
		"status":      status,
		"priority":    priority,
	})
	if err != nil {
		return nil, err
	}
	return env.Task, nil
}

func (c *Client) UpdateTask(ctx context.Context, id string, patch services.TaskPatch) (*models.Task, error) {
	env, err := c.do(ctx, http.MethodPut, "/api/v1/tasks/"+id, patch)
	if err != nil {
		return nil, err
	}
	return env.Task, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/tasks/"+id, nil)
	return err
}

func (c *Client) GetProfile(ctx context.Context) (*models.PublicUser, error) {
	env, err := c.do(ctx, http.MethodGet, "/api/v1/me", nil)
	if err != nil {
		return nil, err
	}
	return env.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, name, email string) (*models.PublicUser, error) {
	env, err := c.do(ctx, http.MethodPut, "/api/v1/me", map[string]string{
		"name":  name,
		"email": email,
	})
	if err != nil {
		return nil, err
	}
	return env.User, nil
}
