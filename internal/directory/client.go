// Package directory implements the outbound client for the external
// directory service. The staging engine treats any non-ok response as an
// opaque per-change failure; the error message is surfaced verbatim.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rpattn/orgstage/internal/domain"
)

// Client is the directory surface the engine consumes.
type Client interface {
	SetManager(ctx context.Context, memberID string, managerID *string) error
	SetProfileFields(ctx context.Context, memberID string, fields map[string]domain.FieldValue) error
	ListMembers(ctx context.Context) ([]domain.Member, error)
	ListProfileFields(ctx context.Context) ([]domain.ProfileFieldDefinition, error)
	// WithToken returns a client authenticating with the given bearer token
	// instead of the configured service token.
	WithToken(token string) Client
}

// HTTPClient talks JSON over HTTP to the directory API.
type HTTPClient struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
}

// Config configures the HTTP client. Timeout bounds every call; an expired
// call surfaces as a per-change failure during apply.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// NewHTTPClient creates a directory client.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid directory base URL %q", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    u,
		token:      strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) WithToken(token string) Client {
	clone := *c
	clone.token = strings.TrimSpace(token)
	return &clone
}

// envelope is the directory API response wrapper.
type envelope struct {
	OK            bool                            `json:"ok"`
	Error         string                          `json:"error,omitempty"`
	Members       []memberRecord                  `json:"members,omitempty"`
	ProfileFields []domain.ProfileFieldDefinition `json:"profile_fields,omitempty"`
}

type memberRecord struct {
	ID        string                `json:"id"`
	Email     string                `json:"email"`
	Name      string                `json:"name"`
	Title     string                `json:"title"`
	ManagerID *string               `json:"manager_id"`
	Active    *bool                 `json:"active"`
	AvatarURL string                `json:"avatar_url"`
	Profile   domain.ProfilePayload `json:"profile"`
}

func (c *HTTPClient) SetManager(ctx context.Context, memberID string, managerID *string) error {
	body := map[string]any{"member_id": memberID, "manager_id": managerID}
	if _, err := c.call(ctx, http.MethodPost, "/v1/members.manager.set", body); err != nil {
		return domain.NewExternalError("directory.set_manager", err)
	}
	return nil
}

func (c *HTTPClient) SetProfileFields(ctx context.Context, memberID string, fields map[string]domain.FieldValue) error {
	body := map[string]any{"member_id": memberID, "fields": fields}
	if _, err := c.call(ctx, http.MethodPost, "/v1/members.profile.set", body); err != nil {
		return domain.NewExternalError("directory.set_profile_fields", err)
	}
	return nil
}

func (c *HTTPClient) ListMembers(ctx context.Context) ([]domain.Member, error) {
	env, err := c.call(ctx, http.MethodGet, "/v1/members.list", nil)
	if err != nil {
		return nil, domain.NewExternalError("directory.list_members", err)
	}
	members := make([]domain.Member, 0, len(env.Members))
	for _, rec := range env.Members {
		active := true
		if rec.Active != nil {
			active = *rec.Active
		}
		members = append(members, domain.Member{
			ID:        rec.ID,
			Email:     rec.Email,
			Name:      rec.Name,
			Title:     rec.Title,
			ManagerID: rec.ManagerID,
			Active:    active,
			AvatarURL: rec.AvatarURL,
			Profile:   rec.Profile.Clone(),
		})
	}
	return members, nil
}

func (c *HTTPClient) ListProfileFields(ctx context.Context) ([]domain.ProfileFieldDefinition, error) {
	env, err := c.call(ctx, http.MethodGet, "/v1/profile.schema.get", nil)
	if err != nil {
		return nil, domain.NewExternalError("directory.list_profile_fields", err)
	}
	return env.ProfileFields, nil
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body any) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	endpoint := c.baseURL.JoinPath(path).String()
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("directory returned status %d with unreadable body", resp.StatusCode)
	}
	if !env.OK {
		message := env.Error
		if message == "" {
			message = fmt.Sprintf("directory returned status %d", resp.StatusCode)
		}
		return nil, errors.New(message)
	}
	return &env, nil
}
