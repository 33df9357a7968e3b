package client

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

	gerrors "github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/iota-uz/orghierarchy/modules/hierarchy/domain/aggregates/designation"
	"github.com/iota-uz/orghierarchy/pkg/constants"
	"github.com/iota-uz/orghierarchy/pkg/serrors"
)

const apiPrefix = "/hierarchy/api"

var ErrMalformedResponse = serrors.NewError("HIERARCHY_MALFORMED_RESPONSE", "malformed designation store response", "Hierarchy.Errors.MalformedResponse")

// APIError is a non-2xx answer from the designation store. It matches the
// coded errors of the designation package under errors.Is.
type APIError struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("designation store: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Code == "" {
		return nil
	}
	return serrors.NewError(e.Code, e.Message, "")
}

// flexibleID accepts ids encoded as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

type designationPayload struct {
	ID        flexibleID  `json:"id" validate:"required"`
	Name      string      `json:"name" validate:"required"`
	Level     *int        `json:"level" validate:"required"`
	ParentID  *flexibleID `json:"parent_designation_id"`
	CreatedAt *time.Time  `json:"created_at"`
	UpdatedAt *time.Time  `json:"updated_at"`
}

func (p designationPayload) toDomain() designation.Designation {
	d := designation.Designation{
		ID:   string(p.ID),
		Name: p.Name,
	}
	if p.Level != nil {
		d.Level = *p.Level
	}
	if p.ParentID != nil && *p.ParentID != "" {
		v := string(*p.ParentID)
		d.ParentID = &v
	}
	if p.CreatedAt != nil {
		d.CreatedAt = *p.CreatedAt
	}
	if p.UpdatedAt != nil {
		d.UpdatedAt = *p.UpdatedAt
	}
	return d
}

type listPayload struct {
	Designations []designationPayload `json:"designations" validate:"required,dive"`
}

type Options struct {
	BaseURL         string
	Authorization   string
	TenantID        uuid.UUID
	TenantHeader    string
	RequestIDHeader string
	HTTPClient      *http.Client
}

// DesignationClient talks to a remote designation store over its REST API.
type DesignationClient struct {
	baseURL         *url.URL
	authorization   string
	tenantID        uuid.UUID
	tenantHeader    string
	requestIDHeader string
	httpClient      *http.Client
}

func NewDesignationClient(opts Options) (*DesignationClient, error) {
	raw := strings.TrimSpace(opts.BaseURL)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid designation store url: %q", raw)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	tenantHeader := opts.TenantHeader
	if tenantHeader == "" {
		tenantHeader = "X-Tenant-ID"
	}
	return &DesignationClient{
		baseURL:         u,
		authorization:   strings.TrimSpace(opts.Authorization),
		tenantID:        opts.TenantID,
		tenantHeader:    tenantHeader,
		requestIDHeader: opts.RequestIDHeader,
		httpClient:      httpClient,
	}, nil
}

func (c *DesignationClient) doJSON(ctx context.Context, method, path string, reqBody any, out any) error {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path

	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return gerrors.Wrap(err, "json marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return gerrors.Wrap(err, "http request")
	}
	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.requestIDHeader != "" {
		req.Header.Set(c.requestIDHeader, uuid.NewString())
	}
	if c.authorization != "" {
		req.Header.Set("Authorization", c.authorization)
	}
	if c.tenantID != uuid.Nil {
		req.Header.Set(c.tenantHeader, c.tenantID.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gerrors.Wrap(err, "http do")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return gerrors.Wrap(err, "http read")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || strings.TrimSpace(apiErr.Code) == "" {
			apiErr.Code = ""
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if err := constants.Validate.Struct(out); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %w", ErrMalformedResponse, serrors.ProcessValidatorErrors(verrs, nil))
		}
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

func (c *DesignationClient) ListDesignations(ctx context.Context) ([]designation.Designation, error) {
	var out listPayload
	if err := c.doJSON(ctx, http.MethodGet, apiPrefix+"/designations", nil, &out); err != nil {
		return nil, err
	}
	items := make([]designation.Designation, 0, len(out.Designations))
	for _, p := range out.Designations {
		items = append(items, p.toDomain())
	}
	return items, nil
}

func (c *DesignationClient) CreateDesignation(ctx context.Context, name string, level int) (designation.Designation, error) {
	var out designationPayload
	req := map[string]any{"name": name, "level": level}
	if err := c.doJSON(ctx, http.MethodPost, apiPrefix+"/designations", req, &out); err != nil {
		return designation.Designation{}, err
	}
	return out.toDomain(), nil
}

func (c *DesignationClient) UpdateDesignation(ctx context.Context, id string, patch designation.Patch) (designation.Designation, error) {
	req := map[string]any{}
	if patch.Level != nil {
		req["level"] = *patch.Level
	}
	if patch.ParentSet {
		if patch.ParentID == nil {
			req["parent_designation_id"] = nil
		} else {
			req["parent_designation_id"] = *patch.ParentID
		}
	}
	var out designationPayload
	path := apiPrefix + "/designations/" + url.PathEscape(id)
	if err := c.doJSON(ctx, http.MethodPatch, path, req, &out); err != nil {
		return designation.Designation{}, err
	}
	return out.toDomain(), nil
}
