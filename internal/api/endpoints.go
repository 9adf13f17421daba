package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"

	"github.com/edulytics/edulytics-client/internal/credential"
)

// Backend endpoints. The current-user endpoint doubles as the session
// revalidation mechanism.
const (
	EndpointLogin       = "/auth/login"
	EndpointLogout      = "/auth/logout"
	EndpointCurrentUser = "/auth/me"
)

// DashboardRole selects a role-specific dashboard view.
type DashboardRole string

const (
	RoleAdmin      DashboardRole = "admin"
	RoleInstructor DashboardRole = "instructor"
	RoleDepartment DashboardRole = "department"
)

// Login submits credentials and returns the backend's response. The
// caller (the session manager) decides success: the backend reports some
// login failures over HTTP 200 with no access token.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse

	payload, err := c.Execute(ctx, http.MethodPost, EndpointLogin, LoginRequest{
		Email:    email,
		Password: password,
	}, nil)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(payload, &out); err != nil {
		return out, fmt.Errorf("could not decode login response: %w", err)
	}

	return out, nil
}

// Logout notifies the backend that the session is ending.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.Execute(ctx, http.MethodPost, EndpointLogout, nil, nil)
	return err
}

// CurrentUser fetches the profile the stored token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (credential.UserProfile, error) {
	var profile credential.UserProfile

	payload, err := c.Execute(ctx, http.MethodGet, EndpointCurrentUser, nil, nil)
	if err != nil {
		return profile, err
	}

	if err := json.Unmarshal(payload, &profile); err != nil {
		return profile, fmt.Errorf("could not decode user profile: %w", err)
	}

	return profile, nil
}

// Dashboard fetches the aggregate summary for a role-specific view,
// filtered by the given query parameters (campus, department, term).
func (c *Client) Dashboard(ctx context.Context, role DashboardRole, filters url.Values) (DashboardSummary, error) {
	var summary DashboardSummary

	payload, err := c.Execute(ctx, http.MethodGet, "/dashboards/"+string(role), nil, filters)
	if err != nil {
		return summary, err
	}

	if err := json.Unmarshal(payload, &summary); err != nil {
		return summary, fmt.Errorf("could not decode dashboard summary: %w", err)
	}

	return summary, nil
}

// Courses fetches one page of the course listing.
func (c *Client) Courses(ctx context.Context, filters url.Values) (PaginatedCourseList, error) {
	var list PaginatedCourseList

	payload, err := c.Execute(ctx, http.MethodGet, "/courses", nil, filters)
	if err != nil {
		return list, err
	}

	if err := json.Unmarshal(payload, &list); err != nil {
		return list, fmt.Errorf("could not decode course list: %w", err)
	}

	return list, nil
}

// FilterOptions fetches the selectable values for a dashboard filter
// (e.g. "campuses", "departments", "terms"). These listings are
// reference data and participate in the response cache.
func (c *Client) FilterOptions(ctx context.Context, kind string) ([]FilterOption, error) {
	payload, err := c.Execute(ctx, http.MethodGet, "/filter-options/"+kind, nil, nil)
	if err != nil {
		return nil, err
	}

	var options []FilterOption
	if err := json.Unmarshal(payload, &options); err != nil {
		return nil, fmt.Errorf("could not decode filter options: %w", err)
	}

	return options, nil
}

// DownloadReport fetches a generated report as a binary payload.
func (c *Client) DownloadReport(ctx context.Context, reportID string) (*Payload, error) {
	return c.Download(ctx, "/reports/"+reportID+"/download", nil)
}

// attachmentFilename extracts the filename from a Content-Disposition
// header, or returns empty when none is supplied.
func attachmentFilename(disposition string) string {
	if disposition == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}

	return params["filename"]
}
