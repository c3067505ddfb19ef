package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// CacheBypassHeader asks the API to skip its response cache.
const CacheBypassHeader = "x-apicache-bypass"

// ListApplications fetches every application for a term in one response.
func (c *Client) ListApplications(ctx context.Context, term uint, bypassCache bool) (*RawResponse, error) {
	verb, path := http.MethodGet, fmt.Sprintf("/api/v1/terms/%d/applications", term)
	var headers map[string]string
	if bypassCache {
		headers = map[string]string{CacheBypassHeader: "true"}
	}
	return c.AuthenticatedDo(ctx, verb, path, headers)
}

// GetApplication fetches the application of a single applicant.
func (c *Client) GetApplication(ctx context.Context, term uint, id string) (*RawResponse, error) {
	verb, path := http.MethodGet, fmt.Sprintf("/api/v1/terms/%d/applications/%s", term, url.PathEscape(id))
	return c.AuthenticatedDo(ctx, verb, path, nil)
}
