package info

import (
	"context"
	"net/url"
)

// Client reads case types, export schemas, users and teams from the info service.
type Client struct {
	http *httpClient
}

// NewClient creates an info service client.
func NewClient(config ClientConfig) *Client {
	return &Client{http: newHTTPClient("info", config)}
}

// CaseTypes returns every case type known to the info service.
func (c *Client) CaseTypes(ctx context.Context) ([]CaseType, error) {
	var caseTypes []CaseType
	if err := c.http.getJSON(ctx, "/caseType", &caseTypes); err != nil {
		return nil, err
	}
	return caseTypes, nil
}

// ExportFields returns the ordered export field definitions for a case type code.
func (c *Client) ExportFields(ctx context.Context, caseTypeCode string) ([]FieldDefinition, error) {
	var view ExportView
	if err := c.http.getJSON(ctx, "/export/"+url.PathEscape(caseTypeCode), &view); err != nil {
		return nil, err
	}
	return view.Fields, nil
}

// Users returns the user directory.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.http.getJSON(ctx, "/users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Teams returns the team directory including each team's unit.
func (c *Client) Teams(ctx context.Context) ([]Team, error) {
	var teams []Team
	if err := c.http.getJSON(ctx, "/teams", &teams); err != nil {
		return nil, err
	}
	return teams, nil
}

// Ping checks that the info service answers.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.CaseTypes(ctx)
	return err
}

// CaseworkClient reads case topics from the casework service.
type CaseworkClient struct {
	http *httpClient
}

// NewCaseworkClient creates a casework service client.
func NewCaseworkClient(config ClientConfig) *CaseworkClient {
	return &CaseworkClient{http: newHTTPClient("casework", config)}
}

// CaseTopics returns every topic ever attached to a case.
func (c *CaseworkClient) CaseTopics(ctx context.Context) ([]Topic, error) {
	var resp struct {
		Topics []Topic `json:"topics"`
	}
	if err := c.http.getJSON(ctx, "/topics", &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

// Ping checks that the casework service answers.
func (c *CaseworkClient) Ping(ctx context.Context) error {
	_, err := c.CaseTopics(ctx)
	return err
}
