package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/outbreak-reporting/report-client/internal/domain"
)

const (
	tokenPath  = "/token"
	healthPath = "/healthcheck"
)

// RequestToken exchanges credentials for an access token. The request carries
// no bearer header and a 401 does not touch the session store.
func (c *Client) RequestToken(ctx context.Context, username, password string) (*domain.Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	var token domain.Token
	_, err := c.send(ctx, outbound{
		method:      http.MethodPost,
		path:        tokenPath,
		url:         tokenPath,
		contentType: "application/x-www-form-urlencoded",
		body:        []byte(form.Encode()),
	}, &token)
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, c.requestError(http.MethodPost, tokenPath, http.StatusOK, "", "token response did not contain an access token", nil)
	}
	return &token, nil
}

// Health checks backend liveness
func (c *Client) Health(ctx context.Context) error {
	_, err := c.send(ctx, outbound{
		method: http.MethodGet,
		path:   healthPath,
		url:    healthPath,
	}, nil)
	return err
}
