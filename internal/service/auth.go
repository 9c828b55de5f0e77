package service

import (
	"context"
	"net/http"
	"strings"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
)

// TokenWriter persists and clears the access token.
type TokenWriter interface {
	Save(token string) error
	Clear() error
}

type AuthService struct {
	client *api.Client
	tokens TokenWriter
}

func NewAuthService(client *api.Client, tokens TokenWriter) *AuthService {
	return &AuthService{client: client, tokens: tokens}
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// Login authenticates and stores the returned token. The login call itself
// carries no Authorization header.
func (s *AuthService) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &api.Error{Code: api.CodeValidation, Message: "email and password are required"}
	}
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := s.client.DoNoAuth(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return err
	}
	if strings.TrimSpace(resp.AccessToken) == "" {
		return &api.Error{Code: api.CodeInternal, Message: "login response carried no access token"}
	}
	return s.tokens.Save(resp.AccessToken)
}

// Logout drops the stored token. No backend call: the token is stateless.
func (s *AuthService) Logout() error {
	return s.tokens.Clear()
}
