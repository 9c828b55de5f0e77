package service

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/jvcardoso/pro-team-care-console/internal/api"
	"github.com/jvcardoso/pro-team-care-console/internal/model"
)

// SecureSessionService wraps the context-switching and impersonation
// endpoints. Subscribers are notified in registration order after every
// successful context change, mirroring the listener array of the browser
// console.
type SecureSessionService struct {
	client *api.Client

	mu        sync.Mutex
	listeners []func(model.SessionContext)
}

func NewSecureSessionService(client *api.Client) *SecureSessionService {
	return &SecureSessionService{client: client}
}

// Subscribe registers a listener and returns an unsubscribe func.
func (s *SecureSessionService) Subscribe(listener func(model.SessionContext)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
	index := len(s.listeners) - 1
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.listeners) {
			s.listeners[index] = nil
		}
	}
}

func (s *SecureSessionService) notify(sessionContext model.SessionContext) {
	s.mu.Lock()
	listeners := make([]func(model.SessionContext), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, listener := range listeners {
		if listener != nil {
			listener(sessionContext)
		}
	}
}

func (s *SecureSessionService) CurrentContext(ctx context.Context) (model.SessionContext, error) {
	var sessionContext model.SessionContext
	if err := s.client.Get(ctx, "/secure-session/context", nil, &sessionContext); err != nil {
		return model.SessionContext{}, err
	}
	return sessionContext, nil
}

type SwitchRequest struct {
	CompanyID       int64 `json:"company_id,omitempty"`
	EstablishmentID int64 `json:"establishment_id,omitempty"`
}

func (s *SecureSessionService) SwitchContext(ctx context.Context, req SwitchRequest) (model.SessionContext, error) {
	var sessionContext model.SessionContext
	if err := s.client.Do(ctx, http.MethodPost, "/secure-session/switch", nil, req, &sessionContext); err != nil {
		return model.SessionContext{}, err
	}
	// Everything cached so far belongs to the previous tenant context.
	s.client.Invalidate("")
	s.notify(sessionContext)
	return sessionContext, nil
}

// StartImpersonation switches the session to act as another user. The
// authorization check is server-side; this client only carries the request.
func (s *SecureSessionService) StartImpersonation(ctx context.Context, userEmail string) (model.SessionContext, error) {
	userEmail = strings.TrimSpace(userEmail)
	if userEmail == "" {
		return model.SessionContext{}, &api.Error{Code: api.CodeValidation, Message: "user email cannot be empty"}
	}
	var sessionContext model.SessionContext
	err := s.client.Do(ctx, http.MethodPost, "/secure-session/impersonate", nil, map[string]string{"user_email": userEmail}, &sessionContext)
	if err != nil {
		return model.SessionContext{}, err
	}
	s.client.Invalidate("")
	s.notify(sessionContext)
	return sessionContext, nil
}

func (s *SecureSessionService) EndImpersonation(ctx context.Context) (model.SessionContext, error) {
	var sessionContext model.SessionContext
	err := s.client.Do(ctx, http.MethodDelete, "/secure-session/impersonate", nil, nil, &sessionContext)
	if err != nil {
		return model.SessionContext{}, err
	}
	s.client.Invalidate("")
	s.notify(sessionContext)
	return sessionContext, nil
}
