package handlers

import (
	"github.com/heshen/BookStack-1/internal/auth"
	"github.com/heshen/BookStack-1/internal/services"

	"github.com/gin-contrib/sessions"
)

// ginSessionState adapts a gin session to the logout dispatcher's
// SessionState so the dispatcher never touches request state directly.
type ginSessionState struct {
	session sessions.Session
}

var _ services.SessionState = (*ginSessionState)(nil)

func (s *ginSessionState) LastLoginMethod() auth.Method {
	if v, ok := s.session.Get(SessionLastLoginMethod).(string); ok {
		return auth.Method(v)
	}
	return ""
}

func (s *ginSessionState) Invalidate() error {
	s.session.Clear()
	s.session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return s.session.Save()
}
