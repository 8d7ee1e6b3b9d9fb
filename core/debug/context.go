// Package debug collects per-request access diagnostics.
package debug

import (
	"context"

	"github.com/trezcool/escuela/core/access"
)

// Context describes how a request's caller was resolved.
// It is built per request and never shared between requests.
type Context struct {
	UserID       string      `json:"user_id"`
	Email        string      `json:"email"`
	Role         access.Role `json:"role"`
	SchoolID     string      `json:"school_id"`
	Classrooms   []string    `json:"classrooms"`
	StudentCount int         `json:"student_count"`
	LastError    string      `json:"last_error,omitempty"`
}

// Collect resolves the caller's scope into a new Context.
// A resolution error is recorded in LastError instead of being returned.
func Collect(ctx context.Context, resolver *access.Resolver, caller access.Caller, email string) Context {
	dc := Context{
		UserID:     caller.UserID,
		Email:      email,
		Role:       caller.Role,
		SchoolID:   caller.SchoolID,
		Classrooms: []string{},
	}

	scope, err := resolver.ResolveScope(ctx, caller)
	if err != nil {
		dc.LastError = err.Error()
		return dc
	}
	dc.Classrooms = scope.Classrooms.Slice()
	dc.StudentCount = scope.Students.Len()
	return dc
}
