package auth

import (
	"context"
	"errors"
	"strings"
)

// Role names a permission the execution environment grants to a caller.
type Role string

const (
	// RoleSessionMaster may create and start riddle sessions.
	RoleSessionMaster Role = "session_master"
	// RoleValidator may vote on pending questions.
	RoleValidator Role = "validator"
	// RoleOracle may award reputation and mint airdrop credits.
	RoleOracle Role = "oracle"
	// RoleAdmin may mint pool credits and emergency-stop sessions.
	RoleAdmin Role = "admin"
)

// ErrNoCaller indicates the request context carries no authenticated caller.
var ErrNoCaller = errors.New("caller not found in context")

// Caller is the capability object passed into every operation. It names the
// authenticated account and exactly which roles the caller presents, so
// authorization is testable without a global registry. Identity verification
// itself happens outside this service (trusted execution context).
type Caller struct {
	Address string
	Roles   []Role
}

// NewCaller creates a caller capability for an account with the given roles.
func NewCaller(address string, roles ...Role) Caller {
	return Caller{Address: address, Roles: roles}
}

// Can reports whether the caller presents the given role.
func (c Caller) Can(role Role) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ParseRoles parses a comma-separated role list (as sent in the X-Roles
// header). Unknown role names are dropped rather than rejected; permission
// checks only ever look for known roles.
func ParseRoles(list string) []Role {
	if list == "" {
		return nil
	}

	var roles []Role
	for _, part := range strings.Split(list, ",") {
		switch Role(strings.TrimSpace(part)) {
		case RoleSessionMaster:
			roles = append(roles, RoleSessionMaster)
		case RoleValidator:
			roles = append(roles, RoleValidator)
		case RoleOracle:
			roles = append(roles, RoleOracle)
		case RoleAdmin:
			roles = append(roles, RoleAdmin)
		}
	}
	return roles
}

// CallerKey is the key for caller data in context
type CallerKey struct{}

// WithCaller returns a context carrying the caller capability.
func WithCaller(ctx context.Context, caller Caller) context.Context {
	return context.WithValue(ctx, CallerKey{}, caller)
}

// CallerFromContext retrieves the caller capability from the context.
func CallerFromContext(ctx context.Context) (Caller, error) {
	caller, ok := ctx.Value(CallerKey{}).(Caller)
	if !ok || caller.Address == "" {
		return Caller{}, ErrNoCaller
	}
	return caller, nil
}
