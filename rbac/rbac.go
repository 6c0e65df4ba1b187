// Package rbac gates protected operations. Authenticate turns a bearer
// token into an Identity through a fixed three-step check; the predicate
// methods then decide authorization over the identity's role.
//
// Authentication failure and authorization failure are distinct outcomes
// (401 versus 403 at the HTTP surface) and are never conflated here.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexcrm/lexcrm/blacklist"
	"github.com/lexcrm/lexcrm/store"
	"github.com/lexcrm/lexcrm/token"
)

var (
	// ErrTokenRevoked is returned for blacklisted access tokens.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrAccountInactive is returned when the token's account is disabled.
	ErrAccountInactive = errors.New("account inactive")
)

// Identity is an authenticated caller. It is immutable and side-effect
// free; the permission set is resolved once at authentication time.
type Identity struct {
	AccountID string
	Email     string
	Username  string
	RoleID    string
	RoleName  string

	permissions map[string]struct{}
}

// HasPermission reports whether the identity's role carries the named
// permission. Roles holding admin:all pass every check.
func (id *Identity) HasPermission(name string) bool {
	if _, ok := id.permissions[store.PermissionAdminAll]; ok {
		return true
	}
	_, ok := id.permissions[name]
	return ok
}

// Enforcer verifies bearer tokens and answers role/permission questions.
type Enforcer struct {
	tokens *token.Manager
	list   blacklist.Service
	store  store.CredentialStore
}

// NewEnforcer wires the gate's three dependencies.
func NewEnforcer(tokens *token.Manager, list blacklist.Service, cs store.CredentialStore) *Enforcer {
	return &Enforcer{tokens: tokens, list: list, store: cs}
}

// Authenticate runs the mandatory ordered gate: signature and expiry first
// (no store access), then blacklist, then the account-active flag. A
// blacklist lookup failure rejects the token; trust is never granted on an
// undetermined revocation status.
func (e *Enforcer) Authenticate(ctx context.Context, bearerToken string) (*Identity, error) {
	claims, err := e.tokens.VerifyAccessToken(bearerToken)
	if err != nil {
		return nil, err
	}

	revoked, err := e.list.IsBlacklisted(ctx, bearerToken)
	if err != nil {
		return nil, fmt.Errorf("blacklist status undetermined: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	acct, err := e.store.AccountByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !acct.Active {
		return nil, ErrAccountInactive
	}

	perms := make(map[string]struct{}, len(acct.Role.Permissions))
	for _, p := range acct.Role.Permissions {
		perms[p.Name] = struct{}{}
	}
	return &Identity{
		AccountID:   acct.ID,
		Email:       acct.Email,
		Username:    acct.Username,
		RoleID:      acct.RoleID,
		RoleName:    acct.Role.Name,
		permissions: perms,
	}, nil
}

// Authorize reports whether the identity may perform the named permission.
func (e *Enforcer) Authorize(identity *Identity, permissionName string) bool {
	if identity == nil {
		return false
	}
	return identity.HasPermission(permissionName)
}

// RequireRole is an exact role-name match.
func (e *Enforcer) RequireRole(identity *Identity, roleName string) bool {
	return identity != nil && identity.RoleName == roleName
}

// RequireAnyRole reports whether the identity's role is in the given set.
func (e *Enforcer) RequireAnyRole(identity *Identity, roleNames ...string) bool {
	if identity == nil {
		return false
	}
	for _, name := range roleNames {
		if identity.RoleName == name {
			return true
		}
	}
	return false
}
