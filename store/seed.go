package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultRoleName is assigned to accounts created through registration.
const DefaultRoleName = "paralegal"

// PermissionAdminAll short-circuits every permission check.
const PermissionAdminAll = "admin:all"

var seedResources = []string{"clients", "cases", "contracts", "payments"}

var seedRoles = map[string][]string{
	"admin": {PermissionAdminAll},
	"attorney": {
		"clients:read", "clients:write",
		"cases:read", "cases:write",
		"contracts:read", "contracts:write",
		"payments:read",
	},
	"paralegal": {
		"clients:read",
		"cases:read", "cases:write",
		"contracts:read",
	},
	"billing": {
		"clients:read",
		"contracts:read",
		"payments:read", "payments:write",
	},
}

// Seed creates the firm's roles and permissions if missing. Idempotent;
// existing rows are left untouched so administrative edits survive restarts.
func (g *Gorm) Seed(ctx context.Context) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		perms := make(map[string]Permission)

		ensurePerm := func(name string) (Permission, error) {
			if p, ok := perms[name]; ok {
				return p, nil
			}
			resource, action, _ := strings.Cut(name, ":")
			p := Permission{
				ID:       uuid.NewString(),
				Name:     name,
				Resource: resource,
				Action:   action,
			}
			res := tx.Where(Permission{Name: name}).FirstOrCreate(&p)
			if res.Error != nil {
				return Permission{}, res.Error
			}
			perms[name] = p
			return p, nil
		}

		for _, resource := range seedResources {
			for _, action := range []string{"read", "write"} {
				if _, err := ensurePerm(resource + ":" + action); err != nil {
					return err
				}
			}
		}
		if _, err := ensurePerm(PermissionAdminAll); err != nil {
			return err
		}

		for name, permNames := range seedRoles {
			role := Role{ID: uuid.NewString(), Name: name}
			res := tx.Where(Role{Name: name}).FirstOrCreate(&role)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue
			}
			assigned := make([]Permission, 0, len(permNames))
			for _, pn := range permNames {
				p, err := ensurePerm(pn)
				if err != nil {
					return err
				}
				assigned = append(assigned, p)
			}
			if err := tx.Model(&role).Association("Permissions").Append(assigned); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}
	return nil
}
