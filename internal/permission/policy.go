// Package permission resolves actor capabilities from a role policy table.
package permission

import (
	"context"
	"errors"
	"fmt"

	"fin_flow/internal/domain"

	"gorm.io/gorm"
)

// Policy grants actions per role and entity
type Policy map[domain.Role]map[domain.Entity][]domain.Action

// DefaultPolicy: admins run the back office, the superadmin additionally
// self-approves and overrides the normal lifecycle.
var DefaultPolicy = Policy{
	domain.RoleUser: {},
	domain.RoleAdmin: {
		domain.EntityCollection:  {domain.ActionReject, domain.ActionFlag, domain.ActionResubmit, domain.ActionRestore, domain.ActionDelete, domain.ActionView},
		domain.EntityTransaction: {domain.ActionFlag, domain.ActionResubmit, domain.ActionCancel, domain.ActionView},
		domain.EntityExpense:     {domain.ActionApprove, domain.ActionReject, domain.ActionFlag, domain.ActionResubmit, domain.ActionRestore, domain.ActionView},
		domain.EntityWallet:      {domain.ActionView},
	},
	domain.RoleSuperAdmin: {
		domain.EntityCollection:  {domain.ActionReject, domain.ActionFlag, domain.ActionResubmit, domain.ActionRestore, domain.ActionDelete, domain.ActionView, domain.ActionSelfApprove, domain.ActionOverride},
		domain.EntityTransaction: {domain.ActionFlag, domain.ActionResubmit, domain.ActionCancel, domain.ActionView},
		domain.EntityExpense:     {domain.ActionApprove, domain.ActionReject, domain.ActionFlag, domain.ActionResubmit, domain.ActionRestore, domain.ActionView, domain.ActionSelfApprove, domain.ActionOverride},
		domain.EntityWallet:      {domain.ActionView},
		domain.EntityAutoPay:     {domain.ActionView, domain.ActionManage},
	},
}

// Allows reports whether role holds action on entity
func (p Policy) Allows(role domain.Role, action domain.Action, entity domain.Entity) bool {
	for _, a := range p[role][entity] {
		if a == action {
			return true
		}
	}
	return false
}

// Resolver looks up the actor's role and checks it against a Policy
type Resolver struct {
	db     *gorm.DB
	policy Policy
}

// NewResolver creates a Resolver; a nil policy means DefaultPolicy
func NewResolver(db *gorm.DB, policy Policy) *Resolver {
	if policy == nil {
		policy = DefaultPolicy
	}
	return &Resolver{db: db, policy: policy}
}

// Role returns the stored role of a user
func (r *Resolver) Role(ctx context.Context, userID uint) (domain.Role, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Select("id", "role").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("%w: user %d", domain.ErrNotFound, userID)
	}
	if err != nil {
		return "", fmt.Errorf("load role of user %d: %w", userID, err)
	}
	return user.Role, nil
}

// CanPerform reports whether the actor may perform action on entity. Unknown
// actors hold no capabilities.
func (r *Resolver) CanPerform(ctx context.Context, actorID uint, action domain.Action, entity domain.Entity) (bool, error) {
	role, err := r.Role(ctx, actorID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.policy.Allows(role, action, entity), nil
}
