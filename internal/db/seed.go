package db

import (
	"context" // Request-free context for seeding
	"errors"  // Sentinel matching
	"fmt"     // Error wrapping
	"strings" // Username normalisation

	"fin_flow/internal/domain" // Importing domain models
	"fin_flow/internal/ledger" // Wallet provisioning

	"github.com/sirupsen/logrus" // Structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM ORM library
)

// SeedSuperAdmin creates the superadmin account, or promotes an existing user
// with that name. Registration only ever creates regular users, so this is the
// way the first administrator comes into existence.
func SeedSuperAdmin(ctx context.Context, db *gorm.DB, username, password string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: superadmin username and password are required", domain.ErrValidation)
	}
	var user domain.User
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("username = ?", username).First(&user).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user = domain.User{Username: username, Password: string(hash), Role: domain.RoleSuperAdmin}
			if err := tx.Omit("Wallet").Create(&user).Error; err != nil {
				return fmt.Errorf("create superadmin: %w", err)
			}
		case err != nil:
			return fmt.Errorf("look up %s: %w", username, err)
		case user.Role != domain.RoleSuperAdmin:
			if err := tx.Model(&user).Update("role", domain.RoleSuperAdmin).Error; err != nil {
				return fmt.Errorf("promote %s: %w", username, err)
			}
			user.Role = domain.RoleSuperAdmin
		}
		_, err = ledger.New(tx).GetOrCreateWallet(ctx, user.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,       // Superadmin ID
		"username": user.Username, // Username
	}).Info("Superadmin ready")
	return &user, nil
}
