package domain

// Role names stored on users
type Role string

const (
	RoleUser       Role = "user"       // Regular member
	RoleAdmin      Role = "admin"      // Back-office approver
	RoleSuperAdmin Role = "superadmin" // Top-level administrator
)

// User Model
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`                                                   // Primary key
	Username string `gorm:"unique;not null" json:"username"`                                        // Unique username
	Password string `gorm:"not null" json:"-"`                                                      // Hashed password
	Role     Role   `gorm:"size:16;default:user" json:"role"`                                       // Role: user, admin or superadmin
	Wallet   Wallet `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;" json:"wallet,omitempty"` // One-to-one relationship with Wallet
}
