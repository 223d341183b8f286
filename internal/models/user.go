package models

import "time"

type User struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	RealName     string    `json:"real_name,omitempty"`
	Department   string    `json:"department,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relationships
	Groups []Group `gorm:"many2many:user_groups" json:"groups,omitempty"`
	Roles  []Role  `gorm:"many2many:user_roles" json:"roles,omitempty"`
}

// HasPermission reports whether the user holds the permission directly
// through a role or indirectly through a group's roles. Roles and Groups
// must be preloaded with their permission sets.
func (u *User) HasPermission(code string) bool {
	for _, role := range u.Roles {
		if role.HasPermission(code) {
			return true
		}
	}

	for _, group := range u.Groups {
		for _, role := range group.Roles {
			if role.HasPermission(code) {
				return true
			}
		}
	}

	return false
}

type Group struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Description string    `json:"description,omitempty"`
	ManagerID   *uint     `json:"manager_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// Relationships
	Manager *User  `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Roles   []Role `gorm:"many2many:group_roles" json:"roles,omitempty"`
	Members []User `gorm:"many2many:user_groups" json:"members,omitempty"`
}

type Role struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description,omitempty"`

	// Relationships
	Permissions []Permission `gorm:"many2many:role_permissions" json:"permissions,omitempty"`
	Users       []User       `gorm:"many2many:user_roles" json:"-"`
}

func (r *Role) HasPermission(code string) bool {
	for _, perm := range r.Permissions {
		if perm.Code == code {
			return true
		}
	}
	return false
}

type Permission struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Code        string `gorm:"uniqueIndex;not null" json:"code"`
	Description string `json:"description,omitempty"`
}
