package db

import (
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/faultline-dev/faultline/internal/models"
)

var defaultPermissions = []models.Permission{
	{Code: "alert:read", Description: "View alerts"},
	{Code: "alert:write", Description: "Create and triage alerts"},
	{Code: "incident:read", Description: "View incidents"},
	{Code: "incident:write", Description: "Create and update incidents"},
	{Code: "incident:assign", Description: "Assign incidents"},
	{Code: "problem:read", Description: "View problems"},
	{Code: "problem:write", Description: "Create and update problems"},
	{Code: "approval:read", Description: "View approval workflows"},
	{Code: "approval:admin", Description: "Manage approval workflows"},
	{Code: "postmortem:read", Description: "View postmortems and action items"},
	{Code: "postmortem:write", Description: "Create and update postmortems and action items"},
	{Code: "user:read", Description: "View users, roles and groups"},
	{Code: "user:write", Description: "Manage users, roles and groups"},
	{Code: "system:admin", Description: "Full administrative access"},
}

var defaultRoles = []struct {
	Name        string
	Description string
	Codes       []string
}{
	{"Administrator", "Holds every permission", nil},
	{"Incident Manager", "Runs incident response end to end", []string{
		"alert:read", "alert:write",
		"incident:read", "incident:write", "incident:assign",
		"problem:read", "problem:write",
		"approval:read",
		"postmortem:read", "postmortem:write",
	}},
	{"Engineer", "Works alerts, incidents and problems", []string{
		"alert:read", "alert:write",
		"incident:read", "incident:write",
		"problem:read", "problem:write",
		"postmortem:read",
	}},
	{"Viewer", "Read-only access", []string{
		"alert:read", "incident:read", "problem:read", "approval:read", "postmortem:read",
	}},
}

const (
	defaultAdminUsername = "admin"
	defaultAdminPassword = "admin123"
)

// SeedDefaults creates the baseline permission set, the default roles, and
// an administrator account so a fresh deployment has a grant path. Runs
// only against an empty permissions table.
func SeedDefaults() error {
	var count int64
	if err := DB.Model(&models.Permission{}).Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		return nil
	}

	perms := make([]models.Permission, len(defaultPermissions))
	copy(perms, defaultPermissions)

	if err := DB.Create(&perms).Error; err != nil {
		return err
	}

	byCode := make(map[string]models.Permission, len(perms))
	for _, perm := range perms {
		byCode[perm.Code] = perm
	}

	var adminRole models.Role

	for _, seed := range defaultRoles {
		role := models.Role{Name: seed.Name, Description: seed.Description}

		if seed.Codes == nil {
			role.Permissions = perms
		} else {
			for _, code := range seed.Codes {
				role.Permissions = append(role.Permissions, byCode[code])
			}
		}

		if err := DB.Create(&role).Error; err != nil {
			return err
		}

		if role.Name == "Administrator" {
			adminRole = role
		}
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(defaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Username:     defaultAdminUsername,
		Email:        "admin@example.com",
		PasswordHash: string(passwordHash),
		RealName:     "System Administrator",
		IsActive:     true,
		Roles:        []models.Role{adminRole},
	}

	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	zap.L().Info("seeded default permissions, roles and administrator account",
		zap.Int("permissions", len(perms)),
		zap.Int("roles", len(defaultRoles)),
		zap.String("admin_username", defaultAdminUsername))
	zap.L().Warn("default administrator password is in effect, change it after first login")

	return nil
}
