package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/utils"
)

func ListUsers(ctx *gin.Context) {
	var users []models.User

	err := db.DB.Preload("Roles").Preload("Groups").
		Where("is_active = ?", true).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"users": users})
}

func ListRoles(ctx *gin.Context) {
	var roles []models.Role

	if err := db.DB.Preload("Permissions").Order("name ASC").Find(&roles).Error; err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"roles": roles})
}

type CreateUserRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	RealName    string `json:"real_name"`
	Department  string `json:"department"`
	PhoneNumber string `json:"phone_number"`
	RoleIDs     []uint `json:"roles"`
}

func CreateUser(ctx *gin.Context) {
	var req CreateUserRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("password hashing failed", zap.Error(err))
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(passwordHash),
		RealName:     req.RealName,
		Department:   req.Department,
		PhoneNumber:  req.PhoneNumber,
		IsActive:     true,
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.User{}).
			Where("username = ? OR email = ?", req.Username, req.Email).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("username or email already exists")
		}

		if len(req.RoleIDs) > 0 {
			if err := tx.Where("id IN ?", req.RoleIDs).Find(&user.Roles).Error; err != nil {
				return err
			}
		}

		return tx.Create(&user).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"user": user})
}

type UpdateUserRequest struct {
	Email       *string `json:"email"`
	RealName    *string `json:"real_name"`
	Department  *string `json:"department"`
	PhoneNumber *string `json:"phone_number"`
	RoleIDs     *[]uint `json:"roles"`
}

func UpdateUser(ctx *gin.Context) {
	userID, err := utils.ParamUint(ctx, "user_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req UpdateUserRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return errs.NotFound("user %d not found", userID)
		}

		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if email != user.Email {
				var count int64
				err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error
				if err != nil {
					return err
				}
				if count > 0 {
					return errs.Conflict("email already exists")
				}
				user.Email = email
			}
		}

		if req.RealName != nil {
			user.RealName = *req.RealName
		}
		if req.Department != nil {
			user.Department = *req.Department
		}
		if req.PhoneNumber != nil {
			user.PhoneNumber = *req.PhoneNumber
		}

		if err := tx.Save(&user).Error; err != nil {
			return err
		}

		if req.RoleIDs != nil {
			var roles []models.Role
			if len(*req.RoleIDs) > 0 {
				if err := tx.Where("id IN ?", *req.RoleIDs).Find(&roles).Error; err != nil {
					return err
				}
			}
			if err := tx.Model(&user).Association("Roles").Replace(roles); err != nil {
				return err
			}
			user.Roles = roles
		}

		return nil
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

type UserStatusRequest struct {
	IsActive *bool `json:"is_active"`
}

// SetUserStatus enables or disables an account. Without an explicit value
// the flag is toggled.
func SetUserStatus(ctx *gin.Context) {
	userID, err := utils.ParamUint(ctx, "user_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req UserStatusRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var user models.User

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return errs.NotFound("user %d not found", userID)
		}

		active := !user.IsActive
		if req.IsActive != nil {
			active = *req.IsActive
		}

		user.IsActive = active
		return tx.Model(&user).Update("is_active", active).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": user})
}

func ListGroups(ctx *gin.Context) {
	var groups []models.Group

	err := db.DB.Preload("Manager").Preload("Roles").Preload("Members").
		Order("name ASC").
		Find(&groups).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"groups": groups})
}

type GroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ManagerID   *uint  `json:"manager_id"`
}

func CreateGroup(ctx *gin.Context) {
	var req GroupRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	group := models.Group{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Group{}).Where("name = ?", req.Name).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("a group named %q already exists", req.Name)
		}

		if req.ManagerID != nil {
			var manager models.User
			if err := tx.First(&manager, *req.ManagerID).Error; err != nil {
				return errs.NotFound("manager %d not found", *req.ManagerID)
			}
		}

		return tx.Create(&group).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"group": group})
}

func UpdateGroup(ctx *gin.Context) {
	groupID, err := utils.ParamUint(ctx, "group_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req GroupRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var group models.Group

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&group, groupID).Error; err != nil {
			return errs.NotFound("group %d not found", groupID)
		}

		if req.Name != group.Name {
			var count int64
			err := tx.Model(&models.Group{}).Where("name = ?", req.Name).Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return errs.Conflict("a group named %q already exists", req.Name)
			}
		}

		group.Name = req.Name
		group.Description = req.Description
		group.ManagerID = req.ManagerID

		return tx.Model(&group).Updates(map[string]any{
			"name":        group.Name,
			"description": group.Description,
			"manager_id":  group.ManagerID,
		}).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"group": group})
}

// DeleteGroup removes a group and its membership rows. Blocked while any
// workflow step still resolves approvers through it.
func DeleteGroup(ctx *gin.Context) {
	groupID, err := utils.ParamUint(ctx, "group_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.First(&group, groupID).Error; err != nil {
			return errs.NotFound("group %d not found", groupID)
		}

		var steps int64
		err := tx.Model(&models.ApprovalStep{}).
			Where("approver_group_id = ? AND is_active = ?", groupID, true).
			Count(&steps).Error
		if err != nil {
			return err
		}
		if steps > 0 {
			return errs.Conflict("group is referenced by %d active workflow step(s)", steps)
		}

		if err := tx.Model(&group).Association("Members").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&group).Association("Roles").Clear(); err != nil {
			return err
		}

		return tx.Delete(&group).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

func ListGroupMembers(ctx *gin.Context) {
	groupID, err := utils.ParamUint(ctx, "group_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var group models.Group
	if err := db.DB.Preload("Members").First(&group, groupID).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Group not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"members": group.Members})
}

type GroupMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func AddGroupMember(ctx *gin.Context) {
	groupID, err := utils.ParamUint(ctx, "group_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req GroupMemberRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var group models.Group

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Members").First(&group, groupID).Error; err != nil {
			return errs.NotFound("group %d not found", groupID)
		}

		var user models.User
		if err := tx.First(&user, req.UserID).Error; err != nil {
			return errs.NotFound("user %d not found", req.UserID)
		}

		for _, member := range group.Members {
			if member.ID == user.ID {
				return errs.Conflict("user %d is already a member", user.ID)
			}
		}

		return tx.Model(&group).Association("Members").Append(&user)
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Member added"})
}

func RemoveGroupMember(ctx *gin.Context) {
	groupID, err := utils.ParamUint(ctx, "group_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := utils.ParamUint(ctx, "user_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var group models.Group
		if err := tx.Preload("Members").First(&group, groupID).Error; err != nil {
			return errs.NotFound("group %d not found", groupID)
		}

		for i := range group.Members {
			if group.Members[i].ID == userID {
				return tx.Model(&group).Association("Members").Delete(&group.Members[i])
			}
		}

		return errs.Validation("user %d is not a member of this group", userID)
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}
