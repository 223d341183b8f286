// Package approval implements the multi-step closure approval engine:
// per-step approver resolution and the approve/reject decision flow.
// All operations are tx-scoped; the caller owns commit and rollback.
package approval

import (
	"errors"

	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
)

// ResolveApprovers returns the set of users allowed to decide the given
// step. USER yields a singleton, ROLE yields every holder of the role,
// GROUP_MANAGER yields the group's manager or an empty set when the group
// has none. A misconfigured step (missing reference) resolves empty.
func ResolveApprovers(tx *gorm.DB, step *models.ApprovalStep) ([]models.User, error) {
	switch step.ApprovalType {
	case models.ApprovalTypeUser:
		if step.ApproverUserID == nil {
			return nil, nil
		}
		var user models.User
		if err := tx.First(&user, *step.ApproverUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []models.User{user}, nil

	case models.ApprovalTypeRole:
		if step.ApproverRoleID == nil {
			return nil, nil
		}
		var role models.Role
		err := tx.Preload("Users").First(&role, *step.ApproverRoleID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return role.Users, nil

	case models.ApprovalTypeGroupManager:
		if step.ApproverGroupID == nil {
			return nil, nil
		}
		var group models.Group
		err := tx.Preload("Manager").First(&group, *step.ApproverGroupID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil
			}
			return nil, err
		}
		if group.Manager == nil {
			return nil, nil
		}
		return []models.User{*group.Manager}, nil

	default:
		return nil, errs.Validation("unknown approval type: %s", step.ApprovalType)
	}
}

// CanApprove reports whether userID is in the resolved approver set of the
// step.
func CanApprove(tx *gorm.DB, step *models.ApprovalStep, userID uint) (bool, error) {
	approvers, err := ResolveApprovers(tx, step)
	if err != nil {
		return false, err
	}

	for _, approver := range approvers {
		if approver.ID == userID {
			return true, nil
		}
	}

	return false, nil
}
