package handlers

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/faultline-dev/faultline/db"
	"github.com/faultline-dev/faultline/internal/errs"
	"github.com/faultline-dev/faultline/internal/models"
	"github.com/faultline-dev/faultline/internal/utils"
)

type ServiceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	OwnerTeam   string `json:"owner_team"`
	IsActive    *bool  `json:"is_active"`
}

func ListServices(ctx *gin.Context) {
	query := db.DB.Model(&models.Service{})

	if name := ctx.Query("name"); name != "" {
		query = query.Where("name LIKE ?", "%"+name+"%")
	}
	if team := ctx.Query("owner_team"); team != "" {
		query = query.Where("owner_team LIKE ?", "%"+team+"%")
	}
	if active := ctx.Query("is_active"); active != "" {
		query = query.Where("is_active = ?", active == "true" || active == "1")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		respondError(ctx, err)
		return
	}

	page, pageSize := parsePagination(ctx)

	var services []models.Service
	err := query.Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&services).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"services":  services,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func GetService(ctx *gin.Context) {
	serviceID, err := utils.ParamUint(ctx, "service_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var service models.Service
	if err := db.DB.First(&service, serviceID).Error; err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Service not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"service": service})
}

func CreateService(ctx *gin.Context) {
	var req ServiceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	service := models.Service{
		Name:        req.Name,
		Description: req.Description,
		OwnerTeam:   req.OwnerTeam,
		IsActive:    true,
	}
	if req.IsActive != nil {
		service.IsActive = *req.IsActive
	}

	err := db.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.Service{}).Where("name = ?", req.Name).Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return errs.Conflict("a service named %q already exists", req.Name)
		}

		return tx.Create(&service).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{"service": service})
}

func UpdateService(ctx *gin.Context) {
	serviceID, err := utils.ParamUint(ctx, "service_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req ServiceRequest

	if err := ctx.BindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var service models.Service

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&service, serviceID).Error; err != nil {
			return errs.NotFound("service %d not found", serviceID)
		}

		if req.Name != service.Name {
			var count int64
			err := tx.Model(&models.Service{}).Where("name = ?", req.Name).Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return errs.Conflict("a service named %q already exists", req.Name)
			}
		}

		service.Name = req.Name
		service.Description = req.Description
		service.OwnerTeam = req.OwnerTeam
		if req.IsActive != nil {
			service.IsActive = *req.IsActive
		}

		return tx.Save(&service).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"service": service})
}

// DeleteService deactivates a service. Blocked while alerts or incidents
// still reference it, so their service links stay resolvable.
func DeleteService(ctx *gin.Context) {
	serviceID, err := utils.ParamUint(ctx, "service_id")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = db.DB.Transaction(func(tx *gorm.DB) error {
		var service models.Service
		if err := tx.First(&service, serviceID).Error; err != nil {
			return errs.NotFound("service %d not found", serviceID)
		}

		var linked int64
		err := tx.Model(&models.Alert{}).Where("service_id = ?", serviceID).Count(&linked).Error
		if err != nil {
			return err
		}

		var incidents int64
		err = tx.Model(&models.Incident{}).Where("service_id = ?", serviceID).Count(&incidents).Error
		if err != nil {
			return err
		}

		if linked+incidents > 0 {
			return errs.Conflict("service has %d linked record(s) and cannot be deleted", linked+incidents)
		}

		return tx.Model(&service).Update("is_active", false).Error
	})
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Service deactivated"})
}

func ListServiceTeams(ctx *gin.Context) {
	var teams []string

	err := db.DB.Model(&models.Service{}).
		Where("owner_team <> '' AND is_active = ?", true).
		Distinct().
		Pluck("owner_team", &teams).Error
	if err != nil {
		respondError(ctx, err)
		return
	}

	sort.Strings(teams)
	ctx.JSON(http.StatusOK, gin.H{"teams": teams})
}
