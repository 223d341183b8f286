package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/faultline-dev/faultline/internal/config"
	"github.com/faultline-dev/faultline/internal/handlers"
	"github.com/faultline-dev/faultline/internal/middleware"
	"github.com/faultline-dev/faultline/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     config.C.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/:topic", middleware.AuthMiddleware(), handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
		}

		alerts := api.Group("/alerts", middleware.AuthMiddleware())
		{
			alerts.GET("", middleware.RequirePermission(types.PermAlertRead), handlers.ListAlerts)
			alerts.GET("/statistics", middleware.RequirePermission(types.PermAlertRead), handlers.AlertStatistics)
			alerts.POST("", middleware.RequirePermission(types.PermAlertWrite), handlers.CreateAlert)
			alerts.PUT("/batch", middleware.RequirePermission(types.PermAlertWrite), handlers.BatchUpdateAlerts)
			alerts.GET("/:alert_id", middleware.RequirePermission(types.PermAlertRead), handlers.GetAlert)
			alerts.PUT("/:alert_id/acknowledge", middleware.RequirePermission(types.PermAlertWrite), handlers.AcknowledgeAlert)
			alerts.PUT("/:alert_id/ignore", middleware.RequirePermission(types.PermAlertWrite), handlers.IgnoreAlert)
			alerts.PUT("/:alert_id/resolve", middleware.RequirePermission(types.PermAlertWrite), handlers.ResolveAlert)
			alerts.PUT("/:alert_id/link", middleware.RequirePermission(types.PermAlertWrite), handlers.LinkAlert)
			alerts.GET("/:alert_id/comments", middleware.RequirePermission(types.PermAlertRead), handlers.ListAlertComments)
			alerts.POST("/:alert_id/comments", middleware.RequirePermission(types.PermAlertWrite), handlers.CreateAlertComment)
		}

		incidents := api.Group("/incidents", middleware.AuthMiddleware())
		{
			incidents.GET("", middleware.RequirePermission(types.PermIncidentRead), handlers.ListIncidents)
			incidents.POST("", middleware.RequirePermission(types.PermIncidentWrite), handlers.CreateIncident)
			incidents.GET("/:incident_id", middleware.RequirePermission(types.PermIncidentRead), handlers.GetIncident)
			incidents.GET("/:incident_id/logs", middleware.RequirePermission(types.PermIncidentRead), handlers.ListIncidentStatusLogs)
			incidents.PUT("/:incident_id", middleware.RequirePermission(types.PermIncidentWrite), handlers.ChangeIncidentStatus)
			incidents.POST("/:incident_id/assign", middleware.RequirePermission(types.PermIncidentAssign), handlers.AssignIncident)
			incidents.POST("/:incident_id/close", middleware.RequirePermission(types.PermIncidentWrite), handlers.CloseIncident)
			incidents.POST("/:incident_id/reopen", middleware.RequirePermission(types.PermIncidentWrite), handlers.ReopenIncident)
			incidents.POST("/:incident_id/comments", middleware.RequirePermission(types.PermIncidentWrite), handlers.CreateIncidentComment)
		}

		confirmed := api.Group("/incidents-new", middleware.AuthMiddleware())
		{
			confirmed.GET("", middleware.RequirePermission(types.PermIncidentRead), handlers.ListConfirmedIncidents)
			confirmed.GET("/statistics", middleware.RequirePermission(types.PermIncidentRead), handlers.ConfirmedIncidentStatistics)
			confirmed.POST("", middleware.RequirePermission(types.PermIncidentWrite), handlers.CreateConfirmedIncident)
			confirmed.GET("/:incident_id", middleware.RequirePermission(types.PermIncidentRead), handlers.GetConfirmedIncident)
			confirmed.PUT("/:incident_id/status", middleware.RequirePermission(types.PermIncidentWrite), handlers.ChangeConfirmedIncidentStatus)
			confirmed.POST("/:incident_id/progress", middleware.RequirePermission(types.PermIncidentWrite), handlers.AddConfirmedIncidentProgress)
			confirmed.POST("/:incident_id/emergency-response", middleware.RequirePermission(types.PermIncidentWrite), handlers.TriggerEmergencyResponse)
			confirmed.GET("/:incident_id/timeline", middleware.RequirePermission(types.PermIncidentRead), handlers.GetConfirmedIncidentTimeline)
		}

		problems := api.Group("/problems", middleware.AuthMiddleware())
		{
			problems.GET("", middleware.RequirePermission(types.PermProblemRead), handlers.ListProblems)
			problems.POST("", middleware.RequirePermission(types.PermProblemWrite), handlers.CreateProblem)
			problems.GET("/:problem_id", middleware.RequirePermission(types.PermProblemRead), handlers.GetProblem)
			problems.GET("/:problem_id/logs", middleware.RequirePermission(types.PermProblemRead), handlers.ListProblemStatusLogs)
			problems.PUT("/:problem_id", middleware.RequirePermission(types.PermProblemWrite), handlers.UpdateProblem)
			problems.POST("/:problem_id/request-approval", middleware.RequirePermission(types.PermProblemWrite), handlers.RequestProblemApproval)
		}

		approvals := api.Group("/approvals", middleware.AuthMiddleware())
		{
			approvals.GET("", middleware.RequirePermission(types.PermApprovalRead), handlers.ListApprovals)
			approvals.GET("/:approval_id", middleware.RequirePermission(types.PermApprovalRead), handlers.GetApproval)
			approvals.POST("/:approval_id/approve", middleware.RequirePermission(types.PermApprovalRead), handlers.ApproveApproval)
			approvals.POST("/:approval_id/reject", middleware.RequirePermission(types.PermApprovalRead), handlers.RejectApproval)
		}

		api.GET("/my-approvals", middleware.AuthMiddleware(), middleware.RequirePermission(types.PermApprovalRead), handlers.ListMyApprovals)

		workflows := api.Group("/approval-workflows", middleware.AuthMiddleware())
		{
			workflows.GET("", middleware.RequirePermission(types.PermApprovalRead), handlers.ListWorkflows)
			workflows.GET("/:workflow_id", middleware.RequirePermission(types.PermApprovalRead), handlers.GetWorkflow)
			workflows.POST("", middleware.RequirePermission(types.PermApprovalAdmin), handlers.CreateWorkflow)
			workflows.PUT("/:workflow_id", middleware.RequirePermission(types.PermApprovalAdmin), handlers.UpdateWorkflow)
			workflows.DELETE("/:workflow_id", middleware.RequirePermission(types.PermApprovalAdmin), handlers.DeleteWorkflow)
		}

		postmortems := api.Group("/postmortems", middleware.AuthMiddleware())
		{
			postmortems.GET("", middleware.RequirePermission(types.PermPostmortemRead), handlers.ListPostmortems)
			postmortems.GET("/statistics", middleware.RequirePermission(types.PermPostmortemRead), handlers.PostmortemStatistics)
			postmortems.GET("/:postmortem_id", middleware.RequirePermission(types.PermPostmortemRead), handlers.GetPostmortem)
		}

		actionItems := api.Group("/action-items", middleware.AuthMiddleware())
		{
			actionItems.GET("", middleware.RequirePermission(types.PermPostmortemRead), handlers.ListActionItems)
			actionItems.POST("", middleware.RequirePermission(types.PermPostmortemWrite), handlers.CreateActionItem)
			actionItems.GET("/:action_item_id", middleware.RequirePermission(types.PermPostmortemRead), handlers.GetActionItem)
			actionItems.GET("/:action_item_id/logs", middleware.RequirePermission(types.PermPostmortemRead), handlers.ListActionItemLogs)
			actionItems.PUT("/:action_item_id/status", middleware.RequirePermission(types.PermPostmortemWrite), handlers.ChangeActionItemStatus)
			actionItems.PUT("/:action_item_id/assignee", middleware.RequirePermission(types.PermPostmortemWrite), handlers.AssignActionItem)
			actionItems.PUT("/:action_item_id/due-date", middleware.RequirePermission(types.PermPostmortemWrite), handlers.SetActionItemDueDate)
		}

		services := api.Group("/services", middleware.AuthMiddleware())
		{
			services.GET("", handlers.ListServices)
			services.GET("/teams", handlers.ListServiceTeams)
			services.GET("/:service_id", handlers.GetService)
			services.POST("", middleware.RequirePermission(types.PermSystemAdmin), handlers.CreateService)
			services.PUT("/:service_id", middleware.RequirePermission(types.PermSystemAdmin), handlers.UpdateService)
			services.DELETE("/:service_id", middleware.RequirePermission(types.PermSystemAdmin), handlers.DeleteService)
		}

		users := api.Group("/users", middleware.AuthMiddleware())
		{
			users.GET("", middleware.RequirePermission(types.PermUserRead), handlers.ListUsers)
			users.POST("", middleware.RequirePermission(types.PermUserWrite), handlers.CreateUser)
			users.PUT("/:user_id", middleware.RequirePermission(types.PermUserWrite), handlers.UpdateUser)
			users.PUT("/:user_id/status", middleware.RequirePermission(types.PermUserWrite), handlers.SetUserStatus)
		}

		api.GET("/roles", middleware.AuthMiddleware(), middleware.RequirePermission(types.PermUserRead), handlers.ListRoles)

		groups := api.Group("/groups", middleware.AuthMiddleware())
		{
			groups.GET("", middleware.RequirePermission(types.PermUserRead), handlers.ListGroups)
			groups.POST("", middleware.RequirePermission(types.PermUserWrite), handlers.CreateGroup)
			groups.PUT("/:group_id", middleware.RequirePermission(types.PermUserWrite), handlers.UpdateGroup)
			groups.DELETE("/:group_id", middleware.RequirePermission(types.PermUserWrite), handlers.DeleteGroup)
			groups.GET("/:group_id/members", middleware.RequirePermission(types.PermUserRead), handlers.ListGroupMembers)
			groups.POST("/:group_id/members", middleware.RequirePermission(types.PermUserWrite), handlers.AddGroupMember)
			groups.DELETE("/:group_id/members/:user_id", middleware.RequirePermission(types.PermUserWrite), handlers.RemoveGroupMember)
		}
	}

	return r
}
