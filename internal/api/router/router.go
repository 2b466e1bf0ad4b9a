package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"beamline-scheduler/backend/config"
	"beamline-scheduler/backend/internal/api/handler"
	"beamline-scheduler/backend/internal/api/middleware"
	"beamline-scheduler/backend/internal/model"
	"beamline-scheduler/backend/pkg/jwt"
	"beamline-scheduler/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证；登录接口限速防爆破）
		auth := v1.Group("/auth")
		{
			auth.POST("/login", middleware.RateLimit(rdb, 10, time.Minute), h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 仪器日历订阅源（日历客户端无法带 Token，公开只读）
		v1.GET("/export/instruments/:id/calendar.ics", h.Export.InstrumentFeed)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.POST("/auth/password", h.Auth.ChangePassword)

			// 用户模块
			users := authorized.Group("/users")
			{
				users.GET("/me", h.User.GetMe)
				users.PUT("/me", h.User.UpdateMe)
				users.PUT("/:id/role", middleware.RoleAuth(model.RoleUserOfficer), h.User.AssignRole)
			}

			// 提案预约工作流
			bookings := authorized.Group("/bookings")
			bookings.Use(middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist))
			{
				bookings.POST("", h.ProposalBooking.Open)
				bookings.GET("/:id", h.ProposalBooking.Get)
				bookings.POST("/:id/activate", h.ProposalBooking.Activate)
				bookings.POST("/:id/finalize", h.ProposalBooking.Finalize)
				bookings.PUT("/:id/step", h.ProposalBooking.GoToStep)
			}

			// 预约事件（时段编辑器）
			events := authorized.Group("/events")
			{
				events.POST("", middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), h.ScheduledEvent.Create)
				events.POST("/delete", middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), h.ScheduledEvent.Delete)
				events.PUT("/:id", middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), h.ScheduledEvent.Update)
				events.POST("/:id/edit", h.ScheduledEvent.BeginEdit)
				events.POST("/:id/reset", h.ScheduledEvent.ResetEdit)

				// 损失时间（挂在事件下）
				events.POST("/:id/lost-times", h.LostTime.Add)
				events.GET("/:id/lost-times", h.LostTime.ListByEvent)

				// 设备指派
				events.POST("/:id/equipments", middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), h.Equipment.Assign)
			}

			// 指派裁决（:event_id/:equipment_id 复合定位）
			authorized.PUT("/events/:id/equipments/:equipment_id/confirm", rebindEventID, h.Equipment.Confirm)
			authorized.DELETE("/events/:id/equipments/:equipment_id",
				middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), rebindEventID, h.Equipment.RemoveAssignment)

			// 损失时间
			lostTimes := authorized.Group("/lost-times")
			{
				lostTimes.PUT("/:id", h.LostTime.Update)
				lostTimes.DELETE("/:id", h.LostTime.Delete)
			}

			// 设备
			equipments := authorized.Group("/equipments")
			{
				equipments.GET("", h.Equipment.List)
				equipments.GET("/:id", h.Equipment.Get)
				equipments.POST("", middleware.RoleAuth(model.RoleUserOfficer, model.RoleEquipmentOwner), h.Equipment.Create)
				equipments.PUT("/:id", middleware.RoleAuth(model.RoleUserOfficer, model.RoleEquipmentOwner), h.Equipment.Update)
				equipments.PUT("/:id/responsible", middleware.RoleAuth(model.RoleUserOfficer, model.RoleEquipmentOwner), h.Equipment.SetResponsible)
			}

			// 待裁决收件箱
			authorized.GET("/assignments/pending", h.Equipment.ListPending)

			// 报表导出
			export := authorized.Group("/export")
			{
				export.GET("/bookings/:id", middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), h.Export.ExportBookingReport)
				export.GET("/instruments/:id", middleware.RoleAuth(model.RoleUserOfficer, model.RoleInstrumentScientist), h.Export.ExportInstrumentReport)
			}
		}
	}

	return r
}

// rebindEventID 把路径参数 :id 复制为 :event_id，供复合定位的 Handler 读取
func rebindEventID(c *gin.Context) {
	c.Params = append(c.Params, gin.Param{Key: "event_id", Value: c.Param("id")})
	c.Next()
}
