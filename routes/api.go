package routes

import (
	"time"

	"github.com/gin-gonic/gin"

	"doula/app/http/controllers/api/v1/appointments"
	"doula/app/http/controllers/api/v1/consents"
	"doula/app/http/controllers/api/v1/enrollments"
	"doula/app/http/controllers/api/v1/payments"
	"doula/app/http/controllers/api/v1/services"
	"doula/app/http/controllers/api/v1/trainings"
	"doula/app/http/controllers/api/v1/users"
	"doula/app/http/middlewares"
	"doula/pkg/config"
	"doula/pkg/database"
	"doula/pkg/queue"
	"doula/pkg/response"
)

// 路由限流配置
const (
	// 🌍 全局限流：每小时每IP 30000 请求
	GlobalRateLimit = "30000-H"
	// 💳 创建支付限流：每小时每IP 100 请求
	CreatePaymentLimit = "100-H"
	// 📡 提供商回调限流：每分钟每IP 600 请求
	WebhookRateLimit = "600-M"
	// 🔍 查询限流：每分钟每IP 300 请求
	QueryRateLimit = "300-M"
)

// RegisterAPIRoutes 注册所有 API 路由
func RegisterAPIRoutes(r *gin.Engine, qs *queue.QueueService) {
	registerHealthRoute(r, qs)

	v1 := r.Group("/v1")

	v1.Use(
		middlewares.Recovery(),
		middlewares.SecurityHeaders(),
		middlewares.LimitIP(config.GetString("app.api_rate_limit", GlobalRateLimit)),
		middlewares.Cors(),
	)

	// 💳 支付相关路由
	paymentRoutes := v1.Group("/payments")
	{
		pc := payments.NewPaymentController()
		wc := payments.NewWebhookController(qs)

		// 创建支付
		// POST /v1/payments
		paymentRoutes.POST("",
			middlewares.LimitPerRoute(CreatePaymentLimit),
			pc.Store,
		)

		// 提供商回调，签名验证在各自服务内完成
		paymentRoutes.POST("/stripe/webhook",
			middlewares.LimitPerRoute(WebhookRateLimit),
			wc.StripeWebhook,
		)
		paymentRoutes.POST("/paypal/webhook",
			middlewares.LimitPerRoute(WebhookRateLimit),
			wc.PayPalWebhook,
		)

		// PayPal 审批回跳后的捕获确认
		paymentRoutes.POST("/paypal/:order_id/capture",
			middlewares.LimitPerRoute(CreatePaymentLimit),
			wc.PayPalCapture,
		)

		// 查询
		paymentRoutes.GET("", middlewares.LimitIP(QueryRateLimit), pc.Index)
		paymentRoutes.GET("/:id", middlewares.LimitIP(QueryRateLimit), pc.Show)
		paymentRoutes.GET("/:id/audits", middlewares.LimitIP(QueryRateLimit), pc.Audits)

		// 退款
		paymentRoutes.POST("/:id/refund",
			middlewares.LimitPerRoute(CreatePaymentLimit),
			pc.Refund,
		)
	}

	// 👤 用户相关路由
	userRoutes := v1.Group("/users")
	{
		uc := users.NewUserController()
		userRoutes.POST("", uc.Store)
		userRoutes.GET("", uc.Index)
		userRoutes.GET("/:id", uc.Show)
		userRoutes.PUT("/:id", uc.Update)
		userRoutes.DELETE("/:id", uc.Delete)
	}

	// 🩺 服务项目相关路由
	serviceRoutes := v1.Group("/services")
	{
		sc := services.NewServiceController()
		serviceRoutes.POST("", sc.Store)
		serviceRoutes.GET("", sc.Index)
		serviceRoutes.GET("/:id", sc.Show)
		serviceRoutes.PUT("/:id", sc.Update)
		serviceRoutes.DELETE("/:id", sc.Delete)
	}

	// 📅 预约相关路由
	appointmentRoutes := v1.Group("/appointments")
	{
		ac := appointments.NewAppointmentController()
		appointmentRoutes.POST("", ac.Store)
		appointmentRoutes.GET("", ac.Index)
		appointmentRoutes.GET("/:id", ac.Show)
		appointmentRoutes.PUT("/:id", ac.Update)
		appointmentRoutes.DELETE("/:id", ac.Delete)
	}

	// 🎓 培训课程相关路由
	trainingRoutes := v1.Group("/trainings")
	{
		tc := trainings.NewTrainingController()
		trainingRoutes.POST("", tc.Store)
		trainingRoutes.GET("", tc.Index)
		trainingRoutes.GET("/:id", tc.Show)
		trainingRoutes.PUT("/:id", tc.Update)
		trainingRoutes.DELETE("/:id", tc.Delete)
	}

	// 📝 培训报名相关路由
	enrollmentRoutes := v1.Group("/enrollments")
	{
		ec := enrollments.NewEnrollmentController()
		enrollmentRoutes.POST("", ec.Store)
		enrollmentRoutes.GET("", ec.Index)
		enrollmentRoutes.GET("/:id", ec.Show)
		enrollmentRoutes.PUT("/:id", ec.Update)
		enrollmentRoutes.DELETE("/:id", ec.Delete)
	}

	// ✍️ 知情同意书相关路由
	consentRoutes := v1.Group("/consents")
	{
		cc := consents.NewConsentController()
		consentRoutes.POST("", cc.Store)
		consentRoutes.GET("", cc.Index)
		consentRoutes.GET("/:id", cc.Show)
		consentRoutes.PUT("/:id", cc.Update)
		consentRoutes.DELETE("/:id", cc.Delete)
	}
}

// registerHealthRoute 健康检查端点，不参与限流
func registerHealthRoute(r *gin.Engine, qs *queue.QueueService) {
	r.GET("/health", func(c *gin.Context) {
		status := gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
			"providers": gin.H{
				"stripe": config.GetString("payment.stripe.secret_key") != "",
				"paypal": config.GetString("payment.paypal.client_id") != "",
			},
		}

		if database.SQLDB != nil {
			if err := database.SQLDB.Ping(); err != nil {
				status["status"] = "degraded"
				status["database"] = err.Error()
			}
		}

		if qs != nil {
			if err := qs.Ping(c.Request.Context()); err != nil {
				status["status"] = "degraded"
				status["queue"] = err.Error()
			} else {
				status["queue_metrics"] = qs.Metrics().Snapshot()
			}
		}

		response.JSON(c, status)
	})
}
