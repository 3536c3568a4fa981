package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"salonbook/internal/domain/wallet"
	"salonbook/internal/middleware"
	"salonbook/internal/modules/booking"
	"salonbook/internal/modules/payment"
	"salonbook/internal/modules/slots"
	"salonbook/internal/pkg/jwt"
)

// Deps are the services behind the HTTP surface. Payments may be nil when no
// provider is configured; the webhook route is then not mounted.
type Deps struct {
	DB          *gorm.DB
	Tokens      *jwt.Service
	Slots       *slots.Service
	Bookings    *booking.Service
	Wallets     *wallet.Service
	Payments    *payment.Service
	ServiceName string
	CORSOrigins string
	Loggerf     func(format string, args ...interface{})
}

func NewRouter(d Deps) *gin.Engine {
	if d.ServiceName == "" {
		d.ServiceName = "salonbook"
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(otelgin.Middleware(d.ServiceName))
	r.Use(middleware.ErrorLogger())
	r.Use(middleware.CORS(d.CORSOrigins))

	r.GET("/health", health(d.DB))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	slotsHandler := slots.NewHandler(d.Slots)
	bookingHandler := booking.NewHandler(d.Bookings)
	walletHandler := wallet.NewHandler(d.Wallets)

	v1 := r.Group("/api/v1")
	{
		// public
		slotsHandler.RegisterRoutes(v1)
		if d.Payments != nil {
			payment.NewHandler(d.Payments, d.Loggerf).RegisterPublicRoutes(v1)
		}

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(d.Tokens))
		{
			bookingHandler.RegisterRoutes(protected)
			walletHandler.RegisterRoutes(protected)
		}

		staff := protected.Group("")
		staff.Use(middleware.AdminOnly())
		{
			slotsHandler.RegisterProtectedRoutes(staff)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.AdminOnly())
		{
			walletHandler.RegisterAdminRoutes(admin)
		}
	}

	return r
}

func health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
