package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/complaint-service/api"
	"github.com/psds-microservice/complaint-service/internal/handler"
	"github.com/psds-microservice/complaint-service/internal/middleware"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func New(ticketHandler *handler.TicketHandler, attendanceHandler *handler.AttendanceHandler) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", gin.WrapF(handler.Health))
	r.GET("/ready", gin.WrapF(handler.Ready))
	r.GET("/swagger", func(c *gin.Context) { c.Redirect(http.StatusFound, "/swagger/") })
	r.GET("/swagger/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = "/swagger/index.html"
			c.Request.RequestURI = "/swagger/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	v1.Use(middleware.Actor())
	{
		v1.POST("/tickets", ticketHandler.Create)
		v1.GET("/tickets", ticketHandler.List)
		v1.GET("/tickets/:id", ticketHandler.Get)
		v1.POST("/tickets/:id/assign", ticketHandler.Assign)
		v1.POST("/tickets/:id/unassign", ticketHandler.Unassign)
		v1.PUT("/tickets/:id/status", ticketHandler.UpdateStatus)
		v1.POST("/tickets/:id/complete", ticketHandler.Complete)
		v1.POST("/tickets/:id/close", ticketHandler.Close)
		v1.POST("/tickets/:id/auto-assign", ticketHandler.AutoAssign)
		v1.GET("/tickets/:id/suggested-engineers", ticketHandler.SuggestedEngineers)
		v1.GET("/tickets/:id/history", ticketHandler.History)

		v1.POST("/engineers/:id/check-in", attendanceHandler.CheckIn)
		v1.POST("/engineers/:id/check-out", attendanceHandler.CheckOut)
		v1.GET("/engineers/:id/status", attendanceHandler.Status)
		v1.GET("/engineers/:id/attendance", attendanceHandler.DailyRecords)
	}

	return r
}
