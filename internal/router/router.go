package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/portal-service/api"
	"github.com/psds-microservice/portal-service/internal/handler"
	"github.com/psds-microservice/portal-service/internal/middleware"
	"github.com/psds-microservice/portal-service/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps carries everything the router wires into routes.
type Deps struct {
	Chat           *handler.ChatHandler
	WS             *handler.WSHandler
	Project        *handler.ProjectHandler
	Contact        *handler.ContactHandler
	User           *handler.UserHandler
	Users          *service.UserService
	JWTSecret      string
	AllowedOrigins []string
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

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

	auth := middleware.Auth(d.Users, d.JWTSecret)

	// Live relay; messages themselves go through the REST API.
	r.GET("/ws", auth, d.WS.Serve)

	v1 := r.Group("/api/v1")
	{
		// Public lead capture behind the marketing site contact form.
		v1.POST("/contacts", d.Contact.Create)

		authed := v1.Group("", auth)
		{
			authed.POST("/sessions", d.Chat.CreateSession)
			authed.GET("/sessions", d.Chat.ListSessions)
			authed.POST("/sessions/:id/messages", d.Chat.SendMessage)
			authed.GET("/sessions/:id/messages", d.Chat.ListMessages)
			authed.POST("/sessions/:id/close", d.Chat.CloseSession)
			authed.GET("/sessions/:id/unread", d.Chat.UnreadCount)
			authed.POST("/messages/:id/read", d.Chat.MarkRead)

			authed.GET("/projects", d.Project.List)
			authed.GET("/projects/:id", d.Project.Get)
			authed.GET("/projects/:id/milestones", d.Project.ListMilestones)
			authed.GET("/projects/:id/progress", d.Project.Progress)

			authed.GET("/me", d.User.Me)
			authed.PUT("/me", d.User.UpdateMe)

			staff := authed.Group("", middleware.RequireStaff())
			{
				staff.POST("/sessions/:id/assign", d.Chat.AssignAgent)
				staff.GET("/contacts", d.Contact.List)
				staff.PATCH("/contacts/:id", d.Contact.Update)
			}

			admin := authed.Group("", middleware.RequireAdmin())
			{
				admin.POST("/projects", d.Project.Create)
				admin.PATCH("/projects/:id/status", d.Project.UpdateStatus)
				admin.POST("/projects/:id/milestones", d.Project.CreateMilestone)
				admin.PATCH("/milestones/:id/status", d.Project.UpdateMilestoneStatus)
				admin.GET("/users", d.User.List)
			}
		}
	}

	return r
}
