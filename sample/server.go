package sample

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewServer creates the router for the hello application.
func NewServer(logger *zap.Logger) (*gin.Engine, error) {
	hello, err := NewHelloResource(logger)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.SetHTMLTemplate(hello.Templates())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	hello.Routes(router)

	return router, nil
}
