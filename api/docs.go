package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
)

const swaggerDocPath = "/swagger/flighthold.swagger.json"

//go:embed swagger/flighthold.swagger.json
var swaggerSpec []byte

// RegisterDocs mounts the swagger UI under /docs. The OpenAPI document is read
// from dir when set and from the embedded copy otherwise.
func RegisterDocs(router *gin.Engine, dir string) {
	if dir != "" {
		router.Static("/swagger", dir)
	} else {
		router.GET(swaggerDocPath, func(c *gin.Context) {
			c.Data(http.StatusOK, "application/json", swaggerSpec)
		})
	}

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
	router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL(swaggerDocPath))))
}
