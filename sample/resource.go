// Package sample is a small gin application with the route shapes the
// language server understands: a group prefix, path parameters and
// handlers that render templates.
package sample

import (
	"embed"
	"fmt"
	"html/template"
	"maps"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

const helloTemplate = "hello.html"

// TemplateInstance holds the named data bindings of a template render.
type TemplateInstance map[string]any

// Data returns a copy of t with key bound to value.
func (t TemplateInstance) Data(key string, value any) TemplateInstance {
	out := make(TemplateInstance, len(t)+1)
	maps.Copy(out, t)
	out[key] = value
	return out
}

// HelloResource greets visitors and customers.
type HelloResource struct {
	templates *template.Template
	logger    *zap.Logger
}

// NewHelloResource parses the embedded templates.
func NewHelloResource(logger *zap.Logger) (*HelloResource, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &HelloResource{templates: tmpl, logger: logger}, nil
}

// Templates returns the parsed template set, to be installed with
// gin.Engine.SetHTMLTemplate.
func (h *HelloResource) Templates() *template.Template {
	return h.templates
}

// Routes registers the resource below /hello.
func (h *HelloResource) Routes(r gin.IRouter) {
	hello := r.Group("/hello")
	hello.GET("", h.Hello)

	customer := hello.Group("/customer")
	customer.GET("/:name", h.Customer)
	customer.PUT("/:name/:sufix", h.UpdateCustomer)
}

// Hello renders the default greeting.
func (h *HelloResource) Hello(c *gin.Context) {
	c.HTML(http.StatusOK, helloTemplate, TemplateInstance{}.Data("name", "micmine"))
}

// Customer greets the customer named in the path.
func (h *HelloResource) Customer(c *gin.Context) {
	c.HTML(http.StatusOK, helloTemplate, TemplateInstance{}.Data("name", c.Param("name")))
}

// UpdateCustomer validates its parameters but has no behaviour yet.
func (h *HelloResource) UpdateCustomer(c *gin.Context) {
	name := c.Param("name")
	sufix, err := strconv.Atoi(c.Param("sufix"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sufix must be an integer"})
		return
	}

	h.logger.Debug("customer update not implemented", zap.String("name", name), zap.Int("sufix", sufix))
	c.JSON(http.StatusNotImplemented, gin.H{
		"error": "not implemented",
		"route": c.Request.Method + " " + c.FullPath(),
		"name":  name,
		"sufix": sufix,
	})
}
