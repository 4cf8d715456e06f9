package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

var otherMethods = map[string][]string{
	http.MethodPost: {http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete},
	http.MethodGet:  {http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
}

// route registers h for method at path, and a 405 with msg for the other common methods.
// Paths are registered with and without the trailing slash.
func route(g *gin.RouterGroup, method, path string, h gin.HandlerFunc, msg string) {
	paths := []string{path + "/", path}
	for _, p := range paths {
		g.Handle(method, p, h)
		for _, m := range otherMethods[method] {
			g.Handle(m, p, methodNotAllowed(msg))
		}
	}
}

// RegisterRoutes registers all the routes for the document processing service.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.RedirectTrailingSlash = false
	router.GET("/healthz", api.HealthHandler)

	v := router.Group("/api")
	route(v, http.MethodPost, "/process_document", api.ProcessDocumentHandler, "POST required")
	route(v, http.MethodGet, "/task_status/:task_id", api.TaskStatusHandler, "GET required")
	route(v, http.MethodPost, "/query_document", api.QueryDocumentHandler, "POST required")
	route(v, http.MethodPost, "/clear_cache", api.ClearCacheHandler, "POST required")
}
