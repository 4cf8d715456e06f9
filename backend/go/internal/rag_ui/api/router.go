package api

import (
	"RagDesk/backend/go/internal/models"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageFuncs = template.FuncMap{
	"kb": formatKB,
	"when": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("2006-01-02 15:04")
	},
}

// RegisterRoutes registers the UI pages and endpoints. Everything except the index page
// and /login/ goes through the auth middleware.
func RegisterRoutes(router *gin.Engine, api *API) {
	router.RedirectTrailingSlash = false
	router.SetHTMLTemplate(template.Must(template.New("").Funcs(pageFuncs).ParseFS(templatesFS, "templates/*.html")))

	router.GET("/", api.IndexHandler)
	post(router.Group(""), "/login", api.LoginHandler)

	protected := router.Group("", api.auth.Middleware())
	post(protected, "/upload", api.UploadHandler)
	post(protected, "/process_file", api.ProcessFileHandler)
	post(protected, "/api/config/save", api.SaveConfigHandler)
	post(protected, "/api/chat", api.ChatHandler)
	for _, p := range []string{"/api/config/load/", "/api/config/load"} {
		protected.GET(p, api.LoadConfigHandler)
	}
}

// post registers h for POST at path with and without the trailing slash, and a 405 for GET.
func post(g *gin.RouterGroup, path string, h gin.HandlerFunc) {
	for _, p := range []string{path + "/", path} {
		g.POST(p, h)
		g.GET(p, func(c *gin.Context) {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "POST required"})
		})
	}
}

func errorInfo(err error) models.ErrorInfo {
	return models.ErrorInfo{Message: err.Error()}
}
