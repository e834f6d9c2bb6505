package handlers

import (
	"bytes"
	"html/template"
	"net/http"

	"bikeshare-platform/pkg/logging"
)

const (
	docsTitle      = "Bikeshare Platform API Documentation"
	openAPIDocPath = "/api/docs/openapi.json"
	swaggerUIDist  = "https://unpkg.com/swagger-ui-dist@5.10.0"
)

// docsPage is the data rendered into the Swagger UI page
type docsPage struct {
	Title   string
	DocURL  string
	DistURL string
}

var docsTemplate = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="{{.DistURL}}/swagger-ui.css">
    <style>body { margin: 0; }</style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="{{.DistURL}}/swagger-ui-bundle.js"></script>
    <script>
        window.onload = () => {
            window.ui = SwaggerUIBundle({
                url: "{{.DocURL}}",
                dom_id: "#swagger-ui",
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis]
            });
        };
    </script>
</body>
</html>`))

// SwaggerUI handles GET /api/docs
func (h *TripHandler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	page := docsPage{Title: docsTitle, DocURL: openAPIDocPath, DistURL: swaggerUIDist}
	if err := docsTemplate.Execute(&buf, page); err != nil {
		h.logger.Error(r.Context(), "[DOCS_ERROR] Failed to render documentation page", logging.Fields{}, err)
		h.sendError(w, r, "Failed to render documentation page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn(r.Context(), "[DOCS_WRITE_ERROR] Failed to write documentation page", logging.Fields{
			"error": err.Error(),
		})
	}
}
