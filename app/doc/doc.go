package doc

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/swaggo/swag"
)

// serveSwaggerJSON serves the generated document with servers and the
// bearer scheme filled in for env.
func serveSwaggerJSON(env, baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		originalJSON, err := swag.ReadDoc()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read Swagger doc"})
			return
		}

		var swaggerData map[string]interface{}
		if err := json.Unmarshal([]byte(originalJSON), &swaggerData); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to parse Swagger doc"})
			return
		}

		swaggerData["servers"] = serversFor(env, baseURL)

		components, _ := swaggerData["components"].(map[string]interface{})
		if components == nil {
			components = make(map[string]interface{})
			swaggerData["components"] = components
		}
		securitySchemes, _ := components["securitySchemes"].(map[string]interface{})
		if securitySchemes == nil {
			securitySchemes = make(map[string]interface{})
			components["securitySchemes"] = securitySchemes
		}
		securitySchemes["BearerAuth"] = map[string]interface{}{
			"type":         "http",
			"scheme":       "bearer",
			"bearerFormat": "PASETO",
			"description":  "Token from POST /api/v1/auth/login",
		}

		modifiedJSON, err := json.Marshal(swaggerData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate modified Swagger doc"})
			return
		}
		c.Data(http.StatusOK, "application/json", modifiedJSON)
	}
}

func serversFor(env, baseURL string) []map[string]interface{} {
	servers := []map[string]interface{}{
		{
			"url":         "http://localhost:8080/api/v1",
			"description": "Local Development Server",
		},
	}
	if env != "development" && baseURL != "" {
		servers = append(servers, map[string]interface{}{
			"url":         baseURL + "/api/v1",
			"description": "Desk Server (" + env + ")",
		})
	}
	return servers
}

func serveElements(c *gin.Context) {
	elementsHTML := `
<!DOCTYPE html>
<html>
<head>
    <title>Options Desk API</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <script src="https://unpkg.com/@stoplight/elements/web-components.min.js"></script>
    <link rel="stylesheet" href="https://unpkg.com/@stoplight/elements/styles.min.css">
    <style>
        body { margin: 0; padding: 0; height: 100vh; }
        elements-api { height: 100%; }
    </style>
</head>
<body>
    <elements-api
        apiDescriptionUrl="/swagger/doc.json"
        router="hash"
        layout="sidebar"
        tryItCredentialsPolicy="include"
    ></elements-api>
</body>
</html>`
	c.Header("Content-Type", "text/html")
	c.String(http.StatusOK, elementsHTML)
}

// Init mounts the API document and its viewer. baseURL is the public origin
// outside development.
func Init(r *gin.Engine, env, baseURL string) {
	r.GET("/swagger/doc.json", serveSwaggerJSON(env, baseURL))
	r.GET("/docs/*any", serveElements)
}
