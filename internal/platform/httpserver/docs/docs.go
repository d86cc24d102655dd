// Package docs registers the swagger spec served at /swagger/doc.json.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/orders": {
            "post": {
                "summary": "Ingest a trade event",
                "responses": { "200": { "description": "ok" } }
            }
        },
        "/queue/claim": {
            "post": {
                "summary": "Claim pending events",
                "responses": { "200": { "description": "ok" } }
            }
        },
        "/stats": {
            "get": {
                "summary": "Queue statistics",
                "responses": { "200": { "description": "ok" } }
            }
        },
        "/ticket-map": {
            "post": {
                "summary": "Upsert a ticket mapping",
                "responses": { "200": { "description": "ok" } }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so other packages can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Order Bridge API",
	Description:      "Durable FIFO order broker and ticket-mapping substore.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
