// Package docs holds the swagger spec for the statusapi routes, hand
// maintained in the shape swag init generates (rest_api/docs in the
// teacher repo is codegen output from the same @-annotations used in
// handlers.go). Regenerate with `swag init --dir statusapi --output
// statusapi/docs` whenever a handler's annotations change.
package docs

import "github.com/swaggo/swag"

const doc = `{
    "swagger": "2.0",
    "info": {
        "title": "multipathd status API",
        "description": "Read-only view of the daemon's in-memory path and map state.",
        "version": "1.0"
    },
    "basePath": "/",
    "paths": {
        "/api/v1/maps": {"get": {"tags": ["Maps"], "summary": "List multipath maps", "responses": {"200": {"description": "OK"}}}},
        "/api/v1/maps/{alias}": {"get": {"tags": ["Maps"], "summary": "Get one multipath map by alias", "parameters": [{"name": "alias", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/v1/paths": {"get": {"tags": ["Paths"], "summary": "List paths", "responses": {"200": {"description": "OK"}}}},
        "/healthz": {"get": {"tags": ["Health"], "summary": "Liveness probe", "responses": {"200": {"description": "OK"}}}}
    }
}`

// SwaggerInfo holds exported swagger metadata, matching swag init's
// generated variable of the same name.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "multipathd status API",
	Description:      "Read-only view of the daemon's in-memory path and map state.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  doc,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
