// Package docs registers the OpenAPI document served at /swagger/doc.json.
// Regenerate with `swag init -g cmd/api/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/ratings/process": {
            "post": {
                "description": "Rates every unprocessed map result and rebuilds the active season snapshot",
                "produces": ["application/json"],
                "tags": ["Ratings"],
                "summary": "Process Pending Results",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ProcessSummary"}},
                    "422": {"description": "No active season"}
                }
            }
        },
        "/ratings/current": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Ratings"],
                "summary": "Current Ratings",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.CurrentRating"}}}
                }
            }
        },
        "/ratings/reset": {
            "post": {
                "description": "Destructive. Requires {\"confirm\":\"RESET\"}.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Seasons"],
                "summary": "Reset All Ratings",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/seasons": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Seasons"],
                "summary": "List Seasons",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Seasons"],
                "summary": "Create Season",
                "responses": {"201": {"description": "Created"}, "409": {"description": "Concurrent season change"}}
            }
        },
        "/simulations": {
            "post": {
                "description": "With \"async\": true the job is queued and 202 is returned with its id",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Simulations"],
                "summary": "Simulate Tournament",
                "responses": {"200": {"description": "OK"}, "202": {"description": "Accepted"}, "503": {"description": "Queue full"}}
            }
        },
        "/simulations/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Simulations"],
                "summary": "Get Simulation",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/simulations/{id}/backtest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Simulations"],
                "summary": "Back-test Simulation",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "No recorded outcome"}}
            }
        },
        "/vetoes/{matchId}/reconcile": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Vetoes"],
                "summary": "Reconcile Veto Actors",
                "parameters": [
                    {"type": "integer", "name": "matchId", "in": "path", "required": true},
                    {"type": "integer", "name": "first_mover", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "422": {"description": "First mover unknown"}}
            }
        },
        "/vetoes/analyze": {
            "post": {
                "produces": ["application/json"],
                "tags": ["Vetoes"],
                "summary": "Analyze Veto Optimality",
                "parameters": [{"type": "string", "name": "since", "in": "query"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "models.ProcessSummary": {
            "type": "object",
            "properties": {
                "processed": {"type": "integer"},
                "skipped": {"type": "integer"},
                "records_written": {"type": "integer"},
                "season_id": {"type": "integer"},
                "snapshot_rows": {"type": "integer"}
            }
        },
        "models.CurrentRating": {
            "type": "object",
            "properties": {
                "season_id": {"type": "integer"},
                "team_id": {"type": "integer"},
                "map_name": {"type": "string"},
                "rating": {"type": "number"},
                "rated_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Map Elo Forecast API",
	Description:      "Per-map Elo ratings, seasons, veto analysis and Monte-Carlo tournament forecasts.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
