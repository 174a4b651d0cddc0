// Package docs holds the generated swagger specification served at /swagger/.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/loyalty/v1/users": {
            "post": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Register a user on first observed event",
                "responses": {
                    "200": {"description": "already registered"},
                    "201": {"description": "created"},
                    "400": {"description": "invalid request"}
                }
            }
        },
        "/api/loyalty/v1/users/{user_id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "User profile with level, badges, and rank",
                "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "user not found"}
                }
            }
        },
        "/api/loyalty/v1/users/{user_id}/points": {
            "post": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Apply a signed point delta (admin)",
                "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "admin header missing"},
                    "404": {"description": "user not found"}
                }
            }
        },
        "/api/loyalty/v1/users/{user_id}/purchases": {
            "post": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Register a purchase and convert it to points",
                "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "invalid amount"},
                    "404": {"description": "user not found"}
                }
            }
        },
        "/api/loyalty/v1/users/{user_id}/redemptions": {
            "post": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Redeem a reward against finite stock",
                "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "user or reward not found"},
                    "409": {"description": "out of stock or insufficient points"}
                }
            }
        },
        "/api/loyalty/v1/users/{user_id}/rank": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "1-based leaderboard position",
                "parameters": [{"type": "string", "name": "user_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "user not found"}
                }
            }
        },
        "/api/loyalty/v1/leaderboard": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Top users by points",
                "parameters": [{"type": "string", "name": "limit", "in": "query"}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "invalid limit"}
                }
            }
        },
        "/api/loyalty/v1/rewards": {
            "get": {
                "produces": ["application/json"],
                "tags": ["loyalty"],
                "summary": "Active, in-stock reward catalog",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "",
	Schemes:          []string{},
	Title:            "divan loyalty API",
	Description:      "Gamification ledger and rewards engine.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
