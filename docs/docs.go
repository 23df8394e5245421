// Package docs registers the OpenAPI description served at /swagger.
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
        "/health": {
            "get": {"summary": "Service health with menu, order and user counts", "responses": {"200": {"description": "OK"}}}
        },
        "/api/chat": {
            "post": {
                "summary": "Send a chat message",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ChatRequest"}}],
                "responses": {"200": {"description": "Reply with intent, action and order context"}, "400": {"description": "Empty message"}}
            }
        },
        "/api/menu": {
            "get": {
                "summary": "List menu items",
                "parameters": [{"in": "query", "name": "category", "type": "string", "enum": ["all", "veg", "non-veg"]}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Unknown category"}}
            }
        },
        "/api/suggestions": {
            "get": {
                "summary": "Suggest items for a preference",
                "parameters": [{"in": "query", "name": "preference", "type": "string", "enum": ["popular", "veg", "non-veg", "spicy"]}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/order": {
            "post": {
                "summary": "Place an order directly",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid customer or size"}, "404": {"description": "Unknown item, with suggestions"}}
            }
        },
        "/api/order/{id}": {
            "get": {
                "summary": "Order status with ETA and progression",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}}
            }
        },
        "/api/order/{id}/status": {
            "post": {
                "summary": "Advance an order",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Illegal transition"}}
            }
        },
        "/api/order/{id}/cancel": {
            "post": {
                "summary": "Cancel an order",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Too late to cancel"}}
            }
        },
        "/api/order/{id}/events": {
            "get": {
                "summary": "Audit trail of an order, newest first",
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not found"}, "503": {"description": "Audit log disabled"}}
            }
        },
        "/api/users/check": {
            "get": {
                "summary": "Check whether an email is known",
                "parameters": [{"in": "query", "name": "email", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Invalid email"}}
            }
        },
        "/api/users": {
            "post": {"summary": "Create or rename a user", "responses": {"200": {"description": "OK"}}}
        },
        "/api/users/{email}/orders": {
            "get": {
                "summary": "Order history for an email",
                "parameters": [{"in": "path", "name": "email", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "ChatRequest": {
            "type": "object",
            "required": ["message"],
            "properties": {
                "message": {"type": "string"},
                "user_id": {"type": "string"},
                "user_email": {"type": "string"},
                "user_name": {"type": "string"}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pizza Planet API",
	Description:      "Conversational pizza ordering and order tracking.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
