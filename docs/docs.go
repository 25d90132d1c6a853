// Package docs registers the OpenAPI description served at /swagger.
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
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Authenticate user and return JWT token",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "credentials", "required": true, "schema": {"$ref": "#/definitions/handlers.CredentialsRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.LoginResult"}}, "401": {"description": "Unauthorized"}}
            }
        },
        "/admin/users": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["admin"],
                "summary": "Create user with a role",
                "parameters": [{"in": "body", "name": "user", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateUserRequest"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}, "409": {"description": "User exists"}}
            }
        },
        "/products": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "List and search products",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query"},
                    {"type": "string", "name": "name", "in": "query"},
                    {"type": "boolean", "name": "archived", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Create a new product",
                "parameters": [{"in": "body", "name": "product", "required": true, "schema": {"$ref": "#/definitions/handlers.ProductRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Invalid input"}, "409": {"description": "SKU already exists"}}
            }
        },
        "/products/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Get a product by ID",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Product not found"}}
            }
        },
        "/products/{id}/archive": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["products"],
                "summary": "Archive a product",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Product still has stock"}}
            }
        },
        "/products/{id}/stock": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stock"],
                "summary": "Stock of a product at every location",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/products/{id}/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["events"],
                "summary": "Stock event history of a product",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/locations": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["locations"], "summary": "List locations", "responses": {"200": {"description": "OK"}}},
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["locations"],
                "summary": "Create a location",
                "parameters": [{"in": "body", "name": "location", "required": true, "schema": {"$ref": "#/definitions/handlers.LocationRequest"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/locations/{code}/stock": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stock"],
                "summary": "Stock held at a location",
                "parameters": [{"type": "string", "name": "code", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/stock": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["stock"],
                "summary": "Current quantity of a product at a location",
                "parameters": [{"type": "integer", "name": "product", "in": "query", "required": true}, {"type": "string", "name": "location", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/moves": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["stock"],
                "summary": "Move stock between two locations",
                "parameters": [{"in": "body", "name": "move", "required": true, "schema": {"$ref": "#/definitions/handlers.MoveRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/handlers.InsufficientStockResponse"}}}
            }
        },
        "/adjustments": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["stock"],
                "summary": "Apply a signed stock correction at one location",
                "parameters": [{"in": "body", "name": "adjustment", "required": true, "schema": {"$ref": "#/definitions/handlers.AdjustmentRequest"}}],
                "responses": {"201": {"description": "Created"}, "409": {"description": "Insufficient stock", "schema": {"$ref": "#/definitions/handlers.InsufficientStockResponse"}}}
            }
        },
        "/imports": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["import"], "summary": "Import a supply batch", "responses": {"200": {"description": "OK"}}}
        },
        "/imports/csv": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["import"],
                "summary": "Import a supply list via CSV",
                "consumes": ["multipart/form-data"],
                "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "File was already imported"}}
            }
        },
        "/events": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Stock event history", "responses": {"200": {"description": "OK"}}}
        },
        "/events/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["events"], "summary": "Export stock event history", "responses": {"200": {"description": "OK"}}}
        },
        "/sessions": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Open an inventory session for a location", "responses": {"201": {"description": "Created"}, "409": {"description": "Location already has an open session"}}}
        },
        "/sessions/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Get an inventory session", "responses": {"200": {"description": "OK"}}}
        },
        "/sessions/{id}/counts": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Record counted quantities", "responses": {"200": {"description": "OK"}}}
        },
        "/sessions/{id}/commit": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Commit an inventory session", "responses": {"200": {"description": "OK"}}}
        },
        "/sessions/{id}/abort": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Abort an inventory session", "responses": {"200": {"description": "OK"}}}
        },
        "/notify/rules": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["notify"], "summary": "List notification rules", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["notify"], "summary": "Create or replace a notification rule", "responses": {"200": {"description": "OK"}}}
        },
        "/metrics/dashboard": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["metrics"], "summary": "Dashboard metrics for admin view", "responses": {"200": {"description": "OK"}}}
        }
    },
    "definitions": {
        "handlers.CredentialsRequest": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "handlers.LoginResult": {"type": "object", "properties": {"token": {"type": "string"}}},
        "handlers.CreateUserRequest": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}, "role": {"type": "string"}}},
        "handlers.ProductRequest": {"type": "object", "properties": {"sku": {"type": "string"}, "name": {"type": "string"}, "local_name": {"type": "string"}, "photo_ref": {"type": "string"}}},
        "handlers.LocationRequest": {"type": "object", "properties": {"code": {"type": "string"}, "kind": {"type": "string"}, "title": {"type": "string"}}},
        "handlers.MoveRequest": {"type": "object", "properties": {"product_id": {"type": "integer"}, "from": {"type": "string"}, "to": {"type": "string"}, "quantity": {"type": "integer"}}},
        "handlers.AdjustmentRequest": {"type": "object", "properties": {"product_id": {"type": "integer"}, "location": {"type": "string"}, "delta": {"type": "integer"}, "reason": {"type": "string"}}},
        "handlers.InsufficientStockResponse": {"type": "object", "properties": {"error": {"type": "string"}, "product_id": {"type": "integer"}, "location": {"type": "string"}, "attempted": {"type": "integer"}, "available": {"type": "integer"}}}
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Warehouse Ledger API",
	Description:      "REST API for warehouse stock, inventory sessions and stock notifications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
