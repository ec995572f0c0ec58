// Package docs registers the OpenAPI document served at /doc.
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
        "/todos": {
            "get": {
                "description": "Lists every todo, or only those carrying the given tag",
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "List todos",
                "parameters": [
                    {"type": "string", "description": "Tag id filter", "name": "tag", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.TodoResponse"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Create a todo",
                "parameters": [
                    {"description": "Todo to create", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateTodoRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TodoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "delete": {
                "description": "Removes all todos and clears every tag's todo list. Responds once the removal has completed.",
                "tags": ["todos"],
                "summary": "Delete every todo",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/todos/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Get a todo",
                "parameters": [
                    {"type": "string", "description": "Todo id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TodoResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["todos"],
                "summary": "Delete a todo",
                "parameters": [
                    {"type": "string", "description": "Todo id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "patch": {
                "description": "Replaces only the fields present in the body",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Update a todo",
                "parameters": [
                    {"type": "string", "description": "Todo id", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateTodoRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TodoResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/todos/{id}/tags": {
            "get": {
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "List the tag ids of a todo",
                "parameters": [
                    {"type": "string", "description": "Todo id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "string"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Attach a tag to a todo",
                "parameters": [
                    {"type": "string", "description": "Todo id", "name": "id", "in": "path", "required": true},
                    {"description": "Tag to attach", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.AddTagRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TodoDocument"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/todos/{id}/tags/{tagID}": {
            "delete": {
                "description": "Removes the first occurrence of the tag. Removing a tag the todo does not carry succeeds.",
                "produces": ["application/json"],
                "tags": ["todos"],
                "summary": "Detach a tag from a todo",
                "parameters": [
                    {"type": "string", "description": "Todo id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Tag id", "name": "tagID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TodoDocument"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/tags": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tags"],
                "summary": "List tags",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/handlers.TagResponse"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tags"],
                "summary": "Create a tag",
                "parameters": [
                    {"description": "Tag to create", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateTagRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TagResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/tags/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tags"],
                "summary": "Get a tag",
                "parameters": [
                    {"type": "string", "description": "Tag id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TagResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tags"],
                "summary": "Update a tag",
                "parameters": [
                    {"type": "string", "description": "Tag id", "name": "id", "in": "path", "required": true},
                    {"description": "Fields to change", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateTagRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.TagResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "request_id": {"type": "string"},
                "type": {"type": "string"}
            }
        },
        "handlers.AddTagRequest": {
            "type": "object",
            "required": ["id"],
            "properties": {
                "id": {"type": "string"}
            }
        },
        "handlers.CreateTagRequest": {
            "type": "object",
            "required": ["name"],
            "properties": {
                "name": {"type": "string", "minLength": 1}
            }
        },
        "handlers.CreateTodoRequest": {
            "type": "object",
            "required": ["title"],
            "properties": {
                "completed": {"type": "boolean"},
                "order": {"type": "integer"},
                "title": {"type": "string", "minLength": 1}
            }
        },
        "handlers.TagResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "todos": {"type": "array", "items": {"type": "string"}}
            }
        },
        "handlers.TodoDocument": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "id": {"type": "string"},
                "order": {"type": "integer"},
                "tags": {"type": "array", "items": {"type": "string"}},
                "title": {"type": "string"}
            }
        },
        "handlers.TodoResponse": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "id": {"type": "string"},
                "order": {"type": "integer"},
                "title": {"type": "string"}
            }
        },
        "handlers.UpdateTagRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "minLength": 1}
            }
        },
        "handlers.UpdateTodoRequest": {
            "type": "object",
            "properties": {
                "completed": {"type": "boolean"},
                "order": {"type": "integer"},
                "title": {"type": "string", "minLength": 1}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Todo API",
	Description:      "A simple TODO API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
