package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Prestago Loans API",
        "description": "Gateway for the institutional equipment and space loan program",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Requests", "description": "Loan request lifecycle"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"}
                }
            }
        },
        "/requests": {
            "get": {
                "tags": ["Requests"],
                "summary": "List loan requests",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "class", "in": "query", "type": "string", "enum": ["ALL", "EQUIPMENT", "SPACE"]},
                    {"name": "subcategory_id", "in": "query", "type": "string"},
                    {"name": "date_from", "in": "query", "type": "string"},
                    {"name": "date_to", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Requests"],
                "summary": "Submit a loan request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLoanRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}": {
            "get": {
                "tags": ["Requests"],
                "summary": "Get one loan request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/requests/{id}/transition": {
            "post": {
                "tags": ["Requests"],
                "summary": "Apply a lifecycle transition",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Illegal transition or operation in progress"}
                }
            }
        },
        "/requests/sweep": {
            "post": {
                "tags": ["Requests"],
                "summary": "Cancel expired pending requests",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/SweepReport"}}
                }
            }
        },
        "/requests/export": {
            "get": {
                "tags": ["Requests"],
                "summary": "Export filtered request history",
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    },
    "definitions": {
        "Request": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "requester_id": {"type": "string"},
                "requester_name": {"type": "string"},
                "kind": {"type": "string", "enum": ["EQUIPMENT", "SPACE"]},
                "resource_refs": {"type": "array", "items": {"type": "string"}},
                "resource_name": {"type": "string"},
                "quantity": {"type": "integer"},
                "category": {"type": "string", "enum": ["GENERAL", "LAPTOP"]},
                "subcategory_id": {"type": "string"},
                "space_id": {"type": "string"},
                "space_name": {"type": "string"},
                "window": {"$ref": "#/definitions/Window"},
                "environment": {"type": "string"},
                "ticket_number": {"type": "string"},
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED", "CANCELLED", "FINISHED"]},
                "created_at": {"type": "string"}
            }
        },
        "Window": {
            "type": "object",
            "properties": {
                "start": {"type": "string"},
                "end": {"type": "string"}
            }
        },
        "CreateLoanRequest": {
            "type": "object",
            "properties": {
                "kind": {"type": "string", "enum": ["EQUIPMENT", "SPACE"]},
                "resource_refs": {"type": "array", "items": {"type": "string"}},
                "resource_name": {"type": "string"},
                "quantity": {"type": "integer"},
                "category": {"type": "string", "enum": ["GENERAL", "LAPTOP"]},
                "subcategory_id": {"type": "string"},
                "space_id": {"type": "string"},
                "space_name": {"type": "string"},
                "start": {"type": "string"},
                "end": {"type": "string"},
                "environment": {"type": "string"},
                "ticket_number": {"type": "string"}
            },
            "required": ["kind", "start", "end", "environment", "ticket_number"]
        },
        "TransitionRequest": {
            "type": "object",
            "properties": {
                "status": {"type": "string", "enum": ["PENDING", "APPROVED", "REJECTED", "CANCELLED", "FINISHED"]}
            },
            "required": ["status"]
        },
        "SweepReport": {
            "type": "object",
            "properties": {
                "scanned": {"type": "integer"},
                "expired": {"type": "integer"},
                "cancelled": {"type": "array", "items": {"type": "string"}},
                "failed": {"type": "array", "items": {"type": "string"}},
                "swept_at": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"},
                "total_pages": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
