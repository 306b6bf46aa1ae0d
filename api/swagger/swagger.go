package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "EduCenter CRM API",
        "description": "Scheduling, lifecycle and hours reporting for an education center",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Events", "description": "Lessons and administrative events"},
        {"name": "Reports", "description": "Hours and cancellation reporting"},
        {"name": "Catalog", "description": "Read-only lookups"}
    ],
    "paths": {
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "status", "in": "query", "type": "string", "enum": ["PLANNED", "COMPLETED", "CANCELED"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Events"],
                "summary": "Schedule an event",
                "description": "Lesson types are checked against the slot occupancy rule before they are stored.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateEventRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}": {
            "get": {
                "tags": ["Events"],
                "summary": "Get event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "patch": {
                "tags": ["Events"],
                "summary": "Edit an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Slot conflict or stale version", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events/{id}/status": {
            "post": {
                "tags": ["Events"],
                "summary": "Complete or cancel an event",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/TransitionEventRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Transition rejected", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/summary": {
            "get": {
                "tags": ["Reports"],
                "summary": "Hours summary",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/reports/summary/export": {
            "get": {
                "tags": ["Reports"],
                "summary": "Download the hours summary",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}}
                }
            }
        },
        "/reports/cancel-reasons": {
            "get": {
                "tags": ["Reports"],
                "summary": "Canceled events grouped by reason",
                "parameters": [
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/schedule": {
            "get": {
                "tags": ["Reports"],
                "summary": "Teacher schedule",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/cancel-reasons": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Cancel reason catalog",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["Catalog"],
                "summary": "Runtime and domain counters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Participant": {
            "type": "object",
            "required": ["userId", "participantRole"],
            "properties": {
                "userId": {"type": "string", "format": "uuid"},
                "participantRole": {"type": "string", "enum": ["STUDENT", "TEACHER", "CURATOR", "PSYCHOLOGIST", "PARENT"]}
            }
        },
        "CreateEventRequest": {
            "type": "object",
            "required": ["title", "activityType", "plannedStartAt", "plannedEndAt"],
            "properties": {
                "title": {"type": "string"},
                "subject": {"type": "string"},
                "activityType": {"type": "string", "enum": ["INDIVIDUAL_LESSON", "GROUP_LESSON", "LEISURE_GROUP", "OFFSITE_EVENT", "PEDAGOGICAL_CONSILIUM", "TEACHERS_GENERAL_MEETING", "PSYCHOLOGIST_SESSION"]},
                "plannedStartAt": {"type": "string", "format": "date-time"},
                "plannedEndAt": {"type": "string", "format": "date-time"},
                "plannedHours": {"type": "integer", "minimum": 1, "maximum": 12},
                "location": {"type": "string"},
                "notes": {"type": "string"},
                "createdByUserId": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/Participant"}}
            }
        },
        "UpdateEventRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "subject": {"type": "string"},
                "activityType": {"type": "string"},
                "plannedStartAt": {"type": "string", "format": "date-time"},
                "plannedEndAt": {"type": "string", "format": "date-time"},
                "plannedHours": {"type": "integer", "minimum": 1, "maximum": 12},
                "location": {"type": "string"},
                "notes": {"type": "string"},
                "participants": {"type": "array", "items": {"$ref": "#/definitions/Participant"}},
                "version": {"type": "integer"}
            }
        },
        "TransitionEventRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["COMPLETED", "CANCELED"]},
                "completionComment": {"type": "string"},
                "cancelReasonId": {"type": "string"},
                "cancelComment": {"type": "string"},
                "factStartAt": {"type": "string", "format": "date-time"},
                "factEndAt": {"type": "string", "format": "date-time"},
                "version": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
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
