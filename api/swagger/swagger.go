package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Exam Timetable API",
        "description": "Schedules internal assessment and model exams across departments, keeping shared subjects on one date.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Exam Schedules", "description": "Scheduling and timetable queries"},
        {"name": "Alerts", "description": "Exam scheduling windows"}
    ],
    "paths": {
        "/exam-schedules": {
            "post": {
                "tags": ["Exam Schedules"],
                "summary": "Schedule an exam",
                "description": "Books the subject for the caller's department and every department teaching a subject of the same name.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ScheduleExamRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Subject or department not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Scheduling conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Schedule store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Exam Schedules"],
                "summary": "List scheduled exams",
                "parameters": [
                    {"name": "date", "in": "query", "type": "string", "format": "date"},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "departmentId", "in": "query", "type": "string"},
                    {"name": "examType", "in": "query", "type": "string", "enum": ["IA1", "IA2", "MODEL"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exam-schedules/export": {
            "get": {
                "tags": ["Exam Schedules"],
                "summary": "Export the timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]},
                    {"name": "from", "in": "query", "type": "string", "format": "date"},
                    {"name": "to", "in": "query", "type": "string", "format": "date"},
                    {"name": "departmentId", "in": "query", "type": "string"},
                    {"name": "examType", "in": "query", "type": "string", "enum": ["IA1", "IA2", "MODEL"]}
                ],
                "responses": {
                    "200": {"description": "Rendered timetable", "schema": {"type": "file"}}
                }
            }
        },
        "/exam-schedules/{id}": {
            "get": {
                "tags": ["Exam Schedules"],
                "summary": "Get a scheduled exam",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Exam Schedules"],
                "summary": "Delete a scheduled exam",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "204": {"description": "Deleted"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts": {
            "post": {
                "tags": ["Alerts"],
                "summary": "Open an exam scheduling window",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAlertRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "get": {
                "tags": ["Alerts"],
                "summary": "List exam scheduling windows",
                "parameters": [
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "examType", "in": "query", "type": "string", "enum": ["IA1", "IA2", "MODEL"]},
                    {"name": "year", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/alerts/{id}": {
            "get": {
                "tags": ["Alerts"],
                "summary": "Get an exam scheduling window",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "ScheduleExamRequest": {
            "type": "object",
            "required": ["exam_date", "exam_type"],
            "properties": {
                "subject_id": {"type": "string", "description": "Catalog subject. Mutually exclusive with staff_id."},
                "staff_id": {"type": "string", "description": "Staff profile whose embedded subject is scheduled."},
                "exam_date": {"type": "string", "format": "date"},
                "exam_type": {"type": "string", "enum": ["IA1", "IA2", "MODEL"]},
                "assigned_by": {"type": "string", "description": "Ignored when the caller is authenticated."}
            }
        },
        "CreateAlertRequest": {
            "type": "object",
            "required": ["title", "start_date", "end_date", "year", "semester", "exam_type"],
            "properties": {
                "title": {"type": "string"},
                "start_date": {"type": "string", "format": "date"},
                "end_date": {"type": "string", "format": "date"},
                "year": {"type": "integer"},
                "semester": {"type": "integer"},
                "exam_type": {"type": "string", "enum": ["IA1", "IA2", "MODEL"]}
            }
        },
        "SchedulingConflict": {
            "type": "object",
            "properties": {
                "kind": {"type": "string"},
                "message": {"type": "string"},
                "department": {"type": "string"},
                "exam_date": {"type": "string", "format": "date"}
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
                "status": {"type": "integer"},
                "details": {"$ref": "#/definitions/SchedulingConflict"}
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
