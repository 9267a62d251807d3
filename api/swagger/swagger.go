package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Campus Timetable API",
        "description": "Weekly timetable generation and substitute recommendation",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Timetable", "description": "Generation, reads and exports"},
        {"name": "Absences", "description": "Substitute recommendations"}
    ],
    "paths": {
        "/timetable/generate": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Generate weekly timetables",
                "description": "Runs the scheduler for the given batches and replaces their stored timetable. Partial results are stored and returned with success=false.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "200": {"description": "Generated", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid payload", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Unsatisfiable configuration", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/generate/async": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Queue a timetable generation run",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/GenerateTimetableRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Queue full", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/runs/{id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get a generation run",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Run state", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown or expired run", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/batch/{batch_id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get the timetable of a batch",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "batch_id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown batch", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/batch/{batch_id}/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download a batch timetable",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"in": "path", "name": "batch_id", "required": true, "type": "string"},
                    {"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "400": {"description": "Unsupported format", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/faculty/{faculty_id}": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Get the teaching timetable of a lecturer",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "faculty_id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Timetable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown lecturer", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/absences/{id}/substitute": {
            "post": {
                "tags": ["Absences"],
                "summary": "Recommend a substitute lecturer",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Recommendation", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown absence", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "required": ["batch_ids"],
            "properties": {
                "batch_ids": {"type": "array", "items": {"type": "string"}},
                "constraints": {
                    "type": "object",
                    "properties": {
                        "start_time": {"type": "string", "example": "09:00"},
                        "end_time": {"type": "string", "example": "17:00"},
                        "period_duration": {"type": "integer"},
                        "break_duration": {"type": "integer"},
                        "lunch_break_start": {"type": "string"},
                        "lunch_break_duration": {"type": "integer"},
                        "max_hours_per_day": {"type": "integer"},
                        "no_back_to_back_labs": {"type": "boolean"},
                        "max_consecutive_hours": {"type": "integer"},
                        "days": {"type": "array", "items": {"type": "string"}},
                        "lab_block_periods": {"type": "integer"},
                        "escalate_consecutive_cap": {"type": "boolean"},
                        "soft_weights": {
                            "type": "object",
                            "properties": {
                                "workload": {"type": "number"},
                                "contiguity": {"type": "number"},
                                "consecutive": {"type": "number"}
                            }
                        },
                        "max_nodes": {"type": "integer"},
                        "time_budget_ms": {"type": "integer"},
                        "repair": {
                            "type": "object",
                            "properties": {
                                "enabled": {"type": "boolean"},
                                "restarts": {"type": "integer"},
                                "max_iterations": {"type": "integer"},
                                "time_budget_ms": {"type": "integer"}
                            }
                        },
                        "seed": {"type": "integer"},
                        "partitioned": {"type": "boolean"}
                    }
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"},
                "details": {"type": "object"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
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
