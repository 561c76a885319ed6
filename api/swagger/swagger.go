package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Abai KPI API",
        "description": "Teacher KPI aggregation and composite scoring service",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "KPI", "description": "Teacher KPI scores and feedback aggregations"},
        {"name": "KPI Settings", "description": "Metric weighting and organization policy"}
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
                    "200": {"description": "Ready"},
                    "503": {"description": "Degraded"}
                }
            }
        },
        "/teachers/{id}/kpi": {
            "get": {
                "tags": ["KPI"],
                "summary": "Teacher KPI details",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/kpi/feedback": {
            "get": {
                "tags": ["KPI"],
                "summary": "Feedback-derived KPI figures",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "period", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/kpi/metrics": {
            "get": {
                "tags": ["KPI"],
                "summary": "All feedback aggregations for one teacher",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/teachers/{id}/kpi/history": {
            "get": {
                "tags": ["KPI"],
                "summary": "Persisted KPI snapshots",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Teacher not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/kpi/recalculate": {
            "post": {
                "tags": ["KPI"],
                "summary": "Recalculate all teacher KPI scores",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Run already in progress", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/kpi/settings": {
            "get": {
                "tags": ["KPI Settings"],
                "summary": "List metric settings",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["KPI Settings"],
                "summary": "Replace metric settings",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateMetricSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Weights do not sum to 100", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/kpi/settings/organization": {
            "get": {
                "tags": ["KPI Settings"],
                "summary": "Get organization KPI policy",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["KPI Settings"],
                "summary": "Update organization KPI policy",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateOrganizationSettingsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "MetricValue": {
            "type": "object",
            "properties": {
                "score": {"type": "number"},
                "available": {"type": "boolean"}
            }
        },
        "MetricSetting": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "key": {"type": "string"},
                "display_name": {"type": "string"},
                "weight": {"type": "number"},
                "target": {"type": "number"},
                "success_threshold": {"type": "number"},
                "warning_threshold": {"type": "number"},
                "active": {"type": "boolean"},
                "category": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "TeacherKpiDetailsResponse": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "metrics": {"type": "object"},
                "overall_score": {"type": "number"},
                "raw_data": {"type": "object"}
            }
        },
        "FeedbackKpiResponse": {
            "type": "object",
            "properties": {
                "teacher_id": {"type": "string"},
                "period": {"type": "string"},
                "student_satisfaction": {"type": "integer"},
                "student_retention": {"type": "integer"},
                "parent_feedback": {"type": "integer"},
                "feedback_count": {"type": "integer"},
                "recommendations": {"type": "array", "items": {"type": "string"}}
            }
        },
        "RecalculationSummary": {
            "type": "object",
            "properties": {
                "success_count": {"type": "integer"},
                "error_count": {"type": "integer"},
                "processing_time_ms": {"type": "integer"},
                "errors": {"type": "array", "items": {"type": "string"}}
            }
        },
        "MetricSettingRequest": {
            "type": "object",
            "properties": {
                "key": {"type": "string"},
                "weight": {"type": "number"},
                "target": {"type": "number"},
                "success_threshold": {"type": "number"},
                "warning_threshold": {"type": "number"},
                "active": {"type": "boolean"},
                "category": {"type": "string"}
            },
            "required": ["key"]
        },
        "UpdateMetricSettingsRequest": {
            "type": "object",
            "properties": {
                "settings": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/MetricSettingRequest"}
                }
            },
            "required": ["settings"]
        },
        "UpdateOrganizationSettingsRequest": {
            "type": "object",
            "properties": {
                "calculation_period": {"type": "string", "enum": ["daily", "weekly", "monthly", "quarterly"]},
                "auto_notifications": {"type": "boolean"},
                "notification_threshold": {"type": "number"}
            },
            "required": ["calculation_period"]
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
