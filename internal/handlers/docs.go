package handlers

import (
	"encoding/json"
	"html/template"
	"net/http"
)

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

func jsonResponse(description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{"schema": schema},
		},
	}
}

var (
	dateSchema   = map[string]interface{}{"type": "string", "format": "date"}
	stringSchema = map[string]interface{}{"type": "string"}

	windowParams = []map[string]interface{}{
		queryParam("start_date", "Window start (YYYY-MM-DD, default: first valid date)", dateSchema),
		queryParam("end_date", "Window end (YYYY-MM-DD, default: last valid date)", dateSchema),
	}

	wastewaterParams = append([]map[string]interface{}{
		queryParam("facility", "Facility name, repeatable. Omit for all facilities; pass empty for none", map[string]interface{}{
			"type":  "array",
			"items": stringSchema,
		}),
		queryParam("interpolation", "Use the interpolated table (On) or the raw table (Off)", map[string]interface{}{
			"type":    "string",
			"enum":    []string{"On", "Off"},
			"default": "On",
		}),
	}, windowParams...)

	imageParams = []map[string]interface{}{
		queryParam("width", "Image width in pixels", map[string]interface{}{"type": "integer", "default": 1024}),
		queryParam("height", "Image height in pixels", map[string]interface{}{"type": "integer", "default": 480}),
	}

	chartResponseSchema = map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"chart": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":          stringSchema,
					"title":       stringSchema,
					"kind":        map[string]interface{}{"type": "string", "enum": []string{"bar", "line"}},
					"x_field":     stringSchema,
					"y_field":     stringSchema,
					"group_field": stringSchema,
					"x_range":     map[string]interface{}{"$ref": "#/components/schemas/DateRange"},
					"series": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"name": stringSchema,
								"points": map[string]interface{}{
									"type": "array",
									"items": map[string]interface{}{
										"type": "object",
										"properties": map[string]interface{}{
											"x": dateSchema,
											"y": map[string]interface{}{"type": "number", "nullable": true},
										},
									},
								},
							},
						},
					},
					"row_count": map[string]interface{}{"type": "integer"},
				},
			},
			"option":   map[string]interface{}{"type": "object", "description": "ECharts option"},
			"warnings": map[string]interface{}{"type": "array", "items": stringSchema},
		},
	}
)

func pngOperation(summary string, params []map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"get": map[string]interface{}{
			"summary":    summary,
			"parameters": append(append([]map[string]interface{}{}, params...), imageParams...),
			"responses": map[string]interface{}{
				"200": map[string]interface{}{
					"description": "PNG image",
					"content": map[string]interface{}{
						"image/png": map[string]interface{}{"schema": map[string]string{"type": "string", "format": "binary"}},
					},
				},
				"204": map[string]interface{}{"description": "The chart has no points"},
			},
		},
	}
}

var openAPIDocument = map[string]interface{}{
	"openapi": "3.0.0",
	"info": map[string]interface{}{
		"title":       "COVID Wastewater Dashboard API",
		"description": "Wastewater viral load and test positivity charts over a shared date window",
		"version":     "1.0.0",
	},
	"servers": []map[string]string{
		{"url": "http://127.0.0.1:8050", "description": "Local dashboard"},
	},
	"components": map[string]interface{}{
		"schemas": map[string]interface{}{
			"DateRange": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"start": dateSchema,
					"end":   dateSchema,
				},
			},
			"Error": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"error":   stringSchema,
					"message": stringSchema,
					"code":    map[string]string{"type": "integer"},
				},
			},
		},
	},
	"paths": map[string]interface{}{
		"/api/facilities": map[string]interface{}{
			"get": map[string]interface{}{
				"summary": "List facilities in selector order",
				"responses": map[string]interface{}{
					"200": jsonResponse("Facility names", map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"facilities": map[string]interface{}{"type": "array", "items": stringSchema},
						},
					}),
				},
			},
		},
		"/api/date-range": map[string]interface{}{
			"get": map[string]interface{}{
				"summary": "Dates covered by both the wastewater and positivity data",
				"responses": map[string]interface{}{
					"200": jsonResponse("Valid date range", map[string]interface{}{"$ref": "#/components/schemas/DateRange"}),
				},
			},
		},
		"/api/charts/wastewater": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":     "Wastewater load by facility",
				"description": "Unparsable dates fall back to the valid range bound and are reported in warnings",
				"parameters":  wastewaterParams,
				"responses": map[string]interface{}{
					"200": jsonResponse("Chart description", chartResponseSchema),
				},
			},
		},
		"/api/charts/positivity": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":    "Test positivity rate",
				"parameters": windowParams,
				"responses": map[string]interface{}{
					"200": jsonResponse("Chart description", chartResponseSchema),
				},
			},
		},
		"/api/charts/wastewater.png": pngOperation("Wastewater chart image", wastewaterParams),
		"/api/charts/positivity.png": pngOperation("Positivity chart image", windowParams),
		"/api/wastewater/export.xlsx": map[string]interface{}{
			"get": map[string]interface{}{
				"summary":    "Download the filtered wastewater rows",
				"parameters": wastewaterParams,
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Excel workbook",
						"content": map[string]interface{}{
							"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": map[string]interface{}{
								"schema": map[string]string{"type": "string", "format": "binary"},
							},
						},
					},
					"500": jsonResponse("Workbook failure", map[string]interface{}{"$ref": "#/components/schemas/Error"}),
				},
			},
		},
		"/health": map[string]interface{}{
			"get": map[string]interface{}{
				"summary": "Health check",
				"responses": map[string]interface{}{
					"200": jsonResponse("Service is healthy", map[string]interface{}{"type": "object"}),
					"503": jsonResponse("Data source is unreachable", map[string]interface{}{"type": "object"}),
				},
			},
		},
		"/metrics": map[string]interface{}{
			"get": map[string]interface{}{
				"summary": "Prometheus metrics",
				"responses": map[string]interface{}{
					"200": map[string]interface{}{
						"description": "Prometheus metrics in text format",
						"content": map[string]interface{}{
							"text/plain": map[string]interface{}{"schema": stringSchema},
						},
					},
				},
			},
		},
	},
}

// OpenAPISpec returns the OpenAPI 3.0 document for the dashboard API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(openAPIDocument)
}

var swaggerTemplate = template.Must(template.New("swagger").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>{{.}}</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui.css">
</head>
<body style="margin:0">
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.10.0/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                url: "/api/docs/openapi.json",
                dom_id: "#swagger-ui",
                deepLinking: true
            });
        };
    </script>
</body>
</html>`))

// SwaggerUI serves the interactive API documentation
func SwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	swaggerTemplate.Execute(w, "COVID Wastewater Dashboard API")
}
