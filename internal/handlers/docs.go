package handlers

import (
	"encoding/json"
	"net/http"
)

func filterParameters() []map[string]interface{} {
	return []map[string]interface{}{
		{
			"name":        "city",
			"in":          "path",
			"description": "City name, case-insensitive (e.g. chicago, new york city, washington)",
			"required":    true,
			"schema":      map[string]string{"type": "string"},
		},
		{
			"name":        "month",
			"in":          "query",
			"description": "Month name (january..december) or all",
			"required":    false,
			"schema":      map[string]interface{}{"type": "string", "default": "all"},
		},
		{
			"name":        "day",
			"in":          "query",
			"description": "Weekday name (monday..sunday) or all",
			"required":    false,
			"schema":      map[string]interface{}{"type": "string", "default": "all"},
		},
	}
}

func errorResponses() map[string]interface{} {
	errorSchema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"error":   map[string]string{"type": "string"},
			"message": map[string]string{"type": "string"},
			"code":    map[string]string{"type": "integer"},
		},
	}
	content := map[string]interface{}{
		"application/json": map[string]interface{}{"schema": errorSchema},
	}
	return map[string]interface{}{
		"400": map[string]interface{}{"description": "Invalid month or day", "content": content},
		"404": map[string]interface{}{"description": "Unknown city", "content": content},
	}
}

func sectionSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"stats":           map[string]string{"type": "object"},
			"lines":           map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}},
			"error":           map[string]string{"type": "string"},
			"elapsed_seconds": map[string]string{"type": "number"},
		},
	}
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the Bikeshare Platform API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	statsResponses := errorResponses()
	statsResponses["200"] = map[string]interface{}{
		"description": "Statistics report for the selection",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"id":       map[string]string{"type": "string"},
						"city":     map[string]string{"type": "string"},
						"filter":   map[string]string{"type": "string"},
						"records":  map[string]string{"type": "integer"},
						"schema":   map[string]string{"type": "object"},
						"time":     sectionSchema(),
						"station":  sectionSchema(),
						"duration": sectionSchema(),
						"user":     sectionSchema(),
					},
				},
			},
		},
	}

	tripsResponses := errorResponses()
	tripsResponses["200"] = map[string]interface{}{
		"description": "Page of trips in original file order",
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"data": map[string]interface{}{
							"type": "array",
							"items": map[string]interface{}{
								"type": "object",
								"properties": map[string]interface{}{
									"seq":           map[string]string{"type": "integer"},
									"start_time":    map[string]string{"type": "string", "format": "date-time"},
									"end_time":      map[string]string{"type": "string", "format": "date-time"},
									"start_station": map[string]string{"type": "string"},
									"end_station":   map[string]string{"type": "string"},
									"user_type":     map[string]string{"type": "string"},
									"gender":        map[string]interface{}{"type": "string", "nullable": true},
									"birth_year":    map[string]interface{}{"type": "integer", "nullable": true},
								},
							},
						},
						"total":       map[string]string{"type": "integer"},
						"page":        map[string]string{"type": "integer"},
						"limit":       map[string]string{"type": "integer"},
						"total_pages": map[string]string{"type": "integer"},
					},
				},
			},
		},
	}

	tripsParameters := append(filterParameters(),
		map[string]interface{}{
			"name":        "page",
			"in":          "query",
			"description": "Page number (default: 1)",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 1},
		},
		map[string]interface{}{
			"name":        "limit",
			"in":          "query",
			"description": "Records per page (default: analysis.page_size, max 1000)",
			"required":    false,
			"schema":      map[string]interface{}{"type": "integer", "default": 5},
		},
	)

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "Bikeshare Platform API",
			"description": "Descriptive statistics over city bikeshare trip data, filtered by month and weekday",
			"version":     "1.0.0",
			"contact": map[string]string{
				"name": "Bikeshare Platform Team",
			},
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/cities": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "List cities",
					"description": "Configured cities with record counts and optional column flags",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Successful response",
							"content": map[string]interface{}{
								"application/json": map[string]interface{}{
									"schema": map[string]interface{}{
										"type": "array",
										"items": map[string]interface{}{
											"type": "object",
											"properties": map[string]interface{}{
												"name":           map[string]string{"type": "string"},
												"records":        map[string]string{"type": "integer"},
												"has_gender":     map[string]string{"type": "boolean"},
												"has_birth_year": map[string]string{"type": "boolean"},
												"error":          map[string]string{"type": "string"},
											},
										},
									},
								},
							},
						},
					},
				},
			},
			"/api/cities/{city}/stats": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get trip statistics",
					"description": "Time, station, duration and user statistics for the filtered trips",
					"parameters":  filterParameters(),
					"responses":   statsResponses,
				},
			},
			"/api/cities/{city}/trips": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Get raw trips",
					"description": "Filtered trips with pagination",
					"parameters":  tripsParameters,
					"responses":   tripsResponses,
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Health check",
					"description": "Check if the API and its trip store are reachable",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{"description": "API is healthy"},
						"503": map[string]interface{}{"description": "Trip store unreachable"},
					},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Prometheus metrics",
					"description": "Prometheus metrics endpoint for monitoring",
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Prometheus metrics in text format",
							"content": map[string]interface{}{
								"text/plain": map[string]interface{}{
									"schema": map[string]string{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
