package api

// ProjectEntry is one registered project in list responses.
type ProjectEntry struct {
	ProjectID string `json:"project_id"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
}

// ProjectListResponse is the response for GET /channels/{channel}/projects.
type ProjectListResponse struct {
	Channel  string         `json:"channel"`
	Projects []ProjectEntry `json:"projects"`
}

// AddProjectRequest is the body for POST /channels/{channel}/projects.
type AddProjectRequest struct {
	ProjectID string `json:"project_id"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
}

// HealthResponse is the response for GET /healthz.
type HealthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Network       string `json:"network"`
	Channels      int    `json:"channels"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
