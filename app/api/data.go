package api

type segment struct {
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	IsUser  bool    `json:"is_user,omitempty"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
}

type webhookRequest struct {
	SessionID string    `json:"session_id"`
	Segments  []segment `json:"segments"`
}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type setupStatusResponse struct {
	IsSetupCompleted bool `json:"is_setup_completed"`
}

type serviceStatusResponse struct {
	ActiveSessions int     `json:"active_sessions"`
	Uptime         float64 `json:"uptime"`
}

type forecastResponse struct {
	Forecast string `json:"forecast"`
}

type errorResponse struct {
	Error string `json:"error"`
}
