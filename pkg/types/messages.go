package types

// Client -> Server (HTTP bodies)

// SeatSelection names a seat's team either directly or through one of its
// players. TeamID wins when both are set.
type SeatSelection struct {
	TeamID int    `json:"team_id,omitempty"`
	Player string `json:"player,omitempty"`
}

// GenerateRequest: POST /generations
type GenerateRequest struct {
	East           SeatSelection `json:"east"`
	South          SeatSelection `json:"south"`
	West           SeatSelection `json:"west"`
	North          SeatSelection `json:"north"`
	TechnicalLines bool          `json:"technical_lines"`
	Destination    string        `json:"destination,omitempty"`
}

// BackgroundRequest: PUT /background
type BackgroundRequest struct {
	Path string `json:"path"`
}

// Server -> Client

type GenerateResponse struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
}

type BackgroundResponse struct {
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ServerMessage is sent over the progress WebSocket and embedded in run views.
type ServerMessage struct {
	Type     string `json:"type"` // "Progress" | "Completed" | "Failed" | "Error"
	Run      string `json:"run,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Path     string `json:"path,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ErrorBody is the JSON body of every non-2xx HTTP response.
type ErrorBody struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}
