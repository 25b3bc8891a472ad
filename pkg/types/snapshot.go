package types

// RunView: GET /generations/{id}
type RunView struct {
	ID     string          `json:"id"`
	Done   bool            `json:"done"`
	Events []ServerMessage `json:"events"`
}

// Team: GET /teams
type Team struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Players []string `json:"players"`
}

// Player: GET /players?q=
type Player struct {
	Name   string `json:"name"`
	Team   string `json:"team"`
	TeamID int    `json:"team_id"`
}

// Status: GET /status
type Status struct {
	ActiveRun  string `json:"active_run,omitempty"`
	Teams      []int  `json:"teams"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Background string `json:"background,omitempty"`
}
