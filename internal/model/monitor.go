package model

// -----------------------------------------------------------------
// Monitor API Response Models
// -----------------------------------------------------------------

// MonitorResponse is the main response for the monitor API
type MonitorResponse struct {
	Status      string          `json:"status"`      // "healthy" or "idle"
	Connections ConnectionStats `json:"connections"` // Client connection stats
	Rooms       RoomStats       `json:"rooms"`       // Room stats
	Clients     []ClientInfo    `json:"clients"`     // List of connected clients
}

// ConnectionStats holds connection-related statistics
type ConnectionStats struct {
	TotalConnected int `json:"totalConnected"` // Sockets currently open
	DistinctUsers  int `json:"distinctUsers"`  // Users with at least one socket
}

// RoomStats holds room statistics
type RoomStats struct {
	TotalRooms  int        `json:"totalRooms"`
	EventRooms  int        `json:"eventRooms"`
	DirectRooms int        `json:"directRooms"`
	RoomDetails []RoomInfo `json:"roomDetails"`
}

// RoomInfo contains information about a single room
type RoomInfo struct {
	RoomKey       string   `json:"roomKey"`
	OnlineMembers int      `json:"onlineMembers"` // Distinct users listening
	Sockets       int      `json:"sockets"`
	MemberIDs     []string `json:"memberIds"`
}

// ClientInfo contains information about a connected client
type ClientInfo struct {
	ClientID    string `json:"clientId"`
	UserID      string `json:"userId"`
	Room        string `json:"room"`
	ConnectedAt string `json:"connectedAt"` // ISO timestamp
}
