package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
	// MaxQueue caps buffered outbound messages for this session.
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client). A STATE message follows immediately.
type WelcomeMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	SessionID       string            `json:"session_id"`
	TickIntervalMs  int               `json:"tick_interval_ms"`
	SaveSlots       int               `json:"save_slots"`
	Catalogs        map[string]string `json:"catalogs"`
}

// ACT (client -> server): one player action.
type ActMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	ID              string  `json:"id"`
	Kind            string  `json:"kind"`
	PropertyID      string  `json:"property_id,omitempty"`
	AmenityID       string  `json:"amenity_id,omitempty"`
	Mode            string  `json:"mode,omitempty"`
	Option          int     `json:"option,omitempty"`
	TimeScale       float64 `json:"time_scale,omitempty"`
}

// Control operations.
const (
	OpSave    = "SAVE"
	OpLoad    = "LOAD"
	OpNewGame = "NEW_GAME"
	OpModal   = "MODAL"
)

// CONTROL (client -> server): game management outside the simulation rules.
type ControlMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Op              string `json:"op"`
	Slot            int    `json:"slot,omitempty"`
	Seed            uint64 `json:"seed,omitempty"`
	Open            bool   `json:"open,omitempty"`
}

// ACK (server -> client), one per ACT or CONTROL.
type AckMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	AckFor          string  `json:"ack_for"`
	Accepted        bool    `json:"accepted"`
	Code            string  `json:"code,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Message         string  `json:"message,omitempty"`
	Cost            float64 `json:"cost,omitempty"`
	XP              int     `json:"xp,omitempty"`
	LevelsGained    int     `json:"levels_gained,omitempty"`
	Day             int     `json:"day"`
}

// NOTICE (server -> client): a transient toast.
type NoticeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              string `json:"id"`
	Level           string `json:"level"`
	Title           string `json:"title"`
	Message         string `json:"message"`
	At              int64  `json:"at"`
}
