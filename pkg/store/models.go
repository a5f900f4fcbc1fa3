package store

import "time"

// Widget is a single dashboard tile bound to an MQTT topic, with its grid
// placement.
type Widget struct {
	ID      string         `json:"id" mapstructure:"id"`
	Type    string         `json:"type" mapstructure:"type"`
	Title   string         `json:"title" mapstructure:"title"`
	Topic   string         `json:"topic" mapstructure:"topic"`
	X       int            `json:"x" mapstructure:"x"`
	Y       int            `json:"y" mapstructure:"y"`
	W       int            `json:"w" mapstructure:"w"`
	H       int            `json:"h" mapstructure:"h"`
	Options map[string]any `json:"options,omitempty" mapstructure:"options"`
}

// Dashboard is the editable record. Ownership is a plain string comparison
// against a caller-supplied identifier; there is no authentication behind it.
type Dashboard struct {
	ID            string         `json:"id" mapstructure:"id"`
	Name          string         `json:"name" mapstructure:"name"`
	Widgets       []Widget       `json:"widgets" mapstructure:"widgets"`
	Layout        map[string]any `json:"layout,omitempty" mapstructure:"layout"`
	Owner         string         `json:"owner" mapstructure:"owner"`
	CreatedAt     time.Time      `json:"createdAt" mapstructure:"-"`
	UpdatedAt     time.Time      `json:"updatedAt" mapstructure:"-"`
	IsPublished   bool           `json:"isPublished" mapstructure:"-"`
	PublishedAt   *time.Time     `json:"publishedAt,omitempty" mapstructure:"-"`
	ShareableID   string         `json:"shareableId,omitempty" mapstructure:"-"`
	SharePassword string         `json:"-" mapstructure:"-"` // bcrypt hash
}

// SharedDashboard is the public snapshot forked from a Dashboard at publish
// time. It is a copy: later edits to the dashboard do not propagate here.
type SharedDashboard struct {
	ShareableID       string         `json:"shareableId"`
	DashboardID       string         `json:"dashboardId"`
	Name              string         `json:"name"`
	Widgets           []Widget       `json:"widgets"`
	Layout            map[string]any `json:"layout,omitempty"`
	PublishedAt       time.Time      `json:"publishedAt"`
	PasswordProtected bool           `json:"passwordProtected"`
	passwordHash      string
}

// ResetToken is a single-use password-reset grant, keyed in the store by its
// random token string.
type ResetToken struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expiresAt"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"createdAt"`
	IP        string    `json:"ip"`
}

// Session is an anonymous browser session record.
type Session struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// Device is a registered publisher on the broker side.
type Device struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Topic    string    `json:"topic"`
	Owner    string    `json:"owner"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
}
