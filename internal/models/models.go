// Package models defines the document shapes stored in the remote repository.
package models

// Repository paths of the well-known documents.
const (
	AnalyticsFile = "data/analytics.json"
	MediaFile     = "data/media.json"
	ProfileFile   = "data/profile.json"
)

// DateVisits is one calendar-day visit bucket.
type DateVisits struct {
	Date   string `json:"date"` // YYYY-MM-DD, UTC
	Visits int    `json:"visits"`
}

// PageVisits is one entry of the top pages ranking.
type PageVisits struct {
	Path   string `json:"path"`
	Visits int    `json:"visits"`
}

// AnalyticsData is the shape of data/analytics.json.
//
// VisitsByDate holds at most one entry per calendar date, newest first,
// capped at 365 entries. TopPages is always recomputed wholesale from
// PageVisits on write, never patched incrementally.
type AnalyticsData struct {
	TotalVisits     int            `json:"totalVisits"`
	PageVisits      map[string]int `json:"pageVisits"`
	VisitsByDate    []DateVisits   `json:"visitsByDate"`
	TopPages        []PageVisits   `json:"topPages"`
	VisitsByCountry map[string]int `json:"visitsByCountry,omitempty"`
}

// MediaItem describes one uploaded asset.
type MediaItem struct {
	Filename   string `json:"filename"` // public path, e.g. /uploads/upload-xxx.png
	Alt        string `json:"alt"`
	UploadedAt string `json:"uploadedAt"` // RFC 3339
}

// MediaData is the shape of data/media.json. Uploads is append-only.
type MediaData struct {
	Uploads []MediaItem `json:"uploads"`
}

// AdminProfile is the admin identity record inside data/profile.json.
// HashedPassword is a bcrypt hash, never the plaintext.
type AdminProfile struct {
	FullName       string `json:"fullName"`
	Username       string `json:"username"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashedPassword"`
}

// ProfileData is the shape of data/profile.json.
type ProfileData struct {
	SetupComplete bool         `json:"setupComplete"`
	Admin         AdminProfile `json:"admin"`
}
