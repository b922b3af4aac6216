package health

import (
	"encoding/json"
	"time"
)

// Status represents the health state of an item.
type Status string

const (
	StatusOK      Status = "ok"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

// Category groups health items.
type Category string

const (
	CategoryDatabase Category = "database"
	CategoryStorage  Category = "storage"
	CategoryMetadata Category = "metadata"
	CategorySync     Category = "sync"
)

// AllCategories returns all health categories in display order.
func AllCategories() []Category {
	return []Category{
		CategoryDatabase,
		CategoryStorage,
		CategoryMetadata,
		CategorySync,
	}
}

// Item represents a single health-tracked item.
type Item struct {
	ID        string     `json:"id"`
	Category  Category   `json:"category"`
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// MarshalJSON omits message and timestamp for OK items.
func (i Item) MarshalJSON() ([]byte, error) {
	type Alias Item
	alias := Alias(i)

	if i.Status == StatusOK {
		alias.Timestamp = nil
		alias.Message = ""
	}

	return json.Marshal(alias)
}

// CategorySummary provides counts for a health category.
type CategorySummary struct {
	Category Category `json:"category"`
	OK       int      `json:"ok"`
	Warning  int      `json:"warning"`
	Error    int      `json:"error"`
}

// HasIssues returns true if there are any warning or error items.
func (c CategorySummary) HasIssues() bool {
	return c.Warning > 0 || c.Error > 0
}

// Response contains all health items grouped by category.
type Response struct {
	Database []Item `json:"database"`
	Storage  []Item `json:"storage"`
	Metadata []Item `json:"metadata"`
	Sync     []Item `json:"sync"`
}

// Summary provides an overview of system health.
type Summary struct {
	Categories []CategorySummary `json:"categories"`
	HasIssues  bool              `json:"hasIssues"`
}

// UpdatePayload is the WebSocket payload for health updates.
type UpdatePayload struct {
	Category  Category   `json:"category"`
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Status    Status     `json:"status"`
	Message   string     `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}
