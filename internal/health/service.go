// Package health tracks the runtime health of the server's moving parts:
// the database, the data directory, the metadata provider and the per-user
// sync pipelines. All state is in-memory and resets on restart.
package health

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Broadcaster defines the interface for pushing health updates to clients.
type Broadcaster interface {
	Broadcast(msgType string, payload interface{}) error
}

// Service manages the health state of all tracked items.
type Service struct {
	items       map[Category]map[string]*Item
	mu          sync.RWMutex
	broadcaster Broadcaster
	logger      zerolog.Logger
}

// NewService creates a new health service.
func NewService(logger zerolog.Logger) *Service {
	s := &Service{
		items:  make(map[Category]map[string]*Item),
		logger: logger.With().Str("component", "health").Logger(),
	}

	for _, cat := range AllCategories() {
		s.items[cat] = make(map[string]*Item)
	}

	return s
}

// SetBroadcaster sets the WebSocket broadcaster for real-time updates.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// RegisterItem adds a new item to health tracking with OK status.
// Re-registering an existing item keeps its current status.
func (s *Service) RegisterItem(category Category, id, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[category][id]; exists {
		return
	}

	item := &Item{
		ID:       id,
		Category: category,
		Name:     name,
		Status:   StatusOK,
	}
	s.items[category][id] = item

	s.logger.Debug().
		Str("category", string(category)).
		Str("id", id).
		Str("name", name).
		Msg("Registered health item")

	s.broadcastUpdate(item)
}

// UnregisterItem removes an item from health tracking.
func (s *Service) UnregisterItem(category Category, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[category][id]; exists {
		delete(s.items[category], id)
		s.logger.Debug().
			Str("category", string(category)).
			Str("id", id).
			Msg("Unregistered health item")
	}
}

// SetError sets an item to Error status with a message.
func (s *Service) SetError(category Category, id, message string) {
	s.setStatus(category, id, StatusError, message)
}

// SetWarning sets an item to Warning status with a message.
func (s *Service) SetWarning(category Category, id, message string) {
	s.setStatus(category, id, StatusWarning, message)
}

// ClearStatus resets an item to OK status.
func (s *Service) ClearStatus(category Category, id string) {
	s.setStatus(category, id, StatusOK, "")
}

func (s *Service) setStatus(category Category, id string, status Status, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[category][id]
	if !exists {
		s.logger.Warn().
			Str("category", string(category)).
			Str("id", id).
			Msg("Attempted to update status for unregistered item")
		return
	}

	if item.Status == status && item.Message == message {
		return
	}

	oldStatus := item.Status
	item.Status = status
	item.Message = message

	if status != StatusOK {
		now := time.Now()
		item.Timestamp = &now
	} else {
		item.Timestamp = nil
	}

	s.logger.Info().
		Str("category", string(category)).
		Str("id", id).
		Str("oldStatus", string(oldStatus)).
		Str("newStatus", string(status)).
		Str("message", message).
		Msg("Health status changed")

	s.broadcastUpdate(item)
}

// GetAll returns all health items grouped by category.
func (s *Service) GetAll() *Response {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &Response{
		Database: s.itemsToSlice(CategoryDatabase),
		Storage:  s.itemsToSlice(CategoryStorage),
		Metadata: s.itemsToSlice(CategoryMetadata),
		Sync:     s.itemsToSlice(CategorySync),
	}
}

// GetByCategory returns all items in a specific category.
func (s *Service) GetByCategory(category Category) []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.itemsToSlice(category)
}

// GetItem returns a single item by category and ID, or nil.
func (s *Service) GetItem(category Category, id string) *Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[category][id]; exists {
		copy := *item
		return &copy
	}
	return nil
}

// GetSummary returns counts per category for the dashboard.
func (s *Service) GetSummary() *Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &Summary{
		Categories: make([]CategorySummary, 0, len(AllCategories())),
	}

	for _, cat := range AllCategories() {
		catSummary := CategorySummary{Category: cat}
		for _, item := range s.items[cat] {
			switch item.Status {
			case StatusOK:
				catSummary.OK++
			case StatusWarning:
				catSummary.Warning++
			case StatusError:
				catSummary.Error++
			}
		}
		if catSummary.HasIssues() {
			summary.HasIssues = true
		}
		summary.Categories = append(summary.Categories, catSummary)
	}

	return summary
}

// IsHealthy returns true if the specified item exists and is OK.
func (s *Service) IsHealthy(category Category, id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if item, exists := s.items[category][id]; exists {
		return item.Status == StatusOK
	}
	return false
}

func (s *Service) itemsToSlice(category Category) []Item {
	items := make([]Item, 0, len(s.items[category]))
	for _, item := range s.items[category] {
		items = append(items, *item)
	}
	return items
}

// broadcastUpdate sends a health update via WebSocket. Callers hold the
// lock.
func (s *Service) broadcastUpdate(item *Item) {
	if s.broadcaster == nil {
		return
	}

	payload := UpdatePayload{
		Category:  item.Category,
		ID:        item.ID,
		Name:      item.Name,
		Status:    item.Status,
		Message:   item.Message,
		Timestamp: item.Timestamp,
	}

	if err := s.broadcaster.Broadcast("health:updated", payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to broadcast health update")
	}
}
