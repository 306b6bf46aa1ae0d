package models

import "time"

// SystemMetrics is a lightweight snapshot of runtime and domain counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	CacheHits                uint64    `json:"cacheHits"`
	CacheMisses              uint64    `json:"cacheMisses"`
	CacheHitRatio            float64   `json:"cacheHitRatio"`
	EventsAdmitted           uint64    `json:"eventsAdmitted"`
	SlotConflicts            uint64    `json:"slotConflicts"`
	NotificationsDelivered   uint64    `json:"notificationsDelivered"`
	NotificationsFailed      uint64    `json:"notificationsFailed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}
