package models

import "time"

// SystemMetrics summarises process counters for health checks.
type SystemMetrics struct {
	RequestsTotal    uint64    `json:"requestsTotal"`
	TransitionsTotal uint64    `json:"transitionsTotal"`
	CacheHitRatio    float64   `json:"cacheHitRatio"`
	Goroutines       int       `json:"goroutines"`
	GeneratedAt      time.Time `json:"generatedAt"`
}
