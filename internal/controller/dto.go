package controller

import (
	"time"

	"github.com/saintber/extensions/internal/domain/counter"
)

// --- Request DTOs ---

// IncrementRequest holds the input for incrementing one counter.
type IncrementRequest struct {
	Delta int64 `json:"delta" validate:"required"`
}

// IncrementManyRequest holds the input for incrementing several counters atomically.
type IncrementManyRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=100,dive,required"`
	Delta int64    `json:"delta" validate:"required"`
}

// ResetRequest holds the names of the counters to delete.
type ResetRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=100,dive,required"`
}

// --- Response DTOs ---

// CounterResponse represents a counter in API responses.
type CounterResponse struct {
	Name      string    `json:"name"`
	Value     int64     `json:"value"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// FromCounter converts a domain counter to API response.
func FromCounter(c *counter.Counter) *CounterResponse {
	return &CounterResponse{
		Name:      c.Name,
		Value:     c.Value,
		Version:   c.Version,
		UpdatedAt: c.UpdatedAt,
	}
}

// FromCounters converts domain counters to API responses.
func FromCounters(counters []*counter.Counter) []*CounterResponse {
	resp := make([]*CounterResponse, 0, len(counters))
	for _, c := range counters {
		resp = append(resp, FromCounter(c))
	}
	return resp
}
