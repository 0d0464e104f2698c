package model

import "github.com/google/uuid"

// Task represents a deck generation job that will be sent to the queue.
type Task struct {
	JobID     uuid.UUID `json:"job_id"`
	Content   string    `json:"content"`
	MaxSlides int       `json:"max_slides"`
}
