package model

import (
	"encoding/json"
	"time"
)

// UserProgress is the durable completion state per (user, roadmap, step).
// At most one row exists per triple; submissions update it in place.
type UserProgress struct {
	BaseModel
	UserID      uint       `gorm:"not null;uniqueIndex:uniq_user_roadmap_step,priority:1" json:"userId"`
	RoadmapID   string     `gorm:"type:varchar(36);not null;uniqueIndex:uniq_user_roadmap_step,priority:2" json:"roadmapId"`
	StepID      string     `gorm:"type:varchar(36);not null;uniqueIndex:uniq_user_roadmap_step,priority:3" json:"stepId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	QuizScore   *int       `json:"quizScore,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// QuizAttempt is the append-only audit record of a submission. Never updated.
type QuizAttempt struct {
	BaseModel
	UserID      uint            `gorm:"not null;index" json:"userId"`
	QuizID      string          `gorm:"type:varchar(36);not null;index" json:"quizId"`
	Score       int             `gorm:"not null" json:"score"`
	Answers     json.RawMessage `gorm:"type:text" json:"answers"`
	CompletedAt time.Time       `json:"completedAt"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
