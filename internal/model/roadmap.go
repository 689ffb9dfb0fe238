package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// StringList stores a []string as a JSON text column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// swagger:model Roadmap
type Roadmap struct {
	UUIDBase
	Title         string `gorm:"size:255;not null" json:"title"`
	Description   string `gorm:"type:text" json:"description"`
	Topic         string `gorm:"size:255;not null;index" json:"topic"`
	Difficulty    string `gorm:"size:50" json:"difficulty"`
	EstimatedTime string `gorm:"size:100" json:"estimatedTime"`
	IsPublic      bool   `gorm:"default:true;index" json:"isPublic"`
	UserID        *uint  `gorm:"index" json:"userId,omitempty"`
	User          *User  `gorm:"foreignKey:UserID" json:"-"`
	Steps         []Step `gorm:"foreignKey:RoadmapID" json:"steps"`

	// Owner carries the owning user's public fields on read paths.
	Owner *PublicUser `gorm:"-" json:"owner,omitempty"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}

// swagger:model Step
type Step struct {
	UUIDBase
	RoadmapID     string     `gorm:"type:varchar(36);not null;index;uniqueIndex:uniq_roadmap_step_order,priority:1" json:"roadmapId"`
	Title         string     `gorm:"size:255;not null" json:"title"`
	Description   string     `gorm:"type:text" json:"description"`
	Content       string     `gorm:"type:longtext" json:"content"`
	EstimatedTime string     `gorm:"size:100" json:"estimatedTime"`
	Order         int        `gorm:"column:step_order;not null;uniqueIndex:uniq_roadmap_step_order,priority:2" json:"order"`
	Resources     []Resource `gorm:"foreignKey:StepID" json:"resources"`
	Quiz          *Quiz      `gorm:"foreignKey:StepID" json:"quiz,omitempty"`
}

func (Step) TableName() string {
	return "steps"
}

// swagger:model Resource
type Resource struct {
	UUIDBase
	StepID string `gorm:"type:varchar(36);not null;index" json:"stepId"`
	Title  string `gorm:"size:255;not null" json:"title"`
	URL    string `gorm:"size:512;not null" json:"url"`
	Type   string `gorm:"size:50" json:"type"` // article, video, book, tutorial
}

func (Resource) TableName() string {
	return "resources"
}

// swagger:model Quiz
type Quiz struct {
	UUIDBase
	StepID    string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"stepId"`
	Questions []Question `gorm:"foreignKey:QuizID" json:"questions"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// swagger:model Question
type Question struct {
	UUIDBase
	QuizID        string     `gorm:"type:varchar(36);not null;index" json:"quizId"`
	Text          string     `gorm:"type:text;not null" json:"text"`
	Options       StringList `gorm:"type:text;not null" json:"options"`
	CorrectOption int        `gorm:"not null" json:"correctOption"`
	Explanation   string     `gorm:"type:text" json:"explanation"`
	Order         int        `gorm:"column:question_order;default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}
