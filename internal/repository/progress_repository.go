package repository

import (
	"time"

	"skillpath_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Upsert writes the progress row for (userID, roadmapID, stepID) atomically.
// The conflict resolution happens in the database, so two concurrent
// identical submissions converge to one row. quizScore is only assigned when
// non-nil; completed_at mirrors completed: set on the transition into
// completed (COALESCE keeps the timestamp while the row stays completed) and
// cleared when completed goes back to false, so it is non-null exactly when
// completed is true.
func (r *ProgressRepository) Upsert(userID uint, roadmapID, stepID string, completed bool, quizScore *int) (*model.UserProgress, error) {
	now := time.Now()

	row := &model.UserProgress{
		UserID:    userID,
		RoadmapID: roadmapID,
		StepID:    stepID,
		Completed: completed,
		QuizScore: quizScore,
	}
	if completed {
		row.CompletedAt = &now
	}

	assignments := map[string]interface{}{
		"completed":  completed,
		"updated_at": now,
	}
	if quizScore != nil {
		assignments["quiz_score"] = *quizScore
	}
	if completed {
		assignments["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", now)
	} else {
		assignments["completed_at"] = nil
	}

	err := r.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "roadmap_id"}, {Name: "step_id"},
		},
		DoUpdates: clause.Assignments(assignments),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}

	return r.Find(userID, roadmapID, stepID)
}

func (r *ProgressRepository) Find(userID uint, roadmapID, stepID string) (*model.UserProgress, error) {
	var p model.UserProgress
	err := r.DB.Where("user_id = ? AND roadmap_id = ? AND step_id = ?", userID, roadmapID, stepID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProgressRepository) ListByUserAndRoadmap(userID uint, roadmapID string) ([]model.UserProgress, error) {
	var rows []model.UserProgress
	err := r.DB.Where("user_id = ? AND roadmap_id = ?", userID, roadmapID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *ProgressRepository) CountCompleted(userID uint, roadmapID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.UserProgress{}).
		Where("user_id = ? AND roadmap_id = ? AND completed = ?", userID, roadmapID, true).
		Count(&count).Error
	return count, err
}

// RoadmapCompletion aggregates completed rows per roadmap for one user.
type RoadmapCompletion struct {
	RoadmapID      string `json:"roadmapId"`
	CompletedSteps int64  `json:"completedSteps"`
}

func (r *ProgressRepository) CompletionByRoadmap(userID uint) ([]RoadmapCompletion, error) {
	var rows []RoadmapCompletion
	err := r.DB.Model(&model.UserProgress{}).
		Select("roadmap_id, COUNT(*) AS completed_steps").
		Where("user_id = ? AND completed = ?", userID, true).
		Group("roadmap_id").
		Scan(&rows).Error
	return rows, err
}

func (r *ProgressRepository) CreateAttempt(attempt *model.QuizAttempt) error {
	return r.DB.Create(attempt).Error
}

func (r *ProgressRepository) ListAttempts(userID uint, quizID string) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("created_at DESC").
		Find(&attempts).Error
	return attempts, err
}
