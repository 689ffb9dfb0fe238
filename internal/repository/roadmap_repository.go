package repository

import (
	"skillpath_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoadmapRepository struct {
	DB *gorm.DB
}

func NewRoadmapRepository(db *gorm.DB) *RoadmapRepository {
	return &RoadmapRepository{DB: db}
}

// RoadmapFilter enumerates the supported list filters. Each maps to a fixed
// parameterized clause; nothing here is assembled from request strings.
type RoadmapFilter struct {
	OwnerID       *uint
	IsPublic      *bool
	TopicContains string
}

// CreateTree inserts a fully assembled roadmap with its steps, resources,
// quizzes and questions in one transaction. Any failure rolls back every row,
// so readers never observe a partially written roadmap.
func (r *RoadmapRepository) CreateTree(roadmap *model.Roadmap) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(roadmap).Error; err != nil {
			return err
		}

		for i := range roadmap.Steps {
			step := &roadmap.Steps[i]
			step.RoadmapID = roadmap.ID
			if err := tx.Omit(clause.Associations).Create(step).Error; err != nil {
				return err
			}

			for j := range step.Resources {
				res := &step.Resources[j]
				res.StepID = step.ID
				if err := tx.Create(res).Error; err != nil {
					return err
				}
			}

			if step.Quiz != nil {
				step.Quiz.StepID = step.ID
				if err := tx.Omit(clause.Associations).Create(step.Quiz).Error; err != nil {
					return err
				}
				for k := range step.Quiz.Questions {
					q := &step.Quiz.Questions[k]
					q.QuizID = step.Quiz.ID
					if err := tx.Create(q).Error; err != nil {
						return err
					}
				}
			}
		}

		return nil
	})
}

// FindByID loads a roadmap with its steps in ascending order, each step's
// resources, its quiz with ordered questions, and the owner's public fields.
func (r *RoadmapRepository) FindByID(id string) (*model.Roadmap, error) {
	var roadmap model.Roadmap
	err := r.DB.
		Preload("Steps", func(db *gorm.DB) *gorm.DB {
			return db.Order("step_order ASC")
		}).
		Preload("Steps.Resources").
		Preload("Steps.Quiz").
		Preload("Steps.Quiz.Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		Preload("User").
		First(&roadmap, "id = ?", id).Error
	if err != nil {
		return nil, err
	}

	if roadmap.User != nil {
		pub := roadmap.User.Public()
		roadmap.Owner = &pub
	}

	return &roadmap, nil
}

func (r *RoadmapRepository) List(filter RoadmapFilter, page, limit int) ([]model.Roadmap, int64, error) {
	query := r.DB.Model(&model.Roadmap{})

	if filter.OwnerID != nil {
		query = query.Where("user_id = ?", *filter.OwnerID)
	}
	if filter.IsPublic != nil {
		query = query.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.TopicContains != "" {
		query = query.Where("LOWER(topic) LIKE LOWER(?)", "%"+filter.TopicContains+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var roadmaps []model.Roadmap
	err := query.
		Preload("User").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&roadmaps).Error
	if err != nil {
		return nil, 0, err
	}

	for i := range roadmaps {
		if roadmaps[i].User != nil {
			pub := roadmaps[i].User.Public()
			roadmaps[i].Owner = &pub
		}
	}

	return roadmaps, total, nil
}

func (r *RoadmapRepository) UpdateFields(id string, fields map[string]interface{}) error {
	return r.DB.Model(&model.Roadmap{}).Where("id = ?", id).Updates(fields).Error
}

// Delete removes the roadmap and everything hanging off it: steps, resources,
// quizzes, questions, progress rows and attempt records.
func (r *RoadmapRepository) Delete(id string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var stepIDs []string
		if err := tx.Model(&model.Step{}).Where("roadmap_id = ?", id).Pluck("id", &stepIDs).Error; err != nil {
			return err
		}

		if len(stepIDs) > 0 {
			var quizIDs []string
			if err := tx.Model(&model.Quiz{}).Where("step_id IN ?", stepIDs).Pluck("id", &quizIDs).Error; err != nil {
				return err
			}

			if len(quizIDs) > 0 {
				if err := tx.Where("quiz_id IN ?", quizIDs).Delete(&model.Question{}).Error; err != nil {
					return err
				}
				if err := tx.Where("quiz_id IN ?", quizIDs).Delete(&model.QuizAttempt{}).Error; err != nil {
					return err
				}
				if err := tx.Where("step_id IN ?", stepIDs).Delete(&model.Quiz{}).Error; err != nil {
					return err
				}
			}

			if err := tx.Where("step_id IN ?", stepIDs).Delete(&model.Resource{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("roadmap_id = ?", id).Delete(&model.UserProgress{}).Error; err != nil {
			return err
		}
		if err := tx.Where("roadmap_id = ?", id).Delete(&model.Step{}).Error; err != nil {
			return err
		}

		return tx.Delete(&model.Roadmap{}, "id = ?", id).Error
	})
}

// FindBare loads the roadmap row alone, for ownership and visibility checks
// that do not need the joined tree.
func (r *RoadmapRepository) FindBare(id string) (*model.Roadmap, error) {
	var roadmap model.Roadmap
	if err := r.DB.First(&roadmap, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &roadmap, nil
}

func (r *RoadmapRepository) CountSteps(roadmapID string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Step{}).Where("roadmap_id = ?", roadmapID).Count(&count).Error
	return count, err
}

func (r *RoadmapRepository) FindStepByID(id string) (*model.Step, error) {
	var step model.Step
	err := r.DB.First(&step, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &step, nil
}

// FindQuizByID loads a quiz with its ordered questions.
func (r *RoadmapRepository) FindQuizByID(id string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_order ASC")
		}).
		First(&quiz, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}
