package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"skillpath_backend/internal/model"
	"skillpath_backend/internal/repository"
	"skillpath_backend/internal/util"
	"skillpath_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const roadmapCacheKeyPrefix = "roadmap:"

type RoadmapService struct {
	Repo        *repository.RoadmapRepository
	Generator   *GeneratorService
	Redis       *redis.Client
	CacheTTL    time.Duration
	Concurrency int
}

func NewRoadmapService(repo *repository.RoadmapRepository, generator *GeneratorService, rdb *redis.Client, cacheTTL time.Duration, concurrency int) *RoadmapService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &RoadmapService{
		Repo:        repo,
		Generator:   generator,
		Redis:       rdb,
		CacheTTL:    cacheTTL,
		Concurrency: concurrency,
	}
}

type CreateRoadmapRequest struct {
	Topic      string `json:"topic" binding:"required"`
	SkillLevel string `json:"skillLevel" binding:"required"`
	Context    string `json:"context"`
	IsPublic   *bool  `json:"isPublic"`
}

type UpdateRoadmapRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsPublic    *bool   `json:"isPublic"`
}

// enrichedStep is the result of the per-step content and quiz round trips.
type enrichedStep struct {
	content string
	quiz    *QuizOutline
}

// CreateRoadmap runs the three-stage pipeline: outline, then per-step content
// and quiz, then one atomic multi-table write. Nothing persists unless every
// stage succeeded, so a failure deep in the enrichment loop leaves no rows
// behind. Enrichment is sequential unless a concurrency bound above 1 is
// configured; either way the first failure (lowest step index) wins.
func (s *RoadmapService) CreateRoadmap(ctx context.Context, req CreateRoadmapRequest, ownerID *uint) (*model.Roadmap, error) {
	if req.Topic == "" || req.SkillLevel == "" {
		return nil, fmt.Errorf("%w: topic and skillLevel are required", util.ErrValidation)
	}

	isPublic := true
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}
	if !isPublic && ownerID == nil {
		return nil, fmt.Errorf("%w: a private roadmap must have an owner", util.ErrValidation)
	}

	outline, err := s.Generator.GenerateOutline(ctx, req.Topic, req.SkillLevel, req.Context)
	if err != nil {
		return nil, err
	}

	enriched, err := s.enrichSteps(ctx, req.Topic, req.SkillLevel, outline)
	if err != nil {
		return nil, err
	}

	roadmap := s.assemble(req, isPublic, ownerID, outline, enriched)

	if err := s.Repo.CreateTree(roadmap); err != nil {
		return nil, err
	}

	logger.Log.Info("roadmap created",
		zap.String("roadmapId", roadmap.ID),
		zap.String("topic", req.Topic),
		zap.Int("steps", len(roadmap.Steps)),
	)

	// Return the persisted, joined structure rather than the in-memory tree.
	return s.Repo.FindByID(roadmap.ID)
}

// enrichSteps requests content then quiz for every outline step. With
// Concurrency == 1 this is a plain fold over the step list; above 1 a
// semaphore bounds in-flight steps. Failures are collected per index and the
// lowest one is surfaced so the outcome is deterministic.
func (s *RoadmapService) enrichSteps(ctx context.Context, topic, skillLevel string, outline *RoadmapOutline) ([]enrichedStep, error) {
	results := make([]enrichedStep, len(outline.Steps))
	errs := make([]error, len(outline.Steps))

	if s.Concurrency <= 1 {
		for i, step := range outline.Steps {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i], errs[i] = s.enrichOne(ctx, topic, skillLevel, outline.Difficulty, step)
			if errs[i] != nil {
				return nil, errs[i]
			}
		}
		return results, nil
	}

	sem := make(chan struct{}, s.Concurrency)
	var wg sync.WaitGroup
	for i, step := range outline.Steps {
		wg.Add(1)
		go func(i int, step OutlineStep) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			results[i], errs[i] = s.enrichOne(ctx, topic, skillLevel, outline.Difficulty, step)
		}(i, step)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (s *RoadmapService) enrichOne(ctx context.Context, topic, skillLevel, difficulty string, step OutlineStep) (enrichedStep, error) {
	content, err := s.Generator.GenerateStepContent(ctx, topic, step.Title, skillLevel)
	if err != nil {
		return enrichedStep{}, err
	}

	if err := ctx.Err(); err != nil {
		return enrichedStep{}, err
	}

	quiz, err := s.Generator.GenerateQuiz(ctx, step.Title, content, difficulty)
	if err != nil {
		return enrichedStep{}, err
	}

	return enrichedStep{content: content, quiz: quiz}, nil
}

// assemble builds the in-memory tree handed to persistence. Step order is
// always the 1-based outline position: backend-supplied order values may be
// duplicated or non-contiguous, so they are not trusted, and read-back order
// stays contiguous from 1.
func (s *RoadmapService) assemble(req CreateRoadmapRequest, isPublic bool, ownerID *uint, outline *RoadmapOutline, enriched []enrichedStep) *model.Roadmap {
	roadmap := &model.Roadmap{
		Title:         outline.Title,
		Description:   outline.Description,
		Topic:         req.Topic,
		Difficulty:    outline.Difficulty,
		EstimatedTime: outline.EstimatedTime,
		IsPublic:      isPublic,
		UserID:        ownerID,
	}
	if roadmap.Title == "" {
		roadmap.Title = fmt.Sprintf("%s Roadmap", req.Topic)
	}
	if roadmap.Difficulty == "" {
		roadmap.Difficulty = req.SkillLevel
	}

	for i, outlineStep := range outline.Steps {
		step := model.Step{
			Title:         outlineStep.Title,
			Description:   outlineStep.Description,
			Content:       enriched[i].content,
			EstimatedTime: outlineStep.EstimatedTime,
			Order:         i + 1,
		}

		for _, res := range outlineStep.Resources {
			step.Resources = append(step.Resources, model.Resource{
				Title: res.Title,
				URL:   res.URL,
				Type:  res.Type,
			})
		}

		// A quiz with zero questions is not persisted: absence of a quiz is
		// distinguishable from a quiz not yet taken.
		if quiz := enriched[i].quiz; quiz != nil && len(quiz.Questions) > 0 {
			step.Quiz = &model.Quiz{}
			for qi, q := range quiz.Questions {
				step.Quiz.Questions = append(step.Quiz.Questions, model.Question{
					Text:          q.Question,
					Options:       model.StringList(q.Options),
					CorrectOption: q.CorrectOption,
					Explanation:   q.Explanation,
					Order:         qi + 1,
				})
			}
		}

		roadmap.Steps = append(roadmap.Steps, step)
	}

	return roadmap
}

// GetRoadmap returns the joined roadmap. Private roadmaps are only visible to
// their owner; anyone else gets not-found, so existence is never leaked.
// Reads go through a short-lived redis cache keyed by id; visibility is
// checked after the fetch so the cache stores one entry per roadmap.
func (s *RoadmapService) GetRoadmap(ctx context.Context, id string, requester *uint) (*model.Roadmap, error) {
	roadmap, err := s.cachedRoadmap(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRoadmapNotFound
		}
		return nil, err
	}

	if !roadmap.IsPublic {
		if roadmap.UserID == nil || requester == nil || *requester != *roadmap.UserID {
			return nil, util.ErrRoadmapNotFound
		}
	}

	return roadmap, nil
}

func (s *RoadmapService) cachedRoadmap(ctx context.Context, id string) (*model.Roadmap, error) {
	key := roadmapCacheKeyPrefix + id

	if s.Redis != nil {
		val, err := s.Redis.Get(ctx, key).Result()
		if err == nil {
			var cached model.Roadmap
			if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
				return &cached, nil
			}
		} else if err != redis.Nil {
			logger.Log.Warn("roadmap cache read failed", zap.Error(err))
		}
	}

	roadmap, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, jsonErr := json.Marshal(roadmap); jsonErr == nil {
			if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
				logger.Log.Warn("roadmap cache write failed", zap.Error(err))
			}
		}
	}

	return roadmap, nil
}

func (s *RoadmapService) invalidateCache(ctx context.Context, id string) {
	if s.Redis != nil {
		s.Redis.Del(ctx, roadmapCacheKeyPrefix+id)
	}
}

type ListRoadmapsQuery struct {
	OwnerID       *uint
	IsPublic      *bool
	TopicContains string
	Page          int
	Limit         int
}

func (s *RoadmapService) ListRoadmaps(q ListRoadmapsQuery) ([]model.Roadmap, int64, error) {
	filter := repository.RoadmapFilter{
		OwnerID:       q.OwnerID,
		IsPublic:      q.IsPublic,
		TopicContains: q.TopicContains,
	}
	return s.Repo.List(filter, q.Page, q.Limit)
}

// UpdateRoadmap applies a partial update. Only the owner may mutate; a
// non-owner gets not-found, same as a read.
func (s *RoadmapService) UpdateRoadmap(ctx context.Context, id string, requester uint, req UpdateRoadmapRequest) (*model.Roadmap, error) {
	roadmap, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrRoadmapNotFound
		}
		return nil, err
	}

	if roadmap.UserID == nil || *roadmap.UserID != requester {
		return nil, util.ErrRoadmapNotFound
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.IsPublic != nil {
		fields["is_public"] = *req.IsPublic
	}

	if len(fields) > 0 {
		if err := s.Repo.UpdateFields(id, fields); err != nil {
			return nil, err
		}
		s.invalidateCache(ctx, id)
	}

	return s.Repo.FindByID(id)
}

func (s *RoadmapService) DeleteRoadmap(ctx context.Context, id string, requester uint) error {
	roadmap, err := s.Repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrRoadmapNotFound
		}
		return err
	}

	if roadmap.UserID == nil || *roadmap.UserID != requester {
		return util.ErrRoadmapNotFound
	}

	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	s.invalidateCache(ctx, id)
	return nil
}
