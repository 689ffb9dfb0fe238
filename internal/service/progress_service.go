package service

import (
	"encoding/json"
	"errors"
	"math"
	"time"

	"skillpath_backend/internal/model"
	"skillpath_backend/internal/repository"
	"skillpath_backend/internal/util"

	"gorm.io/gorm"
)

// PassThreshold is the quiz percentage at and above which a step counts as
// completed when scoring drives progress.
const PassThreshold = 70

type ProgressService struct {
	Repo        *repository.ProgressRepository
	RoadmapRepo *repository.RoadmapRepository
}

func NewProgressService(repo *repository.ProgressRepository, roadmapRepo *repository.RoadmapRepository) *ProgressService {
	return &ProgressService{Repo: repo, RoadmapRepo: roadmapRepo}
}

type AnswerSubmission struct {
	QuestionID     string `json:"questionId" binding:"required"`
	SelectedOption int    `json:"selectedOption"`
}

type QuestionResult struct {
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	CorrectOption  int    `json:"correctOption"`
	Correct        bool   `json:"correct"`
	Explanation    string `json:"explanation,omitempty"`
}

type QuizScore struct {
	CorrectCount int              `json:"correctCount"`
	Total        int              `json:"total"`
	Percentage   int              `json:"percentage"`
	IsPassing    bool             `json:"isPassing"`
	Results      []QuestionResult `json:"results"`
}

// ScoreAnswers grades a submission against the canonical questions. Unknown
// question IDs and unanswered questions count as incorrect, never as errors.
// An empty quiz scores zero without dividing by zero.
func ScoreAnswers(questions []model.Question, answers []AnswerSubmission) *QuizScore {
	selected := make(map[string]int, len(answers))
	for _, a := range answers {
		selected[a.QuestionID] = a.SelectedOption
	}

	score := &QuizScore{Total: len(questions)}
	for _, q := range questions {
		result := QuestionResult{
			QuestionID:     q.ID,
			CorrectOption:  q.CorrectOption,
			SelectedOption: -1,
			Explanation:    q.Explanation,
		}
		if sel, ok := selected[q.ID]; ok {
			result.SelectedOption = sel
			result.Correct = sel == q.CorrectOption
		}
		if result.Correct {
			score.CorrectCount++
		}
		score.Results = append(score.Results, result)
	}

	if score.Total > 0 {
		score.Percentage = int(math.Round(100 * float64(score.CorrectCount) / float64(score.Total)))
	}
	score.IsPassing = score.Percentage >= PassThreshold

	return score
}

// ScoreQuiz grades a submission against the stored quiz.
func (s *ProgressService) ScoreQuiz(quizID string, answers []AnswerSubmission) (*QuizScore, error) {
	quiz, err := s.RoadmapRepo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return ScoreAnswers(quiz.Questions, answers), nil
}

// authorizeRoadmap enforces the same visibility rule as roadmap reads:
// private roadmaps are invisible to anyone but their owner, and invisible
// means not-found rather than forbidden.
func (s *ProgressService) authorizeRoadmap(userID uint, roadmapID string) error {
	roadmap, err := s.RoadmapRepo.FindBare(roadmapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrRoadmapNotFound
		}
		return err
	}
	if !roadmap.IsPublic {
		if roadmap.UserID == nil || *roadmap.UserID != userID {
			return util.ErrRoadmapNotFound
		}
	}
	return nil
}

type QuizSubmissionResult struct {
	Score    *QuizScore          `json:"score"`
	Progress *model.UserProgress `json:"progress"`
}

// SubmitQuiz scores the submission, appends an immutable attempt record, and
// upserts the user's progress for the step the quiz belongs to. The completed
// flag follows the pass threshold; the attempt is recorded either way.
func (s *ProgressService) SubmitQuiz(userID uint, quizID string, answers []AnswerSubmission) (*QuizSubmissionResult, error) {
	quiz, err := s.RoadmapRepo.FindQuizByID(quizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	score := ScoreAnswers(quiz.Questions, answers)

	step, err := s.RoadmapRepo.FindStepByID(quiz.StepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrStepNotFound
		}
		return nil, err
	}

	if err := s.authorizeRoadmap(userID, step.RoadmapID); err != nil {
		return nil, err
	}

	rawAnswers, err := json.Marshal(answers)
	if err != nil {
		return nil, err
	}

	attempt := &model.QuizAttempt{
		UserID:      userID,
		QuizID:      quizID,
		Score:       score.Percentage,
		Answers:     rawAnswers,
		CompletedAt: time.Now(),
	}
	if err := s.Repo.CreateAttempt(attempt); err != nil {
		return nil, err
	}

	percentage := score.Percentage
	progress, err := s.Repo.Upsert(userID, step.RoadmapID, step.ID, score.IsPassing, &percentage)
	if err != nil {
		return nil, err
	}

	return &QuizSubmissionResult{Score: score, Progress: progress}, nil
}

// UpsertProgress records completion state for a step directly, for example
// when a user marks a step done without taking its quiz.
func (s *ProgressService) UpsertProgress(userID uint, roadmapID, stepID string, completed bool, quizScore *int) (*model.UserProgress, error) {
	if err := s.authorizeRoadmap(userID, roadmapID); err != nil {
		return nil, err
	}

	step, err := s.RoadmapRepo.FindStepByID(stepID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrStepNotFound
		}
		return nil, err
	}
	if step.RoadmapID != roadmapID {
		return nil, util.ErrStepNotFound
	}

	return s.Repo.Upsert(userID, roadmapID, stepID, completed, quizScore)
}

type RoadmapProgress struct {
	RoadmapID       string               `json:"roadmapId"`
	TotalSteps      int                  `json:"totalSteps"`
	CompletedSteps  int                  `json:"completedSteps"`
	PercentComplete int                  `json:"percentComplete"`
	Steps           []model.UserProgress `json:"steps"`
}

// GetRoadmapProgress reports per-step progress plus the roadmap-level
// percent-complete. Steps without a progress row count as not completed.
func (s *ProgressService) GetRoadmapProgress(userID uint, roadmapID string) (*RoadmapProgress, error) {
	if err := s.authorizeRoadmap(userID, roadmapID); err != nil {
		return nil, err
	}

	total, err := s.RoadmapRepo.CountSteps(roadmapID)
	if err != nil {
		return nil, err
	}

	rows, err := s.Repo.ListByUserAndRoadmap(userID, roadmapID)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, row := range rows {
		if row.Completed {
			completed++
		}
	}

	return &RoadmapProgress{
		RoadmapID:       roadmapID,
		TotalSteps:      int(total),
		CompletedSteps:  completed,
		PercentComplete: percentOf(completed, int(total)),
		Steps:           rows,
	}, nil
}

type RoadmapProgressSummary struct {
	RoadmapID       string `json:"roadmapId"`
	TotalSteps      int    `json:"totalSteps"`
	CompletedSteps  int    `json:"completedSteps"`
	PercentComplete int    `json:"percentComplete"`
}

// GetUserProgress aggregates completion per roadmap the user has touched.
func (s *ProgressService) GetUserProgress(userID uint) ([]RoadmapProgressSummary, error) {
	completions, err := s.Repo.CompletionByRoadmap(userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]RoadmapProgressSummary, 0, len(completions))
	for _, c := range completions {
		total, err := s.RoadmapRepo.CountSteps(c.RoadmapID)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, RoadmapProgressSummary{
			RoadmapID:       c.RoadmapID,
			TotalSteps:      int(total),
			CompletedSteps:  int(c.CompletedSteps),
			PercentComplete: percentOf(int(c.CompletedSteps), int(total)),
		})
	}

	return summaries, nil
}

func percentOf(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(total)))
}
