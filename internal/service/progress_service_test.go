package service

import (
	"testing"

	"skillpath_backend/internal/model"
	"skillpath_backend/internal/repository"
	"skillpath_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestScoreAnswers(t *testing.T) {
	questions := []model.Question{
		{UUIDBase: model.UUIDBase{ID: "q1"}, CorrectOption: 1},
		{UUIDBase: model.UUIDBase{ID: "q2"}, CorrectOption: 0},
		{UUIDBase: model.UUIDBase{ID: "q3"}, CorrectOption: 2},
		{UUIDBase: model.UUIDBase{ID: "q4"}, CorrectOption: 3},
	}

	tests := []struct {
		name         string
		answers      []AnswerSubmission
		wantCorrect  int
		wantPercent  int
		wantPassing  bool
		wantSelected map[string]int
	}{
		{
			name: "three of four correct",
			answers: []AnswerSubmission{
				{QuestionID: "q1", SelectedOption: 1},
				{QuestionID: "q2", SelectedOption: 0},
				{QuestionID: "q3", SelectedOption: 1},
				{QuestionID: "q4", SelectedOption: 3},
			},
			wantCorrect: 3,
			wantPercent: 75,
			wantPassing: true,
		},
		{
			name: "all correct",
			answers: []AnswerSubmission{
				{QuestionID: "q1", SelectedOption: 1},
				{QuestionID: "q2", SelectedOption: 0},
				{QuestionID: "q3", SelectedOption: 2},
				{QuestionID: "q4", SelectedOption: 3},
			},
			wantCorrect: 4,
			wantPercent: 100,
			wantPassing: true,
		},
		{
			name:        "no answers",
			answers:     nil,
			wantCorrect: 0,
			wantPercent: 0,
			wantPassing: false,
		},
		{
			name: "unknown question ids are ignored",
			answers: []AnswerSubmission{
				{QuestionID: "nope", SelectedOption: 1},
				{QuestionID: "q1", SelectedOption: 1},
			},
			wantCorrect: 1,
			wantPercent: 25,
			wantPassing: false,
		},
		{
			name: "two of four is below threshold",
			answers: []AnswerSubmission{
				{QuestionID: "q1", SelectedOption: 1},
				{QuestionID: "q2", SelectedOption: 0},
			},
			wantCorrect: 2,
			wantPercent: 50,
			wantPassing: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score := ScoreAnswers(questions, tt.answers)
			assert.Equal(t, tt.wantCorrect, score.CorrectCount)
			assert.Equal(t, 4, score.Total)
			assert.Equal(t, tt.wantPercent, score.Percentage)
			assert.Equal(t, tt.wantPassing, score.IsPassing)
			assert.Len(t, score.Results, 4)
		})
	}
}

func TestScoreAnswersEmptyQuiz(t *testing.T) {
	score := ScoreAnswers(nil, []AnswerSubmission{{QuestionID: "q1", SelectedOption: 0}})
	assert.Equal(t, 0, score.Total)
	assert.Equal(t, 0, score.Percentage)
	assert.False(t, score.IsPassing)
}

func TestScoreAnswersUnansweredSelectedOption(t *testing.T) {
	questions := []model.Question{
		{UUIDBase: model.UUIDBase{ID: "q1"}, CorrectOption: 0},
	}
	score := ScoreAnswers(questions, nil)
	require.Len(t, score.Results, 1)
	assert.Equal(t, -1, score.Results[0].SelectedOption)
	assert.False(t, score.Results[0].Correct)
}

func TestScoreAnswersPassBoundary(t *testing.T) {
	// 7 of 10 is exactly the threshold, 6 of 10 is below.
	questions := make([]model.Question, 10)
	for i := range questions {
		questions[i] = model.Question{UUIDBase: model.UUIDBase{ID: string(rune('a' + i))}, CorrectOption: 0}
	}

	answersFor := func(correct int) []AnswerSubmission {
		var answers []AnswerSubmission
		for i := 0; i < correct; i++ {
			answers = append(answers, AnswerSubmission{QuestionID: string(rune('a' + i)), SelectedOption: 0})
		}
		return answers
	}

	assert.False(t, ScoreAnswers(questions, answersFor(6)).IsPassing)
	assert.True(t, ScoreAnswers(questions, answersFor(7)).IsPassing)
}

// seedQuiz creates a user plus a roadmap with one step and a four-question
// quiz, returning the pieces tests interact with.
func seedQuiz(t *testing.T, db *gorm.DB) (model.User, model.Roadmap, model.Step, model.Quiz) {
	t.Helper()

	user := model.User{Name: "tester", Email: "tester@example.com", Password: "hash"}
	require.NoError(t, db.Create(&user).Error)

	roadmap := model.Roadmap{Title: "Go Roadmap", Topic: "Go", IsPublic: true, UserID: &user.ID}
	require.NoError(t, db.Create(&roadmap).Error)

	step := model.Step{RoadmapID: roadmap.ID, Title: "Basics", Order: 1}
	require.NoError(t, db.Create(&step).Error)

	quiz := model.Quiz{StepID: step.ID}
	require.NoError(t, db.Create(&quiz).Error)

	for i := 0; i < 4; i++ {
		q := model.Question{
			QuizID:        quiz.ID,
			Text:          "question",
			Options:       model.StringList{"a", "b", "c", "d"},
			CorrectOption: i,
			Order:         i + 1,
		}
		require.NoError(t, db.Create(&q).Error)
	}

	return user, roadmap, step, quiz
}

func newProgressService(db *gorm.DB) *ProgressService {
	return NewProgressService(repository.NewProgressRepository(db), repository.NewRoadmapRepository(db))
}

func correctAnswers(t *testing.T, db *gorm.DB, quizID string, n int) []AnswerSubmission {
	t.Helper()
	var questions []model.Question
	require.NoError(t, db.Where("quiz_id = ?", quizID).Order("question_order ASC").Find(&questions).Error)

	var answers []AnswerSubmission
	for i, q := range questions {
		sel := q.CorrectOption
		if i >= n {
			sel = (q.CorrectOption + 1) % len(q.Options)
		}
		answers = append(answers, AnswerSubmission{QuestionID: q.ID, SelectedOption: sel})
	}
	return answers
}

func TestSubmitQuizPassingMarksStepCompleted(t *testing.T) {
	db := newTestDB(t)
	user, roadmap, step, quiz := seedQuiz(t, db)
	svc := newProgressService(db)

	result, err := svc.SubmitQuiz(user.ID, quiz.ID, correctAnswers(t, db, quiz.ID, 3))
	require.NoError(t, err)

	assert.Equal(t, 75, result.Score.Percentage)
	assert.True(t, result.Score.IsPassing)

	require.NotNil(t, result.Progress)
	assert.Equal(t, roadmap.ID, result.Progress.RoadmapID)
	assert.Equal(t, step.ID, result.Progress.StepID)
	assert.True(t, result.Progress.Completed)
	require.NotNil(t, result.Progress.QuizScore)
	assert.Equal(t, 75, *result.Progress.QuizScore)
	assert.NotNil(t, result.Progress.CompletedAt)

	var attempts []model.QuizAttempt
	require.NoError(t, db.Where("quiz_id = ?", quiz.ID).Find(&attempts).Error)
	require.Len(t, attempts, 1)
	assert.Equal(t, 75, attempts[0].Score)
}

func TestSubmitQuizFailingKeepsStepIncomplete(t *testing.T) {
	db := newTestDB(t)
	user, _, _, quiz := seedQuiz(t, db)
	svc := newProgressService(db)

	result, err := svc.SubmitQuiz(user.ID, quiz.ID, correctAnswers(t, db, quiz.ID, 2))
	require.NoError(t, err)

	assert.Equal(t, 50, result.Score.Percentage)
	assert.False(t, result.Score.IsPassing)
	assert.False(t, result.Progress.Completed)
	assert.Nil(t, result.Progress.CompletedAt)
}

func TestSubmitQuizFailingRetryClearsCompletedAt(t *testing.T) {
	db := newTestDB(t)
	user, _, _, quiz := seedQuiz(t, db)
	svc := newProgressService(db)

	first, err := svc.SubmitQuiz(user.ID, quiz.ID, correctAnswers(t, db, quiz.ID, 4))
	require.NoError(t, err)
	require.NotNil(t, first.Progress.CompletedAt)

	// A later failing attempt lowers the score, drops the completed flag and
	// clears the completion timestamp with it.
	second, err := svc.SubmitQuiz(user.ID, quiz.ID, correctAnswers(t, db, quiz.ID, 1))
	require.NoError(t, err)

	assert.False(t, second.Progress.Completed)
	require.NotNil(t, second.Progress.QuizScore)
	assert.Equal(t, 25, *second.Progress.QuizScore)
	assert.Nil(t, second.Progress.CompletedAt)

	var attempts []model.QuizAttempt
	require.NoError(t, db.Where("quiz_id = ?", quiz.ID).Find(&attempts).Error)
	assert.Len(t, attempts, 2)
}

func TestSubmitQuizUnknownQuiz(t *testing.T) {
	db := newTestDB(t)
	user, _, _, _ := seedQuiz(t, db)
	svc := newProgressService(db)

	_, err := svc.SubmitQuiz(user.ID, "missing-quiz-id", nil)
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestUpsertProgressRejectsStepOutsideRoadmap(t *testing.T) {
	db := newTestDB(t)
	user, _, step, _ := seedQuiz(t, db)
	svc := newProgressService(db)

	_, err := svc.UpsertProgress(user.ID, "other-roadmap", step.ID, true, nil)
	assert.ErrorIs(t, err, util.ErrStepNotFound)
}

func TestUpsertProgressDirectCompletion(t *testing.T) {
	db := newTestDB(t)
	user, roadmap, step, _ := seedQuiz(t, db)
	svc := newProgressService(db)

	progress, err := svc.UpsertProgress(user.ID, roadmap.ID, step.ID, true, nil)
	require.NoError(t, err)

	assert.True(t, progress.Completed)
	assert.Nil(t, progress.QuizScore)
	assert.NotNil(t, progress.CompletedAt)
}

func TestGetRoadmapProgress(t *testing.T) {
	db := newTestDB(t)
	user, roadmap, step, _ := seedQuiz(t, db)
	svc := newProgressService(db)

	second := model.Step{RoadmapID: roadmap.ID, Title: "Advanced", Order: 2}
	require.NoError(t, db.Create(&second).Error)

	_, err := svc.UpsertProgress(user.ID, roadmap.ID, step.ID, true, nil)
	require.NoError(t, err)

	progress, err := svc.GetRoadmapProgress(user.ID, roadmap.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, progress.TotalSteps)
	assert.Equal(t, 1, progress.CompletedSteps)
	assert.Equal(t, 50, progress.PercentComplete)
	assert.Len(t, progress.Steps, 1)
}

func TestGetRoadmapProgressUnknownRoadmap(t *testing.T) {
	db := newTestDB(t)
	user, _, _, _ := seedQuiz(t, db)
	svc := newProgressService(db)

	_, err := svc.GetRoadmapProgress(user.ID, "missing-roadmap-id")
	assert.ErrorIs(t, err, util.ErrRoadmapNotFound)
}

func makePrivate(t *testing.T, db *gorm.DB, roadmapID string) {
	t.Helper()
	require.NoError(t, db.Model(&model.Roadmap{}).Where("id = ?", roadmapID).Update("is_public", false).Error)
}

func TestProgressPathsHidePrivateRoadmapFromNonOwner(t *testing.T) {
	db := newTestDB(t)
	owner, roadmap, step, quiz := seedQuiz(t, db)
	svc := newProgressService(db)
	makePrivate(t, db, roadmap.ID)

	stranger := owner.ID + 1

	_, err := svc.SubmitQuiz(stranger, quiz.ID, correctAnswers(t, db, quiz.ID, 4))
	assert.ErrorIs(t, err, util.ErrRoadmapNotFound)

	_, err = svc.UpsertProgress(stranger, roadmap.ID, step.ID, true, nil)
	assert.ErrorIs(t, err, util.ErrRoadmapNotFound)

	_, err = svc.GetRoadmapProgress(stranger, roadmap.ID)
	assert.ErrorIs(t, err, util.ErrRoadmapNotFound)

	// No rows leaked through the rejected writes.
	var progress, attempts int64
	require.NoError(t, db.Model(&model.UserProgress{}).Count(&progress).Error)
	require.NoError(t, db.Model(&model.QuizAttempt{}).Count(&attempts).Error)
	assert.Zero(t, progress)
	assert.Zero(t, attempts)

	// The owner is unaffected.
	_, err = svc.UpsertProgress(owner.ID, roadmap.ID, step.ID, true, nil)
	require.NoError(t, err)
	got, err := svc.GetRoadmapProgress(owner.ID, roadmap.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CompletedSteps)
}

func TestProgressOnPublicRoadmapOpenToAnyUser(t *testing.T) {
	db := newTestDB(t)
	owner, roadmap, step, quiz := seedQuiz(t, db)
	svc := newProgressService(db)

	stranger := owner.ID + 1

	result, err := svc.SubmitQuiz(stranger, quiz.ID, correctAnswers(t, db, quiz.ID, 4))
	require.NoError(t, err)
	assert.True(t, result.Progress.Completed)

	_, err = svc.UpsertProgress(stranger, roadmap.ID, step.ID, true, nil)
	require.NoError(t, err)
}

func TestGetUserProgressAggregatesPerRoadmap(t *testing.T) {
	db := newTestDB(t)
	user, roadmap, step, _ := seedQuiz(t, db)
	svc := newProgressService(db)

	second := model.Step{RoadmapID: roadmap.ID, Title: "Advanced", Order: 2}
	require.NoError(t, db.Create(&second).Error)

	_, err := svc.UpsertProgress(user.ID, roadmap.ID, step.ID, true, nil)
	require.NoError(t, err)
	_, err = svc.UpsertProgress(user.ID, roadmap.ID, second.ID, true, nil)
	require.NoError(t, err)

	summaries, err := svc.GetUserProgress(user.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	assert.Equal(t, roadmap.ID, summaries[0].RoadmapID)
	assert.Equal(t, 2, summaries[0].TotalSteps)
	assert.Equal(t, 2, summaries[0].CompletedSteps)
	assert.Equal(t, 100, summaries[0].PercentComplete)
}
