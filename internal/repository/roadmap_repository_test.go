package repository

import (
	"fmt"
	"testing"

	"skillpath_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func buildRoadmapTree(ownerID *uint, steps int) *model.Roadmap {
	roadmap := &model.Roadmap{
		Title:    "Go Roadmap",
		Topic:    "Go",
		IsPublic: true,
		UserID:   ownerID,
	}
	for i := 1; i <= steps; i++ {
		step := model.Step{
			Title:   fmt.Sprintf("Step %d", i),
			Content: "lesson",
			Order:   i,
			Resources: []model.Resource{
				{Title: fmt.Sprintf("Resource %d", i), URL: "https://example.com", Type: "article"},
			},
			Quiz: &model.Quiz{
				Questions: []model.Question{
					{Text: "q?", Options: model.StringList{"a", "b"}, CorrectOption: 0, Order: 1},
				},
			},
		}
		roadmap.Steps = append(roadmap.Steps, step)
	}
	return roadmap
}

func seedUser(t *testing.T, db *gorm.DB, email string) model.User {
	t.Helper()
	user := model.User{Name: "tester", Email: email, Password: "hash"}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestCreateTreePersistsEveryTable(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	user := seedUser(t, db, "a@example.com")

	require.NoError(t, repo.CreateTree(buildRoadmapTree(&user.ID, 3)))

	counts := map[string]interface{}{
		"roadmaps":  &model.Roadmap{},
		"steps":     &model.Step{},
		"resources": &model.Resource{},
		"quizzes":   &model.Quiz{},
		"questions": &model.Question{},
	}
	expected := map[string]int64{
		"roadmaps": 1, "steps": 3, "resources": 3, "quizzes": 3, "questions": 3,
	}
	for table, m := range counts {
		var n int64
		require.NoError(t, db.Model(m).Count(&n).Error)
		assert.Equal(t, expected[table], n, table)
	}
}

func TestCreateTreeRollsBackOnConstraintViolation(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	user := seedUser(t, db, "a@example.com")

	tree := buildRoadmapTree(&user.ID, 3)
	// Duplicate order violates the (roadmap, order) unique index on the third
	// insert, after two steps already went in.
	tree.Steps[2].Order = tree.Steps[1].Order

	require.Error(t, repo.CreateTree(tree))

	var roadmaps, steps, resources, quizzes int64
	require.NoError(t, db.Model(&model.Roadmap{}).Count(&roadmaps).Error)
	require.NoError(t, db.Model(&model.Step{}).Count(&steps).Error)
	require.NoError(t, db.Model(&model.Resource{}).Count(&resources).Error)
	require.NoError(t, db.Model(&model.Quiz{}).Count(&quizzes).Error)
	assert.Zero(t, roadmaps)
	assert.Zero(t, steps)
	assert.Zero(t, resources)
	assert.Zero(t, quizzes)
}

func TestFindByIDReturnsOrderedSteps(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	user := seedUser(t, db, "a@example.com")

	tree := buildRoadmapTree(&user.ID, 4)
	// Shuffle insertion order; read-back must still be ascending.
	tree.Steps[0], tree.Steps[3] = tree.Steps[3], tree.Steps[0]
	tree.Steps[1], tree.Steps[2] = tree.Steps[2], tree.Steps[1]
	require.NoError(t, repo.CreateTree(tree))

	got, err := repo.FindByID(tree.ID)
	require.NoError(t, err)

	require.Len(t, got.Steps, 4)
	for i, step := range got.Steps {
		assert.Equal(t, i+1, step.Order)
		require.Len(t, step.Resources, 1)
		require.NotNil(t, step.Quiz)
		require.Len(t, step.Quiz.Questions, 1)
	}

	require.NotNil(t, got.Owner)
	assert.Equal(t, user.ID, got.Owner.ID)
	assert.Equal(t, "tester", got.Owner.Name)
}

func TestFindByIDUnknown(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)

	_, err := repo.FindByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListFiltersAndPagination(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	alice := seedUser(t, db, "alice@example.com")
	bob := seedUser(t, db, "bob@example.com")

	seed := []struct {
		topic  string
		public bool
		owner  *uint
	}{
		{"Go", true, &alice.ID},
		{"Golang Web", false, &alice.ID},
		{"Rust", true, &bob.ID},
	}
	for _, s := range seed {
		require.NoError(t, db.Create(&model.Roadmap{
			Title: s.topic, Topic: s.topic, IsPublic: s.public, UserID: s.owner,
		}).Error)
	}

	public := true
	rows, total, err := repo.List(RoadmapFilter{IsPublic: &public}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	rows, total, err = repo.List(RoadmapFilter{OwnerID: &alice.ID}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range rows {
		require.NotNil(t, r.Owner)
		assert.Equal(t, alice.ID, r.Owner.ID)
	}

	rows, total, err = repo.List(RoadmapFilter{TopicContains: "go"}, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	rows, total, err = repo.List(RoadmapFilter{}, 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, rows, 2)

	rows, _, err = repo.List(RoadmapFilter{}, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestDeleteCascades(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	user := seedUser(t, db, "a@example.com")

	tree := buildRoadmapTree(&user.ID, 2)
	require.NoError(t, repo.CreateTree(tree))

	keep := buildRoadmapTree(&user.ID, 1)
	require.NoError(t, repo.CreateTree(keep))

	// Progress and attempt rows hang off the roadmap too.
	require.NoError(t, db.Create(&model.UserProgress{
		UserID: user.ID, RoadmapID: tree.ID, StepID: tree.Steps[0].ID, Completed: true,
	}).Error)
	require.NoError(t, db.Create(&model.QuizAttempt{
		UserID: user.ID, QuizID: tree.Steps[0].Quiz.ID, Score: 80, Answers: []byte(`[]`),
	}).Error)

	require.NoError(t, repo.Delete(tree.ID))

	_, err := repo.FindByID(tree.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var steps, resources, quizzes, questions, progress, attempts int64
	require.NoError(t, db.Model(&model.Step{}).Where("roadmap_id = ?", tree.ID).Count(&steps).Error)
	require.NoError(t, db.Model(&model.Resource{}).Count(&resources).Error)
	require.NoError(t, db.Model(&model.Quiz{}).Count(&quizzes).Error)
	require.NoError(t, db.Model(&model.Question{}).Count(&questions).Error)
	require.NoError(t, db.Model(&model.UserProgress{}).Where("roadmap_id = ?", tree.ID).Count(&progress).Error)
	require.NoError(t, db.Model(&model.QuizAttempt{}).Count(&attempts).Error)

	assert.Zero(t, steps)
	assert.Zero(t, progress)
	assert.Zero(t, attempts)
	// Only the untouched roadmap's rows remain.
	assert.EqualValues(t, 1, resources)
	assert.EqualValues(t, 1, quizzes)
	assert.EqualValues(t, 1, questions)

	got, err := repo.FindByID(keep.ID)
	require.NoError(t, err)
	assert.Len(t, got.Steps, 1)
}

func TestCountStepsAndStepLookup(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	user := seedUser(t, db, "a@example.com")

	tree := buildRoadmapTree(&user.ID, 3)
	require.NoError(t, repo.CreateTree(tree))

	count, err := repo.CountSteps(tree.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	step, err := repo.FindStepByID(tree.Steps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, tree.ID, step.RoadmapID)

	_, err = repo.FindStepByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFindQuizByIDOrdersQuestions(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoadmapRepository(db)
	user := seedUser(t, db, "a@example.com")

	roadmap := model.Roadmap{Title: "Go", Topic: "Go", IsPublic: true, UserID: &user.ID}
	require.NoError(t, db.Create(&roadmap).Error)
	step := model.Step{RoadmapID: roadmap.ID, Title: "Basics", Order: 1}
	require.NoError(t, db.Create(&step).Error)
	quiz := model.Quiz{StepID: step.ID}
	require.NoError(t, db.Create(&quiz).Error)

	for _, order := range []int{3, 1, 2} {
		q := model.Question{
			QuizID: quiz.ID, Text: fmt.Sprintf("q%d", order),
			Options: model.StringList{"a", "b"}, CorrectOption: 0, Order: order,
		}
		require.NoError(t, db.Create(&q).Error)
	}

	got, err := repo.FindQuizByID(quiz.ID)
	require.NoError(t, err)
	require.Len(t, got.Questions, 3)
	for i, q := range got.Questions {
		assert.Equal(t, i+1, q.Order)
	}
}
