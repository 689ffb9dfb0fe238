package controller

import (
	"skillpath_backend/internal/service"
	"skillpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	Service *service.ProgressService
}

func NewProgressController(svc *service.ProgressService) *ProgressController {
	return &ProgressController{Service: svc}
}

type SubmitQuizRequest struct {
	Answers []service.AnswerSubmission `json:"answers" binding:"required"`
}

type UpsertProgressRequest struct {
	RoadmapID string `json:"roadmapId" binding:"required"`
	StepID    string `json:"stepId" binding:"required"`
	Completed bool   `json:"completed"`
	QuizScore *int   `json:"quizScore"`
}

// @Summary Submit quiz answers
// @Description Scores the submission, records an attempt and updates step progress
// @Tags progress
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "quiz id"
// @Param body body SubmitQuizRequest true "answers"
// @Success 200 {object} util.Response
// @Router /quizzes/{id}/submit [post]
func (c *ProgressController) SubmitQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.Service.SubmitQuiz(claims.UserID, ctx.Param("id"), req.Answers)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// @Summary Mark step progress directly
// @Tags progress
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body UpsertProgressRequest true "progress fields"
// @Success 200 {object} util.Response
// @Router /progress [post]
func (c *ProgressController) UpsertProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req UpsertProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.Service.UpsertProgress(claims.UserID, req.RoadmapID, req.StepID, req.Completed, req.QuizScore)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary Per-step progress for one roadmap
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param roadmapId path string true "roadmap id"
// @Success 200 {object} util.Response
// @Router /progress/{roadmapId} [get]
func (c *ProgressController) GetRoadmapProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.Service.GetRoadmapProgress(claims.UserID, ctx.Param("roadmapId"))
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// @Summary Per-roadmap completion summary for the caller
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /progress [get]
func (c *ProgressController) GetUserProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summaries, err := c.Service.GetUserProgress(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, summaries)
}
