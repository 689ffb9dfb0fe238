package controller

import (
	"errors"
	"strconv"

	"skillpath_backend/internal/service"
	"skillpath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type RoadmapController struct {
	Service *service.RoadmapService
}

func NewRoadmapController(svc *service.RoadmapService) *RoadmapController {
	return &RoadmapController{Service: svc}
}

func respondServiceError(ctx *gin.Context, err error) {
	var genErr *service.GenerationError
	switch {
	case errors.Is(err, util.ErrRoadmapNotFound),
		errors.Is(err, util.ErrStepNotFound),
		errors.Is(err, util.ErrQuizNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrValidation):
		util.BadRequest(ctx, err.Error())
	case errors.As(err, &genErr):
		util.BadGateway(ctx, "GEN_"+genErr.Stage)
	default:
		util.LogInternalError(ctx, err)
	}
}

// @Summary Generate and persist a roadmap
// @Description Runs the outline, content and quiz generation pipeline and stores the result atomically
// @Tags roadmaps
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateRoadmapRequest true "topic and skill level"
// @Success 201 {object} util.Response
// @Router /roadmaps [post]
func (c *RoadmapController) Create(ctx *gin.Context) {
	var req service.CreateRoadmapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	var ownerID *uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		ownerID = &claims.UserID
	}

	roadmap, err := c.Service.CreateRoadmap(ctx.Request.Context(), req, ownerID)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Created(ctx, roadmap)
}

// @Summary Get a roadmap with steps, resources and quizzes
// @Tags roadmaps
// @Produce json
// @Param id path string true "roadmap id"
// @Success 200 {object} util.Response
// @Router /roadmaps/{id} [get]
func (c *RoadmapController) Get(ctx *gin.Context) {
	var requester *uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		requester = &claims.UserID
	}

	roadmap, err := c.Service.GetRoadmap(ctx.Request.Context(), ctx.Param("id"), requester)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, roadmap)
}

// @Summary List roadmaps
// @Tags roadmaps
// @Produce json
// @Param topic query string false "topic substring, case-insensitive"
// @Param mine query bool false "only the caller's roadmaps"
// @Param page query int false "page" default(1)
// @Param limit query int false "page size" default(20)
// @Success 200 {object} util.Response
// @Router /roadmaps [get]
func (c *RoadmapController) List(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	q := service.ListRoadmapsQuery{
		TopicContains: ctx.Query("topic"),
		Page:          page,
		Limit:         limit,
	}

	claims := util.GetUserFromContext(ctx)
	if ctx.Query("mine") == "true" && claims != nil {
		q.OwnerID = &claims.UserID
	} else {
		// Guests and default listings only see public roadmaps.
		public := true
		q.IsPublic = &public
	}

	roadmaps, total, err := c.Service.ListRoadmaps(q)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{
		List:  roadmaps,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary Update a roadmap's title, description or visibility
// @Tags roadmaps
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "roadmap id"
// @Param body body service.UpdateRoadmapRequest true "fields to update"
// @Success 200 {object} util.Response
// @Router /roadmaps/{id} [put]
func (c *RoadmapController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.UpdateRoadmapRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	roadmap, err := c.Service.UpdateRoadmap(ctx.Request.Context(), ctx.Param("id"), claims.UserID, req)
	if err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, roadmap)
}

// @Summary Delete a roadmap and everything under it
// @Tags roadmaps
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "roadmap id"
// @Success 200 {object} util.Response
// @Router /roadmaps/{id} [delete]
func (c *RoadmapController) Delete(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	if err := c.Service.DeleteRoadmap(ctx.Request.Context(), ctx.Param("id"), claims.UserID); err != nil {
		respondServiceError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"deleted": true})
}
