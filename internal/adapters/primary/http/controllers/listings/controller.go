package listings

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/middlewares"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	listingUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/listing"
)

type Controller struct {
	ListingService *listingUsecase.Service
	Auth           gin.HandlerFunc
	Log            *slog.Logger
}

func New(listingService *listingUsecase.Service, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		ListingService: listingService,
		Auth:           auth,
		Log:            log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1", c.Auth)
	api.POST("/listings", c.create)
	api.GET("/listings", c.list)
	api.GET("/listings/:id", c.get)
	api.PATCH("/listings/:id", c.update)
	api.DELETE("/listings/:id", c.delete)
}

// create создаёт черновик объявления
func (c *Controller) create(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	var req CreateListingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	input := listingUsecase.CreateDraftInput{
		Marketplace:   domain.Marketplace(req.Marketplace),
		SuggestedName: req.SuggestedName,
		Hints:         req.Hints,
		ImageKeys:     req.ImageKeys,
		PriceCents:    req.PriceCents,
		Currency:      req.Currency,
	}

	if req.AnalysisID != "" {
		analysisID, err := uuid.Parse(req.AnalysisID)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid analysis_id"})
			return
		}
		input.AnalysisID = &analysisID
	}

	draft, err := c.ListingService.CreateDraft(ctx.Request.Context(), identity, input)
	if err != nil {
		c.respondError(ctx, identity, err)
		return
	}

	urls := c.ListingService.ImageURLs(ctx.Request.Context(), draft)
	ctx.JSON(http.StatusCreated, toResponse(draft, urls))
}

// list возвращает черновики пользователя
func (c *Controller) list(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	drafts, err := c.ListingService.List(ctx.Request.Context(), identity, limit, offset)
	if err != nil {
		c.respondError(ctx, identity, err)
		return
	}

	items := make([]ListingResponse, 0, len(drafts))
	for i := range drafts {
		items = append(items, toResponse(&drafts[i], nil))
	}
	ctx.JSON(http.StatusOK, gin.H{"listings": items})
}

// get возвращает черновик по id
func (c *Controller) get(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	draft, err := c.ListingService.Get(ctx.Request.Context(), identity, id)
	if err != nil {
		c.respondError(ctx, identity, err)
		return
	}

	urls := c.ListingService.ImageURLs(ctx.Request.Context(), draft)
	ctx.JSON(http.StatusOK, toResponse(draft, urls))
}

// update обновляет редактируемые поля черновика
func (c *Controller) update(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	var req UpdateListingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	input := listingUsecase.UpdateDraftInput{
		Title:       req.Title,
		Description: req.Description,
		PriceCents:  req.PriceCents,
	}
	if req.Status != nil {
		status := domain.ListingStatus(*req.Status)
		input.Status = &status
	}

	draft, err := c.ListingService.Update(ctx.Request.Context(), identity, id, input)
	if err != nil {
		c.respondError(ctx, identity, err)
		return
	}

	ctx.JSON(http.StatusOK, toResponse(draft, nil))
}

// delete удаляет черновик
func (c *Controller) delete(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid listing id"})
		return
	}

	if err := c.ListingService.Delete(ctx.Request.Context(), identity, id); err != nil {
		c.respondError(ctx, identity, err)
		return
	}

	ctx.Status(http.StatusNoContent)
}

// respondError маппит доменные ошибки на HTTP статусы
func (c *Controller) respondError(ctx *gin.Context, identity string, err error) {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "listing not found"})
	case errors.Is(err, domain.ErrUserNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
	case domain.IsBusinessError(err):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.Log.Error("listing request failed",
			"error", err,
			"identity", identity,
		)
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence unavailable"})
	}
}
