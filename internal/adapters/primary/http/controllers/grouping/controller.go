package grouping

import (
	"encoding/base64"
	"errors"
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/lightwork87/fashion-analyzer-pro/internal/adapters/primary/http/middlewares"
	"github.com/lightwork87/fashion-analyzer-pro/internal/domain"
	groupingUsecase "github.com/lightwork87/fashion-analyzer-pro/internal/usecases/grouping"
)

type Controller struct {
	GroupingService *groupingUsecase.Service
	Auth            gin.HandlerFunc
	Log             *slog.Logger
}

func New(groupingService *groupingUsecase.Service, auth gin.HandlerFunc, log *slog.Logger) *Controller {
	return &Controller{
		GroupingService: groupingService,
		Auth:            auth,
		Log:             log,
	}
}

func (c *Controller) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1", c.Auth)
	api.POST("/images/group", c.groupImages)
}

// groupImages принимает партию фото и возвращает разбиение на группы
func (c *Controller) groupImages(ctx *gin.Context) {
	identity := middlewares.Identity(ctx)

	var req GroupImagesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		c.Log.Warn("failed to bind group images request",
			"error", err,
			"identity", identity,
		)
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	images := make([]domain.ImageDescriptor, 0, len(req.Images))
	for i, img := range req.Images {
		thumbnail, err := base64.StdEncoding.DecodeString(img.Data)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid image data"})
			return
		}
		images = append(images, domain.ImageDescriptor{
			Index:     i,
			Thumbnail: thumbnail,
			MimeType:  img.MimeType,
		})
	}

	output, err := c.GroupingService.GroupImages(ctx.Request.Context(), identity, images)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNoImagesProvided):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "no images provided"})
		case errors.Is(err, domain.ErrTooManyImages):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "too many images"})
		case errors.Is(err, domain.ErrInsufficientCredits):
			ctx.JSON(http.StatusConflict, gin.H{"error": "insufficient credits"})
		default:
			c.Log.Error("failed to group images",
				"error", err,
				"identity", identity,
				"images", len(req.Images),
			)
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence unavailable"})
		}
		return
	}

	groups := make([]ItemGroupResponse, 0, len(output.Result.Groups))
	for _, g := range output.Result.Groups {
		groups = append(groups, ItemGroupResponse{
			Indices:       g.Indices,
			SuggestedName: g.SuggestedName,
			Confidence:    g.Confidence,
		})
	}

	ctx.JSON(http.StatusOK, GroupImagesResponse{
		AnalysisID:       output.Result.AnalysisID.String(),
		Groups:           groups,
		Method:           string(output.Result.Method),
		Degraded:         output.Result.Degraded,
		ImageKeys:        output.ImageKeys,
		RemainingCredits: output.RemainingCredits,
	})
}
