package controller

import (
	"projecthub-be/internal/pkg/serverutils"
	"projecthub-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IActivityController interface {
	RegisterRoutes(r fiber.Router)
	List(ctx *fiber.Ctx) error
}

type activityController struct {
	activityService *service.ActivityService
}

func NewActivityController(activityService *service.ActivityService) IActivityController {
	return &activityController{
		activityService: activityService,
	}
}

func (c *activityController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/activity/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("", c.List)
}

func (c *activityController) List(ctx *fiber.Ctx) error {
	eventType := ctx.Query("event_type", "")
	limit := ctx.QueryInt("limit", 50)

	res, err := c.activityService.List(ctx.Context(), eventType, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list activities", res))
}
