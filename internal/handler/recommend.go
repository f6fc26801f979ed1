package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripmate/internal/recommend"
	"github.com/iliyamo/tripmate/internal/service"
)

// RecommendHandler serves POST /api/v1/Recommend/Destination.
type RecommendHandler struct {
	Recommender *recommend.Service
}

func NewRecommendHandler(r *recommend.Service) *RecommendHandler {
	return &RecommendHandler{Recommender: r}
}

// Destination suggests places near the given source within the budget.
func (h *RecommendHandler) Destination(c echo.Context) error {
	var req recommend.Request
	if err := c.Bind(&req); err != nil {
		return service.Validation("Source and budget are required")
	}
	places, err := h.Recommender.Recommend(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Places recommended successfully",
		"places":  places,
	})
}
