package httpHandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"weather-server/entities"
	"weather-server/usecases"
)

// ReadingHandler serves one kind of reading in one tier.
type ReadingHandler struct {
	useCase *usecases.ReadingUseCase
	kind    entities.Kind
	tier    entities.Tier
	logger  *slog.Logger
}

func NewReadingHandler(useCase *usecases.ReadingUseCase, kind entities.Kind, tier entities.Tier, logger *slog.Logger) *ReadingHandler {
	return &ReadingHandler{
		useCase: useCase,
		kind:    kind,
		tier:    tier,
		logger:  logger,
	}
}

// Create handles POST /weather/{collection}
func (h *ReadingHandler) Create(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	reading, err := h.useCase.Create(c.Request.Context(), h.kind, h.tier, fields)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, reading.View())
}

// Get handles GET /weather/{collection}/:id
func (h *ReadingHandler) Get(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}

	reading, err := h.useCase.Get(c.Request.Context(), h.kind, h.tier, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, reading.View())
}

// Update handles PUT /weather/{collection}/:id as a full replace.
func (h *ReadingHandler) Update(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}
	fields, ok := bindFields(c)
	if !ok {
		return
	}

	if _, err := h.useCase.Replace(c.Request.Context(), h.kind, h.tier, id, fields); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Delete handles DELETE /weather/{collection}/:id
func (h *ReadingHandler) Delete(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}

	if err := h.useCase.Delete(c.Request.Context(), h.kind, h.tier, id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// List handles GET /weather/{collection}?start=&end=
func (h *ReadingHandler) List(c *gin.Context) {
	filter, err := listFilter(c, h.tier == entities.Protected)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	readings, err := h.useCase.List(c.Request.Context(), h.kind, h.tier, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views := make([]any, 0, len(readings))
	for _, r := range readings {
		views = append(views, r.View())
	}
	c.JSON(http.StatusOK, views)
}

// PublicReadingHandler serves the read-only public projection of the
// protected readings of one kind.
type PublicReadingHandler struct {
	useCase *usecases.ReadingUseCase
	kind    entities.Kind
	logger  *slog.Logger
}

func NewPublicReadingHandler(useCase *usecases.ReadingUseCase, kind entities.Kind, logger *slog.Logger) *PublicReadingHandler {
	return &PublicReadingHandler{useCase: useCase, kind: kind, logger: logger}
}

// Get handles GET /weather/public/{kind}/:id
func (h *PublicReadingHandler) Get(c *gin.Context) {
	id, ok := readingID(c)
	if !ok {
		return
	}

	view, err := h.useCase.GetPublic(c.Request.Context(), h.kind, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// List handles GET /weather/public/{kind}?start=&end=&city=&province=&country=
func (h *PublicReadingHandler) List(c *gin.Context) {
	filter, err := listFilter(c, true)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	views, err := h.useCase.ListPublic(c.Request.Context(), h.kind, filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

func bindFields(c *gin.Context) (entities.Fields, bool) {
	var in entities.ReadingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return entities.Fields{}, false
	}
	fields, err := in.Fields()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return entities.Fields{}, false
	}
	return fields, true
}

// readingID parses the :id segment. Ids that are not unsigned integers
// never match a record.
func readingID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgNotFound})
		return 0, false
	}
	return id, true
}

type listQuery struct {
	Start    string `form:"start"`
	End      string `form:"end"`
	City     string `form:"city"`
	Province string `form:"province"`
	Country  string `form:"country"`
	Page     *int   `form:"page"`
	PerPage  *int   `form:"per_page"`
}

func listFilter(c *gin.Context, withLocation bool) (usecases.ListFilter, error) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return usecases.ListFilter{}, fmt.Errorf("%w: %v", usecases.ErrInvalidRange, err)
	}
	if q.Start == "" || q.End == "" {
		return usecases.ListFilter{}, fmt.Errorf("%w: start and end are required", usecases.ErrInvalidRange)
	}

	start, err := entities.ParseRangeBound(q.Start, false)
	if err != nil {
		return usecases.ListFilter{}, err
	}
	end, err := entities.ParseRangeBound(q.End, true)
	if err != nil {
		return usecases.ListFilter{}, err
	}

	filter := usecases.ListFilter{Start: start, End: end}
	if withLocation {
		filter.Location = &entities.Location{City: q.City, Province: q.Province, Country: q.Country}
	}
	if q.Page != nil {
		filter.Page = *q.Page
		if filter.Page == 0 {
			return usecases.ListFilter{}, fmt.Errorf("%w: page must be at least 1", usecases.ErrInvalidRange)
		}
	}
	if q.PerPage != nil {
		filter.PerPage = *q.PerPage
		if filter.PerPage == 0 {
			return usecases.ListFilter{}, fmt.Errorf("%w: per_page must be one of %v", usecases.ErrInvalidRange, usecases.PageSizes)
		}
	}
	return filter, nil
}
