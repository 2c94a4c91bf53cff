package query

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/patient-registry/internal/middleware"
	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/service/query"
	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/httputil"
	"github.com/jwalitptl/patient-registry/pkg/validator"
)

type Handler struct {
	service *query.Service
	now     func() time.Time
}

func NewHandler(service *query.Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	q := r.Group("/query")
	{
		q.POST("", h.Execute)
		q.GET("/samples", h.Samples)
		q.GET("/history", h.History)
	}
}

// Execute runs the statement. With ?format=csv the result is sent as a
// file download instead of JSON.
func (h *Handler) Execute(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		_ = c.Error(errors.NewBadRequest("format must be json or csv", nil))
		return
	}

	var req model.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.Translate(err))
		return
	}

	result, err := h.service.Execute(c.Request.Context(), middleware.GetClientID(c), req.Query)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if format == "json" {
		httputil.RespondWithSuccess(c, http.StatusOK, result)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+query.CSVFilename(h.now())+`"`)
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := query.WriteCSV(c.Writer, result); err != nil {
		_ = c.Error(errors.NewInternal(err))
	}
}

func (h *Handler) Samples(c *gin.Context) {
	samples, err := h.service.Samples()
	if err != nil {
		_ = c.Error(err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, samples)
}

func (h *Handler) History(c *gin.Context) {
	httputil.RespondWithSuccess(c, http.StatusOK, h.service.History(middleware.GetClientID(c)))
}
