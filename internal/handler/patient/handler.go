package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/patient-registry/internal/middleware"
	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/service/patient"
	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/httputil"
	"github.com/jwalitptl/patient-registry/pkg/validator"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.POST("", h.CreatePatient)
		patients.GET("", h.ListPatients)
		patients.GET("/stats", h.GetStats)
		patients.GET("/:id", h.GetPatient)
		patients.PUT("/:id", h.UpdatePatient)
		patients.DELETE("/:id", h.DeletePatient)
	}
}

func (h *Handler) CreatePatient(c *gin.Context) {
	var req model.PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.Translate(err))
		return
	}

	patient, err := h.service.CreatePatient(c.Request.Context(), middleware.GetClientID(c), &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, patient)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	patient, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, patient)
}

func (h *Handler) UpdatePatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	var req model.PatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(validator.Translate(err))
		return
	}

	patient, err := h.service.UpdatePatient(c.Request.Context(), middleware.GetClientID(c), id, &req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, patient)
}

func (h *Handler) DeletePatient(c *gin.Context) {
	id, ok := patientID(c)
	if !ok {
		return
	}

	if err := h.service.DeletePatient(c.Request.Context(), middleware.GetClientID(c), id); err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithMessage(c, http.StatusOK, "patient deleted")
}

func (h *Handler) ListPatients(c *gin.Context) {
	var filters model.PatientFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		_ = c.Error(errors.NewBadRequest("invalid query parameters", err))
		return
	}

	patients, err := h.service.ListPatients(c.Request.Context(), &filters)
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, patients)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, stats)
}

func patientID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		_ = c.Error(errors.NewBadRequest("invalid patient ID", err))
		return uuid.Nil, false
	}
	return id, true
}
