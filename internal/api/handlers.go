package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tso500-cohort-explorer/internal/domain"
	"github.com/tso500-cohort-explorer/internal/middleware"
	"github.com/tso500-cohort-explorer/internal/predicate"
	"github.com/tso500-cohort-explorer/internal/survival"
)

// DefaultStratification is used when a request names no survival key
const DefaultStratification = survival.KeyIntervention

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status         string    `json:"status"`
	Version        string    `json:"version"`
	Timestamp      time.Time `json:"timestamp"`
	GraphBreaker   string    `json:"graph_breaker"`
	Patients       int       `json:"patients"`
	Records        int       `json:"records"`
	Enrollments    int       `json:"enrollments"`
	DatasetVersion string    `json:"dataset_version"`
	LoadedAt       time.Time `json:"loaded_at"`
}

func (s *Server) handleHealth(c *gin.Context) {
	resp := HealthResponse{
		Status:       "healthy",
		Version:      Version,
		Timestamp:    time.Now().UTC(),
		GraphBreaker: "n/a",
	}
	if s.breaker != nil {
		resp.GraphBreaker = s.breaker.State()
		// An open breaker means every relationship filter is degraded.
		if resp.GraphBreaker == "open" {
			resp.Status = "degraded"
		}
	}
	if s.dataset != nil {
		resp.Patients = len(s.dataset.Table.Patients())
		resp.Records = s.dataset.Table.Len()
		resp.Enrollments = len(s.dataset.Clinical.Enrollments())
		resp.DatasetVersion = s.dataset.Version
		resp.LoadedAt = s.dataset.LoadedAt
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleOptions(c *gin.Context) {
	c.JSON(http.StatusOK, s.service.Options())
}

func (s *Server) handleCohort(c *gin.Context) {
	set, ok := s.bindSet(c)
	if !ok {
		return
	}
	res, err := s.service.Resolve(c.Request.Context(), set)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleViews(c *gin.Context) {
	set, ok := s.bindSet(c)
	if !ok {
		return
	}
	res, views, err := s.service.Views(c.Request.Context(), set)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cohort": res, "views": views})
}

func (s *Server) handleSurvival(c *gin.Context) {
	key, ok := s.bindKey(c)
	if !ok {
		return
	}
	set, ok := s.bindSet(c)
	if !ok {
		return
	}
	est, err := s.service.Survival(c.Request.Context(), set, key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, est)
}

func (s *Server) handleDashboard(c *gin.Context) {
	key, ok := s.bindKey(c)
	if !ok {
		return
	}
	set, ok := s.bindSet(c)
	if !ok {
		return
	}
	dashboard, err := s.service.Dashboard(c.Request.Context(), set, key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// bindSet decodes the body onto the default snapshot; an empty body is the default snapshot.
func (s *Server) bindSet(c *gin.Context) (predicate.Set, bool) {
	set := predicate.Default()
	if c.Request.Body == nil {
		return set, true
	}
	if err := json.NewDecoder(c.Request.Body).Decode(&set); err != nil && !errors.Is(err, io.EOF) {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Malformed predicate snapshot", err.Error())
		return predicate.Set{}, false
	}
	return set, true
}

func (s *Server) bindKey(c *gin.Context) (survival.Key, bool) {
	raw := c.DefaultQuery("key", string(DefaultStratification))
	key, err := survival.ParseKey(raw)
	if err != nil {
		s.abort(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Unknown stratification key", err.Error())
		return "", false
	}
	return key, true
}

// errorStatus maps engine errors onto the API envelope
func errorStatus(err error) (int, string, string) {
	switch {
	case domain.IsValidationError(err):
		return http.StatusBadRequest, domain.ErrCodeValidation, "Invalid predicate snapshot"
	case errors.Is(err, domain.ErrUnknownStratification):
		return http.StatusBadRequest, domain.ErrCodeInvalidInput, "Unknown stratification key"
	case errors.Is(err, domain.ErrSuperseded):
		return http.StatusConflict, domain.ErrCodeSuperseded, "Resolution superseded"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, domain.ErrCodeTimeout, "Resolution timed out"
	}
	return http.StatusInternalServerError, domain.ErrCodeInternal, "Cohort resolution failed"
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"error":      err.Error(),
		}).Error("Request failed")
	}
	s.abort(c, status, code, message, err.Error())
}

func (s *Server) abort(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.RequestIDKey)))
}
