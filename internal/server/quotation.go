package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	quotationdomain "github.com/smallbiznis/quoteflow/internal/quotation/domain"
)

type createQuotationRequest struct {
	QuotationNumber string                      `json:"quotation_number"`
	CompanyID       string                      `json:"company_id"`
	Date            string                      `json:"date"`
	ValidUntil      string                      `json:"valid_until"`
	Items           []quotationdomain.ItemInput `json:"items"`
	Notes           string                      `json:"notes"`
	Status          string                      `json:"status"`
	CreatedBy       string                      `json:"created_by"`
}

type updateQuotationRequest struct {
	QuotationNumber *string                     `json:"quotation_number"`
	CompanyID       *string                     `json:"company_id"`
	Date            *string                     `json:"date"`
	ValidUntil      *string                     `json:"valid_until"`
	Items           []quotationdomain.ItemInput `json:"items"`
	Notes           *string                     `json:"notes"`
	Status          *string                     `json:"status"`
}

type toggleStatusRequest struct {
	CurrentStatus string `json:"current_status"`
}

func (s *Server) ListQuotations(c *gin.Context) {
	resp, err := s.quotationSvc.List(c.Request.Context(), quotationListFilter(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetQuotationByID(c *gin.Context) {
	resp, err := s.quotationSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateQuotation(c *gin.Context) {
	var req createQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	date, err := parseTimeField("date", req.Date)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	validUntil, err := parseTimeField("valid_until", req.ValidUntil)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	in := quotationdomain.CreateQuotationRequest{
		QuotationNumber: req.QuotationNumber,
		CompanyID:       strings.TrimSpace(req.CompanyID),
		ValidUntil:      validUntil,
		Items:           req.Items,
		Notes:           req.Notes,
		Status:          quotationdomain.Status(strings.TrimSpace(req.Status)),
		CreatedBy:       req.CreatedBy,
	}
	if date != nil {
		in.Date = *date
	}

	resp, err := s.quotationSvc.Create(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp, "message": "quotation created"})
}

func (s *Server) UpdateQuotation(c *gin.Context) {
	var req updateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	in := quotationdomain.UpdateQuotationRequest{
		QuotationNumber: req.QuotationNumber,
		CompanyID:       req.CompanyID,
		Items:           req.Items,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		date, err := parseTimeField("date", *req.Date)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if date == nil {
			AbortWithError(c, newValidationError("date", "required", "date is required"))
			return
		}
		in.Date = date
	}
	if req.ValidUntil != nil {
		validUntil, err := parseTimeField("valid_until", *req.ValidUntil)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		in.ValidUntil = validUntil
	}
	if req.Status != nil {
		status := quotationdomain.Status(strings.TrimSpace(*req.Status))
		in.Status = &status
	}

	resp, err := s.quotationSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp, "message": "quotation updated"})
}

func (s *Server) DeleteQuotation(c *gin.Context) {
	deleted, err := s.quotationSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if !deleted {
		AbortWithError(c, ErrNotFound)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "quotation deleted"})
}

// ToggleQuotationStatus flips draft and sent. The optional current_status
// guards against toggling a quotation someone else already changed.
func (s *Server) ToggleQuotationStatus(c *gin.Context) {
	var req toggleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	var current quotationdomain.Status
	if raw := strings.TrimSpace(req.CurrentStatus); raw != "" {
		parsed, err := quotationdomain.ParseStatus(raw)
		if err != nil {
			AbortWithError(c, newValidationError("current_status", "oneof", "current_status must be one of draft sent accepted rejected archived"))
			return
		}
		current = parsed
	}

	status, err := s.quotationSvc.ToggleStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), current)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    gin.H{"status": status},
		"message": "quotation status changed to " + status.String(),
	})
}
