package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"medibill/internal/domain"
	"medibill/internal/service"
)

// ReportHandler handles report endpoints.
type ReportHandler struct {
	reportService service.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// DoctorPayouts handles GET /api/v1/reports/doctor-payouts
// @Summary Doctor payout report
// @Description Consultation earnings per doctor over non-cancelled bills, with TDS withheld and net payable
// @Tags reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param doctor_id query string false "Doctor UUID"
// @Success 200 {object} Response{data=[]domain.DoctorPayoutRow}
// @Failure 400 {object} ErrorResponseBody
// @Failure 403 {object} ErrorResponseBody
// @Security BearerAuth
// @Router /reports/doctor-payouts [get]
func (h *ReportHandler) DoctorPayouts(c *gin.Context) {
	filters, ok := parseBillFilters(c, false)
	if !ok {
		return
	}

	rows, err := h.reportService.DoctorPayouts(c.Request.Context(), filters)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rows)
}

// DiscountRefunds handles GET /api/v1/reports/discount-refunds
// @Summary Discount and refund report
// @Description Bills that carried a discount or were cancelled, with the refunded amount
// @Tags reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param doctor_id query string false "Doctor UUID"
// @Success 200 {object} Response{data=[]domain.DiscountRefundRow}
// @Failure 400 {object} ErrorResponseBody
// @Failure 403 {object} ErrorResponseBody
// @Security BearerAuth
// @Router /reports/discount-refunds [get]
func (h *ReportHandler) DiscountRefunds(c *gin.Context) {
	filters, ok := parseBillFilters(c, false)
	if !ok {
		return
	}

	rows, err := h.reportService.DiscountRefunds(c.Request.Context(), filters)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rows)
}

// Summary handles GET /api/v1/reports/summary
// @Summary Billing summary
// @Description Totals, collections, payouts, discounts, refunds and status counts for the period
// @Tags reports
// @Produce json
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param doctor_id query string false "Doctor UUID"
// @Success 200 {object} Response{data=domain.ReportSummary}
// @Failure 400 {object} ErrorResponseBody
// @Failure 403 {object} ErrorResponseBody
// @Security BearerAuth
// @Router /reports/summary [get]
func (h *ReportHandler) Summary(c *gin.Context) {
	filters, ok := parseBillFilters(c, false)
	if !ok {
		return
	}

	summary, err := h.reportService.Summary(c.Request.Context(), filters)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, summary)
}

// Export handles GET /api/v1/reports/:report/export
// @Summary Download a report
// @Description Render a report as an XLSX workbook or a CSV file
// @Tags reports
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/csv
// @Param report path string true "doctor-payouts or discount-refunds"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param doctor_id query string false "Doctor UUID"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponseBody
// @Failure 404 {object} ErrorResponseBody "Unknown report"
// @Security BearerAuth
// @Router /reports/{report}/export [get]
func (h *ReportHandler) Export(c *gin.Context) {
	filters, ok := parseBillFilters(c, false)
	if !ok {
		return
	}

	file, err := h.reportService.Export(c.Request.Context(), domain.ReportKind(c.Param("report")), exportFormat(c), filters)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// Archive handles POST /api/v1/reports/:report/archive
// @Summary Archive a report
// @Description Render a report, store it in the archive bucket and return a presigned download link
// @Tags reports
// @Produce json
// @Param report path string true "doctor-payouts or discount-refunds"
// @Param format query string false "xlsx or csv" default(xlsx)
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date, inclusive (YYYY-MM-DD)"
// @Param doctor_id query string false "Doctor UUID"
// @Success 201 {object} Response{data=domain.ArchivedExport}
// @Failure 400 {object} ErrorResponseBody
// @Failure 404 {object} ErrorResponseBody "Unknown report"
// @Failure 503 {object} ErrorResponseBody "Archive storage not configured"
// @Security BearerAuth
// @Router /reports/{report}/archive [post]
func (h *ReportHandler) Archive(c *gin.Context) {
	filters, ok := parseBillFilters(c, false)
	if !ok {
		return
	}

	archived, err := h.reportService.Archive(c.Request.Context(), domain.ReportKind(c.Param("report")), exportFormat(c), filters)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondCreated(c, archived)
}

func exportFormat(c *gin.Context) domain.ExportFormat {
	return domain.ExportFormat(c.DefaultQuery("format", string(domain.ExportFormatXLSX)))
}
