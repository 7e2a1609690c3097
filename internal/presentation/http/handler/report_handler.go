package handler

import (
	"bytes"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/studio-billing-api/internal/application/service"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/request"
	"github.com/sangkips/studio-billing-api/internal/presentation/http/dto/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves reports and the dashboard analytics
type ReportHandler struct {
	reportService *service.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Report runs one report as JSON or an Excel download
// @Summary Reports
// @Tags reports
// @Security BearerAuth
// @Produce json
// @Param type query string true "revenue, outstanding, clients or contractors"
// @Param from query string false "Range start (YYYY-MM-DD)"
// @Param to query string false "Range end, exclusive (YYYY-MM-DD)"
// @Param format query string false "json or xlsx"
// @Success 200 {object} response.APIResponse
// @Router /reports [get]
func (h *ReportHandler) Report(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req request.ReportRequest
	if !bindQuery(c, &req) {
		return
	}
	input := &service.ReportInput{UserID: userID, Type: req.Type}
	from, err := request.ParseDate(req.From)
	if err != nil {
		badDate(c, "from")
		return
	}
	to, err := request.ParseDate(req.To)
	if err != nil {
		badDate(c, "to")
		return
	}
	if from != nil {
		input.From = *from
	}
	if to != nil {
		input.To = *to
	}

	report, err := h.reportService.BuildReport(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}

	if req.Format != "xlsx" {
		response.OK(c, "Report generated successfully", report)
		return
	}

	var buf bytes.Buffer
	if err := h.reportService.WriteExcel(&buf, report); err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("%s-report-%s.xlsx", report.Type, report.From.Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(200, xlsxContentType, buf.Bytes())
}

// Analytics returns the dashboard summary
// @Summary Analytics
// @Tags reports
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.APIResponse
// @Router /analytics [get]
func (h *ReportHandler) Analytics(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	analytics, err := h.reportService.GetAnalytics(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Analytics retrieved successfully", analytics)
}
