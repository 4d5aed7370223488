package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"

	"github.com/mmdatafocus/adaudit_backend/config"
	"github.com/mmdatafocus/adaudit_backend/models"
	"github.com/mmdatafocus/adaudit_backend/utils"
	"github.com/mmdatafocus/adaudit_backend/workflow"
)

func registerRoutes(r *gin.Engine) {
	r.POST("/api/auth/login", loginHandler)

	api := r.Group("/api", requireSession())

	analyses := api.Group("/ad-log/analyses")
	analyses.GET("", listAnalysesHandler)
	analyses.POST("", createAnalysisHandler)
	analyses.GET("/:id", getAnalysisHandler)
	analyses.DELETE("/:id", deleteAnalysisHandler)
	analyses.POST("/:id/run", runAnalysisHandler)
	analyses.POST("/:id/cancel", cancelAnalysisHandler)
	analyses.GET("/:id/progress", analysisProgressHandler)
	analyses.GET("/:id/files", analysisFilesHandler)
	analyses.GET("/:id/discrepancies", analysisDiscrepanciesHandler)
	analyses.GET("/:id/email-preview", emailPreviewHandler)
	analyses.POST("/:id/send-email", sendEmailHandler)

	paths := api.Group("/path-definitions")
	paths.GET("", listPathDefinitionsHandler)
	paths.POST("", createPathDefinitionHandler)
	paths.PUT("/:id", updatePathDefinitionHandler)
	paths.DELETE("/:id", deletePathDefinitionHandler)

	templates := api.Group("/email-templates")
	templates.GET("", listEmailTemplatesHandler)
	templates.POST("", createEmailTemplateHandler)
	templates.PUT("/:id", updateEmailTemplateHandler)
	templates.DELETE("/:id", deleteEmailTemplateHandler)

	usageTypes := api.Group("/usage-types")
	usageTypes.GET("", listUsageTypesHandler)
	usageTypes.POST("", createUsageTypeHandler)
	usageTypes.PUT("/:id", updateUsageTypeHandler)

	gids := api.Group("/system-gids")
	gids.GET("", listSystemGidsHandler)
	gids.POST("", createSystemGidHandler)
	gids.POST("/import", importSystemGidsHandler)
}

// requireSession rejects requests whose token did not resolve to a
// session; SessionMiddleware has already populated the context for
// valid tokens.
func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := utils.GetUsernameFromContext(c.Request.Context()); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, workflow.ErrAlreadyProcessed),
		errors.Is(err, workflow.ErrSourceUnavailable),
		errors.Is(err, workflow.ErrNoDataForPeriod),
		errors.Is(err, models.ErrPathNotConfigured),
		errors.Is(err, models.ErrTemplateNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.As(err, &vErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}
	token, operator, err := models.AuthenticateOperator(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "operator": operator})
}

func listAnalysesHandler(c *gin.Context) {
	analyses, err := models.ListAdLogAnalyses(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyses": analyses})
}

func createAnalysisHandler(c *gin.Context) {
	var input models.NewAdLogAnalysis
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	analysis, err := models.CreateAdLogAnalysis(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"analysis": analysis})
}

func getAnalysisHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	analysis, err := models.GetAdLogAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func deleteAnalysisHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	analysis, err := models.DeleteAdLogAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	workflow.ClearProgress(id)
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

// runAnalysisHandler queues the run; the dispatcher picks it up. The
// response returns immediately with the queued record so the UI can
// start polling progress.
func runAnalysisHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	analysis, err := workflow.EnqueueAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	workflow.PublishProgress(id, workflow.StepInitializing, 0, "Analysis queued", nil)
	c.JSON(http.StatusAccepted, gin.H{"analysis": analysis})
}

func cancelAnalysisHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	analysis, err := models.GetAdLogAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	switch analysis.Status {
	case models.AnalysisStatusQueued, models.AnalysisStatusPending:
		if err := models.SaveAnalysisFields(c.Request.Context(), analysis, map[string]interface{}{
			"status":        models.AnalysisStatusCancelled,
			"error_message": "analysis cancelled",
			"locked_at":     nil,
			"locked_by":     nil,
		}); err != nil {
			writeError(c, err)
			return
		}
		workflow.PublishProgress(id, workflow.StepCancelled, 100, "Analysis cancelled", nil)
	case models.AnalysisStatusDownloading, models.AnalysisStatusProcessing, models.AnalysisStatusComparing:
		// Signal the worker; the run stops at the next stage boundary.
		if err := workflow.RequestCancel(id); err != nil {
			writeError(c, err)
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis is not running"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": "cancel_requested"})
}

func analysisProgressHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	progress, found, err := workflow.ReadProgress(id)
	if err != nil {
		writeError(c, err)
		return
	}
	if found {
		c.JSON(http.StatusOK, gin.H{"progress": progress, "terminal": progress.Terminal()})
		return
	}
	// No live entry (never ran, or the TTL expired); derive a terminal
	// snapshot from the stored status.
	analysis, err := models.GetAdLogAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"progress": gin.H{
			"step":    analysis.Status,
			"percent": 0,
			"message": "no live progress for this analysis",
		},
		"terminal": storedStatusTerminal(analysis.Status),
	})
}

// storedStatusTerminal mirrors Progress.Terminal for the fallback path,
// where only the persisted status is available. A pending or queued run
// has more coming; anything past completion does not.
func storedStatusTerminal(status string) bool {
	switch status {
	case models.AnalysisStatusFailed, models.AnalysisStatusCancelled:
		return true
	}
	return models.IsAnalysisProcessed(status)
}

func analysisFilesHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	files, err := models.ListProcessedFiles(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

func analysisDiscrepanciesHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	discrepancies, err := models.ListDiscrepancies(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discrepancies": discrepancies})
}

func emailPreviewHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	analysis, err := models.GetAdLogAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !models.IsAnalysisProcessed(analysis.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis has not completed yet"})
		return
	}
	rendered, err := workflow.RenderAnalysisEmail(c.Request.Context(), analysis)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email": rendered})
}

type sendEmailRequest struct {
	To      string `json:"to"`
	Cc      string `json:"cc"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// sendEmailHandler sends the completion notification. Blank fields
// fall back to the rendered default template.
func sendEmailHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req sendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	analysis, err := models.GetAdLogAnalysis(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !models.IsAnalysisProcessed(analysis.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "analysis has not completed yet"})
		return
	}

	to := utils.SplitAndTrim(req.To)
	cc := utils.SplitAndTrim(req.Cc)
	subject := strings.TrimSpace(req.Subject)
	body := req.Body
	if len(to) == 0 || subject == "" || body == "" {
		rendered, err := workflow.RenderAnalysisEmail(c.Request.Context(), analysis)
		if err != nil {
			writeError(c, err)
			return
		}
		if len(to) == 0 {
			to = utils.SplitAndTrim(rendered.DefaultTo)
		}
		if len(cc) == 0 {
			cc = utils.SplitAndTrim(rendered.DefaultCc)
		}
		if subject == "" {
			subject = rendered.Subject
		}
		if body == "" {
			body = rendered.Body
		}
	}

	dialer, err := config.GetMailDialer()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err := workflow.SendAnalysisEmail(c.Request.Context(), config.GetLogger(), dialer, analysis, to, cc, subject, body); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}

func listPathDefinitionsHandler(c *gin.Context) {
	paths, err := models.ListPathDefinitions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path_definitions": paths})
}

func createPathDefinitionHandler(c *gin.Context) {
	var input models.NewPathDefinition
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := models.CreatePathDefinition(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path_definition": path})
}

func updatePathDefinitionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewPathDefinition
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	path, err := models.UpdatePathDefinition(c.Request.Context(), id, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path_definition": path})
}

func deletePathDefinitionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	path, err := models.DeletePathDefinition(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path_definition": path})
}

func listEmailTemplatesHandler(c *gin.Context) {
	templates, err := models.ListEmailTemplates(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_templates": templates})
}

func createEmailTemplateHandler(c *gin.Context) {
	var input models.NewEmailTemplate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := models.CreateEmailTemplate(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"email_template": tmpl})
}

func updateEmailTemplateHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewEmailTemplate
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tmpl, err := models.UpdateEmailTemplate(c.Request.Context(), id, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_template": tmpl})
}

func deleteEmailTemplateHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	tmpl, err := models.DeleteEmailTemplate(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"email_template": tmpl})
}

func listUsageTypesHandler(c *gin.Context) {
	usageTypes, err := models.ListUsageTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage_types": usageTypes})
}

func createUsageTypeHandler(c *gin.Context) {
	var input models.NewUsageType
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usageType, err := models.CreateUsageType(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"usage_type": usageType})
}

func updateUsageTypeHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewUsageType
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	usageType, err := models.UpdateUsageType(c.Request.Context(), id, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"usage_type": usageType})
}

func listSystemGidsHandler(c *gin.Context) {
	gids, err := models.FetchAllSystemGids(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"system_gids": gids})
}

func createSystemGidHandler(c *gin.Context) {
	var input models.NewSystemGid
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	gid, err := models.CreateSystemGid(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"system_gid": gid})
}

type importSystemGidsRequest struct {
	Gids []models.NewSystemGid `json:"gids" binding:"required,dive"`
}

func importSystemGidsHandler(c *gin.Context) {
	var req importSystemGidsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows := make([]models.SystemGid, 0, len(req.Gids))
	for _, g := range req.Gids {
		rows = append(rows, models.SystemGid{
			Gid:         g.Gid,
			DisplayName: g.DisplayName,
			Email:       g.Email,
			Department:  g.Department,
			IsActive:    g.IsActive,
		})
	}
	count, err := models.UpsertSystemGids(c.Request.Context(), rows)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"imported": count})
}
