package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"parkometr/internal/lpr"
	"parkometr/internal/utils"

	"github.com/gin-gonic/gin"
)

func lprClient(c *gin.Context) (*lpr.Client, bool) {
	client := currentDeps().LPR
	if client == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "plate recognition is not configured", nil)
		return nil, false
	}
	return client, true
}

func respondLPRError(c *gin.Context, err error) {
	_ = c.Error(err)
	var up lpr.UpstreamError
	switch {
	case errors.As(err, &up):
		respondError(c, http.StatusBadGateway, "upstream_error", up.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(c, http.StatusGatewayTimeout, "upstream_timeout", "plate recognizer timed out", nil)
	default:
		respondError(c, http.StatusBadGateway, "upstream_error", "plate recognizer unavailable", nil)
	}
}

// POST /api/analyze (multipart field "file")
func AnalyzeUpload(c *gin.Context) {
	client, ok := lprClient(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "file: an image upload is required", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "file: cannot read upload", nil)
		return
	}
	defer f.Close()

	analysis, err := client.Recognize(c.Request.Context(), fh.Filename, f)
	if err != nil {
		respondLPRError(c, err)
		return
	}
	utils.LogEvent(requestID(c), "lpr", "analyze", fmt.Sprintf("results=%d", len(analysis.Results)))
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}

// GET /api/analyze-random
func AnalyzeRandom(c *gin.Context) {
	client, ok := lprClient(c)
	if !ok {
		return
	}
	path, err := lpr.RandomSample(currentDeps().LPRSamplesDir)
	if err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusInternalServerError, "internal_error", "no sample images available", nil)
		return
	}
	analysis, err := client.RecognizeFile(c.Request.Context(), path)
	if err != nil {
		respondLPRError(c, err)
		return
	}
	utils.LogEvent(requestID(c), "lpr", "analyze_random", "sample="+analysis.Source)
	c.JSON(http.StatusOK, gin.H{"success": true, "analysis": analysis})
}
