package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"webplayer/logger"
	"webplayer/services"
)

// StreamFile serves a media file with support for single byte-range requests
func (h *MediaHandler) StreamFile(c *gin.Context) {
	requestedPath := c.Param("path")

	file, err := h.library.Open(requestedPath)
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	size := file.Size()
	c.Header("Accept-Ranges", "bytes")
	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("Last-Modified", file.ModTime().UTC().Format(http.TimeFormat))

	byteRange := services.FullRange(size)
	status := http.StatusOK
	if rangeHeader := c.GetHeader("Range"); rangeHeader != "" {
		byteRange, err = services.ParseRange(rangeHeader, size)
		if err != nil {
			c.Header("Content-Range", services.UnsatisfiedRange(size))
			c.AbortWithStatus(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		status = http.StatusPartialContent
		c.Header("Content-Range", byteRange.ContentRange())
	}

	c.Header("Content-Type", file.ContentType())
	c.Header("Content-Length", strconv.FormatInt(byteRange.Length(), 10))
	c.Status(status)

	if c.Request.Method == http.MethodHead {
		c.Writer.WriteHeaderNow()
		return
	}

	if h.metrics != nil {
		h.metrics.StreamStarted()
	}
	written, err := file.CopyRange(c.Request.Context(), c.Writer, byteRange)
	if h.metrics != nil {
		h.metrics.StreamFinished(written)
	}

	// Headers are committed by now; a short body with a declared length makes
	// the server drop the connection instead of reusing it.
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), c.Request.Context().Err() != nil:
		logger.Debug("client went away during stream",
			logger.String("path", requestedPath),
			logger.Int64("written", written))
	default:
		logger.Error("error streaming file",
			logger.String("path", requestedPath),
			logger.String("range", byteRange.ContentRange()),
			logger.Int64("written", written),
			logger.ErrorField(err))
		_ = c.Error(err)
	}
}
