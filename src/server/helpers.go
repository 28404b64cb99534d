package server

import (
	"fmt"
	"io"
	"net/http"

	"metrics-broker/src/utils"

	"github.com/gin-gonic/gin"
)

const maxBodySize = utils.MaxFrameBytes

// -----------------------------------------------------------------------------

func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("body exceeds %d bytes", maxBodySize)
	}
	return body, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
