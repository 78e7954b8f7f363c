package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
)

func accessLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}

		if len(c.Errors) > 0 {
			log.Warn(c.Errors.String(), fields...)
			return
		}

		log.Debug("http request", fields...)
	}
}

func recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("http handler panic",
			zap.String("path", c.FullPath()),
			zap.Any("panic", recovered),
		)

		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{Error: "internal"})
	})
}
