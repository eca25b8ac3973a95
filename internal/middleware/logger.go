package middleware

import (
	"time"

	"github.com/gin-contrib/requestid"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RequestLogger emits one structured line per request tagged with the request id.
func RequestLogger(logger *zap.Logger, skipPaths ...string) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  skipPaths,
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("requestId", requestid.Get(c))}
		},
	})
}
