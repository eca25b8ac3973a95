package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/arencloud/s3lister/internal/logging"
	"github.com/arencloud/s3lister/internal/models"
	"github.com/arencloud/s3lister/internal/s3"

	"github.com/gin-gonic/gin"
)

// BucketLister is the storage client the bucket handler depends on.
type BucketLister interface {
	ListBuckets(ctx context.Context) ([]models.Bucket, error)
}

type bucketsHandler struct {
	lister  BucketLister
	metrics *metrics
	logger  logging.Logger
}

func registerBuckets(r gin.IRoutes, h *bucketsHandler) {
	r.GET("/buckets", h.list)
}

// list copies every descriptor returned by the provider into the response,
// preserving order. An empty account yields [] rather than null.
func (h *bucketsHandler) list(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	addEvent(c, "buckets.list", nil)
	items, err := h.lister.ListBuckets(c.Request.Context())
	if err != nil {
		h.metrics.storageCalls.WithLabelValues("ListBuckets", "error").Inc()
		var serr *s3.StorageError
		if errors.As(err, &serr) {
			respondError(c, http.StatusBadGateway, serr.Code, serr.Error())
			return
		}
		h.logger.Error("list buckets", "error", err)
		respondError(c, http.StatusInternalServerError, "", err.Error())
		return
	}
	h.metrics.storageCalls.WithLabelValues("ListBuckets", "ok").Inc()
	out := append(make([]models.Bucket, 0, len(items)), items...)
	addEvent(c, "buckets.listed", map[string]any{"count": len(out)})
	c.JSON(http.StatusOK, out)
}
