package ragclient

import (
	"RagDesk/backend/go/internal/config"
	"RagDesk/backend/go/internal/models"
)

// Aliases so callers outside the backend tree can use the wire types.
type (
	BreakerConfig      = config.CircuitBreakerConfig
	ProcessRequest     = models.ProcessRequest
	ProcessResult      = models.ProcessResult
	SubmitResponse     = models.SubmitResponse
	TaskStatusResponse = models.TaskStatusResponse
	ClearCacheResponse = models.ClearCacheResponse
	MultimodalItem     = models.MultimodalItem
	TaskEvent          = models.TaskEvent
)
