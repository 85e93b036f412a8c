package handlers

import (
	"time"

	"go.uber.org/zap"

	"github.com/coregx/timetable/dispatch"
	"github.com/coregx/timetable/proto"
)

// DataHandler acknowledges any Data payload (spec.md §4.4, grounded on
// DataHandler.cpp). It does not interpret the payload at all.
type DataHandler struct {
	log *zap.Logger
}

// NewDataHandler constructs a DataHandler.
func NewDataHandler(log *zap.Logger) *DataHandler {
	return &DataHandler{log: log}
}

func (h *DataHandler) Handle(messageID string, payload []byte, r dispatch.Replier) {
	sendJSON(h.log, r, messageID, proto.Data, map[string]any{
		"status":     "success",
		"message":    "Data received and processed",
		"message_id": messageID,
		"timestamp":  time.Now().Unix(),
	})
}
