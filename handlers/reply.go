package handlers

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/coregx/timetable/dispatch"
	"github.com/coregx/timetable/proto"
)

// sendJSON marshals v and replies with it, logging (but not panicking)
// on a marshal failure — reply payloads here are always built from
// plain maps/structs under our control, so a marshal error would be a
// programming mistake, not a runtime condition to surface to the
// client.
func sendJSON(log *zap.Logger, r dispatch.Replier, messageID string, mt proto.MessageType, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error("failed to marshal reply payload", zap.Error(err))
		return
	}
	if err := r.Reply(messageID, mt, body); err != nil {
		log.Warn("failed to send reply", zap.Error(err))
	}
}
