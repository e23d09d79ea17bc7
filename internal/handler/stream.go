package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"tillsync/internal/apierror"
	"tillsync/internal/realtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type StreamHandler struct{ hub *realtime.Hub }

func NewStreamHandler(hub *realtime.Hub) *StreamHandler { return &StreamHandler{hub: hub} }

// Join handles GET /v1/stream?store=S[&station=T]: the caller joins the
// store channel, or the station sub-channel when station is given, and
// receives order:fired / status_update events as server-sent events until it
// disconnects. Delivery is at-most-once; missed events are recovered through
// the sync feed, never through this stream.
func (h *StreamHandler) Join(c *gin.Context) {
	storeID, err := uuid.Parse(c.Query("store"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("store query param must be a UUID"))
		return
	}
	channel := realtime.StoreChannel(storeID)
	if station := c.Query("station"); station != "" {
		channel = realtime.StationChannel(storeID, station)
	}

	msgs, cancel := h.hub.Subscribe(channel)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case msg, ok := <-msgs:
			if !ok {
				return false
			}
			var m realtime.Message
			if err := json.Unmarshal(msg, &m); err != nil {
				return true
			}
			c.SSEvent(m.Type, string(m.Payload))
			return true
		}
	})
}
