package handlers

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/weisyn/confstake/pkg/constants/events"
	"github.com/weisyn/confstake/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/confstake/pkg/types"
)

// EventsHandler 最近的质押事件
type EventsHandler struct {
	bus event.EventBus
}

// NewEventsHandler 创建事件处理器
func NewEventsHandler(bus event.EventBus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// RegisterRoutes 注册路由
//
// - GET /events?type=<event type>&after=<sequence>
func (h *EventsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/events", h.ListEvents)
}

// ListEvents 按序号升序返回保留的事件
func (h *EventsHandler) ListEvents(c *gin.Context) {
	eventTypes := events.AllStakeEvents()
	if raw := c.Query("type"); raw != "" {
		eventType := types.EventType(raw)
		if !isStakeEvent(eventType) {
			badRequest(c, "type", "未知的事件类型")
			return
		}
		eventTypes = []types.EventType{eventType}
	}

	var after uint64
	if raw := c.Query("after"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badRequest(c, "after", "序号必须是非负整数")
			return
		}
		after = parsed
	}

	envelopes := make([]*types.EventEnvelope, 0)
	for _, eventType := range eventTypes {
		for _, entry := range h.bus.GetEventHistory(eventType) {
			env, ok := entry.(*types.EventEnvelope)
			if !ok || env.Sequence <= after {
				continue
			}
			envelopes = append(envelopes, env)
		}
	}
	sort.Slice(envelopes, func(i, j int) bool {
		return envelopes[i].Sequence < envelopes[j].Sequence
	})
	respond(c, http.StatusOK, envelopes)
}

func isStakeEvent(eventType types.EventType) bool {
	for _, t := range events.AllStakeEvents() {
		if t == eventType {
			return true
		}
	}
	return false
}
