package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"farm2go/internal/service/delivery"
	"farm2go/internal/service/notify"
	"farm2go/pkg/utils"
)

// NotificationHandler exposes the inbox and the live delivery stream.
type NotificationHandler struct {
	inbox    notify.InboxService
	delivery *delivery.DeliveryService
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(inbox notify.InboxService, deliverySvc *delivery.DeliveryService) *NotificationHandler {
	return &NotificationHandler{
		inbox:    inbox,
		delivery: deliverySvc,
	}
}

// List returns the authenticated profile's notifications, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	recipientID, ok := currentProfileID(c)
	if !ok {
		return
	}
	page, pageSize := pagination(c)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))

	notifications, total, err := h.inbox.List(c.Request.Context(), recipientID, page, pageSize, unreadOnly)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessPageResponse(c, notifications, total, page, pageSize)
}

// MarkRead marks one notification read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	recipientID, ok := currentProfileID(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.inbox.MarkRead(c.Request.Context(), recipientID, id); err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "marked read")
}

// MarkAllRead marks every unread notification read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	recipientID, ok := currentProfileID(c)
	if !ok {
		return
	}

	marked, err := h.inbox.MarkAllRead(c.Request.Context(), recipientID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"marked": marked})
}

// UnreadCount returns the unread badge count.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	recipientID, ok := currentProfileID(c)
	if !ok {
		return
	}

	count, err := h.inbox.UnreadCount(c.Request.Context(), recipientID)
	if err != nil {
		utils.AppErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"unread": count})
}

// Stream delivers notifications over server-sent events until the
// client disconnects. Each event carries the transport it arrived on.
func (h *NotificationHandler) Stream(c *gin.Context) {
	recipientID, ok := currentProfileID(c)
	if !ok {
		return
	}

	sub, err := h.delivery.Subscribe(c.Request.Context(), recipientID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "subscription failed")
		return
	}
	defer sub.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case event, open := <-sub.Events():
			if !open {
				return false
			}
			c.SSEvent("notification", gin.H{
				"source":       event.Source,
				"notification": event.Notification,
			})
			return true
		}
	})
}
