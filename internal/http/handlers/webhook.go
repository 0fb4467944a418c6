package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"billing/internal/utils"

	"github.com/gin-gonic/gin"
)

// WebhookHandler receives payment notifications from the gateway and
// records them against the matching due.
type WebhookHandler struct {
	DB *sql.DB
}

type paymentEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID             string `json:"id"`
				InvoiceID      string `json:"invoice_id"`
				SubscriptionID string `json:"subscription_id"`
				Status         string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// POST /api/webhooks/payments
func (h WebhookHandler) Payment(c *gin.Context) {
	var evt paymentEvent
	if !BindJSONOrError(c, &evt) {
		return
	}

	entity := evt.Payload.Payment.Entity
	ref := entity.InvoiceID
	if ref == "" {
		ref = entity.SubscriptionID
	}
	if entity.ID == "" || ref == "" {
		RespondError(c, http.StatusBadRequest, "event carries no payment reference", nil)
		return
	}
	if !strings.HasPrefix(evt.Event, "payment.") || entity.Status != "captured" {
		// acknowledge uninteresting events so the gateway stops retrying
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}

	var dueID int64
	err := h.DB.QueryRowContext(c.Request.Context(),
		"SELECT id FROM dues WHERE gateway_ref = ?", ref).Scan(&dueID)
	if err == sql.ErrNoRows {
		utils.LogEvent(requestID(c), "webhook", "payment", "no due for ref "+ref)
		c.JSON(http.StatusOK, gin.H{"message": "ignored"})
		return
	}
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to resolve due", err)
		return
	}

	// INSERT IGNORE keeps gateway redeliveries idempotent
	if _, err := h.DB.ExecContext(c.Request.Context(), `
        INSERT IGNORE INTO payments (gateway_ref, due_id, created_at, updated_at)
        VALUES (?, ?, NOW(), NOW())
    `, entity.ID, dueID); err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to record payment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "recorded"})
}
