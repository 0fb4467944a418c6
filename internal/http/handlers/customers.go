package handlers

import (
	"database/sql"
	"net/http"
	"strings"

	"billing/internal/resource"
	"billing/internal/services"
	"billing/internal/utils"

	"github.com/gin-gonic/gin"
)

// CustomerHandler onboards customers for a business owner: register
// sends an OTP to the customer's phone, verify consumes it and creates
// the owner-customer link.
type CustomerHandler struct {
	DB  *sql.DB
	OTP *services.OTPService
}

type customerRegisterRequest struct {
	MobileNumber string `json:"mobile_number"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
}

// POST /api/customers/register
func (h CustomerHandler) Register(c *gin.Context) {
	caller := resource.CallerFrom(c)
	if caller.Anonymous() {
		RespondError(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var req customerRegisterRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)
	if req.MobileNumber == "" {
		RespondError(c, http.StatusBadRequest, "mobile_number is required", nil)
		return
	}

	// the customer account may already exist from another owner
	var customerID int64
	err := h.DB.QueryRowContext(c.Request.Context(),
		"SELECT id FROM users WHERE mobile_number = ?", req.MobileNumber).Scan(&customerID)
	if err == sql.ErrNoRows {
		res, insErr := h.DB.ExecContext(c.Request.Context(), `
            INSERT INTO users (email, first_name, last_name, mobile_number, active, counter, created_at, updated_at)
            VALUES (?, ?, ?, ?, 0, 0, NOW(), NOW())
        `, nullableString(req.Email), req.FirstName, req.LastName, req.MobileNumber)
		if insErr != nil {
			RespondError(c, http.StatusInternalServerError, "failed to save customer", insErr)
			return
		}
		customerID, _ = res.LastInsertId()
	} else if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to check customer", err)
		return
	}

	if err := h.OTP.Issue(c.Request.Context(), req.MobileNumber); err != nil {
		utils.LogEvent(requestID(c), "customers", "otp_issue", err.Error())
		RespondError(c, http.StatusBadGateway, "failed to send verification code", nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "verification code sent",
		"customer_id": customerID,
	})
}

type customerVerifyRequest struct {
	MobileNumber string `json:"mobile_number"`
	Code         string `json:"code"`
}

// POST /api/customers/verify
func (h CustomerHandler) Verify(c *gin.Context) {
	caller := resource.CallerFrom(c)
	if caller.Anonymous() {
		RespondError(c, http.StatusUnauthorized, "authentication required", nil)
		return
	}

	var req customerVerifyRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if !h.OTP.Verify(strings.TrimSpace(req.MobileNumber), strings.TrimSpace(req.Code)) {
		RespondError(c, http.StatusBadRequest, "invalid or expired code", nil)
		return
	}

	var customerID int64
	err := h.DB.QueryRowContext(c.Request.Context(),
		"SELECT id FROM users WHERE mobile_number = ?", strings.TrimSpace(req.MobileNumber)).Scan(&customerID)
	if err != nil {
		RespondError(c, http.StatusNotFound, "customer not found", nil)
		return
	}

	if _, err := h.DB.ExecContext(c.Request.Context(),
		"UPDATE users SET active = 1 WHERE id = ?", customerID); err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to activate customer", err)
		return
	}

	// INSERT IGNORE keeps re-verification idempotent
	if _, err := h.DB.ExecContext(c.Request.Context(), `
        INSERT IGNORE INTO customer_links (owner_id, customer_id, created_at, updated_at)
        VALUES (?, ?, NOW(), NOW())
    `, int64(caller.ID), customerID); err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to link customer", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "customer linked",
		"customer_id": customerID,
	})
}

func nullableString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.TrimSpace(s)
}
