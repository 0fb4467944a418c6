package handlers

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"billing/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler serves owner registration and login.
type AuthHandler struct {
	DB     *sql.DB
	Secret string
}

// AuthUser is the user payload returned alongside a token.
type AuthUser struct {
	ID           int64    `json:"id"`
	Email        string   `json:"email"`
	FirstName    string   `json:"first_name"`
	LastName     string   `json:"last_name"`
	MobileNumber string   `json:"mobile_number"`
	BusinessName string   `json:"business_name"`
	Roles        []string `json:"roles"`
}

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MobileNumber string `json:"mobile_number"`
	BusinessName string `json:"business_name"`
}

// POST /api/auth/register
func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)
	if req.Email == "" || req.MobileNumber == "" || len(req.Password) < 6 {
		RespondError(c, http.StatusBadRequest, "email, mobile_number and a password of 6+ chars are required", nil)
		return
	}

	var exists int
	err := h.DB.QueryRowContext(c.Request.Context(), `
        SELECT COUNT(*) FROM users WHERE email = ? OR mobile_number = ?
    `, req.Email, req.MobileNumber).Scan(&exists)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to check user", err)
		return
	}
	if exists > 0 {
		RespondError(c, http.StatusBadRequest, "email or mobile number already registered", nil)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to hash password", err)
		return
	}

	res, err := h.DB.ExecContext(c.Request.Context(), `
        INSERT INTO users (email, password, first_name, last_name, mobile_number, business_name, active, counter, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, 1, 0, NOW(), NOW())
    `, req.Email, string(hash), req.FirstName, req.LastName, req.MobileNumber, req.BusinessName)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to save user", err)
		return
	}
	id, _ := res.LastInsertId()

	// every self-registered account is a business owner
	if _, err := h.DB.ExecContext(c.Request.Context(), `
        INSERT INTO user_roles (user_id, role_id)
        SELECT ?, id FROM roles WHERE name = 'owner'
    `, id); err != nil {
		utils.LogEvent(requestID(c), "auth", "assign_role", err.Error())
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "registration successful",
		"user": AuthUser{
			ID:           id,
			Email:        req.Email,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			MobileNumber: req.MobileNumber,
			BusinessName: req.BusinessName,
			Roles:        []string{"owner"},
		},
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	var (
		user         AuthUser
		passwordHash sql.NullString
		lastName     sql.NullString
		businessName sql.NullString
		active       bool
	)
	err := h.DB.QueryRowContext(c.Request.Context(), `
        SELECT id, email, first_name, last_name, mobile_number, business_name, password, active
        FROM users WHERE email = ?
    `, strings.TrimSpace(strings.ToLower(req.Email))).Scan(
		&user.ID, &user.Email, &user.FirstName, &lastName,
		&user.MobileNumber, &businessName, &passwordHash, &active,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			RespondError(c, http.StatusUnauthorized, "wrong email or password", nil)
		} else {
			RespondError(c, http.StatusInternalServerError, "failed to query user", err)
		}
		return
	}
	user.LastName = lastName.String
	user.BusinessName = businessName.String

	if !active || !passwordHash.Valid ||
		bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(req.Password)) != nil {
		RespondError(c, http.StatusUnauthorized, "wrong email or password", nil)
		return
	}

	user.Roles, err = h.loadRoles(c, user.ID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to query roles", err)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": user.ID,
		"roles":   user.Roles,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(h.Secret))
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "failed to create token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": signed, "user": user})
}

func (h AuthHandler) loadRoles(c *gin.Context, userID int64) ([]string, error) {
	rows, err := h.DB.QueryContext(c.Request.Context(), `
        SELECT r.name FROM roles r
        JOIN user_roles ur ON ur.role_id = r.id
        WHERE ur.user_id = ?
    `, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}
