package models

import "time"

// User is a creator (business owner) or a customer. The same table backs
// both; roles decide what a user can do.
type User struct {
	ID                int64      `json:"id"`
	Email             string     `json:"email"`
	Password          string     `json:"-"`
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	MobileNumber      string     `json:"mobile_number"`
	BusinessName      string     `json:"business_name"`
	Counter           int64      `json:"counter"`
	GatewayCustomerID string     `json:"gateway_customer_id"`
	Picture           string     `json:"picture"`
	Active            bool       `json:"active"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
	LastLoginAt       *time.Time `json:"last_login_at"`
	CurrentLoginAt    *time.Time `json:"current_login_at"`
	LastLoginIP       string     `json:"last_login_ip"`
	CurrentLoginIP    string     `json:"current_login_ip"`
	LoginCount        int64      `json:"login_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

const UserTable = "users"

// UserWritable lists the columns the resource layer may set from payloads.
var UserWritable = []string{
	"email", "first_name", "last_name", "mobile_number",
	"business_name", "picture", "active",
}

type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsHidden    bool   `json:"is_hidden"`
}

const RoleTable = "roles"

type UserRole struct {
	ID     int64 `json:"id"`
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

const UserRoleTable = "user_roles"

// CustomerLink ties a customer to the business owner who registered them.
// A due may only be issued across an existing link.
type CustomerLink struct {
	ID         int64     `json:"id"`
	OwnerID    int64     `json:"owner_id"`
	CustomerID int64     `json:"customer_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

const CustomerLinkTable = "customer_links"

var CustomerLinkWritable = []string{"owner_id", "customer_id"}
