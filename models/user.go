package models

import (
	"errors"
	"fmt"
)

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAdmin    Role = "ADMIN"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleAdmin
}

// Home is the dashboard path a principal of this role lands on after login.
func (r Role) Home() string {
	if r == RoleAdmin {
		return "/admin"
	}
	return "/customer"
}

// Principal is the logged-in identity held for the browser session.
type Principal struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Role         Role   `json:"role"`
	CardNumber   string `json:"cardNumber,omitempty"`
	CustomerName string `json:"customerName,omitempty"`
}

// Validate reports whether p is a usable principal. A customer must carry a card.
func (p Principal) Validate() error {
	if p.Username == "" {
		return errors.New("principal has no username")
	}
	if !p.Role.Valid() {
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if p.Role == RoleCustomer && p.CardNumber == "" {
		return errors.New("customer principal has no card number")
	}
	return nil
}

// DisplayName prefers the customer name and falls back to the username.
func (p Principal) DisplayName() string {
	if p.CustomerName != "" {
		return p.CustomerName
	}
	return p.Username
}
