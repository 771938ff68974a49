package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the identity carried by bearer tokens.
type JWTClaims struct {
	EmployeeCode string `json:"employeeCode"`
	Role         Role   `json:"role"`
	ReportsTo    string `json:"reportsTo,omitempty"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller handed to services.
type Actor struct {
	Code      string
	Role      Role
	ReportsTo string
	IP        string
}
