// Package repository holds the data access layer: thin structs over *sql.DB
// whose multi-statement operations take an explicit *sql.Tx so the handler
// controls the transaction boundary.  This file defines sentinel errors
// reused across repositories; handlers translate them into HTTP statuses.
package repository

import "errors"

// ErrEmailExists is returned when a user registration collides with an
// existing email address.
var ErrEmailExists = errors.New("email already exists")

// ErrUserNotFound is returned when the referenced user row does not exist.
var ErrUserNotFound = errors.New("user not found")

// ErrSessionNotFound is returned when no refresh session exists for a jti.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpired is returned when a refresh session exists but was
// revoked or is past its stored expiry.
var ErrSessionExpired = errors.New("session expired or revoked")

// ErrProductNotFound is returned when the referenced product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrSaleNotFound is returned when the referenced sale does not exist.
var ErrSaleNotFound = errors.New("sale not found")

// ErrPurchaseNotFound is returned when the referenced purchase does not exist.
var ErrPurchaseNotFound = errors.New("purchase not found")

// ErrDebtNotFound is returned when the referenced debt does not exist.
var ErrDebtNotFound = errors.New("debt not found")
