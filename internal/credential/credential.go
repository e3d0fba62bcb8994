// Package credential defines the stored password record.
package credential

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is returned when a record is missing its service or password.
var ErrInvalid = errors.New("service and password are required")

// Record is a password stored for a service.
type Record struct {
	ID        int64     `json:"id"`
	Service   string    `json:"service"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks that both service and password are non-empty.
// the password shape is never inspected.
func Validate(service, password string) error {
	switch {
	case service == "" && password == "":
		return fmt.Errorf("%w: empty service and password", ErrInvalid)
	case service == "":
		return fmt.Errorf("%w: empty service", ErrInvalid)
	case password == "":
		return fmt.Errorf("%w: empty password", ErrInvalid)
	}
	return nil
}

// Masked returns the password with every character replaced by '*'.
func (r Record) Masked() string {
	return strings.Repeat("*", len(r.Password))
}

// Text renders the record the way the stored-passwords view lists it.
func (r Record) Text() string {
	return fmt.Sprintf("Service: %s\nPassword: %s\nCreated: %s\n",
		r.Service, r.Password, r.CreatedAt.Local().Format(time.DateTime))
}
