// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"net"

	"orbit/internal/models"

	"gorm.io/gorm"
)

// translate maps driver errors onto the application error taxonomy so
// services and handlers never branch on gorm internals. Connectivity
// failures become UNAVAILABLE: read paths must be able to tell "no rows"
// from "could not check".
func translate(err error, resource string, id interface{}) error {
	if err == nil {
		return nil
	}

	var netErr net.Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return models.NewNotFoundError(resource, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return models.NewConflictError(resource + " already exists")
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		errors.As(err, &netErr):
		return models.NewUnavailableError(err)
	default:
		return models.NewInternalError(err)
	}
}
