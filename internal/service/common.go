package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"taller/internal/apperror"
	"taller/internal/model"
	"taller/internal/repository"
	"taller/pkg/pagination"

	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// now is swapped in tests that need a fixed clock.
var now = time.Now

// today returns local midnight of the current day.
func today() time.Time {
	t := now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func actorOr(userID, fallback string) string {
	if userID == "" {
		return fallback
	}
	return userID
}

// storageFailure logs err with its operation context and converts it into a
// storage error. Errors that already carry a kind pass through untouched, so it
// is safe to call on whatever a transaction closure returned.
func storageFailure(op string, err error, fields map[string]any) error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	log.Error().Err(err).Str("op", op).Fields(fields).Msg("storage failure")
	return apperror.Storage(op, err)
}

// lookupFailure is storageFailure with gorm.ErrRecordNotFound mapped to not_found.
func lookupFailure(op string, err error, notFound string, fields map[string]any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("%s", notFound)
	}
	return storageFailure(op, err, fields)
}

func writeAudit(ctx context.Context, repo repository.AuditRepository, actor, action, entityType string, entityID uint, entityName string, details any) error {
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}
	return repo.Log(ctx, &model.AuditLog{
		Actor:      actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   uintString(entityID),
		EntityName: entityName,
		Details:    datatypes.JSON(payload),
	})
}

func uintString(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func normalizePage(page, limit int) (int, int) {
	p := pagination.Normalize(page, limit)
	return p.Page, p.Limit
}
