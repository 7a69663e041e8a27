// Stanza - Incremental Recommendation Cache Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stanza

package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/stanza/internal/models"
)

// TriggerRequest is the optional body of POST /recommendations/trigger.
// A zero ItemID requests a full rebuild.
type TriggerRequest struct {
	ItemID int64 `json:"item_id" validate:"omitempty,min=1"`
}

// RecommendationsRequest holds the query parameters of the user endpoint.
type RecommendationsRequest struct {
	UserID int64 `validate:"min=1"`
	Limit  int   `validate:"min=0,max=1000"`
}

// RunsRequest holds the query parameters of the run log endpoint.
type RunsRequest struct {
	Hours int `validate:"min=1,max=8760"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateRequest returns nil when v passes validation, or the API error
// describing every failing field.
func validateRequest(v interface{}) *models.APIError {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &models.APIError{Code: ErrCodeValidation, Message: err.Error()}
	}

	messages := make([]string, len(fieldErrs))
	fields := make([]map[string]interface{}, len(fieldErrs))
	for i, fe := range fieldErrs {
		messages[i] = translateFieldError(fe)
		fields[i] = map[string]interface{}{
			"field": fe.Field(),
			"tag":   fe.Tag(),
			"value": fe.Value(),
		}
	}
	return &models.APIError{
		Code:    ErrCodeValidation,
		Message: strings.Join(messages, "; "),
		Details: map[string]interface{}{"fields": fields},
	}
}

func translateFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
