package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/taskboard-app/taskboard/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("task_status", validateTaskStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
	if err := Validate.RegisterValidation("priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("quadrant", validateQuadrant); err != nil {
		panic(fmt.Sprintf("failed to register quadrant validator: %v", err))
	}
	if err := Validate.RegisterValidation("channel", validateChannel); err != nil {
		panic(fmt.Sprintf("failed to register channel validator: %v", err))
	}
}

// validateTaskStatus validates that a string is a valid TaskStatus enum value
func validateTaskStatus(fl validator.FieldLevel) bool {
	return models.ValidStatus(models.TaskStatus(fl.Field().String()))
}

// validatePriority validates that a string is a valid Priority enum value
func validatePriority(fl validator.FieldLevel) bool {
	switch models.Priority(fl.Field().String()) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityCritical:
		return true
	default:
		return false
	}
}

// validateQuadrant validates that a string is a valid Eisenhower quadrant value
func validateQuadrant(fl validator.FieldLevel) bool {
	return models.ValidQuadrant(models.EisenhowerQuadrant(fl.Field().String()))
}

// validateChannel validates that a string is a valid notification channel
func validateChannel(fl validator.FieldLevel) bool {
	return models.ValidChannel(models.Channel(fl.Field().String()))
}

// SanitizeText sanitizes text input by trimming whitespace and removing control characters
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	// Remove control characters except newline and tab
	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateTaskStatus validates a TaskStatus string value
func ValidateTaskStatus(value string) error {
	if !models.ValidStatus(models.TaskStatus(value)) {
		return fmt.Errorf("invalid status: %s (must be 'inbox', 'next_action', 'waiting', 'someday', 'todo', 'in_progress', 'done', or 'archived')", value)
	}
	return nil
}

// ValidateQuadrant validates an Eisenhower quadrant string value
func ValidateQuadrant(value string) error {
	if !models.ValidQuadrant(models.EisenhowerQuadrant(value)) {
		return fmt.Errorf("invalid quadrant: %s (must be 'urgent_important', 'important_not_urgent', 'urgent_not_important', or 'neither')", value)
	}
	return nil
}

// ValidateChannel validates a notification channel string value
func ValidateChannel(value string) error {
	if !models.ValidChannel(models.Channel(value)) {
		return fmt.Errorf("invalid channel: %s (must be 'email', 'telegram', or 'in_app')", value)
	}
	return nil
}
