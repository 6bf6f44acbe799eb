// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("hex_color", validateHexColor)
		_ = v.RegisterValidation("transaction_type", validateTransactionType)
		_ = v.RegisterValidation("category_type", validateCategoryType)
		_ = v.RegisterValidation("goal_status", validateGoalStatus)
		_ = v.RegisterValidation("share_role", validateShareRole)
		_ = v.RegisterValidation("share_decision", validateShareDecision)
	}
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}

func validateTransactionType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

func validateCategoryType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "income", "expense":
		return true
	}
	return false
}

// validateGoalStatus accepts the user-settable statuses only; "completed" is
// derived and never accepted from a request.
func validateGoalStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "active", "paused":
		return true
	}
	return false
}

func validateShareRole(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "viewer", "contributor", "co-owner":
		return true
	}
	return false
}

func validateShareDecision(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "accept", "reject":
		return true
	}
	return false
}
