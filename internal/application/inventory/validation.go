package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stockledger/backend/internal/domain/inventory"
	"github.com/stockledger/backend/internal/domain/shared"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// requestValidator returns the shared validator. Field names in errors
// follow the json tags.
func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// Registration only fails for an empty tag or a nil func.
		_ = v.RegisterValidation("nonnegative_decimal", func(fl validator.FieldLevel) bool {
			value, ok := fl.Field().Interface().(decimal.Decimal)
			if !ok {
				return false
			}
			return !value.IsNegative()
		})
		validate = v
	})
	return validate
}

// validateRequest checks struct tags and reports the first failures as an
// INVALID_INPUT domain error.
func validateRequest(req any) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}
	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", shared.ErrInvalidInput, strings.Join(details, "; "))
}

// checkPackUnits rejects a line whose packs x pack size overflows base units
func checkPackUnits(line int, packSize, packs int64) error {
	if _, ok := inventory.PackUnits(packSize, packs); !ok {
		return &inventory.InvalidQuantityError{
			Field:  fmt.Sprintf("line %d quantity", line),
			Value:  packs,
			Reason: fmt.Sprintf("overflows base units at pack size %d", packSize),
		}
	}
	return nil
}
