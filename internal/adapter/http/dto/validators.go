package dto

import (
	"errors"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"bank-cards/internal/core/domain"
	"bank-cards/pkg/apperror"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{3,50}$`)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		Register(v)
	}
}

// Register installs the custom types and tags used by the request bodies.
func Register(v *validator.Validate) {
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	_ = v.RegisterValidation("money", validateMoney)
	_ = v.RegisterValidation("username", validateUsername)
}

// decimalValue exposes decimals to validator as their string form.
func decimalValue(field reflect.Value) interface{} {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		return d.String()
	}
	return nil
}

// validateMoney accepts amounts in [1.00, 1000000.00] with at most two decimals.
func validateMoney(fl validator.FieldLevel) bool {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}
	return domain.ValidateAmount(d) == nil
}

// validateUsername allows 3-50 alphanumeric, underscore, dash and dot characters.
func validateUsername(fl validator.FieldLevel) bool {
	return usernameRe.MatchString(fl.Field().String())
}

// BindError converts a binding failure into the client-facing error. Amount
// violations keep their dedicated code.
func BindError(err error) *apperror.AppError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ErrBodyTooLarge()
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "money" {
				return apperror.ErrInvalidAmount()
			}
		}
	}
	return apperror.Validation(err.Error())
}

// SanitizeStruct trims every string field (including *string) tagged
// `sanitize:"trim"` on a struct pointer, descending into embedded structs.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	rt := rv.Type()
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		sf := rt.Field(i)
		if !f.CanSet() {
			continue
		}
		if sf.Anonymous && f.Kind() == reflect.Struct {
			sanitizeFields(f)
			continue
		}
		if sf.Tag.Get("sanitize") != "trim" {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(strings.TrimSpace(f.String()))
		case reflect.Ptr:
			if !f.IsNil() && f.Elem().Kind() == reflect.String {
				f.Elem().SetString(strings.TrimSpace(f.Elem().String()))
			}
		}
	}
}
