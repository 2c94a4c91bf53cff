package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/patient-registry/pkg/errors"
)

// Validator provides validation functionality
type Validator interface {
	Validate(interface{}) error
	ValidateField(field string, value interface{}, rules ...string) error
}

type validator struct {
	engine *playground.Validate
}

// New returns a validator that reads the same `binding` tags gin uses, so a
// request struct is checked identically over HTTP and from the CLI.
func New() Validator {
	engine := playground.New()
	engine.SetTagName("binding")
	RegisterJSONNames(engine)
	return &validator{engine: engine}
}

// RegisterJSONNames makes validation errors report json field names.
func RegisterJSONNames(engine *playground.Validate) {
	engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

func (v *validator) Validate(obj interface{}) error {
	if err := v.engine.Struct(obj); err != nil {
		return Translate(err)
	}
	return nil
}

func (v *validator) ValidateField(field string, value interface{}, rules ...string) error {
	if err := v.engine.Var(value, strings.Join(rules, ",")); err != nil {
		var fieldErrs playground.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return errors.Validation([]string{field + " " + message(fieldErrs[0])}, err)
		}
		return errors.NewBadRequest(field+" is invalid", err)
	}
	return nil
}

// Translate converts validator errors into a bad request listing one message
// per field. Other errors are reported as a malformed request.
func Translate(err error) error {
	var fieldErrs playground.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewBadRequest("invalid request body", err)
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field()+" "+message(fe))
	}
	return errors.Validation(fields, err)
}

func message(fe playground.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "datetime":
		return fmt.Sprintf("must be a date formatted as %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	default:
		return "is invalid"
	}
}
