package middleware

import (
    "errors"
    "fmt"
    "reflect"
    "strings"

    "github.com/go-playground/validator/v10"
)

// CustomValidator plugs go-playground/validator into echo's Validator hook,
// so handlers can call c.Validate(&req) after c.Bind(&req).
type CustomValidator struct {
    v *validator.Validate
}

func NewValidator() *CustomValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    // Report JSON/query names instead of Go field names.
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        for _, tag := range []string{"json", "query", "form"} {
            name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
            if name != "" && name != "-" {
                return name
            }
        }
        return f.Name
    })
    return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
    return cv.v.Struct(i)
}

// ValidationMessage renders validator errors as one human-readable line.
// Other errors are returned as is.
func ValidationMessage(err error) string {
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err.Error()
    }
    msgs := make([]string, 0, len(verrs))
    for _, fe := range verrs {
        msgs = append(msgs, fieldMessage(fe))
    }
    return strings.Join(msgs, "; ")
}

func fieldMessage(fe validator.FieldError) string {
    f := fe.Field()
    switch fe.Tag() {
    case "required":
        return f + " is required"
    case "email":
        return f + " must be a valid email address"
    case "min":
        return fmt.Sprintf("%s must be at least %s", f, fe.Param())
    case "max":
        return fmt.Sprintf("%s must be at most %s", f, fe.Param())
    case "gt":
        return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
    case "gte":
        return fmt.Sprintf("%s must be %s or more", f, fe.Param())
    case "lte":
        return fmt.Sprintf("%s must be %s or less", f, fe.Param())
    case "oneof":
        return fmt.Sprintf("%s must be one of [%s]", f, fe.Param())
    case "datetime":
        return fmt.Sprintf("%s must be a date formatted as %s", f, fe.Param())
    case "url":
        return f + " must be a valid URL"
    }
    return fmt.Sprintf("%s failed the %q rule", f, fe.Tag())
}
