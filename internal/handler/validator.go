package handler

import (
    "errors"
    "fmt"
    "reflect"
    "regexp"
    "strings"
    "unicode"

    "github.com/go-playground/validator/v10"

    "github.com/iliyamo/lessons-api/internal/service"
)

// phonePattern accepts an optional leading "+", digits and the usual
// separators, with at least 6 digits overall.
var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{6,}$`)

// RequestValidator plugs go-playground/validator into echo and renders
// failures as *service.ValidationError with Laravel style messages keyed
// by JSON field name.
type RequestValidator struct {
    v *validator.Validate
}

// NewRequestValidator registers the custom rules: phone_number and
// confirmed (Field must equal FieldConfirmation).
func NewRequestValidator() *RequestValidator {
    v := validator.New(validator.WithRequiredStructEnabled())
    v.RegisterTagNameFunc(func(f reflect.StructField) string {
        name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
        if name == "-" {
            return ""
        }
        if name == "" {
            return f.Name
        }
        return name
    })
    _ = v.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
        s := fl.Field().String()
        digits := 0
        for _, r := range s {
            if unicode.IsDigit(r) {
                digits++
            }
        }
        return phonePattern.MatchString(s) && digits >= 6
    })
    _ = v.RegisterValidation("confirmed", func(fl validator.FieldLevel) bool {
        parent := fl.Parent()
        if parent.Kind() == reflect.Ptr {
            parent = parent.Elem()
        }
        conf := parent.FieldByName(fl.StructFieldName() + "Confirmation")
        if !conf.IsValid() {
            return false
        }
        if conf.Kind() == reflect.Ptr {
            if conf.IsNil() {
                return false
            }
            conf = conf.Elem()
        }
        return conf.String() == fl.Field().String()
    })
    return &RequestValidator{v: v}
}

// Validate implements echo.Validator.
func (rv *RequestValidator) Validate(i any) error {
    err := rv.v.Struct(i)
    if err == nil {
        return nil
    }
    var verrs validator.ValidationErrors
    if !errors.As(err, &verrs) {
        return err
    }
    out := &service.ValidationError{}
    for _, fe := range verrs {
        out.Add(fe.Field(), message(fe))
    }
    return out
}

// attribute turns a field name like "last_name" or "LastName" into
// "last name" the way Laravel prints attributes.
func attribute(name string) string {
    var b strings.Builder
    for i, r := range name {
        switch {
        case r == '_':
            b.WriteByte(' ')
        case unicode.IsUpper(r):
            if i > 0 {
                b.WriteByte(' ')
            }
            b.WriteRune(unicode.ToLower(r))
        default:
            b.WriteRune(r)
        }
    }
    return b.String()
}

func message(fe validator.FieldError) string {
    attr := attribute(fe.Field())
    switch fe.Tag() {
    case "required", "required_without":
        return fmt.Sprintf("The %s field is required.", attr)
    case "email":
        return fmt.Sprintf("The %s must be a valid email address.", attr)
    case "min":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("The %s must be at least %s characters.", attr, fe.Param())
        }
        return fmt.Sprintf("The %s must be at least %s.", attr, fe.Param())
    case "max":
        if fe.Kind() == reflect.String {
            return fmt.Sprintf("The %s may not be greater than %s characters.", attr, fe.Param())
        }
        return fmt.Sprintf("The %s may not be greater than %s.", attr, fe.Param())
    case "eqfield":
        return fmt.Sprintf("The %s and %s must match.", attr, attribute(fe.Param()))
    case "confirmed":
        return fmt.Sprintf("The %s confirmation does not match.", attr)
    case "oneof":
        return fmt.Sprintf("The selected %s is invalid.", attr)
    case "phone_number":
        return fmt.Sprintf("The %s format is invalid.", attr)
    }
    return fmt.Sprintf("The %s is invalid.", attr)
}
