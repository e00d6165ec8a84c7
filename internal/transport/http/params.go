package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "namerank/internal/errors"
)

type topQuery struct {
	Year     int    `validate:"min=1"`
	Category string `validate:"oneof=F M"`
	K        int    `validate:"min=1,max=100000"`
}

type topShareQuery struct {
	K int `validate:"min=1,max=100000"`
}

type diversityQuery struct {
	Q float64 `validate:"gt=0,lte=1"`
}

type yearsQuery struct {
	Years []int `validate:"min=1,unique"`
}

type letterTrendQuery struct {
	Category string   `validate:"oneof=F M"`
	Letters  []string `validate:"min=1,unique,dive,required"`
}

type namesQuery struct {
	Names    []string `validate:"min=1,max=100,unique,dive,required"`
	Category string   `validate:"omitempty,oneof=F M"`
}

// queryValidator checks parsed query structs
type queryValidator struct {
	validate *validator.Validate
}

func newQueryValidator() *queryValidator {
	return &queryValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// check validates q and converts failures to a 400 listing each field
func (v *queryValidator) check(q interface{}) error {
	err := v.validate.Struct(q)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[strings.ToLower(fe.Field())] = describe(fe)
	}
	return apierrors.NewWithDetails(http.StatusBadRequest, "VALIDATION_FAILED",
		"Invalid query parameters", details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s item(s)", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "unique":
		return "must not contain duplicates"
	case "required":
		return "must not contain empty items"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierrors.InvalidParameter(name, err)
	}
	return v, nil
}

func floatParam(r *http.Request, name string, def float64) (float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, apierrors.InvalidParameter(name, err)
	}
	return v, nil
}

// listParam splits a comma-separated parameter. ok is false when the
// parameter is absent.
func listParam(r *http.Request, name string) (items []string, ok bool) {
	raw, ok := r.URL.Query()[name]
	if !ok {
		return nil, false
	}
	for _, part := range strings.Split(strings.Join(raw, ","), ",") {
		items = append(items, strings.TrimSpace(part))
	}
	return items, true
}

func intListParam(r *http.Request, name string, def []int) ([]int, error) {
	items, ok := listParam(r, name)
	if !ok {
		return def, nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		v, err := strconv.Atoi(item)
		if err != nil {
			return nil, apierrors.InvalidParameter(name, err)
		}
		out = append(out, v)
	}
	return out, nil
}
