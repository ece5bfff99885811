package api

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

type paramError struct {
	name string
	msg  string
}

func (e *paramError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.name, e.msg)
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type alertsParams struct {
	Limit int `validate:"min=1,max=500"`
}

type searchParams struct {
	Limit int `validate:"min=1,max=100"`
}

// intParam reads name from q. An absent value yields def; anything that is
// not an integer is a paramError.
func intParam(q url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, msg: fmt.Sprintf("%q is not an integer", raw)}
	}
	return n, nil
}

// check runs struct validation and reports the first failing field by name.
func check(name string, v any) error {
	err := validatorInstance().Struct(v)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return &paramError{name: name, msg: fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())}
	}
	return &paramError{name: name, msg: err.Error()}
}

func boolParam(q url.Values, name string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, &paramError{name: name, msg: fmt.Sprintf("%q is not a boolean", raw)}
	}
	return &b, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// dateParam accepts RFC 3339 timestamps or bare dates (UTC midnight).
func dateParam(q url.Values, name string) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, &paramError{name: name, msg: fmt.Sprintf("%q is not a date", raw)}
}
