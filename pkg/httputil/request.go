package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// ParseJSON decodes JSON from the request body into the destination
func ParseJSON(r *http.Request, dest interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseJSONOrError decodes JSON and writes a 400 on failure
func ParseJSONOrError(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := ParseJSON(r, dest); err != nil {
		WriteValidationErrors(w, FieldError{Path: "body", Message: err.Error()})
		return false
	}
	return true
}

// ParsePathInt64 extracts and parses an int64 path parameter
func ParsePathInt64(r *http.Request, key string) (int64, error) {
	str := mux.Vars(r)[key]
	if str == "" {
		return 0, fmt.Errorf("missing path parameter: %s", key)
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %s", key, str)
	}
	return val, nil
}

// ParsePathInt64OrError extracts an int64 path parameter and writes a 400 on failure
func ParsePathInt64OrError(w http.ResponseWriter, r *http.Request, key string) (int64, bool) {
	val, err := ParsePathInt64(r, key)
	if err != nil {
		WriteValidationErrors(w, FieldError{Path: key, Message: err.Error()})
		return 0, false
	}
	return val, true
}

// ParseQueryInt64 extracts and parses an int64 query parameter
func ParseQueryInt64(r *http.Request, key string, defaultVal int64) (int64, error) {
	str := r.URL.Query().Get(key)
	if str == "" {
		return defaultVal, nil
	}
	val, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for query param %s: %s", key, str)
	}
	return val, nil
}

// ParseQueryString extracts a string query parameter
func ParseQueryString(r *http.Request, key string, defaultVal string) string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// Validator checks one field and reports its error when invalid.
type Validator func() *FieldError

// Required validates that a string field is not empty
func Required(path, value string) Validator {
	return func() *FieldError {
		if value == "" {
			return &FieldError{Path: path, Message: "is required"}
		}
		return nil
	}
}

// Positive validates that an int64 field is positive
func Positive(path string, value int64) Validator {
	return func() *FieldError {
		if value <= 0 {
			return &FieldError{Path: path, Message: "must be positive"}
		}
		return nil
	}
}

// MaxLen validates a string length ceiling
func MaxLen(path, value string, max int) Validator {
	return func() *FieldError {
		if len(value) > max {
			return &FieldError{Path: path, Message: fmt.Sprintf("must be at most %d characters", max)}
		}
		return nil
	}
}

// Validate runs all validators and writes a combined 400 when any fail.
// Unlike single-error helpers it reports every failing field at once.
func Validate(w http.ResponseWriter, validators ...Validator) bool {
	var fieldErrors []FieldError
	for _, v := range validators {
		if fe := v(); fe != nil {
			fieldErrors = append(fieldErrors, *fe)
		}
	}
	if len(fieldErrors) > 0 {
		WriteValidationErrors(w, fieldErrors...)
		return false
	}
	return true
}
