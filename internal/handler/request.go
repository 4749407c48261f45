package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// FieldError is one entry of a 422 response.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrorResponse is the 422 body.
type ValidationErrorResponse struct {
	Detail []FieldError `json:"detail"`
}

func writeValidationErrors(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{Detail: errs})
}

func missingField(field string) FieldError {
	return FieldError{Loc: []string{"body", field}, Msg: "field required", Type: "value_error.missing"}
}

// decodeBody decodes a JSON object into dst and reports missing required
// fields. An empty body decodes as {} when allowEmpty is set.
func decodeBody(r *http.Request, dst any, allowEmpty bool, required ...string) []FieldError {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return []FieldError{{Loc: []string{"body"}, Msg: "request body too large", Type: "value_error.body_size"}}
		}
		return []FieldError{{Loc: []string{"body"}, Msg: "could not read request body", Type: "value_error"}}
	}
	if len(bytes.TrimSpace(data)) == 0 && allowEmpty {
		data = []byte(`{}`)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []FieldError{{Loc: []string{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
		}
		return []FieldError{{Loc: []string{"body"}, Msg: jsonErrorMessage(err), Type: "value_error.jsondecode"}}
	}
	if fields == nil {
		return []FieldError{{Loc: []string{"body"}, Msg: "value is not a valid dict", Type: "type_error.dict"}}
	}

	var errs []FieldError
	for _, name := range required {
		raw, ok := fields[name]
		if !ok || string(raw) == "null" {
			errs = append(errs, missingField(name))
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if err := json.Unmarshal(data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return []FieldError{{
				Loc:  append([]string{"body"}, strings.Split(typeErr.Field, ".")...),
				Msg:  typeErr.Type.String() + " type expected",
				Type: "type_error." + typeErr.Type.Kind().String(),
			}}
		}
		return []FieldError{{Loc: []string{"body"}, Msg: jsonErrorMessage(err), Type: "value_error.jsondecode"}}
	}
	return nil
}

func jsonErrorMessage(err error) string {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Error()
	}
	return "Expecting value"
}
