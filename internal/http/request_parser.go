// This file parses and validates request parameters. Tab selections are
// validated with struct tags; anything invalid is dropped so the tab falls
// back to its first option.

package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"salesdash/internal/ingest"
)

// ErrNotCSV is returned for uploads whose name does not end in .csv.
var ErrNotCSV = errors.New("only .csv files are accepted")

// ErrNoFiles is returned for an upload request without files.
var ErrNoFiles = errors.New("no files in upload")

// SelectionParams holds the tab selectors read from the query string.
type SelectionParams struct {
	View  string `form:"view" validate:"omitempty,oneof=weekday week month"`
	Store string `form:"store" validate:"omitempty,numeric,max=12"`
	State string `form:"state" validate:"omitempty,max=128,nocontrol"`
}

// RemoveParams holds the form of POST /files/remove.
type RemoveParams struct {
	Index int `form:"index" validate:"gte=0"`
}

// UploadParams describes one uploaded file.
type UploadParams struct {
	Name string `form:"name" validate:"required,max=255,csvname"`
}

// RequestParser validates request parameters.
type RequestParser struct {
	validate *validator.Validate
}

// NewRequestParser creates a parser with the dashboard validators registered.
func NewRequestParser() *RequestParser {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("csvname", isCSVName)
	_ = v.RegisterValidation("nocontrol", hasNoControl)
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("form")
	})
	return &RequestParser{validate: v}
}

// ParseSelection reads view, store and state. Values that fail validation are
// cleared and reported in rejected.
func (p *RequestParser) ParseSelection(query url.Values) (params SelectionParams, rejected []string) {
	params = SelectionParams{
		View:  strings.TrimSpace(query.Get("view")),
		Store: strings.TrimSpace(query.Get("store")),
		State: strings.TrimSpace(query.Get("state")),
	}
	err := p.validate.Struct(params)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return params, nil
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "view":
			params.View = ""
		case "store":
			params.Store = ""
		case "state":
			params.State = ""
		}
		rejected = append(rejected, formatValidationError(fe))
	}
	return params, rejected
}

// ParseRemove reads the index of the part to remove.
func (p *RequestParser) ParseRemove(form url.Values) (RemoveParams, error) {
	raw := strings.TrimSpace(form.Get("index"))
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return RemoveParams{}, fmt.Errorf("index %q is not a number", raw)
	}
	params := RemoveParams{Index: idx}
	if err := p.validateStruct(params); err != nil {
		return RemoveParams{}, err
	}
	return params, nil
}

// ReadUploads reads every multipart file of field into memory, in form order.
// Any non-csv name rejects the whole request.
func (p *RequestParser) ReadUploads(form *multipart.Form, field string) ([]ingest.Part, error) {
	if form == nil || len(form.File[field]) == 0 {
		return nil, ErrNoFiles
	}
	headers := form.File[field]
	for _, fh := range headers {
		name := filepath.Base(fh.Filename)
		if err := p.validateStruct(UploadParams{Name: name}); err != nil {
			return nil, fmt.Errorf("%s: %w", name, ErrNotCSV)
		}
	}

	parts := make([]ingest.Part, 0, len(headers))
	for _, fh := range headers {
		data, err := readFileHeader(fh)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
		}
		parts = append(parts, ingest.Part{Name: filepath.Base(fh.Filename), Data: data})
	}
	return parts, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (p *RequestParser) validateStruct(v any) error {
	err := p.validate.Struct(v)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = formatValidationError(fe)
	}
	return errors.New(strings.Join(msgs, "; "))
}

func formatValidationError(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "numeric":
		return fmt.Sprintf("%s must be a number", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "csvname":
		return fmt.Sprintf("%s must be a .csv file name", field)
	case "nocontrol":
		return fmt.Sprintf("%s contains control characters", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func isCSVName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ".csv") && len(name) > len(".csv")
}

func hasNoControl(fl validator.FieldLevel) bool {
	return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
}
