package school

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const requiredText = "this field is required"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func check(input any) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		msg := fe.Error()
		if fe.Tag() == "required" {
			msg = requiredText
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Error: msg})
	}
	return out
}

func (in *StudentInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = optional(in.Email)
	in.Phone = optional(in.Phone)
}

func (in *SubjectInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Teacher = strings.TrimSpace(in.Teacher)
	in.Description = optional(in.Description)
}

func (in *ClassInput) normalize() {
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.Topic = strings.TrimSpace(in.Topic)
	in.Notes = optional(in.Notes)
	if !in.Date.IsZero() {
		in.Date = DateOf(in.Date)
	}
}

func (in *AbsenceInput) normalize() {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.Reason = optional(in.Reason)
	if !in.Date.IsZero() {
		in.Date = DateOf(in.Date)
	}
}
