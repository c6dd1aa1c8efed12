package post

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/c360studio/semsync/errs"
	"github.com/c360studio/semsync/rdf"
)

// check runs the struct tag rules and then the IRI rules the tags cannot express.
func (s *Service) check(op string, in Input) error {
	if err := s.validate.Struct(in); err != nil {
		return errs.Domain(op, "%s", formatValidationError(err))
	}

	if in.ID == "" && firstNonEmpty(in.Title, in.Content, in.URL, in.Name) == "" {
		return errs.Domain(op, "one of title, content, url or name is required")
	}

	iris := []struct {
		field, value string
	}{
		{"url", in.URL},
		{"graph", in.Graph},
		{"homepage", in.Homepage},
		{"image", in.Image},
	}
	for _, acct := range in.Accounts {
		iris = append(iris, struct{ field, value string }{"account service", acct.Service})
	}
	for _, f := range iris {
		if f.value != "" && !rdf.ValidIRI(f.value) {
			return errs.Domain(op, "%s must be an absolute URL, got %q", f.field, f.value)
		}
	}
	return nil
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_if":
		return fmt.Sprintf("%s is required for this post type", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be an http or https URL with a host", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
