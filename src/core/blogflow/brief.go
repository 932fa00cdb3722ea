package blogflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Brief holds the user-supplied generation parameters. It is never modified after a job starts.
type Brief struct {
	Title                  string   `json:"title" validate:"required"`
	WordCount              int      `json:"wordCount" validate:"gt=0"`
	PrimaryKeyword         string   `json:"primaryKeyword" validate:"required"`
	SecondaryKeywords      []string `json:"secondaryKeywords"`
	InternalLinks          []string `json:"internalLinks" validate:"dive,url"`
	ExternalLinks          []string `json:"externalLinks" validate:"dive,url"`
	AdditionalInstructions string   `json:"additionalInstructions,omitempty"`
}

// ValidationError lists the brief fields that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid brief: %s", strings.Join(e.Fields, ", "))
}

// Validate checks the brief before a job is created from it.
func (b Brief) Validate() error {
	err := validate.Struct(b)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate brief: %w", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return &ValidationError{Fields: fields}
}

func (b Brief) clone() Brief {
	c := b
	c.SecondaryKeywords = cloneStrings(b.SecondaryKeywords)
	c.InternalLinks = cloneStrings(b.InternalLinks)
	c.ExternalLinks = cloneStrings(b.ExternalLinks)
	return c
}
