package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/stemsi/coursehub-backend/internal/catalog"
	"github.com/stemsi/coursehub-backend/internal/model"
)

// trans is the singleton English translator for validation errors.
var trans ut.Translator

// Setup registers the validator with English translations and the course
// tags on Gin's binding engine. Program names are checked against cat.
// Call once during application startup.
func Setup(cat *catalog.Catalog) {
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		// Use the JSON (or query) tag name for field names in error messages.
		v.RegisterTagNameFunc(fieldName)

		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")
		_ = en_translations.RegisterDefaultTranslations(v, trans)

		registerCourseTags(v, cat)
	}
}

func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func registerCourseTags(v *govalidator.Validate, cat *catalog.Catalog) {
	_ = v.RegisterValidation("price_range", func(fl govalidator.FieldLevel) bool {
		_, ok := model.ParsePriceRange(fl.Field().String())
		return ok
	})
	_ = v.RegisterValidation("course_duration", func(fl govalidator.FieldLevel) bool {
		return knownDuration(fl.Field().String())
	})
	_ = v.RegisterValidation("course_program", func(fl govalidator.FieldLevel) bool {
		return cat.HasProgram(fl.Field().String())
	})
	// Filter variants also accept All.
	_ = v.RegisterValidation("duration_filter", func(fl govalidator.FieldLevel) bool {
		s := fl.Field().String()
		return s == model.All || knownDuration(s)
	})
	_ = v.RegisterValidation("program_filter", func(fl govalidator.FieldLevel) bool {
		s := fl.Field().String()
		return s == model.All || cat.HasProgram(s)
	})

	programs := strings.Join(cat.ProgramNames(), ", ")
	messages := map[string]string{
		"price_range":     "{0} must be one of " + joinPriceRanges(),
		"course_duration": "{0} must be one of Short, Medium, Long",
		"course_program":  "{0} must be one of " + programs,
		"duration_filter": "{0} must be All or one of Short, Medium, Long",
		"program_filter":  "{0} must be All or one of " + programs,
	}
	for tag, msg := range messages {
		_ = v.RegisterTranslation(tag, trans,
			func(ut ut.Translator) error { return ut.Add(tag, msg, true) },
			func(ut ut.Translator, fe govalidator.FieldError) string {
				t, _ := ut.T(fe.Tag(), fe.Field())
				return t
			},
		)
	}
}

func knownDuration(s string) bool {
	for _, d := range model.Durations {
		if string(d) == s {
			return true
		}
	}
	return false
}

func joinPriceRanges() string {
	labels := make([]string, len(model.PriceRanges))
	for i, pr := range model.PriceRanges {
		labels[i] = string(pr)
	}
	return strings.Join(labels, ", ")
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// Bind binds and validates the request body into dst.
// Returns nil on success or a translated field error map on failure.
func Bind(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

// BindQuery binds and validates the query string into dst.
func BindQuery(c *gin.Context, dst any) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
