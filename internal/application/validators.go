package application

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// modelSpecPattern matches "provider/model". The model part may itself
// contain slashes, as OpenRouter model names do.
var modelSpecPattern = regexp.MustCompile(`^[a-z0-9_-]+/[A-Za-z0-9._:@-]+(/[A-Za-z0-9._:@-]+)*$`)

// Placeholders every profile URL template must contain.
const (
	placeholderInternalID      = "{idCandidato}"
	placeholderCandidacyTypeID = "{idTipoCandidatura}"
)

// RegisterConfigValidators adds the modelspec and urltemplate tags to v.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("modelspec", validateModelSpec); err != nil {
		return fmt.Errorf("failed to register modelspec validator: %w", err)
	}
	if err := v.RegisterValidation("urltemplate", validateURLTemplate); err != nil {
		return fmt.Errorf("failed to register urltemplate validator: %w", err)
	}
	return nil
}

func validateModelSpec(fl validator.FieldLevel) bool {
	return modelSpecPattern.MatchString(fl.Field().String())
}

// validateURLTemplate requires both placeholders and an absolute http(s)
// URL once they are filled in.
func validateURLTemplate(fl validator.FieldLevel) bool {
	tmpl := fl.Field().String()
	if !strings.Contains(tmpl, placeholderInternalID) || !strings.Contains(tmpl, placeholderCandidacyTypeID) {
		return false
	}
	filled := strings.NewReplacer(placeholderInternalID, "1", placeholderCandidacyTypeID, "1").Replace(tmpl)
	u, err := url.Parse(filled)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
