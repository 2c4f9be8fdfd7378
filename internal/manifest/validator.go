package manifest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	hubsyncerrors "github.com/avelinec/hubsync/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	configIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("config_id", func(fl validator.FieldLevel) bool {
			return configIDPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate performs schema and cross-field validation on the manifest.
func Validate(m *Manifest) error {
	if m == nil {
		return hubsyncerrors.NewValidationError("manifest", "manifest is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(m); err != nil {
		return convertValidationError(err)
	}

	seen := make(map[string]int, len(m.Integrations))
	for i, item := range m.Integrations {
		if prev, exists := seen[item.ID]; exists {
			return hubsyncerrors.NewValidationError(
				fieldForIntegration(i, "id"),
				fmt.Sprintf("duplicate configuration id %q (first declared at integrations[%d])", item.ID, prev),
				nil,
			)
		}
		seen[item.ID] = i

		for j, step := range item.Answers {
			if len(step) == 0 {
				return hubsyncerrors.NewValidationError(
					fieldForIntegration(i, fmt.Sprintf("answers[%d]", j)),
					"answer step must not be empty",
					nil,
				)
			}
		}
	}

	return nil
}

func convertValidationError(err error) error {
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return hubsyncerrors.NewValidationError("manifest", invalid.Error(), err)
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return hubsyncerrors.NewValidationError(
			namespaceToField(fe.Namespace()),
			fmt.Sprintf("failed %q constraint", fe.Tag()),
			err,
		)
	}

	return hubsyncerrors.NewValidationError("manifest", err.Error(), err)
}

func fieldForIntegration(index int, field string) string {
	return fmt.Sprintf("integrations[%d].%s", index, field)
}

// namespaceToField converts validator namespaces like
// "Manifest.Integrations[0].Platform" to manifest field paths.
func namespaceToField(ns string) string {
	trimmed := strings.TrimPrefix(ns, "Manifest.")
	return strings.ToLower(trimmed)
}
