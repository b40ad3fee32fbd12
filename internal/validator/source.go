package validator

import (
	"github.com/go-playground/validator/v10"
)

const maxSourceBytes = 1 << 16

// ensures submitted source code fits the judging backend's limit
func ValidateSourceSize(dataLen int) bool {
	return dataLen > 0 && dataLen <= maxSourceBytes
}

func validateSourceTag(fl validator.FieldLevel) bool {
	return ValidateSourceSize(len(fl.Field().String()))
}
