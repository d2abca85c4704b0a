package utils

import (
	"encoding/json"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/waveboard-dev/waveboard/shared/errors"
	"github.com/waveboard-dev/waveboard/shared/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func DecodeValidate(r io.Reader, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "err", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400}
	}
	if err := validate.Struct(body); err != nil {
		logger.Log.Debug("body validation failed", "err", err)
		return &errors.ErrorWithStatusCode{Message: "Required fields missing", StatusCode: 400}
	}
	return nil
}

func Decode(r io.Reader, body any) error {
	if err := json.NewDecoder(r).Decode(body); err != nil {
		logger.Log.Debug("invalid json body", "err", err)
		return &errors.ErrorWithStatusCode{Message: "Body is invalid json", StatusCode: 400}
	}
	return nil
}
