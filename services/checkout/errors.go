package checkout

import (
	"errors"
	"fmt"

	"github.com/MarcGrol/paymentforms/lib/myerrors"
)

var (
	// ErrConfiguration means a referenced plan or asset could not be resolved. Payload generation
	// degrades by leaving the entry out.
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTokenization  = errors.New("tokenization error")
	ErrSubmission    = errors.New("submission error")
)

func configurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func validationError(format string, args ...any) error {
	return myerrors.NewUnprocessableError(fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...)))
}

func tokenizationError(format string, args ...any) error {
	return myerrors.NewPaymentRequiredError(fmt.Errorf("%w: %s", ErrTokenization, fmt.Sprintf(format, args...)))
}

func submissionError(format string, args ...any) error {
	return myerrors.NewInvalidInputError(fmt.Errorf("%w: %s", ErrSubmission, fmt.Sprintf(format, args...)))
}
