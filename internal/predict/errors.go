package predict

import (
	"errors"
	"fmt"
)

// ModelUnavailableError reports that no model could be loaded.
type ModelUnavailableError struct {
	Path string
	Err  error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable: %v", e.Err)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// Kind names the failure for metrics and API responses.
func (e *ModelUnavailableError) Kind() string { return "ModelUnavailable" }

// InferenceError reports a failure inside the model's predict call.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed: %v", e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// Kind names the failure for metrics and API responses.
func (e *InferenceError) Kind() string { return "InferenceFailure" }

// ErrorKind returns the Kind of err if it carries one, and "Error" otherwise.
func ErrorKind(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "Error"
}

// ModelNotLoadedMessage is what users see when a prediction is requested
// without a usable model.
const ModelNotLoadedMessage = "Model not loaded. Fix model file or environment."

// UserMessage renders err for display next to the input form.
func UserMessage(err error) string {
	var (
		unavailable *ModelUnavailableError
		inference   *InferenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unavailable):
		return ModelNotLoadedMessage
	case errors.As(err, &inference):
		return "Prediction failed: " + inference.Err.Error()
	default:
		return err.Error()
	}
}
