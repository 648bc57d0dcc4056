package sweep

import "fmt"

// ConfigurationError rejects a launch before any work starts: a model is not
// registered, or its provider is unknown or lacks a credential.
type ConfigurationError struct {
	ModelID string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.ModelID == "" {
		return fmt.Sprintf("invalid sweep: %s", e.Reason)
	}
	return fmt.Sprintf("invalid sweep: model %s: %s", e.ModelID, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
