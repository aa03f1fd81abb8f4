package config

import (
	"fmt"
	"strconv"
)

// Configuration validation error codes (C100-C199).
const (
	ErrUnknownPass    = "C101" // pass name not in the registry
	ErrBadEnabled     = "C102" // enabled value does not parse as a bool
	ErrBadProbability = "C103" // probability does not parse or is outside [0,1]
)

// ValidationError reports one configuration problem.
type ValidationError struct {
	Key     string `json:"key"` // flat "<pass>.<option>" key
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Key, e.Message)
}

// Validate checks the configuration against the set of registered pass
// names. It returns all problems found rather than failing fast.
//
// Unrecognized option keys inside a known pass are ignored by contract;
// an unknown pass name is reported, since a typo there silently disables
// the obfuscation it was meant to enable.
func Validate(c *Config, knownPasses []string) []ValidationError {
	known := make(map[string]bool, len(knownPasses))
	for _, n := range knownPasses {
		known[n] = true
	}

	var errs []ValidationError
	for name, pc := range c.Passes {
		if !known[name] {
			errs = append(errs, ValidationError{
				Key:     name,
				Message: "unknown pass name",
				Code:    ErrUnknownPass,
			})
			continue
		}
		if v, ok := pc["enabled"]; ok {
			if _, err := strconv.ParseBool(v); err != nil {
				errs = append(errs, ValidationError{
					Key:     name + ".enabled",
					Message: fmt.Sprintf("%q is not a boolean", v),
					Code:    ErrBadEnabled,
				})
			}
		}
		if v, ok := pc["probability"]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 || f > 1 {
				errs = append(errs, ValidationError{
					Key:     name + ".probability",
					Message: fmt.Sprintf("%q is not a probability in [0,1]", v),
					Code:    ErrBadProbability,
				})
			}
		}
	}
	return errs
}
