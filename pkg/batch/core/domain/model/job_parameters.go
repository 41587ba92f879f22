package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// maskedParameterKeys are replaced with "****" when parameters are printed.
var maskedParameterKeys = []string{"password", "secret", "credentials"}

// JobParameters holds the parameters of one job launch.
type JobParameters struct {
	Params map[string]interface{}
}

// NewJobParameters creates an empty JobParameters.
func NewJobParameters() JobParameters {
	return JobParameters{Params: make(map[string]interface{})}
}

// Put sets a parameter.
func (jp JobParameters) Put(key string, value interface{}) {
	jp.Params[key] = value
}

// Get returns a parameter or nil.
func (jp JobParameters) Get(key string) interface{} {
	return jp.Params[key]
}

// GetString returns a string parameter.
func (jp JobParameters) GetString(key string) (string, bool) {
	s, ok := jp.Params[key].(string)
	return s, ok
}

// String returns a JSON rendering with sensitive keys masked.
func (jp JobParameters) String() string {
	masked := make(map[string]interface{}, len(jp.Params))
	for k, v := range jp.Params {
		masked[k] = v
		for _, secret := range maskedParameterKeys {
			if strings.Contains(strings.ToLower(k), secret) {
				masked[k] = "****"
				break
			}
		}
	}
	data, err := json.Marshal(masked)
	if err != nil {
		return fmt.Sprintf("{[ERROR: failed to marshal parameters: %v]}", err)
	}
	return string(data)
}

// NewID generates a new UUID string.
func NewID() string {
	return uuid.New().String()
}
