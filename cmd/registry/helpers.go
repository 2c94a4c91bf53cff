package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jwalitptl/patient-registry/pkg/errors"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// describe flattens application errors into one readable line, including
// per-field validation messages.
func describe(err error) error {
	appErr, ok := errors.As(err)
	if !ok {
		return err
	}
	if len(appErr.Fields) > 0 {
		return fmt.Errorf("%s: %s", appErr.Message, strings.Join(appErr.Fields, "; "))
	}
	return fmt.Errorf("%s", appErr.Message)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
