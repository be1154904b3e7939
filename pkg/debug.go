package pkg

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrettyPrint writes v to w as indented JSON.
func PrettyPrint(w io.Writer, v any) error {
	message, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error while printing: %w", err)
	}
	_, err = fmt.Fprintln(w, string(message))
	return err
}
