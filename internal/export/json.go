package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/JonMunkholm/lca-intake/internal/intake"
)

// WriteJSON writes p indented with two spaces.
func WriteJSON(w io.Writer, p intake.Payload) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	return nil
}
