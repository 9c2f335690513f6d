package formatting

import (
	"encoding/json"
	"fmt"
)

// PrettyJSON renders v as JSON indented by two spaces. Values json cannot
// encode are rendered with %v instead.
func PrettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
