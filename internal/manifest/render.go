package manifest

import (
	"bytes"
	"fmt"

	"sigs.k8s.io/yaml"
)

// Render returns the plan as multi-document YAML in creation order.
func Render(plan *Plan) ([]byte, error) {
	var buf bytes.Buffer
	for i, obj := range plan.Objects() {
		out, err := yaml.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal object %d: %w", i, err)
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(out)
	}
	return buf.Bytes(), nil
}
