package algo

import "fmt"

// ValidateParameters checks config against the parameter schema declared
// in parameters, mirroring the original's per-field type and min/max
// checks (spec.md §4.5). A parameter missing from config is skipped — it
// will fall back to whatever default the algorithm itself applies. A
// nil or empty schema accepts any config.
func ValidateParameters(parameters map[string]ParamSpec, config map[string]any) []string {
	var errs []string

	for name, spec := range parameters {
		raw, present := config[name]
		if !present {
			continue
		}
		if spec.Type == "" {
			continue
		}

		switch spec.Type {
		case "int":
			n, ok := asFloat(raw)
			if !ok || !isWholeNumber(raw, n) {
				errs = append(errs, fmt.Sprintf("parameter %q must be an integer", name))
				continue
			}
			errs = append(errs, rangeErrors(name, n, spec)...)
		case "float":
			n, ok := asFloat(raw)
			if !ok {
				errs = append(errs, fmt.Sprintf("parameter %q must be a number", name))
				continue
			}
			errs = append(errs, rangeErrors(name, n, spec)...)
		case "string":
			if _, ok := raw.(string); !ok {
				errs = append(errs, fmt.Sprintf("parameter %q must be a string", name))
			}
		}
	}

	return errs
}

func rangeErrors(name string, n float64, spec ParamSpec) []string {
	var errs []string
	if spec.Min != nil && n < *spec.Min {
		errs = append(errs, fmt.Sprintf("parameter %q is below minimum value", name))
	}
	if spec.Max != nil && n > *spec.Max {
		errs = append(errs, fmt.Sprintf("parameter %q is above maximum value", name))
	}
	return errs
}

// asFloat extracts a numeric value decoded by encoding/json, which
// always produces float64 for JSON numbers regardless of source
// integer/float notation.
func asFloat(v any) (float64, bool) {
	n, ok := v.(float64)
	return n, ok
}

// isWholeNumber reports whether the JSON number that decoded to n had no
// fractional part, so "int" parameters reject values like 2.5.
func isWholeNumber(_ any, n float64) bool {
	return n == float64(int64(n))
}
