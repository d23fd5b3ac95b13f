package solmate

// LiveValues is a snapshot of the current telemetry readings of a SolMate,
// keyed by field name (pv_power, battery_flow, inject_power, ...). Values
// are numbers or strings depending on the field; the helpers below coerce
// the common cases.
type LiveValues map[string]any

// Float returns the value for key as a float64 if it is numeric.
func (lv LiveValues) Float(key string) (float64, bool) {
	switch v := lv[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// String returns the value for key if it is a string.
func (lv LiveValues) String(key string) (string, bool) {
	s, ok := lv[key].(string)
	return s, ok
}
