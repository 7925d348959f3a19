package widevine

// SchemaValidationError reports a header the schema rejects. Field is the
// JSON name of the offending field and is empty for message level failures.
type SchemaValidationError struct {
	Field string
	Msg   string
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return "widevine: invalid header: " + e.Msg
	}
	return "widevine: invalid header: " + e.Field + ": " + e.Msg
}
