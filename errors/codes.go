package errors

// ErrorCode identifies an application error category in responses and logs.
type ErrorCode int

const (
	ErrorCode_UNKNOWN ErrorCode = iota
	ErrorCode_HTTP_OK
	ErrorCode_INTERNAL
	ErrorCode_INVALID_ARGUMENT
	ErrorCode_INVALID_PAYLOAD
	ErrorCode_NOT_FOUND
	ErrorCode_EMPTY_TRANSCRIPT
	ErrorCode_ORACLE_FAILED
	ErrorCode_ORACLE_BAD_JSON
	ErrorCode_TRANSCRIPTION_FAILED
	ErrorCode_TRANSCRIPTION_DISABLED
	ErrorCode_EXPORT_FAILED
	ErrorCode_DB_QUERY_FAILED
)

var errorCodeNames = map[ErrorCode]string{
	ErrorCode_UNKNOWN:                "UNKNOWN",
	ErrorCode_HTTP_OK:                "OK",
	ErrorCode_INTERNAL:               "INTERNAL",
	ErrorCode_INVALID_ARGUMENT:       "INVALID_ARGUMENT",
	ErrorCode_INVALID_PAYLOAD:        "INVALID_PAYLOAD",
	ErrorCode_NOT_FOUND:              "NOT_FOUND",
	ErrorCode_EMPTY_TRANSCRIPT:       "EMPTY_TRANSCRIPT",
	ErrorCode_ORACLE_FAILED:          "ORACLE_FAILED",
	ErrorCode_ORACLE_BAD_JSON:        "ORACLE_BAD_JSON",
	ErrorCode_TRANSCRIPTION_FAILED:   "TRANSCRIPTION_FAILED",
	ErrorCode_TRANSCRIPTION_DISABLED: "TRANSCRIPTION_DISABLED",
	ErrorCode_EXPORT_FAILED:          "EXPORT_FAILED",
	ErrorCode_DB_QUERY_FAILED:        "DB_QUERY_FAILED",
}

// String returns the symbolic name of the error code.
func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return "UNKNOWN"
}
