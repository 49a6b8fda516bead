package errors

import stdErrors "errors"

// ChainDump flattens an error chain for structured logging.
type ChainDump struct {
	Code       Code
	TopMessage string
	Chain      []string
}

// Dump walks the error chain and collects every message for log output.
func Dump(err error) ChainDump {
	dump := ChainDump{Code: CodeInternal}
	if err == nil {
		return dump
	}

	if typed := As(err); typed != nil {
		dump.Code = typed.Code()
	}
	dump.TopMessage = err.Error()

	for cursor := err; cursor != nil; cursor = stdErrors.Unwrap(cursor) {
		dump.Chain = append(dump.Chain, cursor.Error())
	}
	return dump
}
