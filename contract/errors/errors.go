package errors

// Error codes for the mediator contracts. Keep stable; used across adapters and the dispatcher.
const (
	ErrCodeHandlerExists       = "mediator.handler_exists"
	ErrCodeHandlerNotFound     = "mediator.handler_not_found"
	ErrCodeHandlerTypeMismatch = "mediator.handler_type_mismatch"
	ErrCodeHandlerFailed       = "mediator.handler_failed"
	ErrCodeHandlerPanicked     = "mediator.handler_panicked"
	ErrCodeRegistryFrozen      = "mediator.registry_frozen"
	ErrCodeNilMessage          = "mediator.nil_message"
	ErrCodeNilHandler          = "mediator.nil_handler"
	ErrCodeSinkNotConfigured   = "mediator.sink_not_configured"
	ErrCodeForwardFailed       = "mediator.forward_failed"
	ErrCodeSerializationFailed = "mediator.serialization_failed"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerExists       = Code(ErrCodeHandlerExists)
	ErrHandlerNotFound     = Code(ErrCodeHandlerNotFound)
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrHandlerFailed       = Code(ErrCodeHandlerFailed)
	ErrHandlerPanicked     = Code(ErrCodeHandlerPanicked)
	ErrRegistryFrozen      = Code(ErrCodeRegistryFrozen)
	ErrNilMessage          = Code(ErrCodeNilMessage)
	ErrNilHandler          = Code(ErrCodeNilHandler)
	ErrSinkNotConfigured   = Code(ErrCodeSinkNotConfigured)
	ErrForwardFailed       = Code(ErrCodeForwardFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)
)
