package error

// GenericError is implemented by every typed error that can be surfaced to a caller.
type GenericError interface {
	Error() string
	ErrCode() string
	StatusCode() int
}
