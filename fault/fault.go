// SPDX-License-Identifier: ISC

// Package fault provides a single instance of errors to allow easy
// comparison without having to resort to partial string matches.
package fault

// GenericError is the common base of every error kind below.
type GenericError string

// error kinds, one per row of the error taxonomy
type (
	BadTemplateError         GenericError
	BadInputError            GenericError
	NotFoundError            GenericError
	ExhaustedError           GenericError
	LongtermUnissuedError    GenericError
	CirculationConflictError GenericError
	IOError                  GenericError
	ConfigError              GenericError
)

// common errors - keep in alphabetic order within each kind
var (
	ErrBadTemplate = BadTemplateError("template failed grammar")

	ErrBadInput        = BadInputError("invalid input")
	ErrMissingContact  = BadInputError("contact is required")
	ErrInvalidTerm     = BadInputError("term must be one of long, medium, short, -")
	ErrInvalidNaan     = BadInputError("naan must be 5 digits for a long-term minter")
	ErrMissingNaa      = BadInputError("naa is required for a long-term minter")
	ErrMissingSubnaa   = BadInputError("subnaa is required for a long-term minter")
	ErrEmptyIdentifier = BadInputError("identifier is empty")
	ErrEmptyElement    = BadInputError("element name is empty")
	ErrBadHow          = BadInputError("how must be one of set, new, replace, append, add, prepend, insert, delete, purge, mint")
	ErrBatchTooLarge   = BadInputError("batch exceeds the maximum of 10000 items")
	ErrBatchEmpty      = BadInputError("batch is empty")
	ErrInvalidCount    = BadInputError("count must be positive")
	ErrAlreadyBound    = BadInputError("binding already exists for a new-only bind")

	ErrNotFound        = NotFoundError("identifier or element not found")
	ErrElementNotFound = NotFoundError("element not found")

	ErrExhausted = ExhaustedError("identifier space is exhausted")

	ErrLongtermUnissued = LongtermUnissuedError("identifier has not been issued or held; binding on a long-term minter is forbidden")

	ErrHoldConflict     = CirculationConflictError("a hold has been set and must be released before the identifier can be queued")
	ErrQueueConflict    = CirculationConflictError("identifier's circulation status forbids this queue transition")
	ErrCirculationState = CirculationConflictError("unexpected circulation state")

	ErrIO = IOError("backend read or write failure")

	ErrConfig               = ConfigError("invalid configuration")
	ErrMissingDataDir       = ConfigError("data_dir is required")
	ErrLogNotWritable       = ConfigError("log file is not writable")
	ErrAlreadyInitialised   = ConfigError("already initialised")
	ErrInvalidLoggerChannel = ConfigError("invalid logger channel")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

func (e BadTemplateError) Error() string         { return string(e) }
func (e BadInputError) Error() string            { return string(e) }
func (e NotFoundError) Error() string            { return string(e) }
func (e ExhaustedError) Error() string           { return string(e) }
func (e LongtermUnissuedError) Error() string    { return string(e) }
func (e CirculationConflictError) Error() string { return string(e) }
func (e IOError) Error() string                  { return string(e) }
func (e ConfigError) Error() string              { return string(e) }

// determine the class of an error
func IsErrBadTemplate(e error) bool         { _, ok := e.(BadTemplateError); return ok }
func IsErrBadInput(e error) bool            { _, ok := e.(BadInputError); return ok }
func IsErrNotFound(e error) bool            { _, ok := e.(NotFoundError); return ok }
func IsErrExhausted(e error) bool           { _, ok := e.(ExhaustedError); return ok }
func IsErrLongtermUnissued(e error) bool    { _, ok := e.(LongtermUnissuedError); return ok }
func IsErrCirculationConflict(e error) bool { _, ok := e.(CirculationConflictError); return ok }
func IsErrIO(e error) bool                  { _, ok := e.(IOError); return ok }
func IsErrConfig(e error) bool              { _, ok := e.(ConfigError); return ok }
