// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2020 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"errors"
)

// GenericError - error base
type GenericError string

// to allow for different classes of errors
type ConversionError GenericError
type ExistsError GenericError
type InconsistentError GenericError
type InvalidError GenericError
type NotFoundError GenericError
type ProcessError GenericError
type TransientError GenericError
type ValidationError GenericError

// common errors - keep in alphabetic order
var (
	ErrAccumulatedDataNotFound   = NotFoundError("block accumulated data not found")
	ErrAddBlockDisabled          = InvalidError("add block is disabled")
	ErrAlreadyInitialised        = InvalidError("already initialised")
	ErrBadBlockFound             = ValidationError("block is recorded as bad")
	ErrBanned                    = ProcessError("peer is banned")
	ErrBestBlockMismatch         = InvalidError("best block does not match expected previous best block")
	ErrBestBlockUnknown          = InvalidError("best block hash is not a known header")
	ErrBlockExists               = ExistsError("block already exists")
	ErrBlockNotFound             = NotFoundError("block not found")
	ErrBlockPruned               = InvalidError("block outputs have been pruned")
	ErrBrokenChainLinkage        = InvalidError("header does not form a chain with the last header")
	ErrCompositeKeyLength        = ConversionError("composite key length is invalid")
	ErrDataInconsistency         = InconsistentError("data inconsistency detected")
	ErrDatabaseVersion           = InvalidError("database version is newer than supported")
	ErrDifferentHeaderAtHeight   = InvalidError("a different header is already stored at height")
	ErrDuplicateKey              = ExistsError("duplicate key")
	ErrEmptyStore                = InvalidError("chain store contains no headers")
	ErrHeaderExists              = ExistsError("header already exists at height")
	ErrHeaderHasBlockData        = InvalidError("header still has block accumulated data")
	ErrHeaderHasRows             = InvalidError("header still has kernel or output rows")
	ErrHeaderHashMismatch        = InconsistentError("header hash does not match accumulated data hash")
	ErrHeaderNotFound            = NotFoundError("header not found")
	ErrHeaderNotLast             = InvalidError("header is not the last header")
	ErrHeaderOutOfOrder          = InvalidError("header inserted out of order")
	ErrInvalidArguments          = InvalidError("invalid arguments")
	ErrInvalidBitmap             = ConversionError("invalid bitmap encoding")
	ErrInvalidBlock              = ValidationError("block failed validation")
	ErrInvalidChain              = InvalidError("invalid chain")
	ErrInvalidCount              = InvalidError("invalid count")
	ErrInvalidFullBlock          = InvalidError("invalid full block")
	ErrInvalidLoggerChannel      = InvalidError("invalid logger channel")
	ErrInvalidMmrPosition        = InvalidError("invalid mmr position")
	ErrInvalidOperation          = InvalidError("invalid operation")
	ErrInvalidPeerResponse       = ProcessError("invalid response from peer")
	ErrInvalidRequest            = InvalidError("invalid request")
	ErrMetadataNotFound          = NotFoundError("metadata value not found")
	ErrMissingPeerTransactions   = ProcessError("peer did not return all transactions")
	ErrMissingTransactionInput   = InvalidError("missing transaction input data")
	ErrMmrCountOverflow          = ConversionError("mmr leaf count exceeds 32 bits")
	ErrNoEventSubscribers        = ProcessError("no event subscribers")
	ErrNoGenesisBlock            = InvalidError("genesis block does not match store")
	ErrNotConfigurationTable     = InvalidError("configuration file did not return a table")
	ErrNotInitialised            = InvalidError("not initialised")
	ErrOrphanNotFound            = NotFoundError("orphan block not found")
	ErrOutputAlreadyPruned       = InvalidError("output is already pruned")
	ErrOutputNotFound            = NotFoundError("output not found")
	ErrRateLimiting              = ProcessError("rate limiting")
	ErrRequestExceedsMaximum     = InvalidError("request exceeds maximum")
	ErrResizeFailed              = ProcessError("database resize failed")
	ErrResizeRequired            = TransientError("database resize required")
	ErrStoreLocked               = ProcessError("chain storage directory is locked by another process")
	ErrTransactionInUse          = InvalidError("write transaction already in use")
	ErrTransactionNotInUse       = InvalidError("write transaction not in use")
	ErrTransactionTooLarge       = ProcessError("transaction too large")
	ErrTruncatedRecord           = ConversionError("record is truncated")
	ErrUnexpectedRecordType      = ConversionError("unexpected record type")
	ErrUnknownRequest            = InvalidError("unknown request")
	ErrUnknownWriteOperation     = InvalidError("unknown write operation")
	ErrUnspendableInput          = InvalidError("input spends an unknown output")
	ErrValidatorNodeNotFound     = NotFoundError("validator node not found")
	ErrValueNotFound             = NotFoundError("value not found")
	ErrZeroConfOutputNotInBlock  = InvalidError("zero-conf output not found in block")
	ErrZeroLengthTransactionList = InvalidError("transaction list is empty")
)

// the error interface base method
func (e GenericError) Error() string { return string(e) }

// the error interface methods
func (e ConversionError) Error() string   { return string(e) }
func (e ExistsError) Error() string       { return string(e) }
func (e InconsistentError) Error() string { return string(e) }
func (e InvalidError) Error() string      { return string(e) }
func (e NotFoundError) Error() string     { return string(e) }
func (e ProcessError) Error() string      { return string(e) }
func (e TransientError) Error() string    { return string(e) }
func (e ValidationError) Error() string   { return string(e) }

// determine the class of an error, looking through any wrapping
func IsErrConversion(e error) bool   { var t ConversionError; return errors.As(e, &t) }
func IsErrExists(e error) bool       { var t ExistsError; return errors.As(e, &t) }
func IsErrInconsistent(e error) bool { var t InconsistentError; return errors.As(e, &t) }
func IsErrInvalid(e error) bool      { var t InvalidError; return errors.As(e, &t) }
func IsErrNotFound(e error) bool     { var t NotFoundError; return errors.As(e, &t) }
func IsErrProcess(e error) bool      { var t ProcessError; return errors.As(e, &t) }
func IsErrTransient(e error) bool    { var t TransientError; return errors.As(e, &t) }
func IsErrValidation(e error) bool   { var t ValidationError; return errors.As(e, &t) }
