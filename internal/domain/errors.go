package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a PipelineError by pipeline stage.
type ErrorCode string

const (
	ErrCodeInput      ErrorCode = "E_INPUT"
	ErrCodeExtraction ErrorCode = "E_EXTRACTION"
	ErrCodeValidation ErrorCode = "E_VALIDATION"
	ErrCodeStorage    ErrorCode = "E_STORAGE"
)

// Base sentinels, classified by IsPipelineError/IsRetryableError below.
var (
	ErrEmptyArticleBody  = errors.New("article body is empty")
	ErrArticleTooShort   = errors.New("article body below minimum length")
	ErrBothExtractorsOut = errors.New("all configured extractors failed")
	ErrExtractionTimeout = errors.New("extraction timed out")
	ErrNoConsensus       = errors.New("validator could not reach consensus")
	ErrLowConfidence     = errors.New("no entities survived confidence filtering")
	ErrValidationBothEmpty = errors.New("both extractors returned zero entities and unrelated summaries")
	ErrDuplicateArticle  = errors.New("article already processed")
	ErrStoreUnavailable  = errors.New("store is unavailable")
)

// PipelineError is a structured error carrying the stage it occurred in and
// the article it occurred on, following the same code/message/cause/details
// shape used for structured errors throughout this codebase.
type PipelineError struct {
	Code      ErrorCode
	Stage     string
	ArticleID string
	Message   string
	Cause     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (article=%s): %v", e.Code, e.Message, e.ArticleID, e.Cause)
	}
	return fmt.Sprintf("[%s] %s (article=%s)", e.Code, e.Message, e.ArticleID)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// NewPipelineError builds a PipelineError for the given stage and article.
func NewPipelineError(code ErrorCode, stage, articleID, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Stage: stage, ArticleID: articleID, Message: message, Cause: cause}
}

// IsPipelineError reports whether err is one of the recognized sentinel
// errors anywhere in its chain.
func IsPipelineError(err error) bool {
	known := []error{
		ErrEmptyArticleBody, ErrArticleTooShort, ErrBothExtractorsOut,
		ErrExtractionTimeout, ErrNoConsensus, ErrLowConfidence,
		ErrDuplicateArticle, ErrStoreUnavailable, ErrValidationBothEmpty,
	}
	for _, k := range known {
		if errors.Is(err, k) {
			return true
		}
	}
	var pe *PipelineError
	return errors.As(err, &pe)
}

// IsRetryableError reports whether err represents a transient condition an
// extractor call retry loop should act on.
func IsRetryableError(err error) bool {
	retryable := []error{ErrExtractionTimeout}
	for _, r := range retryable {
		if errors.Is(err, r) {
			return true
		}
	}
	return false
}

// BudgetHalt is a cooperative signal, not a failure: the batch runner checks
// for it explicitly between articles rather than treating it as an error to
// classify or retry.
type BudgetHalt struct {
	Period   string // "daily" or "monthly"
	SpentUSD float64
	CapUSD   float64
}

func (b *BudgetHalt) Error() string {
	return fmt.Sprintf("%s budget exhausted: spent $%.2f of $%.2f cap", b.Period, b.SpentUSD, b.CapUSD)
}
