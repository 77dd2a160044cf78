// Package services defines the business logic for accounts, books,
// conversations, the directory, and KYC review. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Account-related errors.
var (
	// ErrAccountNotFound indicates that the requested account does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount is returned when the username or email of a
	// registration is already taken (compared case-insensitively).
	ErrDuplicateAccount = errors.New("username or email already taken")

	// ErrInvalidCredentials is the constant-shape login failure: it never
	// reveals whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrMissingFields is returned when a registration omits a required field.
	ErrMissingFields = errors.New("required fields missing")
)

// Catalog-related errors.
var (
	// ErrBookNotFound indicates that the requested book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrTitleRequired is returned when a book is created without a title.
	ErrTitleRequired = errors.New("title is required")

	// ErrPDFRequired is returned when a book is created without a PDF file.
	ErrPDFRequired = errors.New("pdf file is required")
)

// Conversation-related errors.
var (
	// ErrConversationNotFound indicates that the requested conversation does
	// not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrTurnNotFound indicates that the requested turn does not exist within
	// the conversation.
	ErrTurnNotFound = errors.New("turn not found")

	// ErrForbidden is returned when a requester is not the owner of the
	// conversation they are trying to access.
	ErrForbidden = errors.New("not the conversation owner")

	// ErrEmptyMessage is returned when a posted turn is blank after trimming.
	ErrEmptyMessage = errors.New("message is empty")
)

// Directory- and KYC-related errors.
var (
	// ErrInvalidID is returned for malformed record ids, before any query runs.
	ErrInvalidID = errors.New("invalid id format")

	// ErrLawyerNotFound indicates that the requested lawyer record does not exist.
	ErrLawyerNotFound = errors.New("lawyer not found")

	// ErrSubmissionNotFound indicates that the requested KYC submission does
	// not exist (or its id is malformed).
	ErrSubmissionNotFound = errors.New("kyc submission not found")

	// ErrReasonRequired is returned when a KYC rejection carries no reason
	// after trimming.
	ErrReasonRequired = errors.New("rejection reason is required")

	// ErrAlreadyDecided is returned when an accept/reject targets a submission
	// that already left the pending state.
	ErrAlreadyDecided = errors.New("kyc submission already decided")

	// ErrInvalidStatus is returned for a status filter outside
	// pending/accepted/rejected.
	ErrInvalidStatus = errors.New("invalid status filter")
)
