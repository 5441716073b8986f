package entity

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so the transport
// layer can map failures without knowing every specific error.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
)

// Domain errors for direct messaging
var (
	// Validation errors
	ErrMissingUserID      = fmt.Errorf("%w: user id is required", ErrValidation)
	ErrMissingID          = fmt.Errorf("%w: id is required", ErrValidation)
	ErrEmptyMessage       = fmt.Errorf("%w: message must have content or an attachment", ErrValidation)
	ErrMessageTooLong     = fmt.Errorf("%w: message exceeds maximum length", ErrValidation)
	ErrInvalidPagination  = fmt.Errorf("%w: page and limit must be positive integers", ErrValidation)
	ErrInvalidAttachment  = fmt.Errorf("%w: attachment url is malformed", ErrValidation)
	ErrAttachmentTooLarge = fmt.Errorf("%w: attachment exceeds maximum size", ErrValidation)

	// Lookup errors
	ErrConversationNotFound = fmt.Errorf("conversation %w", ErrNotFound)
	ErrMessageNotFound      = fmt.Errorf("message %w", ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrReplyTargetNotFound  = fmt.Errorf("reply target %w", ErrNotFound)

	// Authorization errors
	ErrNotParticipant   = fmt.Errorf("%w: user is not a participant of this conversation", ErrForbidden)
	ErrNotMessageSender = fmt.Errorf("%w: only the sender can modify this message", ErrForbidden)

	ErrSelfConversation = fmt.Errorf("%w: cannot start a conversation with yourself", ErrConflict)

	// Time-window and mutability errors
	ErrEditWindowExpired     = fmt.Errorf("%w: messages can only be edited within 15 minutes", ErrInvalidState)
	ErrAttachmentNotEditable = fmt.Errorf("%w: messages with attachments cannot be edited", ErrInvalidState)
	ErrDeleteWindowExpired   = fmt.Errorf("%w: messages can only be deleted for everyone within 7 days", ErrInvalidState)
)
