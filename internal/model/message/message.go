package message

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Category discriminates the message union.
type Category string

const (
	CategoryRequest        Category = "request"
	CategoryNotification   Category = "notification"
	CategoryAcknowledgment Category = "acknowledgment"
	CategoryError          Category = "error"
)

// ErrorKind classifies routing failures surfaced as error messages.
type ErrorKind string

const (
	KindNoHandler           ErrorKind = "NO_HANDLER"
	KindInvalidFormat       ErrorKind = "INVALID_MESSAGE_FORMAT"
	KindUnsupportedDataType ErrorKind = "UNSUPPORTED_DATA_TYPE"
	KindHandlerError        ErrorKind = "HANDLER_ERROR"
)

// ErrMissingID indicates a message without a correlation id. Unlike routing
// failures this is a caller programming error and surfaces as a Go error.
var ErrMissingID = errors.New("message id is required")

// ErrUnsupportedDataType is returned by handlers that recognize the request
// category but not its data type. The mediator maps it to an error message
// with kind UNSUPPORTED_DATA_TYPE.
var ErrUnsupportedDataType = errors.New("unsupported data type")

// Envelope carries the routing metadata shared by every variant.
type Envelope struct {
	ID            string `json:"id"`
	SourceContext string `json:"sourceContext"`
	TargetContext string `json:"targetContext"`
}

// Message is the closed union over the four categories. Only Request,
// Notification, Acknowledgment and ErrorResponse implement it.
type Message interface {
	Category() Category
	Meta() Envelope
}

// Request asks a target context to perform an operation identified by DataType.
type Request struct {
	Envelope
	DataType string         `json:"dataType"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Notification informs all interested contexts about an event.
type Notification struct {
	Envelope
	NotificationType string         `json:"notificationType"`
	Payload          map[string]any `json:"payload,omitempty"`
}

// Acknowledgment is the success response to a request or notification.
type Acknowledgment struct {
	Envelope
	InResponseTo string         `json:"inResponseTo"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// ErrorResponse is the failure response to a request. Routing failures are
// always delivered this way, never as Go errors.
type ErrorResponse struct {
	Envelope
	InResponseTo string    `json:"inResponseTo"`
	Kind         ErrorKind `json:"kind"`
	Message      string    `json:"message"`
}

func (r *Request) Category() Category        { return CategoryRequest }
func (n *Notification) Category() Category   { return CategoryNotification }
func (a *Acknowledgment) Category() Category { return CategoryAcknowledgment }
func (e *ErrorResponse) Category() Category  { return CategoryError }

func (r *Request) Meta() Envelope        { return r.Envelope }
func (n *Notification) Meta() Envelope   { return n.Envelope }
func (a *Acknowledgment) Meta() Envelope { return a.Envelope }
func (e *ErrorResponse) Meta() Envelope  { return e.Envelope }

// NewRequest builds a request with a fresh correlation id.
func NewRequest(source, target, dataType string, payload map[string]any) *Request {
	return &Request{
		Envelope: Envelope{
			ID:            uuid.NewString(),
			SourceContext: source,
			TargetContext: target,
		},
		DataType: dataType,
		Payload:  payload,
	}
}

// NewNotification builds a broadcast notification. Target is left empty.
func NewNotification(source, notificationType string, payload map[string]any) *Notification {
	return &Notification{
		Envelope: Envelope{
			ID:            uuid.NewString(),
			SourceContext: source,
		},
		NotificationType: notificationType,
		Payload:          payload,
	}
}

// NewAcknowledgment builds the success response for the given request.
func NewAcknowledgment(req *Request, payload map[string]any) *Acknowledgment {
	return &Acknowledgment{
		Envelope: Envelope{
			ID:            uuid.NewString(),
			SourceContext: req.TargetContext,
			TargetContext: req.SourceContext,
		},
		InResponseTo: req.ID,
		Payload:      payload,
	}
}

// NewError builds the failure response for the given request.
func NewError(req *Request, kind ErrorKind, msg string) *ErrorResponse {
	return &ErrorResponse{
		Envelope: Envelope{
			ID:            uuid.NewString(),
			SourceContext: req.TargetContext,
			TargetContext: req.SourceContext,
		},
		InResponseTo: req.ID,
		Kind:         kind,
		Message:      msg,
	}
}

// Validate checks the structural fields every variant must carry.
func (e Envelope) Validate() error {
	if e.ID == "" {
		return ErrMissingID
	}
	if e.SourceContext == "" {
		return fmt.Errorf("message %s: source context is required", e.ID)
	}
	return nil
}
