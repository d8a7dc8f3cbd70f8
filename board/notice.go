// ABOUTME: User-facing notices describing the outcome of the last operation
// ABOUTME: Each notice carries a kind, the operation name and a message
package board

import "time"

// NoticeKind classifies the outcome of the last board operation.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeSuccess
	NoticeValidation
	NoticeRemoteFailure
	NoticeIntegrity
	NoticePartial
	NoticeRedirect
	NoticeCancelled
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeSuccess:
		return "success"
	case NoticeValidation:
		return "validation"
	case NoticeRemoteFailure:
		return "remote_failure"
	case NoticeIntegrity:
		return "integrity"
	case NoticePartial:
		return "partial"
	case NoticeRedirect:
		return "redirect"
	case NoticeCancelled:
		return "cancelled"
	}
	return "none"
}

// Notice is the user-facing message for one operation. Presentation layers
// render Message as-is and never need the underlying error.
type Notice struct {
	Kind    NoticeKind
	Op      string
	Message string
	At      time.Time
}

// IsError reports whether the notice should be shown as a failure.
func (n Notice) IsError() bool {
	switch n.Kind {
	case NoticeValidation, NoticeRemoteFailure, NoticeIntegrity, NoticePartial:
		return true
	}
	return false
}
