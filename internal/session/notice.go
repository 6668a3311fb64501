package session

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
)

// Notice is a user-facing message queued on the session until the next
// response picks it up.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

const (
	msgCartCleared    = "Cart cleared"
	msgCartLoadFailed = "We could not load your saved cart. Your current cart was kept."
)
