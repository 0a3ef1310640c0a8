package engine

// FallbackNotificationText is used when a changed conversation has no last message text.
const FallbackNotificationText = "Nuevo mensaje"

// TokenChanged reports a genuine upstream change: both tokens are known and differ.
func TokenChanged(prevToken, nextToken string) bool {
	return prevToken != "" && nextToken != "" && prevToken != nextToken
}

// ShouldNotify is true iff the conversation was already known, its update
// token changed, and it is not the open conversation.
//
// Since every pass starts from the previous pass's output, a given token
// transition is seen once and fires at most once.
func ShouldNotify(known bool, prevToken, nextToken, id, openID string) bool {
	return known && TokenChanged(prevToken, nextToken) && id != openID
}

// NotificationText returns the text shown for a changed conversation.
func NotificationText(lastMessage string) string {
	if lastMessage == "" {
		return FallbackNotificationText
	}
	return lastMessage
}
