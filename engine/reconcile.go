package engine

import (
	"sort"

	"github.com/conectabot/inbox/models"
)

// Result is the output of one reconciliation pass.
type Result struct {
	Next          *Snapshot
	Notifications []models.Notification
}

// Reconcile merges a conversation snapshot into the previous local state.
//
// For every entry, in snapshot order:
//   - first sighting: unread, no notification;
//   - known, update token changed: unread, and a notification unless the
//     conversation is openID (it stays unread while open);
//   - known, token went to or from empty: unread, no notification;
//   - known, token unchanged: the previous unread flag is kept.
//
// Server fields are overwritten, Marker is carried over, and ids missing from
// entries are dropped. The result is ordered by UpdatedAt descending, with
// ties kept in snapshot order.
//
// Reconcile does not touch previous; publish Result.Next with Store.Swap.
func Reconcile(previous *Snapshot, entries []models.RawConversation, openID string) Result {
	items := make([]models.ConversationSummary, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	var notifications []models.Notification

	for _, raw := range entries {
		if seen[raw.ID] {
			continue
		}
		seen[raw.ID] = true

		next := models.ConversationSummary{
			ID:              raw.ID,
			DisplayName:     raw.DisplayName,
			LastMessageText: raw.LastMessageText,
			UpdatedAt:       raw.UpdatedAt,
			Status:          raw.Status,
		}

		prev, known := previous.Get(raw.ID)
		if known {
			next.Marker = prev.Marker
		}

		switch {
		case !known, prev.UpdatedAt != raw.UpdatedAt:
			next.Unread = true
		default:
			next.Unread = prev.Unread
		}

		if ShouldNotify(known, prev.UpdatedAt, raw.UpdatedAt, raw.ID, openID) {
			notifications = append(notifications, models.Notification{
				ConversationID: raw.ID,
				Text:           NotificationText(raw.LastMessageText),
			})
		}

		items = append(items, next)
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].UpdatedAt > items[j].UpdatedAt
	})

	return Result{
		Next:          NewSnapshot(items),
		Notifications: notifications,
	}
}

// Diff lists what changed between two snapshots in the locally persisted
// fields: conversations whose token, unread flag or marker differ (or that are
// new), and ids that were dropped.
func Diff(prev, next *Snapshot) (changed []models.ConversationSummary, removed []string) {
	for _, c := range next.List() {
		old, ok := prev.Get(c.ID)
		if !ok || old.UpdatedAt != c.UpdatedAt || old.Unread != c.Unread || markerID(old.Marker) != markerID(c.Marker) {
			changed = append(changed, c)
		}
	}
	for _, id := range prev.IDs() {
		if _, ok := next.Get(id); !ok {
			removed = append(removed, id)
		}
	}
	return changed, removed
}

func markerID(m *models.Marker) string {
	if m == nil {
		return ""
	}
	return m.ID
}
