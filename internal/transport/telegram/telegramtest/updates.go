package telegramtest

import "encoding/json"

// Post describes a channel_post update for the fake.
type Post struct {
	UpdateID  int64
	ChatID    int64
	Username  string
	MessageID int
	Date      int64
	Text      string
	Caption   string
	// PhotoFileIDs lists photo variants from smallest to largest.
	PhotoFileIDs []string
}

// JSON renders p the way the Bot API delivers it.
func (p Post) JSON() string {
	chat := map[string]any{"id": p.ChatID, "type": "channel", "title": "Test channel"}
	if p.Username != "" {
		chat["username"] = p.Username
	}
	msg := map[string]any{
		"message_id": p.MessageID,
		"chat":       chat,
		"date":       p.Date,
	}
	if p.Text != "" {
		msg["text"] = p.Text
	}
	if p.Caption != "" {
		msg["caption"] = p.Caption
	}
	if len(p.PhotoFileIDs) > 0 {
		var photos []map[string]any
		for i, id := range p.PhotoFileIDs {
			side := 90 * (i + 1)
			photos = append(photos, map[string]any{
				"file_id":        id,
				"file_unique_id": "u" + id,
				"width":          side,
				"height":         side,
			})
		}
		msg["photo"] = photos
	}

	b, _ := json.Marshal(map[string]any{"update_id": p.UpdateID, "channel_post": msg})
	return string(b)
}

// MessageUpdate renders a non-channel update, which the sync job must skip
// while still advancing its offset.
func MessageUpdate(updateID int64) string {
	b, _ := json.Marshal(map[string]any{
		"update_id": updateID,
		"message": map[string]any{
			"message_id": 1,
			"chat":       map[string]any{"id": 1, "type": "private"},
			"date":       1700000000,
			"text":       "hi bot",
		},
	})
	return string(b)
}
