package telegram

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexID accepts Telegram ids sent either as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(value))
		return nil
	}
	var value json.Number
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*f = flexID(value.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// update is the subset of a Telegram Update the adapter reads. The bot API
// sends numeric ids, but stored payloads and webhook calls may carry them
// as strings, so ids go through flexID.
type update struct {
	UpdateID flexID   `json:"update_id"`
	Message  *message `json:"message"`
}

type message struct {
	MessageID flexID `json:"message_id"`
	Text      string `json:"text"`
	Caption   string `json:"caption"`
	Date      int64  `json:"date"`
	Chat      *chat  `json:"chat"`
	From      *user  `json:"from"`
}

type chat struct {
	ID    flexID `json:"id"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

type user struct {
	ID        flexID `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

func (m *message) content() string {
	text := strings.TrimSpace(m.Text)
	if text == "" {
		text = strings.TrimSpace(m.Caption)
	}
	return text
}

func (u *user) displayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = strings.TrimSpace(u.Username)
	}
	return name
}

func parseUpdate(payload []byte) (update, error) {
	var parsed update
	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		return update{}, err
	}
	return parsed, nil
}
