package ctdf

import "errors"

type Notification struct {
	TargetUser string `json:"targetUser"`

	Title   string `json:"title"`
	Message string `json:"message"`
}

func (n *Notification) Validate() error {
	if n.TargetUser == "" {
		return errors.New("notification has no target user")
	}
	if n.Title == "" && n.Message == "" {
		return errors.New("notification has no content")
	}

	return nil
}
