package model

import "time"

type ChannelType string

const (
	ChannelDirect ChannelType = "direct"
	ChannelGroup  ChannelType = "group"
)

type Channel struct {
	ID            int         `json:"id"`
	Name          string      `json:"name"`
	ChannelType   ChannelType `json:"channel_type"`
	Members       []int       `json:"members"`
	MembersDetail []UserRef   `json:"members_detail"`
	LastMessage   *Message    `json:"last_message"`
	CreatedAt     time.Time   `json:"created_at"`
}

type MessageAttachment struct {
	ID        int       `json:"id"`
	File      string    `json:"file"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID           int                 `json:"id"`
	Channel      int                 `json:"channel"`
	Sender       int                 `json:"sender"`
	SenderDetail UserRef             `json:"sender_detail"`
	Content      string              `json:"content"`
	Attachments  []MessageAttachment `json:"attachments,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

type Notification struct {
	ID               int            `json:"id"`
	NotificationType string         `json:"notification_type"`
	Title            string         `json:"title"`
	Message          string         `json:"message"`
	Link             string         `json:"link"`
	Read             bool           `json:"read"`
	CreatedAt        time.Time      `json:"created_at"`
	ExtraData        map[string]any `json:"extra_data"`
}

// NotificationDeadline is the type the backend uses for deadline reminders.
const NotificationDeadline = "deadline"
