package domain

import "time"

// ChatMessage is one turn of a conversation. Attachments are stored as
// plain records, never as live blob handles.
type ChatMessage struct {
	ID          string    `json:"id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	Attachments []Record  `json:"attachments,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Chat is a persisted conversation. DeletedAt marks membership of the bin;
// binned chats can be restored or purged.
type Chat struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

// SavedMessage is a chat message the user pinned to the collection.
type SavedMessage struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ModelContent is one flattened attachment as handed to the chat completion
// endpoint. Image content is inlined as a data URI; blob handles are
// process-local and never transmitted.
type ModelContent struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Content   string `json:"content"`
}
