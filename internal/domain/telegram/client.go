package telegram

// Broadcaster posts a plain-text message to a fixed team chat.
type Broadcaster interface {
	Broadcast(text string) error
}
