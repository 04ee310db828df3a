package entity

import "time"

type Message struct {
	ID         string    `json:"id" firestore:"id"`
	RoomID     string    `json:"room_id" firestore:"roomId"`
	SenderID   string    `json:"sender_id" firestore:"senderId"`
	SenderRole string    `json:"sender_role" firestore:"senderRole"` // "buyer", "seller", "agent"
	Text       string    `json:"text" firestore:"text"`
	Timestamp  time.Time `json:"timestamp" firestore:"timestamp"` // server-assigned, orders the room's log
}
