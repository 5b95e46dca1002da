package repository

const (
	usersCollection    = "users"
	requestsCollection = "requests"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)
