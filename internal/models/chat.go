package models

// SenderRole 消息发送方
type SenderRole string

const (
	SenderDoctor SenderRole = "Doctor"
	SenderPMV    SenderRole = "PMV"
)

// MessageType 消息类型
type MessageType string

const (
	MessageText               MessageType = "Text"
	MessageImage              MessageType = "Image"
	MessageDocument           MessageType = "Document"
	MessageSystemNotification MessageType = "SystemNotification"
)

// ChatMessage 病例会话中的一条消息；创建后只有 IsRead/ReadAt 会被接收方修改
type ChatMessage struct {
	ID             string      `json:"id"`
	CaseID         string      `json:"caseId"`
	SenderID       string      `json:"senderId"`
	SenderName     string      `json:"senderName,omitempty"`
	SenderRole     SenderRole  `json:"senderRole"`
	Message        string      `json:"message"`
	MessageType    MessageType `json:"messageType,omitempty"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	AttachmentName string      `json:"attachmentName,omitempty"`
	IsRead         bool        `json:"isRead"`
	ReadAt         *Timestamp  `json:"readAt,omitempty"`
	CreatedAt      Timestamp   `json:"createdAt"`
	IsOwnMessage   bool        `json:"isOwnMessage"`
}

// ChatThread 会话概要
type ChatThread struct {
	ID            string     `json:"id"`
	CaseID        string     `json:"caseId"`
	CaseNumber    string     `json:"caseNumber"`
	DoctorID      string     `json:"doctorId"`
	DoctorName    string     `json:"doctorName,omitempty"`
	PMVID         string     `json:"pmvId"`
	PMVName       string     `json:"pmvName,omitempty"`
	LastMessage   string     `json:"lastMessage,omitempty"`
	LastMessageAt *Timestamp `json:"lastMessageAt,omitempty"`
	UnreadCount   int        `json:"unreadCount"`
	IsActive      bool       `json:"isActive"`
}

// ChatMessagesResponse GET /chat/cases/{id}/messages 的 data
type ChatMessagesResponse struct {
	CaseID     string        `json:"caseId"`
	CaseNumber string        `json:"caseNumber"`
	Thread     *ChatThread   `json:"thread,omitempty"`
	Messages   []ChatMessage `json:"messages"`
	HasMore    bool          `json:"hasMore"`
}

// SendMessageRequest 发送消息
type SendMessageRequest struct {
	CaseID         string      `json:"caseId"`
	Message        string      `json:"message"`
	MessageType    MessageType `json:"messageType,omitempty"`
	AttachmentURL  string      `json:"attachmentUrl,omitempty"`
	AttachmentName string      `json:"attachmentName,omitempty"`
}

// UnreadCounts 未读消息数
type UnreadCounts struct {
	TotalUnreadCount int            `json:"totalUnreadCount"`
	UnreadByCaseID   map[string]int `json:"unreadByCaseId"`
}
