package protocol

import (
	"encoding/json"
	"errors"
)

// ErrEmptyType 消息缺少类型字段
var ErrEmptyType = errors.New("message type is empty")

// NewMessage 创建一个新消息
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	var data json.RawMessage
	if payload != nil {
		var err error
		data, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}
	return &Message{
		Type:    msgType,
		Payload: data,
	}, nil
}

// MustNewMessage 创建消息，失败时 panic
func MustNewMessage(msgType MessageType, payload any) *Message {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return msg
}

// Encode 将消息编码为 JSON 字节
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Decode 从 JSON 字节解码消息
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Type == "" {
		return nil, ErrEmptyType
	}
	return &msg, nil
}

// ParsePayload 解析消息的 Payload 到指定类型，空 Payload 按 {} 解析
func ParsePayload[T any](msg *Message) (*T, error) {
	data := []byte(msg.Payload)
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	var payload T
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// NewErrorMessage 按错误码创建提示消息
func NewErrorMessage(code int) *Message {
	return NewErrorMessageWithText(code, ErrorMessages[code])
}

// NewErrorMessageWithText 创建带自定义文本的提示消息
func NewErrorMessageWithText(code int, text string) *Message {
	msg, _ := NewMessage(MsgMessageBox, MessageBoxPayload{
		Title:   TitleWarning,
		Content: text,
		Code:    code,
	})
	return msg
}

// NewNoticeMessage 创建普通提示消息
func NewNoticeMessage(title, content string) *Message {
	msg, _ := NewMessage(MsgMessageBox, MessageBoxPayload{
		Title:   title,
		Content: content,
	})
	return msg
}
