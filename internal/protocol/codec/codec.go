// Package codec 负责消息在线路上的编解码（JSON 文本帧或 protobuf 二进制帧）
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/shswrite/internal/protocol"
)

// Codec 消息编解码器
type Codec interface {
	Name() string
	// Binary 为 true 时使用二进制帧发送
	Binary() bool
	Encode(msg *protocol.Message) ([]byte, error)
	// DecodeInto 解码到调用方提供的消息，便于复用对象池
	DecodeInto(data []byte, msg *protocol.Message) error
}

// 编码名称
const (
	NameJSON     = "json"
	NameProtobuf = "protobuf"
)

var (
	jsonCodec     Codec = JSON{}
	protobufCodec Codec = Protobuf{}
)

// ForName 按名称获取编解码器，未知或空名称返回 JSON
func ForName(name string) Codec {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameProtobuf, "pb", "proto":
		return protobufCodec
	default:
		return jsonCodec
	}
}

// Decode 解码为新的消息
func Decode(c Codec, data []byte) (*protocol.Message, error) {
	msg := &protocol.Message{}
	if err := c.DecodeInto(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// JSON 文本帧编解码
type JSON struct{}

func (JSON) Name() string { return NameJSON }

func (JSON) Binary() bool { return false }

func (JSON) Encode(msg *protocol.Message) ([]byte, error) {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if err := json.NewEncoder(buf).Encode(msg); err != nil {
		return nil, err
	}
	// Encoder 会追加换行
	out := make([]byte, buf.Len()-1)
	copy(out, buf.Bytes())
	return out, nil
}

func (JSON) DecodeInto(data []byte, msg *protocol.Message) error {
	if err := json.Unmarshal(data, msg); err != nil {
		return err
	}
	if msg.Type == "" {
		return protocol.ErrEmptyType
	}
	return nil
}

// Protobuf 二进制帧编解码，载荷为 google.protobuf.Struct{type, payload}
type Protobuf struct{}

func (Protobuf) Name() string { return NameProtobuf }

func (Protobuf) Binary() bool { return true }

func (Protobuf) Encode(msg *protocol.Message) ([]byte, error) {
	fields := map[string]any{"type": string(msg.Type)}
	if len(msg.Payload) > 0 {
		var payload any
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		fields["payload"] = payload
	}

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return proto.Marshal(s)
}

func (Protobuf) DecodeInto(data []byte, msg *protocol.Message) error {
	s := GetStruct()
	defer PutStruct(s)

	if err := proto.Unmarshal(data, s); err != nil {
		return err
	}

	typ := s.GetFields()["type"].GetStringValue()
	if typ == "" {
		return protocol.ErrEmptyType
	}
	msg.Type = protocol.MessageType(typ)
	msg.Payload = nil

	if v, ok := s.GetFields()["payload"]; ok {
		raw, err := json.Marshal(v.AsInterface())
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		msg.Payload = raw
	}
	return nil
}
