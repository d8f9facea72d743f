package codec

import (
	"bytes"
	"sync"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/palemoky/shswrite/internal/protocol"
)

// pool 带类型的 sync.Pool，归还前先重置
type pool[T any] struct {
	p     sync.Pool
	reset func(T)
}

func newPool[T any](alloc func() T, reset func(T)) *pool[T] {
	return &pool[T]{
		p:     sync.Pool{New: func() any { return alloc() }},
		reset: reset,
	}
}

func (p *pool[T]) get() T { return p.p.Get().(T) }

func (p *pool[T]) put(v T) {
	p.reset(v)
	p.p.Put(v)
}

// 读路径上复用的对象
var (
	messages = newPool(
		func() *protocol.Message { return &protocol.Message{} },
		func(m *protocol.Message) { *m = protocol.Message{} },
	)
	structs = newPool(
		func() *structpb.Struct { return &structpb.Struct{} },
		(*structpb.Struct).Reset,
	)
	buffers = newPool(
		func() *bytes.Buffer { return new(bytes.Buffer) },
		(*bytes.Buffer).Reset,
	)
)

// GetMessage 从池中取出消息
func GetMessage() *protocol.Message { return messages.get() }

// PutMessage 清空并归还消息，避免持有 Payload
func PutMessage(msg *protocol.Message) {
	if msg != nil {
		messages.put(msg)
	}
}

// GetStruct 从池中取出 protobuf Struct
func GetStruct() *structpb.Struct { return structs.get() }

// PutStruct 归还 protobuf Struct
func PutStruct(s *structpb.Struct) {
	if s != nil {
		structs.put(s)
	}
}

// GetBuffer 从池中取出缓冲区
func GetBuffer() *bytes.Buffer { return buffers.get() }

// PutBuffer 归还缓冲区，保留容量
func PutBuffer(buf *bytes.Buffer) {
	if buf != nil {
		buffers.put(buf)
	}
}
