package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestMessagePool_GetPut(t *testing.T) {
	t.Parallel()

	msg := GetMessage()
	assert.NotNil(t, msg)

	msg.Type = "test"
	msg.Payload = []byte("data")

	PutMessage(msg)

	// Get again - should be reset
	msg2 := GetMessage()
	assert.NotNil(t, msg2)
	assert.Empty(t, msg2.Type)
	assert.Nil(t, msg2.Payload)
}

func TestMessagePool_PutNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		PutMessage(nil)
		PutStruct(nil)
		PutBuffer(nil)
	})
}

func TestStructPool_GetPut(t *testing.T) {
	t.Parallel()

	s := GetStruct()
	assert.NotNil(t, s)
	s.Fields = map[string]*structpb.Value{"type": structpb.NewStringValue("ping")}

	PutStruct(s)

	s2 := GetStruct()
	assert.Empty(t, s2.GetFields())
}

func TestBufferPool_GetPut(t *testing.T) {
	t.Parallel()

	buf := GetBuffer()
	buf.WriteString("hello")
	PutBuffer(buf)

	buf2 := GetBuffer()
	assert.Equal(t, 0, buf2.Len())
}

func TestPools_Concurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			for range 100 {
				msg := GetMessage()
				msg.Type = "x"
				PutMessage(msg)

				buf := GetBuffer()
				buf.WriteByte('x')
				PutBuffer(buf)
			}
		})
	}
	wg.Wait()
}
