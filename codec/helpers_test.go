package codec

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fix-gateway/dictionary/dictionarytest"
	"fix-gateway/fields"
)

var sendingTime = time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)

const sessionFields = "49=S\x0156=T\x0134=1\x0152=20240102-03:04:05.006\x01"

// wire frames body with BeginString, BodyLength and CheckSum
func wire(body string) []byte {
	msg := fmt.Sprintf("8=FIX.4.4\x019=%d\x01%s", len(body), body)
	return []byte(fmt.Sprintf("%s10=%03d\x01", msg, fields.Checksum([]byte(msg))))
}

func exampleCodecs(t *testing.T, opts ...Option) *Codecs {
	t.Helper()
	c, err := Compile(dictionarytest.Example(), opts...)
	require.NoError(t, err)
	return c
}

func newMessage(t *testing.T, c *Codecs, name string) *AggregateEncoder {
	t.Helper()
	enc, err := c.NewEncoder(name)
	require.NoError(t, err)

	h := enc.Header()
	require.NoError(t, h.SetString("SenderCompID", "S"))
	require.NoError(t, h.SetString("TargetCompID", "T"))
	require.NoError(t, h.SetInt("MsgSeqNum", 1))
	require.NoError(t, h.SetTime("SendingTime", sendingTime))
	return enc
}

func encode(t *testing.T, enc *AggregateEncoder) []byte {
	t.Helper()
	buf := make([]byte, 512)
	n, err := enc.Encode(buf, 0)
	require.NoError(t, err)
	return buf[:n]
}
