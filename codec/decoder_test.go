package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fix-gateway/dictionary"
	"fix-gateway/metrics"
	"fix-gateway/validation"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := exampleCodecs(t)
	enc := newMessage(t, c, "EgMessage")
	require.NoError(t, enc.Header().SetString("OnBehalfOfCompID", "OBO"))
	require.NoError(t, enc.SetInt("IntField", 7))
	require.NoError(t, enc.SetDecimal("FloatField", decimal.RequireFromString("99.5")))
	require.NoError(t, enc.SetBool("BooleanField", true))
	require.NoError(t, enc.SetData("DataField", []byte("x\x01y")))
	require.NoError(t, enc.SetTime("SomeTimeField", sendingTime))
	require.NoError(t, enc.SetChar("CharField", 'a'))
	for _, v := range []string{"g1", "g2", "g3"} {
		g, err := enc.AddGroup("EgGroup")
		require.NoError(t, err)
		require.NoError(t, g.SetString("GroupField", v))
	}
	comp, err := enc.Component("EgComponent")
	require.NoError(t, err)
	require.NoError(t, comp.SetString("ComponentField", "inside"))

	raw := encode(t, enc)

	dec, err := c.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	defer c.Release(dec)

	assert.True(t, dec.Valid())
	assert.Equal(t, "EgMessage", dec.Name())
	assert.Equal(t, len(raw), dec.Frame().Length)

	sender, err := dec.Header().GetString("SenderCompID")
	require.NoError(t, err)
	assert.Equal(t, "S", sender)
	obo, err := dec.Header().GetString("OnBehalfOfCompID")
	require.NoError(t, err)
	assert.Equal(t, "OBO", obo)
	seq, err := dec.Header().GetInt("MsgSeqNum")
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)
	ts, err := dec.Header().GetTime("SendingTime")
	require.NoError(t, err)
	assert.True(t, sendingTime.Equal(ts))

	i, err := dec.GetInt("IntField")
	require.NoError(t, err)
	assert.Equal(t, int64(7), i)
	d, err := dec.GetDecimal("FloatField")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("99.5")))
	b, err := dec.GetBool("BooleanField")
	require.NoError(t, err)
	assert.True(t, b)
	data, err := dec.GetData("DataField")
	require.NoError(t, err)
	assert.Equal(t, []byte("x\x01y"), data)
	ch, err := dec.GetChar("CharField")
	require.NoError(t, err)
	assert.Equal(t, byte('a'), ch)
	assert.False(t, dec.Has("TestReqID"))

	require.Equal(t, 3, dec.GroupCount("EgGroup"))
	g, err := dec.Group("EgGroup", 2)
	require.NoError(t, err)
	gv, err := g.GetString("GroupField")
	require.NoError(t, err)
	assert.Equal(t, "g3", gv)

	dc, err := dec.Component("EgComponent")
	require.NoError(t, err)
	cv, err := dc.GetString("ComponentField")
	require.NoError(t, err)
	assert.Equal(t, "inside", cv)

	sum, err := dec.Trailer().GetString("CheckSum")
	require.NoError(t, err)
	assert.Equal(t, string(raw[len(raw)-4:len(raw)-1]), sum)
}

func TestDecoderDumpOmitsGroups(t *testing.T) {
	c := exampleCodecs(t)
	raw := wire("35=E\x01" + sessionFields + "116=1\x01117=2\x01123=1\x01124=a\x01")

	dec, err := c.NewDecoder("E")
	require.NoError(t, err)
	n, err := dec.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)
	assert.Equal(t, 1, dec.GroupCount("EgGroup"))

	dump := dec.String()
	assert.Contains(t, dump, `"MsgType": "EgMessage"`)
	assert.Contains(t, dump, `"SenderCompID": "S"`)
	assert.Contains(t, dump, `"IntField": 1`)
	assert.NotContains(t, dump, "EgGroup")
}

func TestDumpHeaderBlockLayout(t *testing.T) {
	c := exampleCodecs(t)
	raw := wire("35=0\x01" + sessionFields)
	dec, err := c.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	defer c.Release(dec)

	// the block's name comes first, the header's MsgType field keeps its place
	assert.True(t, strings.HasPrefix(dec.String(), `{
  "MsgType": "Heartbeat",
  "header": {
    "MsgType": "Header",
    "BeginString": "FIX.4.4",
    "BodyLength": 45,
    "MsgType": "0",
    "SenderCompID": "S",`), dec.String())
}

func TestDecodeSkipsUnknownTags(t *testing.T) {
	c := exampleCodecs(t)
	raw := wire("35=0\x01" + sessionFields + "9999=zzz\x01112=id\x01")

	dec, err := c.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	defer c.Release(dec)

	id, err := dec.GetString("TestReqID")
	require.NoError(t, err)
	assert.Equal(t, "id", id)
}

func TestDecodeFramingErrors(t *testing.T) {
	c := exampleCodecs(t)
	good := wire("35=0\x01" + sessionFields)

	badSum := append([]byte(nil), good...)
	badSum[len(badSum)-2] ^= 1

	tests := []struct {
		name string
		raw  []byte
		want error
	}{
		{"checksum", badSum, ErrBadChecksum},
		{"truncated", good[:len(good)-3], ErrTruncated},
		{"begin string", []byte("9=5\x0135=0\x0110=000\x01"), ErrBadBeginString},
		{"other begin string", bytes.Replace(good, []byte("FIX.4.4"), []byte("FIX.4.2"), 1), ErrBadBeginString},
		{"unknown message", wire("35=Q\x01" + sessionFields), ErrUnknownMessage},
		{"msg type not first", wire(sessionFields + "35=0\x01"), ErrUnknownMessage},
		{"group count", wire("35=E\x01" + sessionFields + "116=1\x01117=2\x01123=2\x01124=a\x01"), ErrBadGroupCount},
		{"bad int", wire("35=E\x01" + sessionFields + "116=x\x01117=2\x01"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decode(tt.raw, 0, len(tt.raw))
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestValidityReportsMissingRequiredFields(t *testing.T) {
	c := exampleCodecs(t)

	raw := wire("35=0\x0156=T\x0134=1\x0152=20240102-03:04:05.006\x01")
	dec, err := c.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	assert.False(t, dec.Valid())
	assert.Equal(t, dictionary.SenderCompID, dec.InvalidTag())
	c.Release(dec)

	raw = wire("35=E\x01" + sessionFields + "117=2\x01")
	dec, err = c.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	assert.Equal(t, 116, dec.InvalidTag())
	c.Release(dec)
}

func TestValiditySwitchControlsMsgTypeCheck(t *testing.T) {
	header := dictionary.NewHeader(
		dictionary.Required(dictionary.NewField(dictionary.BeginString, "BeginString", dictionary.TypeString)),
		dictionary.Required(dictionary.NewField(dictionary.BodyLength, "BodyLength", dictionary.TypeLength)),
		dictionary.Required(dictionary.NewField(dictionary.MsgType, "MsgType", dictionary.TypeString)),
	)
	trailer := dictionary.NewTrailer(
		dictionary.Required(dictionary.NewField(dictionary.CheckSum, "CheckSum", dictionary.TypeString)),
	)
	dict := dictionary.New(header, trailer, dictionary.NewMessage("Odd", "X_"))
	raw := wire("35=X_\x01")

	strict, err := Compile(dict, WithValidator(validation.New(true)))
	require.NoError(t, err)
	dec, err := strict.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	assert.False(t, dec.Valid())
	assert.Equal(t, dictionary.MsgType, dec.InvalidTag())

	trusting, err := Compile(dict, WithValidator(validation.FromNoValidation(true)))
	require.NoError(t, err)
	dec, err = trusting.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	assert.True(t, dec.Valid())
}

func TestNonMessageDecoderReadsFieldsOnly(t *testing.T) {
	c := exampleCodecs(t)
	dec, err := c.NewDecoder("EgGroup")
	require.NoError(t, err)

	raw := []byte("124=a\x01125=2.5\x01")
	n, err := dec.Decode(raw, 0, len(raw))
	require.NoError(t, err)
	assert.Equal(t, len(raw), n)

	qty, err := dec.GetDecimal("GroupQty")
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.RequireFromString("2.5")))
	assert.True(t, dec.Valid())
}

func TestPooledDecodeRecordsMetrics(t *testing.T) {
	m := metrics.NewCodec(prometheus.NewRegistry(), "test")
	c := exampleCodecs(t, WithMetrics(m))
	raw := wire("35=0\x01" + sessionFields)

	for i := 0; i < 3; i++ {
		dec, err := c.Decode(raw, 0, len(raw))
		require.NoError(t, err)
		c.Release(dec)
	}
	_, err := c.Decode(raw[:10], 0, 10)
	require.Error(t, err)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.Decoded.WithLabelValues("0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Errors.WithLabelValues("truncated")))
	assert.Equal(t, []string{"0", "E"}, c.MessageTypes())
}

func TestCompileRejectsInvalidDictionary(t *testing.T) {
	_, err := Compile(dictionary.New(nil, nil))
	assert.ErrorIs(t, err, dictionary.ErrMissingHeader)
}
