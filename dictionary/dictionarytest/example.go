// Package dictionarytest provides small dictionaries for exercising codecs
// and generators in tests.
package dictionarytest

import "fix-gateway/dictionary"

// Example returns a dictionary covering every entry shape a codec has to
// handle: required and optional fields of each storage class, a data field
// with its length tag, a repeating group and a component.
//
// Messages:
//   - Heartbeat (0): optional TestReqID
//   - EgMessage (E): the full field zoo plus EgGroup and EgComponent
func Example() *dictionary.Dictionary {
	var (
		beginString      = dictionary.NewField(dictionary.BeginString, "BeginString", dictionary.TypeString)
		bodyLength       = dictionary.NewField(dictionary.BodyLength, "BodyLength", dictionary.TypeLength)
		msgType          = dictionary.NewField(dictionary.MsgType, "MsgType", dictionary.TypeString)
		senderCompID     = dictionary.NewField(dictionary.SenderCompID, "SenderCompID", dictionary.TypeString)
		targetCompID     = dictionary.NewField(dictionary.TargetCompID, "TargetCompID", dictionary.TypeString)
		msgSeqNum        = dictionary.NewField(dictionary.MsgSeqNum, "MsgSeqNum", dictionary.TypeSeqNum)
		sendingTime      = dictionary.NewField(dictionary.SendingTime, "SendingTime", dictionary.TypeUTCTimestamp)
		onBehalfOfCompID = dictionary.NewField(dictionary.OnBehalfOfCompID, "OnBehalfOfCompID", dictionary.TypeString)
		checkSum         = dictionary.NewField(dictionary.CheckSum, "CheckSum", dictionary.TypeString)

		testReqID  = dictionary.NewField(112, "TestReqID", dictionary.TypeString)
		intField   = dictionary.NewField(116, "IntField", dictionary.TypeInt)
		floatField = dictionary.NewField(117, "FloatField", dictionary.TypePrice)
		boolField  = dictionary.NewField(118, "BooleanField", dictionary.TypeBoolean)
		dataField  = dictionary.NewDataField(120, "DataField", 119)
		timeField  = dictionary.NewField(121, "SomeTimeField", dictionary.TypeUTCTimestamp)
		charField  = dictionary.NewField(122, "CharField", dictionary.TypeChar).WithValues(
			dictionary.Value{Representation: "a", Description: "ALPHA"},
			dictionary.Value{Representation: "b", Description: "BETA"},
		)

		noEgGroup     = dictionary.NewField(123, "NoEgGroup", dictionary.TypeNumInGroup)
		groupField    = dictionary.NewField(124, "GroupField", dictionary.TypeString)
		groupQty      = dictionary.NewField(125, "GroupQty", dictionary.TypeQty)
		componentText = dictionary.NewField(126, "ComponentField", dictionary.TypeString)
	)

	header := dictionary.NewHeader(
		dictionary.Required(beginString),
		dictionary.Required(bodyLength),
		dictionary.Required(msgType),
		dictionary.Required(senderCompID),
		dictionary.Required(targetCompID),
		dictionary.Required(msgSeqNum),
		dictionary.Required(sendingTime),
		dictionary.Optional(onBehalfOfCompID),
	)
	trailer := dictionary.NewTrailer(dictionary.Required(checkSum))

	group := dictionary.NewGroup("EgGroup", noEgGroup,
		dictionary.Required(groupField),
		dictionary.Optional(groupQty),
	)
	component := dictionary.NewComponent("EgComponent",
		dictionary.Optional(componentText),
	)

	return dictionary.New(header, trailer,
		dictionary.NewMessage("Heartbeat", "0", dictionary.Optional(testReqID)),
		dictionary.NewMessage("EgMessage", "E",
			dictionary.Required(intField),
			dictionary.Required(floatField),
			dictionary.Optional(testReqID),
			dictionary.Optional(boolField),
			dictionary.Optional(dataField),
			dictionary.Optional(timeField),
			dictionary.Optional(charField),
			dictionary.Optional(group),
			dictionary.Optional(component),
		),
	)
}
