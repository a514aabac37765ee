package dictionary

// Standard header and trailer tags every codec treats specially: the
// framing fields 8, 9 and 10 are computed during encoding, and MsgType is
// always the third field of a message.
const (
	BeginString      = 8
	BodyLength       = 9
	CheckSum         = 10
	MsgSeqNum        = 34
	MsgType          = 35
	SenderCompID     = 49
	SendingTime      = 52
	TargetCompID     = 56
	OnBehalfOfCompID = 115

	// SOH separates fields on the wire
	SOH byte = 0x01

	DefaultBeginString = "FIX.4.4"
)

// IsFramingTag reports whether tag is computed by the framing layer
func IsFramingTag(tag int) bool {
	return tag == BeginString || tag == BodyLength || tag == CheckSum || tag == MsgType
}

// Session returns the FIX 4.4 session-level dictionary: the standard
// header and trailer plus the administrative messages a gateway
// exchanges with its counterparties.
func Session() *Dictionary {
	var (
		beginString      = NewField(BeginString, "BeginString", TypeString)
		bodyLength       = NewField(BodyLength, "BodyLength", TypeLength)
		msgType          = NewField(MsgType, "MsgType", TypeString)
		senderCompID     = NewField(SenderCompID, "SenderCompID", TypeString)
		targetCompID     = NewField(TargetCompID, "TargetCompID", TypeString)
		onBehalfOfCompID = NewField(OnBehalfOfCompID, "OnBehalfOfCompID", TypeString)
		deliverToCompID  = NewField(128, "DeliverToCompID", TypeString)
		msgSeqNum        = NewField(MsgSeqNum, "MsgSeqNum", TypeSeqNum)
		possDupFlag      = NewField(43, "PossDupFlag", TypeBoolean)
		possResend       = NewField(97, "PossResend", TypeBoolean)
		sendingTime      = NewField(SendingTime, "SendingTime", TypeUTCTimestamp)
		origSendingTime  = NewField(122, "OrigSendingTime", TypeUTCTimestamp)

		signature = NewDataField(89, "Signature", 93)
		checkSum  = NewField(CheckSum, "CheckSum", TypeString)

		testReqID      = NewField(112, "TestReqID", TypeString)
		beginSeqNo     = NewField(7, "BeginSeqNo", TypeSeqNum)
		endSeqNo       = NewField(16, "EndSeqNo", TypeSeqNum)
		refSeqNum      = NewField(45, "RefSeqNum", TypeSeqNum)
		refTagID       = NewField(371, "RefTagID", TypeInt)
		refMsgType     = NewField(372, "RefMsgType", TypeString)
		text           = NewField(58, "Text", TypeString)
		gapFillFlag    = NewField(123, "GapFillFlag", TypeBoolean)
		newSeqNo       = NewField(36, "NewSeqNo", TypeSeqNum)
		heartBtInt     = NewField(108, "HeartBtInt", TypeInt)
		rawData        = NewDataField(96, "RawData", 95)
		resetSeqNum    = NewField(141, "ResetSeqNumFlag", TypeBoolean)
		nextExpected   = NewField(789, "NextExpectedMsgSeqNum", TypeSeqNum)
		maxMessageSize = NewField(383, "MaxMessageSize", TypeLength)
		noMsgTypes     = NewField(384, "NoMsgTypes", TypeNumInGroup)
		username       = NewField(553, "Username", TypeString)
		password       = NewField(554, "Password", TypeString)

		sessionRejectReason = NewField(373, "SessionRejectReason", TypeInt).WithValues(
			Value{"0", "INVALID_TAG_NUMBER"},
			Value{"1", "REQUIRED_TAG_MISSING"},
			Value{"2", "TAG_NOT_DEFINED_FOR_THIS_MESSAGE_TYPE"},
			Value{"5", "VALUE_IS_INCORRECT"},
			Value{"9", "COMPID_PROBLEM"},
			Value{"11", "INVALID_MSGTYPE"},
		)
		encryptMethod = NewField(98, "EncryptMethod", TypeInt).WithValues(
			Value{"0", "NONE_OTHER"},
		)
		msgDirection = NewField(385, "MsgDirection", TypeChar).WithValues(
			Value{"S", "SEND"},
			Value{"R", "RECEIVE"},
		)
	)

	header := NewHeader(
		Required(beginString),
		Required(bodyLength),
		Required(msgType),
		Required(senderCompID),
		Required(targetCompID),
		Optional(onBehalfOfCompID),
		Optional(deliverToCompID),
		Required(msgSeqNum),
		Optional(possDupFlag),
		Optional(possResend),
		Required(sendingTime),
		Optional(origSendingTime),
	)
	trailer := NewTrailer(
		Optional(signature),
		Required(checkSum),
	)

	msgTypes := NewGroup("MsgTypes", noMsgTypes,
		Optional(refMsgType),
		Optional(msgDirection),
	)

	return New(header, trailer,
		NewMessage("Heartbeat", "0", Optional(testReqID)),
		NewMessage("TestRequest", "1", Required(testReqID)),
		NewMessage("ResendRequest", "2", Required(beginSeqNo), Required(endSeqNo)),
		NewMessage("Reject", "3",
			Required(refSeqNum),
			Optional(refTagID),
			Optional(refMsgType),
			Optional(sessionRejectReason),
			Optional(text),
		),
		NewMessage("SequenceReset", "4", Optional(gapFillFlag), Required(newSeqNo)),
		NewMessage("Logout", "5", Optional(text)),
		NewMessage("Logon", "A",
			Required(encryptMethod),
			Required(heartBtInt),
			Optional(rawData),
			Optional(resetSeqNum),
			Optional(nextExpected),
			Optional(maxMessageSize),
			Optional(msgTypes),
			Optional(username),
			Optional(password),
		),
	)
}
