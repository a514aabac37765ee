package dictionary

// FieldType is the FIX semantic type of a field
type FieldType int

const (
	TypeString FieldType = iota
	TypeChar
	TypeBoolean
	TypeInt
	TypeLength
	TypeSeqNum
	TypeNumInGroup
	TypeFloat
	TypePrice
	TypeQty
	TypeData
	TypeUTCTimestamp
	TypeUTCTimeOnly
	TypeUTCDateOnly
	TypeLocalMktDate
)

var fieldTypeNames = [...]string{
	TypeString:       "STRING",
	TypeChar:         "CHAR",
	TypeBoolean:      "BOOLEAN",
	TypeInt:          "INT",
	TypeLength:       "LENGTH",
	TypeSeqNum:       "SEQNUM",
	TypeNumInGroup:   "NUMINGROUP",
	TypeFloat:        "FLOAT",
	TypePrice:        "PRICE",
	TypeQty:          "QTY",
	TypeData:         "DATA",
	TypeUTCTimestamp: "UTCTIMESTAMP",
	TypeUTCTimeOnly:  "UTCTIMEONLY",
	TypeUTCDateOnly:  "UTCDATEONLY",
	TypeLocalMktDate: "LOCALMKTDATE",
}

func (t FieldType) String() string {
	if t < 0 || int(t) >= len(fieldTypeNames) {
		return "UNKNOWN"
	}
	return fieldTypeNames[t]
}

// Storage is the in-memory representation a codec uses for a field.
// Several FIX types share one storage class, e.g. Int, Length and SeqNum
// are all held as int64.
type Storage int

const (
	StorageBytes Storage = iota
	StorageChar
	StorageBool
	StorageInt
	StorageDecimal
	StorageData
	StorageTime
)

// Storage returns the storage class for the type
func (t FieldType) Storage() Storage {
	switch t {
	case TypeChar:
		return StorageChar
	case TypeBoolean:
		return StorageBool
	case TypeInt, TypeLength, TypeSeqNum, TypeNumInGroup:
		return StorageInt
	case TypeFloat, TypePrice, TypeQty:
		return StorageDecimal
	case TypeData:
		return StorageData
	case TypeUTCTimestamp, TypeUTCTimeOnly, TypeUTCDateOnly, TypeLocalMktDate:
		return StorageTime
	default:
		return StorageBytes
	}
}

// Value is one enumerated value of a field, e.g. Side 1=BUY
type Value struct {
	Representation string
	Description    string
}

// Field is a named, typed leaf value. Fields are immutable schema objects
// shared by pointer across every aggregate that contains them.
type Field struct {
	Name   string
	Number int
	Type   FieldType
	Values []Value

	// LengthNumber is the tag of the length field that precedes a Data
	// field on the wire. Zero when the field carries no explicit length.
	LengthNumber int
}

// NewField creates a field without enumerated values
func NewField(number int, name string, fieldType FieldType) *Field {
	return &Field{
		Name:   name,
		Number: number,
		Type:   fieldType,
	}
}

// NewDataField creates a Data field whose length is carried in lengthNumber
func NewDataField(number int, name string, lengthNumber int) *Field {
	return &Field{
		Name:         name,
		Number:       number,
		Type:         TypeData,
		LengthNumber: lengthNumber,
	}
}

// WithValues attaches enumerated values and returns the field
func (f *Field) WithValues(values ...Value) *Field {
	f.Values = append(f.Values, values...)
	return f
}

// ElementName implements Element
func (f *Field) ElementName() string { return f.Name }

func (*Field) element() {}
