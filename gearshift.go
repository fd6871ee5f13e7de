package gearshift

import (
	"errors"
	"strconv"
	"strings"
)

// MessageType is the single-byte code that prefixes every status message sent by the shifter
type MessageType byte

const (
	MessageStartup      MessageType = 'S'
	MessageShutdown     MessageType = 'X'
	MessageAcknowledge  MessageType = 'A'
	MessageError        MessageType = 'E'
	MessageDebug        MessageType = 'D'
	MessageGearChanging MessageType = 'C'
	MessageGearChanged  MessageType = 'G'
)

func (mt MessageType) String() string {
	switch mt {
	case MessageStartup:
		return "Startup"
	case MessageShutdown:
		return "Shutdown"
	case MessageAcknowledge:
		return "Acknowledge"
	case MessageError:
		return "Error"
	case MessageDebug:
		return "Debug"
	case MessageGearChanging:
		return "GearChanging"
	case MessageGearChanged:
		return "GearChanged"
	default:
		return "Unknown"
	}
}

// Valid reports whether mt is one of the known status codes
func (mt MessageType) Valid() bool {
	return mt.String() != "Unknown"
}

// MarshalText encodes mt as its single-byte code so JSON records read like the serial stream
func (mt MessageType) MarshalText() ([]byte, error) {
	return []byte{byte(mt)}, nil
}

func (mt *MessageType) UnmarshalText(b []byte) error {
	if len(b) != 1 || !MessageType(b[0]).Valid() {
		return errors.New("invalid message type: " + strconv.Quote(string(b)))
	}
	*mt = MessageType(b[0])
	return nil
}

// Message is a tagged status event with a free-text payload
type Message struct {
	Type    MessageType
	Payload string
}

var ErrInvalidMessage = errors.New("invalid message")

// Startup, Shutdown, etc. build the status messages emitted by the controller
func Startup() Message     { return Message{Type: MessageStartup} }
func Shutdown() Message    { return Message{Type: MessageShutdown} }
func Acknowledge() Message { return Message{Type: MessageAcknowledge} }

func Error(msg string) Message { return Message{Type: MessageError, Payload: msg} }
func Debug(msg string) Message { return Message{Type: MessageDebug, Payload: msg} }

func GearChanging() Message { return Message{Type: MessageGearChanging} }

// GearChanged reports the achieved gear. Gears are 0-indexed on the wire
func GearChanged(gear int) Message {
	return Message{Type: MessageGearChanged, Payload: strconv.Itoa(gear)}
}

// Gear parses the payload of a GearChanged message
func (m Message) Gear() (int, error) {
	if m.Type != MessageGearChanged {
		return 0, errors.New("not a gear changed message: " + m.Type.String())
	}
	return strconv.Atoi(m.Payload)
}

// Encode frames the message as the type byte, the payload, then a newline.
// Newlines inside the payload are replaced so a message is always one line
func (m Message) Encode() []byte {
	payload := strings.ReplaceAll(m.Payload, "\n", " ")
	out := make([]byte, 0, len(payload)+2)
	out = append(out, byte(m.Type))
	out = append(out, payload...)
	return append(out, '\n')
}

func (m Message) String() string {
	if m.Payload == "" {
		return m.Type.String()
	}
	return m.Type.String() + ": " + m.Payload
}

// ParseMessage decodes a single framed line. The trailing newline (and a carriage return) is optional
func ParseMessage(line string) (Message, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return Message{}, ErrInvalidMessage
	}

	mt := MessageType(line[0])
	if !mt.Valid() {
		return Message{}, errors.New("invalid message type: " + strconv.QuoteRune(rune(line[0])))
	}

	return Message{Type: mt, Payload: line[1:]}, nil
}

// Intent is a discrete request from the input device
type Intent int

const (
	IntentNone Intent = iota
	IntentUp
	IntentDown
	IntentDebug
)

func (i Intent) String() string {
	switch i {
	case IntentUp:
		return "Up"
	case IntentDown:
		return "Down"
	case IntentDebug:
		return "Debug"
	}
	return "None"
}

// Delta is the gear offset requested by the intent
func (i Intent) Delta() int {
	switch i {
	case IntentUp:
		return +1
	case IntentDown:
		return -1
	default:
		return 0
	}
}
