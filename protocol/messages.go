package protocol

import (
	"fmt"

	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

// =============================================================================
// Outbound envelopes
// =============================================================================

// Message is an envelope sent by an agent to its node.
type Message interface {
	// ID is the envelope's message id. For searches it is the search id.
	ID() int32

	isMessage()
}

type RegisterDescription struct {
	MsgID       int32
	Description *schema.Description
}

type RegisterService struct {
	MsgID       int32
	Description *schema.Description
}

type UnregisterDescription struct {
	MsgID int32
}

type UnregisterService struct {
	MsgID       int32
	Description *schema.Description
}

type SearchAgents struct {
	SearchID int32
	Query    *query.Query
}

type SearchServices struct {
	SearchID int32
	Query    *query.Query
}

// SendMessage carries a Body to another agent.
type SendMessage struct {
	MsgID       int32
	DialogueID  int32
	Destination string
	Body        Body
}

func (m RegisterDescription) ID() int32   { return m.MsgID }
func (m RegisterService) ID() int32       { return m.MsgID }
func (m UnregisterDescription) ID() int32 { return m.MsgID }
func (m UnregisterService) ID() int32     { return m.MsgID }
func (m SearchAgents) ID() int32          { return m.SearchID }
func (m SearchServices) ID() int32        { return m.SearchID }
func (m SendMessage) ID() int32           { return m.MsgID }

func (RegisterDescription) isMessage()   {}
func (RegisterService) isMessage()       {}
func (UnregisterDescription) isMessage() {}
func (UnregisterService) isMessage()     {}
func (SearchAgents) isMessage()          {}
func (SearchServices) isMessage()        {}
func (SendMessage) isMessage()           {}

// =============================================================================
// Agent-to-agent bodies
// =============================================================================

// Body is the payload exchanged between agents: Content or one of the FIPA
// negotiation messages CFP, Propose, Accept and Decline.
type Body interface {
	isBody()
}

// Content is an opaque application payload.
type Content struct {
	Data []byte
}

// CFP is a call for proposals. Query is nil, RawPayload or QueryPayload.
type CFP struct {
	Target int32
	Query  CFPPayload
}

// Propose answers a CFP. Proposals is RawPayload or Proposals.
type Propose struct {
	Target    int32
	Proposals ProposePayload
}

type Accept struct {
	Target int32
}

type Decline struct {
	Target int32
}

func (Content) isBody() {}
func (CFP) isBody()     {}
func (Propose) isBody() {}
func (Accept) isBody()  {}
func (Decline) isBody() {}

// CFPPayload is the optional content of a CFP.
type CFPPayload interface {
	isCFPPayload()
}

// ProposePayload is the content of a Propose.
type ProposePayload interface {
	isProposePayload()
}

// RawPayload is opaque bytes in a CFP or Propose.
type RawPayload []byte

// QueryPayload is a CFP that describes what is wanted with a Query.
type QueryPayload struct {
	Query *query.Query
}

// Proposals is a Propose made of descriptions.
type Proposals []*schema.Description

func (RawPayload) isCFPPayload()     {}
func (RawPayload) isProposePayload() {}
func (QueryPayload) isCFPPayload()   {}
func (Proposals) isProposePayload()  {}

// =============================================================================
// Inbound notifications
// =============================================================================

// ServerMessage is a notification from the node to an agent.
type ServerMessage interface {
	isServerMessage()
}

// SearchResult answers SearchAgents or SearchServices.
type SearchResult struct {
	SearchID int32
	Agents   []string
}

// OEFError reports a failed registry operation.
type OEFError struct {
	AnswerID  int32
	Operation ErrorOperation
}

// DialogueError reports a message the node could not deliver.
type DialogueError struct {
	AnswerID   int32
	DialogueID int32
	Origin     string
}

// Delivery is a Body relayed from the agent Origin.
type Delivery struct {
	MsgID      int32
	DialogueID int32
	Origin     string
	Body       Body
}

func (SearchResult) isServerMessage()  {}
func (OEFError) isServerMessage()      {}
func (DialogueError) isServerMessage() {}
func (Delivery) isServerMessage()      {}

// ErrorOperation names the operation an OEFError refers to. The numeric
// values are the wire enumeration.
type ErrorOperation int32

const (
	OpRegisterService       ErrorOperation = 0
	OpUnregisterService     ErrorOperation = 1
	OpRegisterDescription   ErrorOperation = 2
	OpUnregisterDescription ErrorOperation = 3
	OpSearchServices        ErrorOperation = 4
	OpSearchAgents          ErrorOperation = 5
	OpSendMessage           ErrorOperation = 6
)

func (op ErrorOperation) String() string {
	switch op {
	case OpRegisterService:
		return "register_service"
	case OpUnregisterService:
		return "unregister_service"
	case OpRegisterDescription:
		return "register_description"
	case OpUnregisterDescription:
		return "unregister_description"
	case OpSearchServices:
		return "search_services"
	case OpSearchAgents:
		return "search_agents"
	case OpSendMessage:
		return "send_message"
	default:
		return fmt.Sprintf("operation(%d)", int32(op))
	}
}

// BodyKind names a Body for logs and metric labels.
func BodyKind(b Body) string {
	switch b.(type) {
	case Content:
		return "content"
	case CFP:
		return "cfp"
	case Propose:
		return "propose"
	case Accept:
		return "accept"
	case Decline:
		return "decline"
	default:
		return "unknown"
	}
}

// ServerMessageKind names a ServerMessage for logs and metric labels.
// Deliveries are named after their body.
func ServerMessageKind(m ServerMessage) string {
	switch m := m.(type) {
	case SearchResult:
		return "search_result"
	case OEFError:
		return "oef_error"
	case DialogueError:
		return "dialogue_error"
	case Delivery:
		return BodyKind(m.Body)
	default:
		return "unknown"
	}
}
