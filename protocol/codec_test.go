package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/oef-go/query"
	"github.com/BaSui01/oef-go/schema"
)

func TestEncodeMessage_NilPayloads(t *testing.T) {
	_, err := EncodeMessage(nil)
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = EncodeMessage(RegisterService{MsgID: 1})
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = EncodeMessage(SearchAgents{SearchID: 1})
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = EncodeMessage(SendMessage{MsgID: 1, Destination: "b"})
	assert.ErrorIs(t, err, ErrNilPayload)

	_, err = EncodeMessage(SendMessage{MsgID: 1, Destination: "b", Body: Propose{}})
	assert.ErrorIs(t, err, ErrNilPayload)
}

func TestDecodeMessage_UnknownPayload(t *testing.T) {
	// An envelope with only a message id.
	data := appendInt32Field(nil, envMsgID, 7)
	_, err := DecodeMessage(data)
	assert.ErrorIs(t, err, ErrUnknownPayload)

	// A server message carrying a field number this version does not know.
	data = appendInt32Field(nil, srvAnswerID, 7)
	data = appendStringField(data, 42, "future")
	_, err = DecodeServerMessage(data)
	assert.ErrorIs(t, err, ErrUnknownPayload)
}

func TestDecodeMessage_SkipsUnknownFields(t *testing.T) {
	data, err := EncodeMessage(UnregisterDescription{MsgID: 3})
	require.NoError(t, err)
	data = appendStringField(data, 99, "ignored")

	msg, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, UnregisterDescription{MsgID: 3}, msg)
}

func TestDecodeMessage_Malformed(t *testing.T) {
	_, err := DecodeMessage([]byte{0xff})
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSendMessage_CFPWithoutPayload(t *testing.T) {
	original := SendMessage{MsgID: 1, DialogueID: 2, Destination: "seller", Body: CFP{Target: 0}}
	data, err := EncodeMessage(original)
	require.NoError(t, err)

	decoded, err := DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
	assert.Nil(t, decoded.(SendMessage).Body.(CFP).Query)
}

func TestSendMessage_LargeContent(t *testing.T) {
	payload := make([]byte, 70000)
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	data, err := EncodeServerMessage(Delivery{MsgID: 0, DialogueID: 0, Origin: "a", Body: Content{Data: payload}})
	require.NoError(t, err)

	msg, err := DecodeServerMessage(data)
	require.NoError(t, err)
	assert.Equal(t, payload, msg.(Delivery).Body.(Content).Data)
}

func TestUnmarshalQuery_RejectsInvalidQuery(t *testing.T) {
	model, err := schema.NewDataModel("m", []schema.AttributeSchema{
		{Name: "foo", Type: schema.AttributeTypeInt, Required: true},
	}, "")
	require.NoError(t, err)

	// Encode a query whose constraint does not fit the model, bypassing NewQuery.
	bad := &query.Query{
		Constraints: []query.ConstraintExpr{query.NewConstraint("bar", query.Gt(schema.IntValue(1)))},
		Model:       model,
	}
	data, err := MarshalQuery(bad)
	require.NoError(t, err)

	_, err = UnmarshalQuery(data)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, query.ErrIncompatibleModel)
}

func TestErrorOperation_String(t *testing.T) {
	assert.Equal(t, "unregister_service", OpUnregisterService.String())
	assert.Equal(t, "operation(42)", ErrorOperation(42).String())
}

func TestKinds(t *testing.T) {
	assert.Equal(t, "cfp", BodyKind(CFP{}))
	assert.Equal(t, "decline", BodyKind(Decline{}))
	assert.Equal(t, "unknown", BodyKind(nil))
	assert.Equal(t, "search_result", ServerMessageKind(SearchResult{}))
	assert.Equal(t, "propose", ServerMessageKind(Delivery{Body: Propose{}}))
	assert.Equal(t, "dialogue_error", ServerMessageKind(DialogueError{}))
}
