package containerrpc

import "google.golang.org/protobuf/types/known/structpb"

// Reply field names.
const (
	FieldContainer = "container"
	FieldMessage   = "message"
	FieldPolicy    = "policy"
	FieldConsumed  = "consumed"
	FieldEmpty     = "empty"
)

// MaxExactValue is the largest item value a reply carries without loss.
// Struct numbers are float64, so values above 2^53 are rounded.
const MaxExactValue int64 = 1 << 53

// Reply builds a reply carrying values and, when non-empty, message. Values
// above MaxExactValue lose precision.
func Reply(values []int64, message string) *structpb.Struct {
	list := make([]*structpb.Value, len(values))
	for i, v := range values {
		list[i] = structpb.NewNumberValue(float64(v))
	}
	s := &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldContainer: structpb.NewListValue(&structpb.ListValue{Values: list}),
	}}
	if message != "" {
		s.Fields[FieldMessage] = structpb.NewStringValue(message)
	}
	return s
}

// ConsumeReply builds the reply for a consume that removed value under policy.
func ConsumeReply(values []int64, message, policy string, value int64) *structpb.Struct {
	s := Reply(values, message)
	s.Fields[FieldPolicy] = structpb.NewStringValue(policy)
	s.Fields[FieldConsumed] = structpb.NewNumberValue(float64(value))
	return s
}

// EmptyReply builds the reply for IsEmpty.
func EmptyReply(empty bool) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		FieldEmpty: structpb.NewBoolValue(empty),
	}}
}

// Values extracts the container values from a reply. Missing or malformed
// fields yield an empty slice. Values are exact up to MaxExactValue.
func Values(s *structpb.Struct) []int64 {
	lv := s.GetFields()[FieldContainer].GetListValue()
	out := make([]int64, 0, len(lv.GetValues()))
	for _, v := range lv.GetValues() {
		out = append(out, int64(v.GetNumberValue()))
	}
	return out
}

// Message returns the reply's message, or "".
func Message(s *structpb.Struct) string {
	return s.GetFields()[FieldMessage].GetStringValue()
}

// Policy returns the removal policy reported by a consume reply, or "".
func Policy(s *structpb.Struct) string {
	return s.GetFields()[FieldPolicy].GetStringValue()
}

// Consumed returns the removed value from a consume reply and whether one
// was present.
func Consumed(s *structpb.Struct) (int64, bool) {
	v, ok := s.GetFields()[FieldConsumed]
	if !ok {
		return 0, false
	}
	return int64(v.GetNumberValue()), true
}

// Empty returns the flag carried by an IsEmpty reply.
func Empty(s *structpb.Struct) bool {
	return s.GetFields()[FieldEmpty].GetBoolValue()
}
