package amqp

import (
	"testing"

	"spendtrack/internal/core"
)

func TestMutationMessageRoundTrip(t *testing.T) {
	msg := NewMutationMessage(OpCreate, "u1", core.Transaction{
		ID:       "local-abc",
		Type:     core.Expense,
		Category: "food",
		Amount:   -12.5,
		Date:     "2024-01-10",
	})

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := MutationMessageFromJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Op != OpCreate || got.UID != "u1" || got.Transaction != msg.Transaction {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestMutationMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := MutationMessageFromJSON([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}
