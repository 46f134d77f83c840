package marshal

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/rhuss/codebridge/pkg/api"
)

func TestDecodeReplyAccept(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   any
	}{
		{name: "string", result: `"sunny"`, want: "sunny"},
		{name: "number", result: `42`, want: float64(42)},
		{name: "null", result: `null`, want: nil},
		{name: "list", result: `[1,2,3]`, want: []any{float64(1), float64(2), float64(3)}},
		{name: "mapping", result: `{"temp":21}`, want: map[string]any{"temp": float64(21)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeReply(api.Accept(map[string]any{"result": tt.result}), "get-weather")
			if err != nil {
				t.Fatalf("DecodeReply failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeReply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeReplyDecline(t *testing.T) {
	outcome := api.Decline(map[string]any{"error": "city not found"})

	_, err := DecodeReply(outcome, "get-weather")
	if err == nil {
		t.Fatal("expected error for decline, got nil")
	}
	var declined *api.ToolDeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("expected *api.ToolDeclinedError, got %T", err)
	}
	if !strings.Contains(declined.Error(), "get-weather") {
		t.Errorf("error message %q should name the tool", declined.Error())
	}
	if !strings.Contains(declined.Error(), "city not found") {
		t.Errorf("error message %q should embed the decline error", declined.Error())
	}
}

func TestDecodeReplyRetryDecline(t *testing.T) {
	outcome := api.Decline(map[string]any{
		"retry": `{"tool_name":"send-email","tool_call_id":"abc123","message":"add a recipient"}`,
	})

	_, err := DecodeReply(outcome, "send-email")
	var declined *api.ToolDeclinedError
	if !errors.As(err, &declined) {
		t.Fatalf("expected *api.ToolDeclinedError, got %v", err)
	}
	msg := declined.Error()
	if !strings.Contains(msg, "send-email") || !strings.Contains(msg, "add a recipient") {
		t.Errorf("retry message %q should name the tool and the retry content", msg)
	}
}

func TestDecodeReplyMalformed(t *testing.T) {
	tests := []struct {
		name    string
		outcome api.Outcome
	}{
		{name: "missing result entry", outcome: api.Accept(map[string]any{"data": "{}"})},
		{name: "result not a string", outcome: api.Accept(map[string]any{"result": 42})},
		{name: "result not JSON", outcome: api.Accept(map[string]any{"result": "{"})},
		{name: "unknown action", outcome: api.Outcome{Action: "cancel"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeReply(tt.outcome, "get-weather"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}
