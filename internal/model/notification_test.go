package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%q should be valid", k)
		}
	}
	for _, k := range []Kind{"", "invalid", "Like", "mention"} {
		if k.Valid() {
			t.Errorf("%q should be invalid", k)
		}
	}
}

func TestNewNotificationValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    NewNotification
		field string
	}{
		{name: "ok", in: NewNotification{Recipient: "u1", Kind: KindLike}},
		{name: "system without sender", in: NewNotification{Recipient: "u1", Kind: KindSystem, Content: "hi"}},
		{name: "missing recipient", in: NewNotification{Recipient: "  ", Kind: KindLike}, field: "recipient"},
		{name: "missing kind", in: NewNotification{Recipient: "u1"}, field: "type"},
		{name: "unknown kind", in: NewNotification{Recipient: "u1", Kind: "invalid"}, field: "type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("Validate() = %v, want ValidationError on %q", err, tt.field)
			}
			if !IsValidation(fmt.Errorf("wrapped: %w", err)) {
				t.Fatal("IsValidation should see through wrapping")
			}
		})
	}
}

func TestNotificationJSONShape(t *testing.T) {
	n := Notification{
		ID:        "n1",
		Recipient: "u1",
		Sender:    &Actor{ID: "u2", Username: "bob", FullName: "Bob", ProfileImage: "bob.png"},
		Kind:      KindLike,
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{`"type":"like"`, `"read":false`, `"username":"bob"`, `"createdAt":"2024-01-02T03:04:05Z"`} {
		if !strings.Contains(s, want) {
			t.Errorf("JSON %s missing %s", s, want)
		}
	}
	if strings.Contains(s, "relatedPost") || strings.Contains(s, "content") {
		t.Errorf("JSON %s should omit empty relatedPost and content", s)
	}
}
