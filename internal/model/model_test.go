package model

import (
	"encoding/json"
	"testing"
)

func TestMessageInvolves(t *testing.T) {
	t.Parallel()

	direct := Message{ID: 1, FromUserID: 1, ToUserIDs: []int64{2}}
	broadcast := Message{ID: 2, FromUserID: 1, ToUserIDs: []int64{2, 3, 4}}

	cases := []struct {
		name string
		msg  Message
		a, b int64
		want bool
	}{
		{"direct_sender_first", direct, 1, 2, true},
		{"direct_symmetric", direct, 2, 1, true},
		{"direct_unrelated", direct, 1, 3, false},
		{"broadcast_sender_and_recipient", broadcast, 1, 3, true},
		{"broadcast_between_recipients", broadcast, 2, 3, false},
		{"broadcast_outsider", broadcast, 1, 5, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.msg.Involves(tc.a, tc.b); got != tc.want {
				t.Fatalf("Involves(%d, %d) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestUserLabel(t *testing.T) {
	t.Parallel()

	plain := User{FirstName: "Anna", LastName: "Ivanova"}
	if got := plain.Label(); got != "Anna Ivanova" {
		t.Fatalf("Label() = %q, want %q", got, "Anna Ivanova")
	}

	named := User{FirstName: "Anna", LastName: "Ivanova", DisplayName: "Anya"}
	if got := named.Label(); got != "Anya" {
		t.Fatalf("Label() = %q, want %q", got, "Anya")
	}
}

func TestRoleIsValid(t *testing.T) {
	t.Parallel()

	if !RoleOwner.IsValid() || !RoleMember.IsValid() {
		t.Fatal("known roles reported invalid")
	}
	if Role("superuser").IsValid() {
		t.Fatal("unknown role reported valid")
	}
}

// The wire contract mixes conventions: records are snake_case, the
// updates envelope uses a camelCase newMessages key, and the password
// hash must never serialize.
func TestWireFieldNames(t *testing.T) {
	t.Parallel()

	ts := int64(1700000000000)
	u := User{
		ID:        1,
		Email:     "anna@mymail.local",
		FirstName: "Anna",
		LastName:  "Ivanova",
		IsOnline:  true,
		LastSeen:  &ts,

		PasswordHash: "$argon2id$...",
	}

	data, err := json.Marshal(Updates{Users: []User{u}, NewMessages: []Message{}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if _, ok := raw["newMessages"]; !ok {
		t.Fatalf("envelope keys = %v, want newMessages", keys(raw))
	}

	var users []map[string]json.RawMessage
	if err := json.Unmarshal(raw["users"], &users); err != nil {
		t.Fatalf("unmarshal users: %v", err)
	}
	rec := users[0]
	for _, field := range []string{"first_name", "last_name", "is_online", "last_seen"} {
		if _, ok := rec[field]; !ok {
			t.Errorf("record missing %s, has %v", field, keys(rec))
		}
	}
	for field := range rec {
		if field == "PasswordHash" || field == "password_hash" {
			t.Fatal("password hash leaked into the wire format")
		}
	}
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
