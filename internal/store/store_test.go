package store

import (
	"reflect"
	"testing"

	"github.com/mymail/mymail/internal/model"
)

func msg(id, from int64, to ...int64) model.Message {
	return model.Message{ID: id, FromUserID: from, ToUserIDs: to, Text: "m", Timestamp: id * 1000}
}

func ids(messages []model.Message) []int64 {
	out := make([]int64, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ID)
	}
	return out
}

func TestAppendDeduplicates(t *testing.T) {
	t.Parallel()

	s := New()

	batch := []model.Message{msg(1, 1, 2), msg(2, 2, 1), msg(3, 1, 2)}

	if got := s.Append(batch); got != 3 {
		t.Fatalf("first append inserted %d, want 3", got)
	}
	if got := s.Append(batch); got != 0 {
		t.Fatalf("re-delivery inserted %d, want 0", got)
	}
	if s.Len() != 3 {
		t.Fatalf("store holds %d messages, want 3", s.Len())
	}

	// A batch mixing known and unknown IDs inserts only the unknown.
	mixed := []model.Message{msg(2, 2, 1), msg(4, 2, 1)}
	if got := s.Append(mixed); got != 1 {
		t.Fatalf("mixed append inserted %d, want 1", got)
	}
	if got := ids(s.All()); !reflect.DeepEqual(got, []int64{1, 2, 3, 4}) {
		t.Fatalf("stored order = %v, want [1 2 3 4]", got)
	}
}

func TestAppendEmpty(t *testing.T) {
	t.Parallel()

	s := New()
	if got := s.Append(nil); got != 0 {
		t.Fatalf("empty append inserted %d, want 0", got)
	}
	if s.Len() != 0 {
		t.Fatalf("store not empty after empty append")
	}
}

func TestBetween(t *testing.T) {
	t.Parallel()

	s := New()
	s.Append([]model.Message{
		msg(1, 1, 2),       // direct 1 -> 2
		msg(2, 2, 1),       // direct 2 -> 1
		msg(3, 1, 3),       // direct 1 -> 3
		msg(4, 1, 2, 3, 4), // broadcast from 1
		msg(5, 3, 4),       // direct 3 -> 4
	})

	cases := []struct {
		name string
		a, b int64
		want []int64
	}{
		{"direct_both_directions", 1, 2, []int64{1, 2, 4}},
		{"symmetric", 2, 1, []int64{1, 2, 4}},
		{"broadcast_reaches_each_recipient", 1, 3, []int64{3, 4}},
		{"broadcast_not_between_recipients", 2, 3, nil},
		{"unrelated_pair", 2, 4, nil},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := ids(s.Between(tc.a, tc.b))
			if len(tc.want) == 0 && len(got) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Between(%d, %d) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestAllReturnsCopy(t *testing.T) {
	t.Parallel()

	s := New()
	s.Append([]model.Message{msg(1, 1, 2)})

	all := s.All()
	all[0].Text = "mutated"

	if s.All()[0].Text != "m" {
		t.Fatal("mutating the returned slice leaked into the store")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	s := New()
	s.Append([]model.Message{msg(1, 1, 2), msg(2, 2, 1)})
	s.Clear()

	if s.Len() != 0 {
		t.Fatalf("store holds %d messages after Clear, want 0", s.Len())
	}

	// Previously seen IDs are forgotten: a new session may legitimately
	// re-deliver them.
	if got := s.Append([]model.Message{msg(1, 1, 2)}); got != 1 {
		t.Fatalf("append after Clear inserted %d, want 1", got)
	}
}
