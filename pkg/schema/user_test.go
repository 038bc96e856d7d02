package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestUserRecordDecodeKeys(t *testing.T) {
	var rec UserRecord
	if err := json.Unmarshal([]byte(`{"email":"a@x.com","password":"p","createdAt":"2024-05-01T10:00:00Z"}`), &rec); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if rec.Email != "a@x.com" || rec.CreatedAt.Month() != time.May {
		t.Errorf("Unexpected record %+v", rec)
	}

	var legacy UserRecord
	if err := json.Unmarshal([]byte(`{"email":"b@x.com","password":"p","timestamp":"2023-02-01T00:00:00.000Z"}`), &legacy); err != nil {
		t.Fatalf("Unmarshal legacy failed: %v", err)
	}
	if legacy.CreatedAt.Year() != 2023 {
		t.Errorf("Expected legacy timestamp to populate CreatedAt, got %v", legacy.CreatedAt)
	}
}

func TestUserRecordDecodeLenientValues(t *testing.T) {
	var users Collection
	data := `[
		{"email":"a@x.com","password":"p1","timestamp":"2024-01-01"},
		{"email":"b@x.com","password":"p2","timestamp":"x"},
		{"email":"c@x.com","password":"p3","createdAt":""},
		{"email":5,"password":null},
		null,
		"stray"
	]`
	if err := json.Unmarshal([]byte(data), &users); err != nil {
		t.Fatalf("Valid array should decode, got %v", err)
	}
	if len(users) != 6 {
		t.Fatalf("Expected 6 records, got %d", len(users))
	}

	if users[0].Email != "a@x.com" || users[0].CreatedAt.Year() != 2024 || users[0].CreatedAt.Month() != time.January {
		t.Errorf("Date-only timestamp should parse, got %+v", users[0])
	}
	if users[1].Password != "p2" || !users[1].CreatedAt.IsZero() {
		t.Errorf("Unparseable timestamp should read as zero time, got %+v", users[1])
	}
	if users[2].Email != "c@x.com" || !users[2].CreatedAt.IsZero() {
		t.Errorf("Empty createdAt should read as zero time, got %+v", users[2])
	}
	for i, rec := range users[3:] {
		if rec.Email != "" || rec.Password != "" {
			t.Errorf("Record %d: non-string values should read as empty, got %+v", i+3, rec)
		}
	}
}

func TestUserRecordDecodeRejectsWrongShape(t *testing.T) {
	var users Collection
	if err := json.Unmarshal([]byte(`{"email":"a@x.com"}`), &users); err == nil {
		t.Error("An object is not a collection")
	}
}

func TestCollectionFindFirst(t *testing.T) {
	users := Collection{}.
		Append(UserRecord{Email: "a@x.com", Password: "1"}).
		Append(UserRecord{Email: "a@x.com", Password: "2"})

	rec, ok := users.FindFirst(func(u UserRecord) bool { return u.Email == "a@x.com" })
	if !ok || rec.Password != "1" {
		t.Errorf("Expected first match, got %+v", rec)
	}

	if _, ok := users.FindFirst(func(u UserRecord) bool { return u.Email == "z@x.com" }); ok {
		t.Error("Expected no match")
	}
}
