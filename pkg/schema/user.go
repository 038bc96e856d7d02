// Package schema defines the data structures persisted by the Celerix account store.
package schema

import (
	"encoding/json"
	"time"
)

// UserRecord is one registered account as it is written to the users file.
// Records are appended once and never edited.
type UserRecord struct {
	Email     string    `json:"email"`
	Password  string    `json:"password"`
	CreatedAt time.Time `json:"createdAt"`
}

// timeLayouts are tried in order when reading a record's creation time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// UnmarshalJSON is lenient: any JSON value is accepted as a record. The older
// "timestamp" key is read when "createdAt" is absent, unparseable times become
// the zero time, and non-string email or password values read as empty.
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	*u = UserRecord{}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object (null, number, array...): an empty record never matches.
		return nil
	}

	u.Email = stringField(raw["email"])
	u.Password = stringField(raw["password"])
	if t, ok := timeField(raw["createdAt"]); ok {
		u.CreatedAt = t
	} else if t, ok := timeField(raw["timestamp"]); ok {
		u.CreatedAt = t
	}
	return nil
}

func stringField(raw json.RawMessage) string {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

func timeField(raw json.RawMessage) (time.Time, bool) {
	s := stringField(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Collection is the ordered set of records held in the users file.
// Insertion order is significant: lookups return the first match.
type Collection []UserRecord

// Append returns the collection with rec added at the end.
func (c Collection) Append(rec UserRecord) Collection {
	return append(c, rec)
}

// FindFirst returns the first record for which match reports true.
func (c Collection) FindFirst(match func(UserRecord) bool) (UserRecord, bool) {
	for _, rec := range c {
		if match(rec) {
			return rec, true
		}
	}
	return UserRecord{}, false
}
