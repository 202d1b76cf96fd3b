package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadCommentID = errors.New("invalid comment id")

// CommentID is a sequential row id that clients only ever see in base 36.
type CommentID int64

func (id CommentID) String() string {
	return strconv.FormatInt(int64(id), 36)
}

// ParseCommentID decodes the base-36 form. Input is case-insensitive;
// negative values and overflow are rejected.
func ParseCommentID(s string) (CommentID, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return 0, fmt.Errorf("%w: %q", ErrBadCommentID, s)
	}
	n, err := strconv.ParseInt(strings.ToLower(s), 36, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadCommentID, s)
	}
	return CommentID(n), nil
}

func (id CommentID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

func (id *CommentID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCommentID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
