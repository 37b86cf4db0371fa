package topic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Topic names a delivery channel: user:<id>, field:<id> or global.
type Topic string

const Global Topic = "global"

const (
	userPrefix  = "user:"
	fieldPrefix = "field:"
)

var ErrInvalidTopic = errors.New("invalid topic")

func User(id int64) Topic {
	return Topic(userPrefix + strconv.FormatInt(id, 10))
}

func Field(id int64) Topic {
	return Topic(fieldPrefix + strconv.FormatInt(id, 10))
}

// Parse validates a topic received from a client.
func Parse(raw string) (Topic, error) {
	raw = strings.TrimSpace(raw)

	if raw == string(Global) {
		return Global, nil
	}

	for _, prefix := range []string{userPrefix, fieldPrefix} {
		if rest, ok := strings.CutPrefix(raw, prefix); ok {
			id, err := strconv.ParseInt(rest, 10, 64)
			if err != nil || id <= 0 {
				return "", fmt.Errorf("%w: %q", ErrInvalidTopic, raw)
			}
			return Topic(prefix + strconv.FormatInt(id, 10)), nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrInvalidTopic, raw)
}

// UserID returns the id of a user topic.
func (t Topic) UserID() (int64, bool) {
	return t.id(userPrefix)
}

// FieldID returns the id of a field topic.
func (t Topic) FieldID() (int64, bool) {
	return t.id(fieldPrefix)
}

// Kind is the part before the colon, used as a metrics label.
func (t Topic) Kind() string {
	kind, _, _ := strings.Cut(string(t), ":")
	return kind
}

func (t Topic) String() string {
	return string(t)
}

func (t Topic) id(prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(string(t), prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
