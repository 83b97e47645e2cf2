package scrmsg

import (
	"github.com/pkg/errors"
	"strconv"
	"strings"
	"unicode"
)

// significant digits used when formatting values
const precision = 8

type Entry struct {
	Key    string
	Values []float64
}

// Message is an ordered list of entries as they appear on the wire.
type Message []Entry

type ProtocolError struct {
	Offset int
	Reason string
}

func (e *ProtocolError) Error() string {
	return "scr protocol error at offset " + strconv.Itoa(e.Offset) + ": " + e.Reason
}

type EncodingError struct {
	Key string
}

func (e *EncodingError) Error() string {
	return "invalid scr key " + strconv.Quote(e.Key)
}

func (m Message) Get(key string) ([]float64, bool) {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Key == key {
			return m[i].Values, true
		}
	}
	return nil, false
}

// Float returns the first value stored under key.
func (m Message) Float(key string) (float64, bool) {
	v, ok := m.Get(key)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}

// Set replaces the values of an existing key or appends a new entry.
func (m *Message) Set(key string, values ...float64) {
	for i := range *m {
		if (*m)[i].Key == key {
			(*m)[i].Values = values
			return
		}
	}
	*m = append(*m, Entry{Key: key, Values: values})
}

func (m Message) Keys() []string {
	keys := make([]string, 0, len(m))
	for _, e := range m {
		keys = append(keys, e.Key)
	}
	return keys
}

func Encode(m Message) (string, error) {
	var sb strings.Builder
	for _, e := range m {
		if !validKey(e.Key) {
			return "", &EncodingError{Key: e.Key}
		}
		sb.WriteByte('(')
		sb.WriteString(e.Key)
		for _, v := range e.Values {
			sb.WriteByte(' ')
			sb.WriteString(FormatValue(v))
		}
		sb.WriteByte(')')
	}
	return sb.String(), nil
}

func FormatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', precision, 64)
}

func validKey(key string) bool {
	if key == "" {
		return false
	}
	return !strings.ContainsAny(key, "()") && strings.IndexFunc(key, unicode.IsSpace) < 0
}

func Decode(raw string) (Message, error) {
	m := Message{}
	start := len(raw) - len(strings.TrimLeft(raw, whitespace))
	body := strings.TrimRight(raw, whitespace)

	for i := start; i < len(body); {
		c := body[i]
		switch {
		case isSpace(c):
			i++
			continue
		case c == ')':
			return nil, &ProtocolError{Offset: i, Reason: "unbalanced ')'"}
		case c != '(':
			return nil, &ProtocolError{Offset: i, Reason: "unexpected text outside group"}
		}

		end := strings.IndexAny(body[i+1:], "()")
		if end < 0 {
			return nil, &ProtocolError{Offset: i, Reason: "unbalanced '('"}
		}
		end += i + 1
		if body[end] == '(' {
			return nil, &ProtocolError{Offset: end, Reason: "nested '('"}
		}

		entry, err := decodeEntry(body[i+1:end], i+1)
		if err != nil {
			return nil, err
		}
		m = append(m, entry)
		i = end + 1
	}
	return m, nil
}

func decodeEntry(group string, offset int) (Entry, error) {
	tokens := strings.Fields(group)
	if len(tokens) == 0 {
		return Entry{}, &ProtocolError{Offset: offset, Reason: "empty group"}
	}
	entry := Entry{
		Key:    tokens[0],
		Values: make([]float64, 0, len(tokens)-1),
	}
	for _, tok := range tokens[1:] {
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return Entry{}, &ProtocolError{
				Offset: offset,
				Reason: errors.Wrapf(err, "value of %s", entry.Key).Error(),
			}
		}
		entry.Values = append(entry.Values, v)
	}
	return entry, nil
}

const whitespace = " \t\r\n\v\f\x00"

func isSpace(c byte) bool {
	return strings.IndexByte(whitespace, c) >= 0
}
