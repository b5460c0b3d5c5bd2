package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// validationError marks a request body that failed parsing or coercion
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(format string, args ...interface{}) error {
	return &validationError{msg: fmt.Sprintf(format, args...)}
}

// decodeUpsert parses an upsert body. city must be a JSON string;
// population may be an integer, an integral float or a numeric string.
func decodeUpsert(body io.Reader) (UpsertRequest, error) {
	var raw struct {
		City       json.RawMessage `json:"city"`
		Population json.RawMessage `json:"population"`
	}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return UpsertRequest{}, invalid("invalid JSON body: %v", err)
	}

	if isNull(raw.City) {
		return UpsertRequest{}, invalid("city: field required")
	}
	if isNull(raw.Population) {
		return UpsertRequest{}, invalid("population: field required")
	}

	var req UpsertRequest
	if err := json.Unmarshal(raw.City, &req.City); err != nil {
		return UpsertRequest{}, invalid("city: str type expected")
	}

	n, err := coerceInt(raw.Population)
	if err != nil {
		return UpsertRequest{}, invalid("population: %v", err)
	}
	req.Population = n

	return req, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

var errNotInteger = errors.New("value is not a valid integer")

func coerceInt(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, errNotInteger
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, errNotInteger
		}
		return n, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var num json.Number
	if err := dec.Decode(&num); err != nil {
		return 0, errNotInteger
	}
	if n, err := num.Int64(); err == nil {
		return n, nil
	}

	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, errNotInteger
	}
	return int64(f), nil
}
