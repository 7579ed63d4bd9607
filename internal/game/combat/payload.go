package combat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// attackKey is the JSON field carrying the attack strength.
const attackKey = "attack"

// ErrMalformedAttack is returned for lines that look like attacks but cannot be parsed.
var ErrMalformedAttack = errors.New("malformed attack payload")

// IsAttackLine reports whether line should be treated as an attack payload.
// Any line mentioning the attack key qualifies; plain chat that does not is relayed.
func IsAttackLine(line string) bool {
	return strings.Contains(line, attackKey)
}

// ParseAttack extracts the integer attack strength from a JSON object such as
// {"attack": 15}.
//
// Postcondition: Returns the strength, or an error wrapping ErrMalformedAttack for
// non-JSON input, a missing key, a non-integer value, or a value outside int32.
func ParseAttack(line string) (int, error) {
	line = strings.TrimSpace(line)
	if !gjson.Valid(line) {
		return 0, fmt.Errorf("%w: not valid JSON", ErrMalformedAttack)
	}
	root := gjson.Parse(line)
	if !root.IsObject() {
		return 0, fmt.Errorf("%w: expected a JSON object", ErrMalformedAttack)
	}

	v := root.Get(attackKey)
	if !v.Exists() {
		return 0, fmt.Errorf("%w: missing %q field", ErrMalformedAttack, attackKey)
	}
	if v.Type != gjson.Number {
		return 0, fmt.Errorf("%w: %q must be a number, got %s", ErrMalformedAttack, attackKey, v.Type)
	}

	// Raw keeps the literal so 15.0 or 1e3 are refused rather than truncated.
	n, err := strconv.ParseInt(v.Raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q must be an integer, got %s", ErrMalformedAttack, attackKey, v.Raw)
	}
	return int(n), nil
}
