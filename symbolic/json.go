package symbolic

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// ============================================================
// JSON Serialization
// ============================================================

func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// ToMap returns the JSON object form of e.
func ToMap(e Expr) map[string]interface{} { return e.toJSON() }

// DecodeJSON parses a JSON document produced by ToJSON.
func DecodeJSON(s string) (Expr, error) {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, fmt.Errorf("decode expression: %w", err)
	}
	return FromJSON(data)
}

type jsonNode struct {
	typ  string
	data map[string]interface{}
}

func (n jsonNode) object(field string) (map[string]interface{}, error) {
	v, ok := n.data[field]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", n.typ, field)
	}
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %q must be an object", n.typ, field)
	}
	return m, nil
}

func (n jsonNode) str(field string) (string, error) {
	v, ok := n.data[field]
	if !ok {
		return "", fmt.Errorf("%s: missing %q", n.typ, field)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s: %q must be a non-empty string", n.typ, field)
	}
	return s, nil
}

func (n jsonNode) children(field string) ([]Expr, error) {
	v, ok := n.data[field]
	if !ok {
		return nil, fmt.Errorf("%s: missing %q", n.typ, field)
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %q must be an array", n.typ, field)
	}
	out := make([]Expr, len(raw))
	for i, it := range raw {
		m, ok := it.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q[%d] must be an object", n.typ, field, i)
		}
		e, err := FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %s[%d]: %w", n.typ, field, i, err)
		}
		out[i] = e
	}
	return out, nil
}

func (n jsonNode) child(field string) (Expr, error) {
	m, err := n.object(field)
	if err != nil {
		return nil, err
	}
	e, err := FromJSON(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %s: %w", n.typ, field, err)
	}
	return e, nil
}

// FromJSON rebuilds an expression from its decoded JSON object form.
func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typAny, ok := data["type"]
	if !ok {
		return nil, fmt.Errorf("missing 'type' field")
	}
	typ, ok := typAny.(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}
	node := jsonNode{typ: typ, data: data}

	switch typ {
	case "num":
		val, err := node.str("value")
		if err != nil {
			return nil, err
		}
		r, ok := new(big.Rat).SetString(val)
		if !ok {
			return nil, fmt.Errorf("invalid num value: %s", val)
		}
		approx, _ := data["approx"].(bool)
		return &Num{val: r, approx: approx}, nil

	case "sym":
		name, err := node.str("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil

	case "const":
		name, err := node.str("name")
		if err != nil {
			return nil, err
		}
		c, ok := constByName(name)
		if !ok {
			return nil, fmt.Errorf("unknown constant: %s", name)
		}
		return c, nil

	case "add":
		terms, err := node.children("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil

	case "mul":
		factors, err := node.children("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil

	case "pow":
		base, err := node.child("base")
		if err != nil {
			return nil, err
		}
		exp, err := node.child("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil

	case "func":
		name, err := node.str("name")
		if err != nil {
			return nil, err
		}
		arg, err := node.child("arg")
		if err != nil {
			return nil, err
		}
		e, ok := FuncByName(name, arg)
		if !ok {
			return nil, fmt.Errorf("unknown function: %s", name)
		}
		return e, nil
	}
	return nil, fmt.Errorf("unknown expression type: %s", typ)
}
