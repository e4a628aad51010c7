// Package schema validates registration documents against a declarative tree of
// node descriptors and exports the same tree as a JSON Schema document.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
)

// Node is one element of a schema tree.
type Node interface {
	// check appends violations for value found at path. nullable is set when an
	// enclosing Nullable already accepted null, so type errors can mention it.
	check(path string, value any, nullable bool, out *[]string)
	jsonSchema() *jsonschema.Schema
}

// Validate walks root and returns every violation in deterministic order.
// A nil result means the value conforms.
func Validate(root Node, value any) []string {
	var out []string
	root.check("", value, false, &out)
	return out
}

// Property is a named child of an object node.
type Property struct {
	Name string
	Node Node
}

// Prop declares an object property.
func Prop(name string, node Node) Property {
	return Property{Name: name, Node: node}
}

// ObjectNode accepts JSON objects.
type ObjectNode struct {
	props    []Property
	required []string
	closed   bool
}

// Object declares an object with properties in the given order.
func Object(props ...Property) *ObjectNode {
	return &ObjectNode{props: props}
}

// Require marks properties as required.
func (o *ObjectNode) Require(names ...string) *ObjectNode {
	o.required = append(o.required, names...)
	return o
}

// Closed rejects properties that were not declared.
func (o *ObjectNode) Closed() *ObjectNode {
	o.closed = true
	return o
}

func (o *ObjectNode) declared(name string) bool {
	return slices.ContainsFunc(o.props, func(p Property) bool { return p.Name == name })
}

func (o *ObjectNode) check(path string, value any, nullable bool, out *[]string) {
	obj, ok := value.(map[string]any)
	if !ok {
		report(out, path, typeMessage(value, "object", nullable))
		return
	}

	var missing []string
	for _, name := range o.required {
		if _, present := obj[name]; !present {
			missing = append(missing, name)
		}
	}
	slices.Sort(missing)
	for _, name := range missing {
		report(out, path, fmt.Sprintf("%s is a required property", quote(name)))
	}

	if o.closed {
		var extra []string
		for name := range obj {
			if !o.declared(name) {
				extra = append(extra, name)
			}
		}
		if len(extra) > 0 {
			slices.Sort(extra)
			report(out, path, additionalMessage(extra))
		}
	}

	for _, p := range o.props {
		if v, present := obj[p.Name]; present {
			p.Node.check(joinKey(path, p.Name), v, false, out)
		}
	}
}

func (o *ObjectNode) jsonSchema() *jsonschema.Schema {
	s := &jsonschema.Schema{Type: "object", Properties: jsonschema.NewProperties()}
	for _, p := range o.props {
		s.Properties.Set(p.Name, p.Node.jsonSchema())
	}
	if len(o.required) > 0 {
		s.Required = slices.Clone(o.required)
	}
	if o.closed {
		s.AdditionalProperties = jsonschema.FalseSchema
	}
	return s
}

// ArrayNode accepts JSON arrays whose items all match one node.
type ArrayNode struct {
	items Node
}

// Array declares an array of items.
func Array(items Node) *ArrayNode {
	return &ArrayNode{items: items}
}

func (a *ArrayNode) check(path string, value any, nullable bool, out *[]string) {
	arr, ok := value.([]any)
	if !ok {
		report(out, path, typeMessage(value, "array", nullable))
		return
	}
	for i, item := range arr {
		a.items.check(path+"["+strconv.Itoa(i)+"]", item, false, out)
	}
}

func (a *ArrayNode) jsonSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: a.items.jsonSchema()}
}

// StringNode accepts strings, optionally constrained by a regular expression.
type StringNode struct {
	pattern *regexp.Regexp
}

// String declares an unconstrained string.
func String() *StringNode {
	return &StringNode{}
}

// Pattern declares a string that must match expr.
func Pattern(expr string) *StringNode {
	return &StringNode{pattern: regexp.MustCompile(expr)}
}

func (s *StringNode) check(path string, value any, nullable bool, out *[]string) {
	str, ok := value.(string)
	if !ok {
		report(out, path, typeMessage(value, "string", nullable))
		return
	}
	if s.pattern != nil && !s.pattern.MatchString(str) {
		report(out, path, fmt.Sprintf("%s does not match %s", quote(str), quote(s.pattern.String())))
	}
}

func (s *StringNode) jsonSchema() *jsonschema.Schema {
	out := &jsonschema.Schema{Type: "string"}
	if s.pattern != nil {
		out.Pattern = s.pattern.String()
	}
	return out
}

// NumberNode accepts JSON numbers, optionally bounded below.
type NumberNode struct {
	minimum *float64
}

// Number declares an unconstrained number.
func Number() *NumberNode {
	return &NumberNode{}
}

// Min sets an inclusive lower bound.
func (n *NumberNode) Min(minimum float64) *NumberNode {
	n.minimum = &minimum
	return n
}

func (n *NumberNode) check(path string, value any, nullable bool, out *[]string) {
	if num, isNum := value.(json.Number); isNum {
		if _, err := num.Float64(); errors.Is(err, strconv.ErrRange) {
			report(out, path, fmt.Sprintf("%s is out of range for a number", render(value)))
			return
		}
	}
	f, ok := toFloat(value)
	if !ok {
		report(out, path, typeMessage(value, "number", nullable))
		return
	}
	if n.minimum != nil && f < *n.minimum {
		report(out, path, fmt.Sprintf("%s is less than the minimum of %s", render(value), formatFloat(*n.minimum)))
	}
}

func (n *NumberNode) jsonSchema() *jsonschema.Schema {
	out := &jsonschema.Schema{Type: "number"}
	if n.minimum != nil {
		out.Minimum = json.Number(formatFloat(*n.minimum))
	}
	return out
}

// BooleanNode accepts true and false.
type BooleanNode struct{}

// Boolean declares a boolean.
func Boolean() *BooleanNode {
	return &BooleanNode{}
}

func (b *BooleanNode) check(path string, value any, nullable bool, out *[]string) {
	if _, ok := value.(bool); !ok {
		report(out, path, typeMessage(value, "boolean", nullable))
	}
}

func (b *BooleanNode) jsonSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean"}
}

// EnumNode accepts one of a closed set of strings.
type EnumNode struct {
	values []string
}

// Enum declares a closed string set. Include "" to allow "unspecified".
func Enum(values ...string) *EnumNode {
	return &EnumNode{values: values}
}

func (e *EnumNode) check(path string, value any, nullable bool, out *[]string) {
	if str, ok := value.(string); ok && slices.Contains(e.values, str) {
		return
	}
	quoted := make([]string, len(e.values))
	for i, v := range e.values {
		quoted[i] = quote(v)
	}
	report(out, path, fmt.Sprintf("%s is not one of [%s]", render(value), strings.Join(quoted, ", ")))
}

func (e *EnumNode) jsonSchema() *jsonschema.Schema {
	values := make([]any, len(e.values))
	for i, v := range e.values {
		values[i] = v
	}
	return &jsonschema.Schema{Type: "string", Enum: values}
}

// NullableNode accepts null or whatever its inner node accepts.
type NullableNode struct {
	inner Node
}

// Nullable wraps node so that null is also accepted.
func Nullable(node Node) *NullableNode {
	return &NullableNode{inner: node}
}

func (n *NullableNode) check(path string, value any, _ bool, out *[]string) {
	if value == nil {
		return
	}
	n.inner.check(path, value, true, out)
}

func (n *NullableNode) jsonSchema() *jsonschema.Schema {
	return &jsonschema.Schema{AnyOf: []*jsonschema.Schema{
		n.inner.jsonSchema(),
		{Type: "null"},
	}}
}

func report(out *[]string, path, msg string) {
	if path != "" {
		msg = path + ": " + msg
	}
	*out = append(*out, msg)
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
