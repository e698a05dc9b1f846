package expr

// Kind tags the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is a tagged union mirroring the JSON-ish shape of the metrics
// record: null, bool, number, string, array, or object. The expression
// evaluator never works against Go's untyped interface{} directly — every
// resolved path is converted into one of these variants first, so
// comparisons are structural rather than ambient string/interface equality.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Array  []Value
	Object map[string]Value
}

// Null is the canonical missing/absent value.
var Null = Value{Kind: KindNull}

// FromAny converts a decoded JSON value (as produced by encoding/json or
// goccy/go-yaml unmarshalling into interface{}) into a tagged Value tree.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		return Value{Kind: KindNumber, Number: t}
	case int:
		return Value{Kind: KindNumber, Number: float64(t)}
	case int64:
		return Value{Kind: KindNumber, Number: float64(t)}
	case string:
		return Value{Kind: KindString, Str: t}
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = FromAny(e)
		}
		return Value{Kind: KindArray, Array: arr}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = FromAny(e)
		}
		return Value{Kind: KindObject, Object: obj}
	default:
		return Null
	}
}

// Get navigates one dotted segment deeper into an object-valued Value.
// Returns (Null, false) if v is not an object or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Null, false
	}
	child, ok := v.Object[key]
	if !ok {
		return Null, false
	}
	return child, true
}

// ResolvePath walks a dotted segment chain starting at v, returning the
// resolved Value and whether every segment was found. A segment that
// resolves to an explicit JSON null counts as not found: model.Record's
// nullable fields always marshal to "key": null rather than omitting the
// key, so treating a present-but-null leaf as found would mask the
// build-tool-absent case the confidence scoring relies on detecting.
func (v Value) ResolvePath(segments []string) (Value, bool) {
	cur := v
	for _, seg := range segments {
		next, ok := cur.Get(seg)
		if !ok {
			return Null, false
		}
		cur = next
	}
	if cur.Kind == KindNull {
		return Null, false
	}
	return cur, true
}

// IsEmptyCollection reports whether v is an array or object with zero elements.
func (v Value) IsEmptyCollection() (empty bool, ok bool) {
	switch v.Kind {
	case KindArray:
		return len(v.Array) == 0, true
	case KindObject:
		return len(v.Object) == 0, true
	default:
		return false, false
	}
}

// Equal performs structural comparison: two Values are equal only when
// their Kind and underlying data match exactly. No type coercion — a
// number and a bool, or a number and a string, are never equal regardless
// of apparent value.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Number == b.Number
	case KindString:
		return a.Str == b.Str
	case KindArray:
		if len(a.Array) != len(b.Array) {
			return false
		}
		for i := range a.Array {
			if !Equal(a.Array[i], b.Array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Object) != len(b.Object) {
			return false
		}
		for k, av := range a.Object {
			bv, ok := b.Object[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
