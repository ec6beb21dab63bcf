package cron

// FieldKind tags the variant a parsed cron field holds.
type FieldKind int

const (
	// KindAny is "*": every value matches.
	KindAny FieldKind = iota
	// KindSingle is a single integer.
	KindSingle
	// KindList is a comma-separated list of integers.
	KindList
	// KindRange is an inclusive range "a-b".
	KindRange
	// KindStep is "*/s" or "a-b/s".
	KindStep
)

// Field is one parsed position of a cron expression.
type Field struct {
	Kind FieldKind

	// Values holds the single value (KindSingle) or list values (KindList).
	Values []int

	// Lo, Hi and Step describe KindRange (Step fixed at 1) and KindStep.
	Lo, Hi, Step int
}

// Matches reports whether v satisfies the field.
func (f Field) Matches(v int) bool {
	switch f.Kind {
	case KindAny:
		return true
	case KindSingle, KindList:
		for _, want := range f.Values {
			if v == want {
				return true
			}
		}
		return false
	case KindRange:
		return v >= f.Lo && v <= f.Hi
	case KindStep:
		return v >= f.Lo && v <= f.Hi && (v-f.Lo)%f.Step == 0
	default:
		return false
	}
}

// Restricted reports whether the field constrains its values at all.
// Day-of-month/weekday OR-matching applies only between restricted fields.
func (f Field) Restricted() bool {
	return f.Kind != KindAny
}

// Expression is a parsed five-field cron expression.
// Build one with Parse; a zero Expression matches nothing useful.
type Expression struct {
	Minute Field
	Hour   Field
	Dom    Field // day of month, 1–31
	Month  Field // 1–12
	Dow    Field // weekday, 0–6, 0 = Sunday

	raw string
}

// String returns the original expression text.
func (e Expression) String() string {
	return e.raw
}

// MarshalText implements encoding.TextMarshaler. Expressions serialize as
// their original text so stores can persist them as plain strings.
func (e Expression) MarshalText() ([]byte, error) {
	return []byte(e.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler by re-parsing the
// expression text. Empty input yields the zero Expression.
func (e *Expression) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*e = Expression{}
		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}
